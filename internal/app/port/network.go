package port

import (
	"context"

	"conviction_voting/internal/domain/entity"
)

// ChainClient is the read-only view of a node used by the gas cost aggregator.
type ChainClient interface {
	// BlockNumber returns the current chain head.
	BlockNumber(ctx context.Context) (uint64, error)

	// GetLogs returns the transaction hash of every log emitted by address
	// within [fromBlock, toBlock], in the order the node returns them.
	GetLogs(ctx context.Context, address string, fromBlock, toBlock uint64) ([]string, error)

	// GetTransaction fetches a transaction by hash.
	GetTransaction(ctx context.Context, hash string) (*entity.RawTransaction, error)

	// GetTransactionReceipt fetches the receipt of a mined transaction.
	GetTransactionReceipt(ctx context.Context, hash string) (*entity.RawReceipt, error)

	// Definition returns the network definition associated with this client.
	Definition() entity.NetworkDefinition
}

// NetworkDefinitionProvider определяет интерфейс для получения описаний сетей.
type NetworkDefinitionProvider interface {
	// GetAllNetworkDefinitions returns all known network definitions.
	GetAllNetworkDefinitions() []entity.NetworkDefinition

	// GetNetworkDefinitionByName returns a network definition by its identifier.
	GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool)
}

// BlockchainClientProvider выдает клиентов для сетей и кеширует их.
type BlockchainClientProvider interface {
	GetClient(networkDefinition entity.NetworkDefinition) (ChainClient, error)
}
