package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"conviction_voting/internal/domain/entity"
	"conviction_voting/internal/pkg/metrics"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// ErrNotFound is returned when the node has no transaction or receipt for a hash.
var ErrNotFound = ethereum.NotFound

// Options tunes an EVMClient.
type Options struct {
	ConnectionTimeout time.Duration
	RPCCallTimeout    time.Duration
	// RateLimitPerSecond caps outgoing requests. 0 disables the limiter.
	RateLimitPerSecond float64
	RateLimitBurst     int
	// CacheExpiration controls how long transactions and receipts are memoized.
	CacheExpiration time.Duration
	CacheCleanup    time.Duration
}

// EVMClient implements port.ChainClient for EVM-compatible chains.
type EVMClient struct {
	ethClient      *ethclient.Client
	rpcClient      *rpc.Client
	netDef         entity.NetworkDefinition
	rpcCallTimeout time.Duration
	limiter        *rate.Limiter
	memo           *cache.Cache
}

// rpcTransaction is the subset of eth_getTransactionByHash the fee report needs.
type rpcTransaction struct {
	Hash     common.Hash    `json:"hash"`
	From     common.Address `json:"from"`
	GasPrice *hexutil.Big   `json:"gasPrice"`
}

// rpcReceipt keeps gasUsed as the node's hex quantity.
type rpcReceipt struct {
	TransactionHash common.Hash `json:"transactionHash"`
	GasUsed         string      `json:"gasUsed"`
}

// NewEVMClient dials the primary RPC URL of netDef, falling back to the
// others in order.
func NewEVMClient(netDef entity.NetworkDefinition, opts Options) (*EVMClient, error) {
	rpcURLs := append([]string{netDef.PrimaryRPCURL}, netDef.FallbackRPCURLs...)
	var lastErr error

	for _, rpcURL := range rpcURLs {
		if rpcURL == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectionTimeout)
		rpcClient, err := rpc.DialContext(ctx, rpcURL)
		cancel()

		if err == nil {
			return NewEVMClientFromRPC(rpcClient, netDef, opts), nil
		}
		lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
	}

	if lastErr == nil {
		lastErr = errors.New("no RPC URL configured")
	}
	return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", netDef.Name, lastErr)
}

// NewEVMClientFromRPC wraps an already connected RPC client.
func NewEVMClientFromRPC(rpcClient *rpc.Client, netDef entity.NetworkDefinition, opts Options) *EVMClient {
	if opts.RPCCallTimeout <= 0 {
		opts.RPCCallTimeout = 30 * time.Second
	}
	if opts.CacheExpiration <= 0 {
		opts.CacheExpiration = time.Hour
	}
	if opts.CacheCleanup <= 0 {
		opts.CacheCleanup = 10 * time.Minute
	}

	c := &EVMClient{
		ethClient:      ethclient.NewClient(rpcClient),
		rpcClient:      rpcClient,
		netDef:         netDef,
		rpcCallTimeout: opts.RPCCallTimeout,
		memo:           cache.New(opts.CacheExpiration, opts.CacheCleanup),
	}
	if opts.RateLimitPerSecond > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitPerSecond), burst)
	}
	return c
}

// call runs fn under the per-call timeout and the rate limiter and records metrics.
func (c *EVMClient) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait for %s: %w", method, err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	metrics.ObserveRPC(method, start, err)
	return err
}

// BlockNumber returns the current chain head.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	var head uint64
	err := c.call(ctx, "eth_blockNumber", func(ctx context.Context) error {
		var err error
		head, err = c.ethClient.BlockNumber(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber: %w", err)
	}
	return head, nil
}

// GetLogs returns the transaction hash of every log emitted by address in
// [fromBlock, toBlock], one entry per log.
func (c *EVMClient) GetLogs(ctx context.Context, address string, fromBlock, toBlock uint64) ([]string, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{common.HexToAddress(address)},
	}

	var hashes []string
	err := c.call(ctx, "eth_getLogs", func(ctx context.Context) error {
		logs, err := c.ethClient.FilterLogs(ctx, query)
		if err != nil {
			return err
		}
		hashes = make([]string, len(logs))
		for i, l := range logs {
			hashes[i] = l.TxHash.Hex()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("eth_getLogs for %s in [%d, %d]: %w", address, fromBlock, toBlock, err)
	}
	return hashes, nil
}

// GetTransaction fetches a transaction by hash. Results are memoized.
func (c *EVMClient) GetTransaction(ctx context.Context, hash string) (*entity.RawTransaction, error) {
	key := "tx:" + hash
	if cached, ok := c.memo.Get(key); ok {
		metrics.RPCCacheHits.WithLabelValues("eth_getTransactionByHash").Inc()
		tx := cached.(entity.RawTransaction)
		return &tx, nil
	}

	var raw *rpcTransaction
	err := c.call(ctx, "eth_getTransactionByHash", func(ctx context.Context) error {
		return c.rpcClient.CallContext(ctx, &raw, "eth_getTransactionByHash", common.HexToHash(hash))
	})
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionByHash %s: %w", hash, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("transaction %s: %w", hash, ErrNotFound)
	}
	if raw.GasPrice == nil {
		return nil, fmt.Errorf("transaction %s has no gasPrice", hash)
	}

	tx := entity.RawTransaction{
		Hash:     raw.Hash.Hex(),
		From:     raw.From.Hex(),
		GasPrice: raw.GasPrice.ToInt(),
	}
	c.memo.SetDefault(key, tx)
	return &tx, nil
}

// GetTransactionReceipt fetches the receipt of a mined transaction. Results are memoized.
func (c *EVMClient) GetTransactionReceipt(ctx context.Context, hash string) (*entity.RawReceipt, error) {
	key := "receipt:" + hash
	if cached, ok := c.memo.Get(key); ok {
		metrics.RPCCacheHits.WithLabelValues("eth_getTransactionReceipt").Inc()
		receipt := cached.(entity.RawReceipt)
		return &receipt, nil
	}

	var raw *rpcReceipt
	err := c.call(ctx, "eth_getTransactionReceipt", func(ctx context.Context) error {
		return c.rpcClient.CallContext(ctx, &raw, "eth_getTransactionReceipt", common.HexToHash(hash))
	})
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt %s: %w", hash, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("receipt %s: %w", hash, ErrNotFound)
	}

	receipt := entity.RawReceipt{
		TransactionHash: raw.TransactionHash.Hex(),
		GasUsed:         raw.GasUsed,
	}
	c.memo.SetDefault(key, receipt)
	return &receipt, nil
}

// BatchCall sends elems as one JSON-RPC batch. Per-element errors are left
// on the elements for the caller.
func (c *EVMClient) BatchCall(ctx context.Context, elems []rpc.BatchElem) error {
	if len(elems) == 0 {
		return nil
	}
	err := c.call(ctx, "batch", func(ctx context.Context) error {
		return c.rpcClient.BatchCallContext(ctx, elems)
	})
	if err != nil {
		return fmt.Errorf("RPC batch call failed: %w", err)
	}
	return nil
}

// Definition returns the network definition for this client.
func (c *EVMClient) Definition() entity.NetworkDefinition {
	return c.netDef
}

// Close releases the underlying connection.
func (c *EVMClient) Close() {
	c.rpcClient.Close()
}
