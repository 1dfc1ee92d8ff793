package networkdefinition

import (
	"fmt"
	"sort"
	"strings"

	"conviction_voting/internal/app/port"
	"conviction_voting/internal/domain/entity"
	"conviction_voting/internal/infrastructure/configloader"
)

// NetworkDefinitionProvider предоставляет описания сетей.
type NetworkDefinitionProvider struct {
	logger         port.Logger
	allNetworkDefs map[string]entity.NetworkDefinition
}

// Предопределенные сети
var ( //nolint:gochecknoglobals // Global for definitions
	Mainnet = entity.NetworkDefinition{
		ChainID:          1,
		Name:             "Ethereum Mainnet",
		Identifier:       "mainnet",
		NativeSymbol:     "ETH",
		Decimals:         18,
		PrimaryRPCURL:    "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:  []string{"https://rpc.ankr.com/eth", "https://ethereum.publicnode.com"},
		BlockExplorerURL: "https://etherscan.io",
	}
	XDai = entity.NetworkDefinition{
		ChainID:          100,
		Name:             "xDai Chain",
		Identifier:       "xdai",
		NativeSymbol:     "xDAI",
		Decimals:         18,
		PrimaryRPCURL:    "https://rpc.gnosischain.com",
		FallbackRPCURLs:  []string{"https://rpc.ankr.com/gnosis", "https://gnosis.publicnode.com"},
		BlockExplorerURL: "https://gnosisscan.io",
	}
	// У Rinkeby больше нет публичного RPC, URL нужно задать в конфиге.
	Rinkeby = entity.NetworkDefinition{
		ChainID:          4,
		Name:             "Rinkeby Testnet",
		Identifier:       "rinkeby",
		NativeSymbol:     "ETH",
		Decimals:         18,
		BlockExplorerURL: "https://rinkeby.etherscan.io",
	}
)

var allKnownDefinitions = map[string]entity.NetworkDefinition{
	Mainnet.Identifier: Mainnet,
	XDai.Identifier:    XDai,
	Rinkeby.Identifier: Rinkeby,
}

// NewNetworkDefinitionProvider создает новый NetworkDefinitionProvider.
func NewNetworkDefinitionProvider(log port.Logger) *NetworkDefinitionProvider {
	p := &NetworkDefinitionProvider{
		logger:         log,
		allNetworkDefs: allKnownDefinitions,
	}
	p.logger.Debug("NetworkDefinitionProvider initialized", "networks", len(p.allNetworkDefs))
	return p
}

// GetAllNetworkDefinitions returns every known network ordered by chain ID.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	if p == nil {
		return []entity.NetworkDefinition{}
	}
	defs := make([]entity.NetworkDefinition, 0, len(p.allNetworkDefs))
	for _, def := range p.allNetworkDefs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ChainID < defs[j].ChainID })
	return defs
}

// GetNetworkDefinitionByName returns a specific network definition by its identifier.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	def, ok := p.allNetworkDefs[strings.ToLower(strings.TrimSpace(identifier))]
	return def, ok
}

// GetNetworkDefinitionByChainID returns a specific network definition by its chain ID.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByChainID(chainID uint64) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.allNetworkDefs {
		if def.ChainID == chainID {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}

// Resolve looks up the configured network and applies its RPC overrides.
// A configured RPC URL becomes the primary endpoint and the predefined one
// moves to the front of the fallbacks.
func (p *NetworkDefinitionProvider) Resolve(cfg configloader.NetworkConfig) (entity.NetworkDefinition, error) {
	def, ok := p.GetNetworkDefinitionByName(cfg.Identifier)
	if !ok {
		return entity.NetworkDefinition{}, fmt.Errorf("unknown network %q", cfg.Identifier)
	}

	fallbacks := make([]string, 0, len(cfg.FallbackRPCURLs)+len(def.FallbackRPCURLs)+1)
	fallbacks = append(fallbacks, cfg.FallbackRPCURLs...)
	if cfg.RPCURL != "" {
		if def.PrimaryRPCURL != "" {
			fallbacks = append(fallbacks, def.PrimaryRPCURL)
		}
		def.PrimaryRPCURL = cfg.RPCURL
	}
	def.FallbackRPCURLs = append(fallbacks, def.FallbackRPCURLs...)

	if def.PrimaryRPCURL == "" {
		if len(def.FallbackRPCURLs) == 0 {
			return entity.NetworkDefinition{}, fmt.Errorf("network %q has no RPC endpoint, set network.rpcURL or --rpc-url", def.Identifier)
		}
		def.PrimaryRPCURL, def.FallbackRPCURLs = def.FallbackRPCURLs[0], def.FallbackRPCURLs[1:]
	}

	p.logger.Debug("Resolved network", "network", def.Identifier, "chain_id", def.ChainID, "rpc_primary", def.PrimaryRPCURL,
		"fallbacks", len(def.FallbackRPCURLs))
	return def, nil
}
