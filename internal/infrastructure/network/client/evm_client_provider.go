package client

import (
	"fmt"
	"sync"
	"time"

	"conviction_voting/internal/app/port"
	"conviction_voting/internal/domain/entity"
	"conviction_voting/internal/infrastructure/configloader"
)

// evmClientProvider реализует интерфейс port.BlockchainClientProvider.
type evmClientProvider struct {
	clients map[string]*EVMClient
	mu      sync.Mutex
	logger  port.Logger
	opts    Options
}

// EVMClientProvider is a BlockchainClientProvider that also exposes the
// concrete clients for contract bindings.
type EVMClientProvider interface {
	port.BlockchainClientProvider
	GetEVMClient(networkDefinition entity.NetworkDefinition) (*EVMClient, error)
	CloseAll()
}

// OptionsFromConfig maps the performance and cache sections onto client options.
func OptionsFromConfig(cfg *configloader.Config) Options {
	return Options{
		ConnectionTimeout:  time.Duration(cfg.Performance.ConnectionTimeoutSeconds) * time.Second,
		RPCCallTimeout:     time.Duration(cfg.Performance.RPCCallTimeoutSeconds) * time.Second,
		RateLimitPerSecond: cfg.Performance.RateLimitPerSecond,
		RateLimitBurst:     cfg.Performance.RateLimitBurst,
		CacheExpiration:    time.Duration(cfg.Cache.DefaultExpirationMinutes) * time.Minute,
		CacheCleanup:       time.Duration(cfg.Cache.CleanupIntervalMinutes) * time.Minute,
	}
}

// NewEVMClientProvider creates a new EVMClientProvider.
func NewEVMClientProvider(cfg *configloader.Config, logger port.Logger) EVMClientProvider {
	return &evmClientProvider{
		clients: make(map[string]*EVMClient),
		logger:  logger,
		opts:    OptionsFromConfig(cfg),
	}
}

// GetClient retrieves a chain client for the given network definition.
func (p *evmClientProvider) GetClient(netDef entity.NetworkDefinition) (port.ChainClient, error) {
	c, err := p.GetEVMClient(netDef)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetEVMClient возвращает клиента из кеша, при первом обращении подключается к сети.
func (p *evmClientProvider) GetEVMClient(netDef entity.NetworkDefinition) (*EVMClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	clientKey := fmt.Sprintf("%d:%s", netDef.ChainID, netDef.PrimaryRPCURL)
	if client, exists := p.clients[clientKey]; exists {
		p.logger.Debug("Returning cached EVM client", "network", netDef.Name)
		return client, nil
	}

	p.logger.Debug("Creating new EVM client", "network", netDef.Name, "rpc_primary", netDef.PrimaryRPCURL)
	newClient, err := NewEVMClient(netDef, p.opts)
	if err != nil {
		p.logger.Error("Failed to create EVM client", "network", netDef.Name, "error", err)
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", netDef.Name, err)
	}

	p.clients[clientKey] = newClient
	return newClient, nil
}

// CloseAll закрывает все закешированные клиенты.
func (p *evmClientProvider) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, c := range p.clients {
		c.Close()
		delete(p.clients, key)
	}
}
