package configloader

import (
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultProxy is the conviction voting pilot proxy scanned by gas_cost.
	DefaultProxy = "0xe00b7b05c163e96923dfba4189c03b075a7d2849"
	// DefaultFromBlock is the block the pilot proxy was deployed at.
	DefaultFromBlock uint64 = 10736632

	defaultNetwork  = "mainnet"
	defaultDecimals = 18
)

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port                string   `yaml:"port"`
	ReadTimeoutSeconds  int      `yaml:"readTimeoutSeconds"`
	WriteTimeoutSeconds int      `yaml:"writeTimeoutSeconds"`
	AllowedOrigins      []string `yaml:"allowedOrigins"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// NetworkConfig selects one of the predefined networks and optionally
// overrides its RPC endpoints.
type NetworkConfig struct {
	Identifier      string   `yaml:"identifier"`
	RPCURL          string   `yaml:"rpcURL"`
	FallbackRPCURLs []string `yaml:"fallbackRpcURLs"`
}

// PerformanceConfig holds performance-related configurations.
type PerformanceConfig struct {
	// MaxConcurrentRoutines bounds the fee fetch fan-out. 0 means unbounded.
	MaxConcurrentRoutines    int     `yaml:"max_concurrent_routines"`
	RPCCallTimeoutSeconds    int     `yaml:"rpc_call_timeout_seconds"`
	ConnectionTimeoutSeconds int     `yaml:"connection_timeout_seconds"`
	RateLimitPerSecond       float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst           int     `yaml:"rate_limit_burst"`
}

// GasCostConfig holds the scan defaults used when a flag is absent.
type GasCostConfig struct {
	Proxy     string `yaml:"proxy"`
	FromBlock uint64 `yaml:"fromBlock"`
}

// StakingConfig describes the conviction voting app and its stake token.
type StakingConfig struct {
	ContractAddress        string `yaml:"contractAddress"`
	TokenAddress           string `yaml:"tokenAddress"`
	TokenSymbol            string `yaml:"tokenSymbol"`
	Decimals               uint8  `yaml:"decimals"`
	BalanceCacheTTLSeconds int    `yaml:"balanceCacheTTLSeconds"`
}

// CacheConfig holds configuration for the RPC response memo.
type CacheConfig struct {
	DefaultExpirationMinutes int `yaml:"defaultExpirationMinutes"`
	CleanupIntervalMinutes   int `yaml:"cleanupIntervalMinutes"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Network     NetworkConfig     `yaml:"network"`
	Performance PerformanceConfig `yaml:"performance"`
	GasCost     GasCostConfig     `yaml:"gasCost"`
	Staking     StakingConfig     `yaml:"staking"`
	Cache       CacheConfig       `yaml:"cache"`
}

// Load reads the YAML configuration file from the given path, expands
// environment references and applies defaults. An empty path yields the
// defaults alone.
func Load(path string) (*Config, error) {
	cfg := newConfig()
	if path == "" {
		logrus.Debug("No config path given, using defaults")
		ApplyDefaults(&cfg)
		return &cfg, nil
	}

	logrus.Debugf("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// newConfig seeds the fields whose zero value is a legal setting
// (decimals 0, scanning from genesis). yaml.v3 leaves absent keys untouched,
// so these defaults only survive when the key is missing from the file.
func newConfig() Config {
	return Config{
		GasCost: GasCostConfig{FromBlock: DefaultFromBlock},
		Staking: StakingConfig{Decimals: defaultDecimals},
	}
}

// ApplyDefaults fills every unset field with its default value.
// Staking.Decimals and GasCost.FromBlock are left alone: zero is valid for both.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
		logrus.Debugf("Server.Port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = 10
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		cfg.Server.WriteTimeoutSeconds = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Network.Identifier == "" {
		cfg.Network.Identifier = defaultNetwork
		logrus.Debugf("Network.Identifier not set, defaulting to %s", cfg.Network.Identifier)
	}

	if cfg.Performance.MaxConcurrentRoutines < 0 {
		logrus.Warnf("Performance.MaxConcurrentRoutines is negative (%d), treating as unbounded", cfg.Performance.MaxConcurrentRoutines)
		cfg.Performance.MaxConcurrentRoutines = 0
	}
	if cfg.Performance.RPCCallTimeoutSeconds <= 0 {
		cfg.Performance.RPCCallTimeoutSeconds = 30
		logrus.Debugf("Performance.RPCCallTimeoutSeconds not set, defaulting to %d", cfg.Performance.RPCCallTimeoutSeconds)
	}
	if cfg.Performance.ConnectionTimeoutSeconds <= 0 {
		cfg.Performance.ConnectionTimeoutSeconds = 10
	}
	if cfg.Performance.RateLimitPerSecond > 0 && cfg.Performance.RateLimitBurst <= 0 {
		cfg.Performance.RateLimitBurst = 1
		logrus.Debugf("Performance.RateLimitBurst not set, defaulting to %d", cfg.Performance.RateLimitBurst)
	}

	if cfg.GasCost.Proxy == "" {
		cfg.GasCost.Proxy = DefaultProxy
	}

	if cfg.Staking.BalanceCacheTTLSeconds <= 0 {
		cfg.Staking.BalanceCacheTTLSeconds = 15
	}

	if cfg.Cache.DefaultExpirationMinutes <= 0 {
		cfg.Cache.DefaultExpirationMinutes = 60
	}
	if cfg.Cache.CleanupIntervalMinutes <= 0 {
		cfg.Cache.CleanupIntervalMinutes = 10
	}
}

// ValidateStaking checks the fields the support API cannot run without.
func (c *Config) ValidateStaking() error {
	var errs []error
	if !common.IsHexAddress(c.Staking.ContractAddress) {
		errs = append(errs, fmt.Errorf("staking.contractAddress %q is not a valid address", c.Staking.ContractAddress))
	}
	if !common.IsHexAddress(c.Staking.TokenAddress) {
		errs = append(errs, fmt.Errorf("staking.tokenAddress %q is not a valid address", c.Staking.TokenAddress))
	}
	return errors.Join(errs...)
}
