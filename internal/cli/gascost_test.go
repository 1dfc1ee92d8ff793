package cli

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"conviction_voting/internal/app/port"
	"conviction_voting/internal/domain/entity"
	"conviction_voting/internal/infrastructure/configloader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sender = "0x1111111111111111111111111111111111111111"

type stubChain struct {
	head       uint64
	logsFrom   uint64
	logsTo     uint64
	logsProxy  string
	headCalled bool
}

func (s *stubChain) BlockNumber(context.Context) (uint64, error) {
	s.headCalled = true
	return s.head, nil
}

func (s *stubChain) GetLogs(_ context.Context, address string, fromBlock, toBlock uint64) ([]string, error) {
	s.logsProxy, s.logsFrom, s.logsTo = address, fromBlock, toBlock
	return []string{"0xaa", "0xbb"}, nil
}

func (s *stubChain) GetTransaction(_ context.Context, hash string) (*entity.RawTransaction, error) {
	return &entity.RawTransaction{Hash: hash, From: sender, GasPrice: big.NewInt(1_000_000_000)}, nil
}

func (s *stubChain) GetTransactionReceipt(_ context.Context, hash string) (*entity.RawReceipt, error) {
	return &entity.RawReceipt{TransactionHash: hash, GasUsed: "0x5208"}, nil
}

func (s *stubChain) Definition() entity.NetworkDefinition {
	return entity.NetworkDefinition{Identifier: "stub"}
}

func runCommand(t *testing.T, chain *stubChain, args ...string) (string, *configloader.Config, error) {
	t.Helper()
	var gotCfg *configloader.Config
	dial := func(cfg *configloader.Config, _ port.Logger) (port.ChainClient, func(), error) {
		gotCfg = cfg
		return chain, func() {}, nil
	}

	cmd := NewGasCostCommand(dial)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(normalizeArgs(args))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), gotCfg, err
}

func TestGasCostDefaults(t *testing.T) {
	chain := &stubChain{head: 11_000_000}

	out, cfg, err := runCommand(t, chain)
	require.NoError(t, err)
	assert.Equal(t, sender+"\t42000000000000\n", out)
	assert.True(t, chain.headCalled)
	assert.Equal(t, configloader.DefaultProxy, chain.logsProxy)
	assert.Equal(t, configloader.DefaultFromBlock, chain.logsFrom)
	assert.Equal(t, uint64(11_000_000), chain.logsTo)
	assert.Equal(t, "mainnet", cfg.Network.Identifier)
}

func TestGasCostFlags(t *testing.T) {
	chain := &stubChain{}

	out, cfg, err := runCommand(t, chain,
		"--proxy", "0x0000000000000000000000000000000000000009",
		"--from-block", "100",
		"--to-block", "200",
		"--expanded", "true",
		"--network", "xdai",
		"--rpc-url", "http://localhost:8545",
		"--some-truffle-flag",
	)
	require.NoError(t, err)
	assert.Equal(t, "0xaa\t"+sender+"\t21000000000000\n0xbb\t"+sender+"\t21000000000000\n", out)
	assert.False(t, chain.headCalled)
	assert.Equal(t, "0x0000000000000000000000000000000000000009", chain.logsProxy)
	assert.Equal(t, uint64(100), chain.logsFrom)
	assert.Equal(t, uint64(200), chain.logsTo)
	assert.Equal(t, "xdai", cfg.Network.Identifier)
	assert.Equal(t, "http://localhost:8545", cfg.Network.RPCURL)
}

func TestGasCostExpandedFalse(t *testing.T) {
	out, _, err := runCommand(t, &stubChain{}, "--to-block", "5", "--expanded", "false")
	require.NoError(t, err)
	assert.Equal(t, sender+"\t42000000000000\n", out)
}

func TestGasCostJSON(t *testing.T) {
	out, _, err := runCommand(t, &stubChain{}, "--to-block", "5", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"proxy":"`+configloader.DefaultProxy+`","fromBlock":10736632,"toBlock":5,"expanded":false,
		"fees":[{"from":"`+sender+`","fee":"42000000000000"}]}`, out)
}

func TestGasCostDialError(t *testing.T) {
	cmd := NewGasCostCommand(func(*configloader.Config, port.Logger) (port.ChainClient, func(), error) {
		return nil, nil, errors.New("unknown network \"ropsten\"")
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--network", "ropsten"})

	err := cmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "ropsten")
}

func TestNormalizeArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"--expanded=true", "--proxy", "0x1"},
		normalizeArgs([]string{"--expanded", "TRUE", "--proxy", "0x1"}))
	assert.Equal(t,
		[]string{"--expanded", "--proxy", "0x1"},
		normalizeArgs([]string{"--expanded", "--proxy", "0x1"}))
	assert.Equal(t, []string{"--expanded"}, normalizeArgs([]string{"--expanded"}))
}
