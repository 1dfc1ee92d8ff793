package service

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"conviction_voting/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testProxy   = "0xe00b7b05c163e96923dfba4189c03b075a7d2849"
	testSenderA = "0x1111111111111111111111111111111111111111"
	testSenderB = "0x2222222222222222222222222222222222222222"
)

var gwei = big.NewInt(1_000_000_000)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// recordingLogger keeps every message for assertions.
type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

func (l *recordingLogger) Info(msg string, _ ...any)  { l.add(msg) }
func (l *recordingLogger) Debug(msg string, _ ...any) { l.add(msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.add(msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.add(msg) }

// mockChainClient is an in-memory port.ChainClient.
type mockChainClient struct {
	head     uint64
	headErr  error
	logs     []string
	logsErr  error
	txs      map[string]*entity.RawTransaction
	receipts map[string]*entity.RawReceipt
	delay    time.Duration

	headCalls atomic.Int32
	inFlight  atomic.Int32
	maxSeen   atomic.Int32

	mu        sync.Mutex
	logsQuery [3]any
}

func newMockChainClient() *mockChainClient {
	return &mockChainClient{
		head:     11_000_000,
		txs:      make(map[string]*entity.RawTransaction),
		receipts: make(map[string]*entity.RawReceipt),
	}
}

func (m *mockChainClient) addTx(hash, from string, gasPrice *big.Int, gasUsed string) {
	m.txs[hash] = &entity.RawTransaction{Hash: hash, From: from, GasPrice: gasPrice}
	m.receipts[hash] = &entity.RawReceipt{TransactionHash: hash, GasUsed: gasUsed}
	m.logs = append(m.logs, hash)
}

func (m *mockChainClient) enter() func() {
	n := m.inFlight.Add(1)
	for {
		seen := m.maxSeen.Load()
		if n <= seen || m.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return func() { m.inFlight.Add(-1) }
}

func (m *mockChainClient) BlockNumber(context.Context) (uint64, error) {
	m.headCalls.Add(1)
	return m.head, m.headErr
}

func (m *mockChainClient) GetLogs(_ context.Context, address string, fromBlock, toBlock uint64) ([]string, error) {
	m.mu.Lock()
	m.logsQuery = [3]any{address, fromBlock, toBlock}
	m.mu.Unlock()
	if m.logsErr != nil {
		return nil, m.logsErr
	}
	return append([]string(nil), m.logs...), nil
}

func (m *mockChainClient) GetTransaction(_ context.Context, hash string) (*entity.RawTransaction, error) {
	defer m.enter()()
	tx, ok := m.txs[hash]
	if !ok {
		return nil, errors.New("not found")
	}
	return tx, nil
}

func (m *mockChainClient) GetTransactionReceipt(_ context.Context, hash string) (*entity.RawReceipt, error) {
	defer m.enter()()
	r, ok := m.receipts[hash]
	if !ok {
		return nil, errors.New("not found")
	}
	return r, nil
}

func (m *mockChainClient) Definition() entity.NetworkDefinition {
	return entity.NetworkDefinition{Identifier: "mock"}
}

func defaultRange() entity.RangeDefaults {
	return entity.RangeDefaults{Proxy: testProxy, FromBlock: 10736632}
}

func ptr[T any](v T) *T { return &v }

func TestResolveRange(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults and chain head", func(t *testing.T) {
		client := newMockChainClient()
		svc := NewGasCostService(client, nopLogger{}, defaultRange(), 0)

		rng, err := svc.ResolveRange(ctx, entity.ScanOptions{}, defaultRange())
		require.NoError(t, err)
		assert.Equal(t, entity.ScanRange{Proxy: testProxy, FromBlock: 10736632, ToBlock: 11_000_000}, rng)
		assert.Equal(t, int32(1), client.headCalls.Load())
	})

	t.Run("flags win and head is not queried", func(t *testing.T) {
		client := newMockChainClient()
		client.headErr = errors.New("must not be called")
		svc := NewGasCostService(client, nopLogger{}, defaultRange(), 0)

		rng, err := svc.ResolveRange(ctx, entity.ScanOptions{
			Proxy:     ptr("0x0000000000000000000000000000000000000001"),
			FromBlock: ptr(uint64(5)),
			ToBlock:   ptr(uint64(9)),
			Expanded:  ptr(true),
		}, defaultRange())
		require.NoError(t, err)
		assert.Equal(t, entity.ScanRange{Proxy: "0x0000000000000000000000000000000000000001", FromBlock: 5, ToBlock: 9, Expanded: true}, rng)
		assert.Equal(t, int32(0), client.headCalls.Load())
	})

	t.Run("head error", func(t *testing.T) {
		client := newMockChainClient()
		client.headErr = errors.New("connection refused")
		svc := NewGasCostService(client, nopLogger{}, defaultRange(), 0)

		_, err := svc.ResolveRange(ctx, entity.ScanOptions{}, defaultRange())
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestFetchLogsPassesRange(t *testing.T) {
	client := newMockChainClient()
	client.logs = []string{"0xb", "0xa", "0xb"}
	svc := NewGasCostService(client, nopLogger{}, defaultRange(), 0)

	hashes, err := svc.FetchLogs(context.Background(), entity.ScanRange{Proxy: testProxy, FromBlock: 1, ToBlock: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"0xb", "0xa", "0xb"}, hashes)
	assert.Equal(t, [3]any{testProxy, uint64(1), uint64(2)}, client.logsQuery)
}

func TestFetchFeeRecordsKeepsInputOrder(t *testing.T) {
	client := newMockChainClient()
	for i, from := range []string{testSenderA, testSenderB, testSenderA, testSenderB, testSenderA} {
		client.addTx("0x"+strings.Repeat(string(rune('a'+i)), 64), from, big.NewInt(int64(i+1)), "0x1")
	}
	client.delay = time.Millisecond
	svc := NewGasCostService(client, nopLogger{}, defaultRange(), 0)

	records, err := svc.FetchFeeRecords(context.Background(), client.logs)
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i, r := range records {
		assert.Equal(t, client.logs[i], r.Hash)
		assert.Equal(t, int64(i+1), r.GasPrice.Int64())
		assert.Equal(t, "0x1", r.GasUsed)
	}
}

func TestFetchFeeRecordsRespectsLimit(t *testing.T) {
	client := newMockChainClient()
	for i := 0; i < 8; i++ {
		client.addTx("0x"+strings.Repeat(string(rune('a'+i)), 64), testSenderA, gwei, "0x5208")
	}
	client.delay = 5 * time.Millisecond
	svc := NewGasCostService(client, nopLogger{}, defaultRange(), 2)

	_, err := svc.FetchFeeRecords(context.Background(), client.logs)
	require.NoError(t, err)
	assert.LessOrEqual(t, client.maxSeen.Load(), int32(2))
}

func TestFetchFeeRecordsFailsAsAWhole(t *testing.T) {
	client := newMockChainClient()
	client.addTx("0xaa", testSenderA, gwei, "0x5208")
	client.logs = append(client.logs, "0xmissing")
	svc := NewGasCostService(client, nopLogger{}, defaultRange(), 0)

	records, err := svc.FetchFeeRecords(context.Background(), client.logs)
	assert.Nil(t, records)
	assert.ErrorContains(t, err, "0xmissing")
}

func TestFetchFeeRecordsEmpty(t *testing.T) {
	svc := NewGasCostService(newMockChainClient(), nopLogger{}, defaultRange(), 0)

	records, err := svc.FetchFeeRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAggregate(t *testing.T) {
	records := []entity.TransactionFeeRecord{
		{Hash: "0x1", From: testSenderB, GasPrice: gwei, GasUsed: "0x5208"},
		{Hash: "0x2", From: testSenderA, GasPrice: gwei, GasUsed: "0x5208"},
		{Hash: "0x3", From: testSenderB, GasPrice: big.NewInt(2), GasUsed: "0x10"},
	}

	senders, err := Aggregate(records)
	require.NoError(t, err)
	require.Len(t, senders, 2)
	assert.Equal(t, testSenderB, senders[0].From)
	assert.Equal(t, "21000000000032", senders[0].Fee.String())
	assert.Equal(t, testSenderA, senders[1].From)
	assert.Equal(t, "21000000000000", senders[1].Fee.String())

	_, err = Aggregate([]entity.TransactionFeeRecord{{Hash: "0x1", From: testSenderA, GasPrice: gwei, GasUsed: "zz"}})
	assert.Error(t, err)
}

func TestReportGroupedSameSender(t *testing.T) {
	records := []entity.TransactionFeeRecord{
		{Hash: "0x1", From: testSenderA, GasPrice: gwei, GasUsed: "0x5208"},
		{Hash: "0x2", From: testSenderA, GasPrice: gwei, GasUsed: "0x5208"},
	}

	out, err := Report(records, false)
	require.NoError(t, err)
	assert.Equal(t, testSenderA+"\t42000000000000\n", out)
}

func TestReportExpanded(t *testing.T) {
	records := []entity.TransactionFeeRecord{
		{Hash: "0xabc", From: testSenderA, GasPrice: gwei, GasUsed: "0x5208"},
	}

	out, err := Report(records, true)
	require.NoError(t, err)
	assert.Equal(t, "0xabc\t"+testSenderA+"\t21000000000000\n", out)
}

func TestReportEmpty(t *testing.T) {
	out, err := Report(nil, false)
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestReportJSON(t *testing.T) {
	records := []entity.TransactionFeeRecord{
		{Hash: "0x1", From: testSenderA, GasPrice: gwei, GasUsed: "0x5208"},
		{Hash: "0x2", From: testSenderA, GasPrice: gwei, GasUsed: "0x5208"},
	}

	out, err := ReportJSON(entity.ScanRange{Proxy: testProxy, FromBlock: 1, ToBlock: 2}, records)
	require.NoError(t, err)
	assert.JSONEq(t, `{"proxy":"`+testProxy+`","fromBlock":1,"toBlock":2,"expanded":false,
		"fees":[{"from":"`+testSenderA+`","fee":"42000000000000"}]}`, out)

	out, err = ReportJSON(entity.ScanRange{Proxy: testProxy, FromBlock: 1, ToBlock: 2, Expanded: true}, records[:1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"proxy":"`+testProxy+`","fromBlock":1,"toBlock":2,"expanded":true,
		"fees":[{"hash":"0x1","from":"`+testSenderA+`","fee":"21000000000000"}]}`, out)
}

func TestRun(t *testing.T) {
	client := newMockChainClient()
	client.addTx("0xaa", testSenderA, gwei, "0x5208")
	client.addTx("0xbb", testSenderB, gwei, "0x5208")
	client.logs = append(client.logs, "0xaa")
	logger := &recordingLogger{}
	svc := NewGasCostService(client, logger, defaultRange(), 0)

	var buf bytes.Buffer
	require.NoError(t, svc.Run(context.Background(), entity.ScanOptions{}, &buf))
	assert.Equal(t, testSenderA+"\t42000000000000\n"+testSenderB+"\t21000000000000\n", buf.String())
	assert.Contains(t, logger.msgs, "Processing 3 transactions…")
	assert.Contains(t, logger.msgs, "Gas spent from block 10736632 to 11000000 (in wei):")
}

func TestRunUnique(t *testing.T) {
	client := newMockChainClient()
	client.addTx("0xaa", testSenderA, gwei, "0x5208")
	client.logs = append(client.logs, "0xaa")
	svc := NewGasCostService(client, nopLogger{}, defaultRange(), 0)

	var buf bytes.Buffer
	require.NoError(t, svc.Run(context.Background(), entity.ScanOptions{Unique: true, Expanded: ptr(true)}, &buf))
	assert.Equal(t, "0xaa\t"+testSenderA+"\t21000000000000\n", buf.String())
}

func TestRunWritesNothingOnFailure(t *testing.T) {
	client := newMockChainClient()
	client.addTx("0xaa", testSenderA, gwei, "0x5208")
	client.logs = append(client.logs, "0xgone")
	svc := NewGasCostService(client, nopLogger{}, defaultRange(), 0)

	var buf bytes.Buffer
	err := svc.Run(context.Background(), entity.ScanOptions{}, &buf)
	assert.Error(t, err)
	assert.Empty(t, buf.String())

	client.logsErr = errors.New("query returned more than 10000 results")
	err = svc.Run(context.Background(), entity.ScanOptions{}, &buf)
	assert.ErrorContains(t, err, "10000 results")
	assert.Empty(t, buf.String())
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	client := newMockChainClient()
	svc := NewGasCostService(client, nopLogger{}, defaultRange(), 0)

	err := svc.Run(context.Background(), entity.ScanOptions{Format: "csv"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown report format")
	assert.Equal(t, int32(0), client.headCalls.Load())
}
