package service

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"

	"conviction_voting/internal/app/port"
	"conviction_voting/internal/domain/entity"
	"conviction_voting/internal/pkg/metrics"
	"conviction_voting/internal/pkg/utils"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GasCostServiceImpl implements port.GasCostService.
type GasCostServiceImpl struct {
	client                port.ChainClient
	logger                port.Logger
	defaults              entity.RangeDefaults
	maxConcurrentRoutines int
}

// NewGasCostService creates a new GasCostServiceImpl. maxRoutines bounds the
// number of in-flight RPC requests while fetching fee records; 0 or less
// means unbounded.
func NewGasCostService(
	client port.ChainClient,
	l port.Logger,
	defaults entity.RangeDefaults,
	maxRoutines int,
) *GasCostServiceImpl {
	if maxRoutines < 0 {
		maxRoutines = 0
	}
	return &GasCostServiceImpl{
		client:                client,
		logger:                l,
		defaults:              defaults,
		maxConcurrentRoutines: maxRoutines,
	}
}

// ResolveRange fills every option left unset from defaults. The chain head
// is queried only when no to-block was given.
func (s *GasCostServiceImpl) ResolveRange(ctx context.Context, opts entity.ScanOptions, defaults entity.RangeDefaults) (entity.ScanRange, error) {
	rng := entity.ScanRange{
		Proxy:     defaults.Proxy,
		FromBlock: defaults.FromBlock,
	}
	if opts.Proxy != nil {
		rng.Proxy = *opts.Proxy
	}
	if opts.FromBlock != nil {
		rng.FromBlock = *opts.FromBlock
	}
	if opts.Expanded != nil {
		rng.Expanded = *opts.Expanded
	}

	if opts.ToBlock != nil {
		rng.ToBlock = *opts.ToBlock
	} else {
		head, err := s.client.BlockNumber(ctx)
		if err != nil {
			return entity.ScanRange{}, fmt.Errorf("failed to resolve to-block: %w", err)
		}
		rng.ToBlock = head
	}

	s.logger.Debug("Resolved scan range", "proxy", rng.Proxy, "from_block", rng.FromBlock,
		"to_block", rng.ToBlock, "expanded", rng.Expanded)
	return rng, nil
}

// FetchLogs returns one transaction hash per log emitted by the proxy in
// the range, in the order the node returns them.
func (s *GasCostServiceImpl) FetchLogs(ctx context.Context, rng entity.ScanRange) ([]string, error) {
	hashes, err := s.client.GetLogs(ctx, rng.Proxy, rng.FromBlock, rng.ToBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs: %w", err)
	}
	return hashes, nil
}

// FetchFeeRecords fetches every transaction and its receipt concurrently
// and returns the records in the order of hashes. Any failure fails the
// whole call.
func (s *GasCostServiceImpl) FetchFeeRecords(ctx context.Context, hashes []string) ([]entity.TransactionFeeRecord, error) {
	txs := make([]*entity.RawTransaction, len(hashes))
	receipts := make([]*entity.RawReceipt, len(hashes))

	g, gctx := errgroup.WithContext(ctx)
	if s.maxConcurrentRoutines > 0 {
		g.SetLimit(s.maxConcurrentRoutines)
	}

	for i, hash := range hashes {
		i, hash := i, hash
		g.Go(func() error {
			tx, err := s.client.GetTransaction(gctx, hash)
			if err != nil {
				return fmt.Errorf("failed to fetch transaction %s: %w", hash, err)
			}
			txs[i] = tx
			return nil
		})
		g.Go(func() error {
			receipt, err := s.client.GetTransactionReceipt(gctx, hash)
			if err != nil {
				return fmt.Errorf("failed to fetch receipt %s: %w", hash, err)
			}
			receipts[i] = receipt
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]entity.TransactionFeeRecord, len(hashes))
	for i := range hashes {
		records[i] = entity.TransactionFeeRecord{
			Hash:     txs[i].Hash,
			From:     txs[i].From,
			GasPrice: txs[i].GasPrice,
			GasUsed:  receipts[i].GasUsed,
		}
	}
	metrics.FeeRecordsFetched.Add(float64(len(records)))
	return records, nil
}

// Aggregate sums fees per sender. Senders appear in order of first occurrence.
func Aggregate(records []entity.TransactionFeeRecord) ([]entity.SenderFee, error) {
	index := make(map[string]int)
	senders := make([]entity.SenderFee, 0)

	for _, r := range records {
		fee, err := r.Fee()
		if err != nil {
			return nil, err
		}
		i, ok := index[r.From]
		if !ok {
			index[r.From] = len(senders)
			senders = append(senders, entity.SenderFee{From: r.From, Fee: fee})
			continue
		}
		senders[i].Fee = new(big.Int).Add(senders[i].Fee, fee)
	}
	return senders, nil
}

// Report renders records as tab-separated lines: "hash\tfrom\tfee" per
// record when expanded, otherwise "from\ttotal" per sender. Every line ends
// with a newline; no records render as the empty string.
func Report(records []entity.TransactionFeeRecord, expanded bool) (string, error) {
	var sb strings.Builder

	if expanded {
		for _, r := range records {
			fee, err := r.Fee()
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, "%s\t%s\t%s\n", r.Hash, r.From, fee.String())
		}
		return sb.String(), nil
	}

	senders, err := Aggregate(records)
	if err != nil {
		return "", err
	}
	for _, sf := range senders {
		fmt.Fprintf(&sb, "%s\t%s\n", sf.From, sf.Fee.String())
	}
	return sb.String(), nil
}

type jsonFeeLine struct {
	Hash string `json:"hash,omitempty"`
	From string `json:"from"`
	Fee  string `json:"fee"`
}

type jsonReport struct {
	Proxy     string        `json:"proxy"`
	FromBlock uint64        `json:"fromBlock"`
	ToBlock   uint64        `json:"toBlock"`
	Expanded  bool          `json:"expanded"`
	Fees      []jsonFeeLine `json:"fees"`
}

// ReportJSON renders the same content as Report as a single JSON document.
func ReportJSON(rng entity.ScanRange, records []entity.TransactionFeeRecord) (string, error) {
	doc := jsonReport{
		Proxy:     rng.Proxy,
		FromBlock: rng.FromBlock,
		ToBlock:   rng.ToBlock,
		Expanded:  rng.Expanded,
		Fees:      make([]jsonFeeLine, 0, len(records)),
	}

	if rng.Expanded {
		for _, r := range records {
			fee, err := r.Fee()
			if err != nil {
				return "", err
			}
			doc.Fees = append(doc.Fees, jsonFeeLine{Hash: r.Hash, From: r.From, Fee: fee.String()})
		}
	} else {
		senders, err := Aggregate(records)
		if err != nil {
			return "", err
		}
		for _, sf := range senders {
			doc.Fees = append(doc.Fees, jsonFeeLine{From: sf.From, Fee: sf.Fee.String()})
		}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	return string(out) + "\n", nil
}

// Run resolves the range, fetches every fee record and writes the report
// to w. Nothing is written unless every step succeeds.
func (s *GasCostServiceImpl) Run(ctx context.Context, opts entity.ScanOptions, w io.Writer) error {
	switch opts.Format {
	case entity.ReportFormatText, entity.ReportFormatJSON, "":
	default:
		return fmt.Errorf("unknown report format %q", opts.Format)
	}

	rng, err := s.ResolveRange(ctx, opts, s.defaults)
	if err != nil {
		return err
	}

	hashes, err := s.FetchLogs(ctx, rng)
	if err != nil {
		return err
	}
	if opts.Unique {
		before := len(hashes)
		hashes = utils.UniqueStrings(hashes)
		s.logger.Debug("Collapsed duplicate transaction hashes", "logs", before, "transactions", len(hashes))
	}

	s.logger.Info(fmt.Sprintf("Processing %d transactions…", len(hashes)), "count", len(hashes))
	records, err := s.FetchFeeRecords(ctx, hashes)
	if err != nil {
		return err
	}

	var out string
	if opts.Format == entity.ReportFormatJSON {
		out, err = ReportJSON(rng, records)
	} else {
		out, err = Report(records, rng.Expanded)
	}
	if err != nil {
		return err
	}

	s.logger.Info(fmt.Sprintf("Gas spent from block %d to %d (in wei):", rng.FromBlock, rng.ToBlock),
		"from_block", rng.FromBlock, "to_block", rng.ToBlock, "records", len(records))
	if _, err := io.WriteString(w, out); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
