package port

import (
	"context"
	"io"

	"conviction_voting/internal/domain/entity"
)

// GasCostService tallies the fees paid by transactions that touched a contract.
type GasCostService interface {
	// Run resolves the range, fetches every fee record and writes the report to w.
	Run(ctx context.Context, opts entity.ScanOptions, w io.Writer) error
}
