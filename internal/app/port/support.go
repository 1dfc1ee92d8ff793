package port

import (
	"context"
	"math/big"

	"conviction_voting/internal/domain/entity"
)

// SupportService backs the "support this proposal" form.
type SupportService interface {
	// Preview derives the form state for a typed value.
	Preview(ctx context.Context, account, raw string) (*entity.SupportForm, error)

	// Max derives the form state after selecting the whole available balance.
	Max(ctx context.Context, account string) (*entity.SupportForm, error)

	// Submit validates raw and prepares the stake call.
	Submit(ctx context.Context, account string, proposalID *big.Int, raw string) (*entity.PreparedCall, error)
}
