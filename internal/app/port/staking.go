package port

import (
	"context"
	"math/big"

	"conviction_voting/internal/domain/entity"
)

// StakeReader reads an account's stake token position.
type StakeReader interface {
	// TokenBalance returns the account's stake token balance.
	TokenBalance(ctx context.Context, account string) (*big.Int, error)

	// TotalStaked returns the amount the account has already staked across proposals.
	TotalStaked(ctx context.Context, account string) (*big.Int, error)
}

// StakingAPI prepares a stake towards a proposal. Amount is the scaled
// integer amount in base-10.
type StakingAPI interface {
	StakeToProposal(ctx context.Context, proposalID *big.Int, amount string) (*entity.PreparedCall, error)
}
