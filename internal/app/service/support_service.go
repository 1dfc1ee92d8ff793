package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"conviction_voting/internal/app/port"
	"conviction_voting/internal/domain/entity"
	"conviction_voting/internal/domain/staking"
	"conviction_voting/internal/pkg/metrics"
	"conviction_voting/internal/pkg/utils"

	"github.com/patrickmn/go-cache"
)

// ErrNothingToStake is returned by Submit when the amount is zero.
var ErrNothingToStake = errors.New("nothing to stake")

// SupportConfig describes the stake token shown in the form.
type SupportConfig struct {
	TokenSymbol     string
	Decimals        uint8
	BalanceCacheTTL time.Duration
}

// stakeBalancesReader is implemented by readers that fetch the balance and
// the staked total in one round trip.
type stakeBalancesReader interface {
	StakeBalances(ctx context.Context, account string) (*entity.StakeBalances, error)
}

// SupportServiceImpl implements port.SupportService.
type SupportServiceImpl struct {
	reader   port.StakeReader
	staking  port.StakingAPI
	logger   port.Logger
	cfg      SupportConfig
	balances *cache.Cache
}

// NewSupportService creates a new SupportServiceImpl.
func NewSupportService(reader port.StakeReader, stakingAPI port.StakingAPI, l port.Logger, cfg SupportConfig) *SupportServiceImpl {
	if cfg.BalanceCacheTTL <= 0 {
		cfg.BalanceCacheTTL = 15 * time.Second
	}
	return &SupportServiceImpl{
		reader:   reader,
		staking:  stakingAPI,
		logger:   l,
		cfg:      cfg,
		balances: cache.New(cfg.BalanceCacheTTL, 2*cfg.BalanceCacheTTL),
	}
}

// stakeSplit returns the account's balance split, served from cache when fresh.
func (s *SupportServiceImpl) stakeSplit(ctx context.Context, account string) (staking.BalanceSplit, error) {
	key := strings.ToLower(account)
	if cached, ok := s.balances.Get(key); ok {
		return cached.(staking.BalanceSplit), nil
	}

	var balance, staked *big.Int
	if br, ok := s.reader.(stakeBalancesReader); ok {
		sb, err := br.StakeBalances(ctx, account)
		if err != nil {
			return staking.BalanceSplit{}, fmt.Errorf("failed to read stake balances for %s: %w", account, err)
		}
		balance, staked = sb.Balance, sb.Staked
	} else {
		var err error
		if balance, err = s.reader.TokenBalance(ctx, account); err != nil {
			return staking.BalanceSplit{}, fmt.Errorf("failed to read token balance for %s: %w", account, err)
		}
		if staked, err = s.reader.TotalStaked(ctx, account); err != nil {
			return staking.BalanceSplit{}, fmt.Errorf("failed to read total stake for %s: %w", account, err)
		}
	}

	split := staking.NewBalanceSplit(balance, staked)
	if split.Available.Sign() < 0 {
		s.logger.Warn("Staked amount exceeds balance, capping stake at balance",
			"account", account, "balance", split.Total.String(), "staked", split.Staked.String())
		split = staking.NewBalanceSplit(split.Total, split.Total)
	}

	s.balances.SetDefault(key, split)
	return split, nil
}

func (s *SupportServiceImpl) buildForm(account string, amount staking.TokenAmount, split staking.BalanceSplit) *entity.SupportForm {
	validationErr := staking.Validate(amount, split.Available)
	recordValidation(validationErr)

	availablePct, stakedPct := split.Percentages()
	opts := utils.DefaultFormatOptions()

	form := &entity.SupportForm{
		Account:            account,
		Value:              amount.Value,
		Error:              staking.ErrorMessage(validationErr),
		CanSubmit:          staking.CanSubmit(amount, validationErr),
		TokenSymbol:        s.cfg.TokenSymbol,
		Decimals:           s.cfg.Decimals,
		Available:          split.Available.String(),
		Staked:             split.Staked.String(),
		FormattedAvailable: utils.FormatTokenAmount(split.Available, s.cfg.Decimals, opts),
		FormattedStaked:    utils.FormatTokenAmount(split.Staked, s.cfg.Decimals, opts),
		AvailablePercent:   availablePct,
		StakedPercent:      stakedPct,
	}
	if amount.Valid() {
		form.Amount = amount.Amount.String()
	}
	return form
}

func recordValidation(err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, staking.ErrInvalidAmount):
		outcome = "invalid"
	case errors.Is(err, staking.ErrInsufficientBalance):
		outcome = "insufficient"
	}
	metrics.AmountValidations.WithLabelValues(outcome).Inc()
}

// Preview derives the form state for a typed value.
func (s *SupportServiceImpl) Preview(ctx context.Context, account, raw string) (*entity.SupportForm, error) {
	split, err := s.stakeSplit(ctx, account)
	if err != nil {
		return nil, err
	}
	return s.buildForm(account, staking.ParseAmount(raw, s.cfg.Decimals), split), nil
}

// Max derives the form state after selecting the whole available balance.
func (s *SupportServiceImpl) Max(ctx context.Context, account string) (*entity.SupportForm, error) {
	split, err := s.stakeSplit(ctx, account)
	if err != nil {
		return nil, err
	}
	return s.buildForm(account, staking.MaxAmount(split.Available, s.cfg.Decimals), split), nil
}

// Submit validates raw against the available balance and prepares the
// stake call. The account's cached balances are dropped on success.
func (s *SupportServiceImpl) Submit(ctx context.Context, account string, proposalID *big.Int, raw string) (*entity.PreparedCall, error) {
	split, err := s.stakeSplit(ctx, account)
	if err != nil {
		return nil, err
	}

	amount := staking.ParseAmount(raw, s.cfg.Decimals)
	validationErr := staking.Validate(amount, split.Available)
	recordValidation(validationErr)
	if validationErr != nil {
		return nil, validationErr
	}
	if !staking.CanSubmit(amount, validationErr) {
		return nil, ErrNothingToStake
	}

	call, err := s.staking.StakeToProposal(ctx, proposalID, amount.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare stake: %w", err)
	}

	s.balances.Delete(strings.ToLower(account))
	s.logger.Info("Prepared stake", "account", account, "proposal_id", call.ProposalID, "amount", call.Amount)
	return call, nil
}
