// Package staking holds the amount handling behind the "support this
// proposal" form: parsing typed input into fixed-point token units,
// validating it against the available balance and splitting a balance into
// its available and staked shares.
package staking

import (
	"math/big"
	"strings"

	"conviction_voting/internal/pkg/utils"
)

// TokenAmount is the form value together with its scaled integer.
// A nil Amount marks input that could not be parsed.
type TokenAmount struct {
	Value  string
	Amount *big.Int
}

// Valid reports whether the amount was parsed successfully.
func (a TokenAmount) Valid() bool {
	return a.Amount != nil
}

// IsZero reports whether the amount is a valid zero.
func (a TokenAmount) IsZero() bool {
	return a.Amount != nil && a.Amount.Sign() == 0
}

// ParseAmount parses raw as a whole number of tokens and scales it by 10^decimals.
// The empty string is zero. Surrounding whitespace is ignored; anything but
// decimal digits after trimming makes the amount invalid.
func ParseAmount(raw string, decimals uint8) TokenAmount {
	amount := TokenAmount{Value: raw}
	if raw == "" {
		amount.Amount = new(big.Int)
		return amount
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !isDigits(trimmed) {
		return amount
	}

	scaled, err := utils.ToDecimals(trimmed, decimals)
	if err != nil {
		return amount
	}
	amount.Amount = scaled
	return amount
}

// MaxAmount sets the amount to the whole available balance.
func MaxAmount(available *big.Int, decimals uint8) TokenAmount {
	if available == nil {
		available = new(big.Int)
	}
	return TokenAmount{
		Value: utils.FormatTokenAmount(available, decimals, utils.FormatOptions{
			Rounding:      int(decimals),
			ReplaceZeroBy: "0",
		}),
		Amount: new(big.Int).Set(available),
	}
}

// Validate checks amount against the available balance.
// ErrInvalidAmount takes precedence over ErrInsufficientBalance.
func Validate(amount TokenAmount, available *big.Int) error {
	if !amount.Valid() || amount.Amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if available == nil {
		available = new(big.Int)
	}
	if amount.Amount.Cmp(available) > 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// CanSubmit reports whether the form may be submitted.
func CanSubmit(amount TokenAmount, validationErr error) bool {
	return validationErr == nil && amount.Valid() && amount.Amount.Sign() > 0
}

// EditValue re-renders the amount when the input gains (editMode) or loses focus.
// While editing there are no thousands separators and zero shows as empty;
// otherwise separators are shown and zero shows as "0".
func EditValue(amount TokenAmount, decimals uint8, editMode bool) string {
	if !amount.Valid() || amount.Amount.Sign() < 0 {
		return ""
	}
	opts := utils.FormatOptions{
		Rounding:      int(decimals),
		Commas:        !editMode,
		ReplaceZeroBy: "0",
	}
	if editMode {
		opts.ReplaceZeroBy = ""
	}
	return utils.FormatTokenAmount(amount.Amount, decimals, opts)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
