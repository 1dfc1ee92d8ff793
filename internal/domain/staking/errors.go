package staking

import "errors"

var (
	// ErrInvalidAmount is returned for input that is not a non-negative whole number.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientBalance is returned when the amount exceeds the available balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// ErrorMessage returns the user-facing text for a validation error, or "" for nil.
func ErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAmount):
		return "Invalid amount"
	case errors.Is(err, ErrInsufficientBalance):
		return "Insufficient balance"
	default:
		return err.Error()
	}
}
