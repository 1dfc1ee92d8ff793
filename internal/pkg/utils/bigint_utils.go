package utils

import (
	"fmt"
	"math/big"
	"strings"
)

// FormatOptions controls how FormatTokenAmount renders a value.
type FormatOptions struct {
	// Rounding is the number of digits kept after the decimal point.
	Rounding int
	// Commas inserts thousands separators in the integer part.
	Commas bool
	// ReplaceZeroBy is returned instead of "0" when the rounded value is zero.
	ReplaceZeroBy string
}

// DefaultFormatOptions matches the display used across the panel: two
// decimals, thousands separators, zero shown as "0".
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{Rounding: 2, Commas: true, ReplaceZeroBy: "0"}
}

// Pow10 returns 10^n as a new big.Int.
func Pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ToDecimals scales a base-10 integer string by 10^decimals.
// Example: whole="3", decimals=18 => 3000000000000000000
func ToDecimals(whole string, decimals uint8) (*big.Int, error) {
	v, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", whole)
	}
	return v.Mul(v, Pow10(int(decimals))), nil
}

// FormatTokenAmount converts a fixed-point amount to a human-readable string.
// Example: amount=1234500000000000000, decimals=18, Rounding=2 => "1.23"
// Trailing zeros of the fractional part are dropped and the last kept digit
// is rounded half up.
func FormatTokenAmount(amount *big.Int, decimals uint8, opts FormatOptions) string {
	if amount == nil {
		amount = new(big.Int)
	}
	rounding := opts.Rounding
	if rounding < 0 {
		rounding = 0
	}

	negative := amount.Sign() < 0
	num := new(big.Int).Abs(amount)
	num.Mul(num, Pow10(rounding))
	den := Pow10(int(decimals))

	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Lsh(r, 1).Cmp(den) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if q.Sign() == 0 {
		return opts.ReplaceZeroBy
	}

	digits := q.String()
	if len(digits) <= rounding {
		digits = strings.Repeat("0", rounding-len(digits)+1) + digits
	}
	intPart := digits[:len(digits)-rounding]
	fracPart := strings.TrimRight(digits[len(digits)-rounding:], "0")

	if opts.Commas {
		intPart = groupThousands(intPart)
	}

	formatted := intPart
	if fracPart != "" {
		formatted += "." + fracPart
	}
	if negative {
		formatted = "-" + formatted
	}
	return formatted
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
