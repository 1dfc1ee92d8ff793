package staking

import "math/big"

// BalanceSplit divides a balance into the part staked on other proposals
// and the part still available.
type BalanceSplit struct {
	Total     *big.Int
	Staked    *big.Int
	Available *big.Int
}

// NewBalanceSplit derives the available part as total - staked.
func NewBalanceSplit(total, staked *big.Int) BalanceSplit {
	if total == nil {
		total = new(big.Int)
	}
	if staked == nil {
		staked = new(big.Int)
	}
	return BalanceSplit{
		Total:     new(big.Int).Set(total),
		Staked:    new(big.Int).Set(staked),
		Available: new(big.Int).Sub(total, staked),
	}
}

// Percentages returns the available and staked shares of the total.
func (s BalanceSplit) Percentages() (availablePct, stakedPct int) {
	return PercentageSplit(s.Available, s.Total)
}

// PercentageSplit returns round(available*100/total) and its complement to 100.
// A zero (or missing) total yields 0 and 0.
func PercentageSplit(available, total *big.Int) (availablePct, stakedPct int) {
	if total == nil || total.Sign() == 0 || available == nil {
		return 0, 0
	}
	ratio := new(big.Rat).SetFrac(new(big.Int).Mul(available, big.NewInt(100)), total)
	availablePct = int(roundHalfAwayFromZero(ratio).Int64())
	return availablePct, 100 - availablePct
}

func roundHalfAwayFromZero(r *big.Rat) *big.Int {
	num := new(big.Int).Abs(r.Num())
	den := r.Denom()
	q, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Lsh(rem, 1).Cmp(den) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if r.Sign() < 0 {
		q.Neg(q)
	}
	return q
}
