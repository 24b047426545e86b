package biz

import (
	"errors"
	"math/rand"
)

var (
	// ErrNoAffordableTier no tier fits the remaining budget.
	ErrNoAffordableTier = errors.New("no affordable prize tier")
	// ErrZeroWeight the candidate tiers have no positive total weight.
	ErrZeroWeight = errors.New("prize tiers have zero total weight")
)

// randFloat returns a value in [0, 1). Replaced in tests.
var randFloat = rand.Float64

// PrizeSelector picks a tier by relative weight among the affordable ones.
type PrizeSelector struct{}

// NewPrizeSelector 创建奖品选择器
func NewPrizeSelector() *PrizeSelector {
	return &PrizeSelector{}
}

// Affordable keeps tiers with a positive weight whose value fits in remaining dollars.
// Order is preserved.
func (s *PrizeSelector) Affordable(tiers []PrizeTier, remaining float64) []PrizeTier {
	remainingCents := DollarsToCents(remaining)
	out := make([]PrizeTier, 0, len(tiers))
	for _, t := range tiers {
		if t.Probability > 0 && DollarsToCents(t.Value) <= remainingCents {
			out = append(out, t)
		}
	}
	return out
}

// Select filters by affordability, then samples by weight.
func (s *PrizeSelector) Select(tiers []PrizeTier, remaining float64) (PrizeTier, error) {
	candidates := s.Affordable(tiers, remaining)
	if len(candidates) == 0 {
		return PrizeTier{}, ErrNoAffordableTier
	}
	return weightedSelect(candidates)
}

// weightedSelect draws r in [0, total) and walks the tiers in order subtracting
// each weight until r <= 0. The last tier absorbs rounding leftovers.
func weightedSelect(tiers []PrizeTier) (PrizeTier, error) {
	total := 0.0
	for _, t := range tiers {
		total += t.Probability
	}
	if !(total > 0) || len(tiers) == 0 {
		return PrizeTier{}, ErrZeroWeight
	}
	r := randFloat() * total
	for _, t := range tiers {
		r -= t.Probability
		if r <= 0 {
			return t, nil
		}
	}
	return tiers[len(tiers)-1], nil
}
