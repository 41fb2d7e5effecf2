// Package activity accumulates productivity counters and converts them into
// currency by threshold crossing.
//
// Rewards are computed from the counter before and after each delta, so the
// total earned for a kind is always floor(counter/threshold) × reward no
// matter how finely progress is reported.
package activity

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/studybunny/carrot/internal/domain"
)

// Award is the outcome of one Track call.
type Award struct {
	Kind        domain.ActivityKind
	Before      int64
	After       int64
	Crossed     int64           // thresholds crossed by this delta
	Amount      decimal.Decimal // Crossed × reward; zero when Crossed == 0
	Description string
}

// Earned reports whether the delta crossed at least one threshold.
func (a Award) Earned() bool { return a.Crossed > 0 }

// Accumulator owns the per-kind monotonic counters.
type Accumulator struct {
	rules    domain.EarningRules
	counters domain.Counters
}

// NewAccumulator restores counters under the given rules.
func NewAccumulator(rules domain.EarningRules, counters domain.Counters) (*Accumulator, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	c := domain.NewCounters()
	for k, v := range counters {
		if k.Valid() && v > 0 {
			c[k] = v
		}
	}
	return &Accumulator{rules: rules, counters: c}, nil
}

// Track adds delta to kind and returns the reward owed for any thresholds
// crossed. delta must be an increment, never a running total. A delta that
// would overflow the counter is rejected and leaves it unchanged.
func (a *Accumulator) Track(kind domain.ActivityKind, delta int64) (Award, error) {
	if !kind.Valid() {
		return Award{}, fmt.Errorf("%w: %q", domain.ErrUnknownActivity, kind)
	}
	if delta <= 0 {
		return Award{}, fmt.Errorf("%w: delta %d", domain.ErrInvalidAmount, delta)
	}

	rule := a.rules[kind]
	before := a.counters[kind]
	if delta > math.MaxInt64-before {
		return Award{}, fmt.Errorf("%w: delta %d overflows %s counter", domain.ErrInvalidAmount, delta, kind)
	}
	after := before + delta
	a.counters[kind] = after

	award := Award{Kind: kind, Before: before, After: after}
	award.Crossed = after/rule.Threshold - before/rule.Threshold
	if award.Crossed > 0 {
		award.Amount = rule.Reward.Mul(decimal.NewFromInt(award.Crossed))
		award.Description = kind.Describe(award.Crossed * rule.Threshold)
	}
	return award, nil
}

// Count returns the counter for kind.
func (a *Accumulator) Count(kind domain.ActivityKind) int64 { return a.counters[kind] }

// Counters returns a copy of all counters.
func (a *Accumulator) Counters() domain.Counters { return a.counters.Clone() }

// Rules returns the configured earning rules.
func (a *Accumulator) Rules() domain.EarningRules { return a.rules }

// Earned returns the cumulative currency the counter for kind has produced.
func (a *Accumulator) Earned(kind domain.ActivityKind) decimal.Decimal {
	rule, ok := a.rules[kind]
	if !ok {
		return decimal.Zero
	}
	return rule.Reward.Mul(decimal.NewFromInt(a.counters[kind] / rule.Threshold))
}

// Reset zeroes every counter.
func (a *Accumulator) Reset() {
	a.counters = domain.NewCounters()
}
