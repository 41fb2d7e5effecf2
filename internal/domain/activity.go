package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ─── Activity Kinds ─────────────────────────────────────────────────────────
// The closed set of productivity signals producers may report.
// String values are stable: they are persisted and used in HTTP paths.

// ActivityKind identifies one tracked productivity action.
type ActivityKind string

const (
	ActivityTasksCompleted    ActivityKind = "tasks_completed"
	ActivityWordsWritten      ActivityKind = "words_written"
	ActivityFocusMinutes      ActivityKind = "focus_minutes"
	ActivityFlashcardsCorrect ActivityKind = "flashcards_correct"
	ActivityQuizCorrect       ActivityKind = "quiz_correct"
)

// ActivityKinds lists every kind in display order.
func ActivityKinds() []ActivityKind {
	return []ActivityKind{
		ActivityTasksCompleted,
		ActivityWordsWritten,
		ActivityFocusMinutes,
		ActivityFlashcardsCorrect,
		ActivityQuizCorrect,
	}
}

// Valid reports whether k is a member of the closed set.
func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityTasksCompleted, ActivityWordsWritten, ActivityFocusMinutes,
		ActivityFlashcardsCorrect, ActivityQuizCorrect:
		return true
	}
	return false
}

// ParseActivityKind converts a wire name into an ActivityKind.
func ParseActivityKind(s string) (ActivityKind, error) {
	k := ActivityKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownActivity, s)
	}
	return k, nil
}

// Describe renders a human reward reason for n units of this activity,
// e.g. "Completing 10 tasks".
func (k ActivityKind) Describe(n int64) string {
	switch k {
	case ActivityTasksCompleted:
		return fmt.Sprintf("Completing %d tasks", n)
	case ActivityWordsWritten:
		return fmt.Sprintf("Writing %d words", n)
	case ActivityFocusMinutes:
		return fmt.Sprintf("%d minutes of focused work", n)
	case ActivityFlashcardsCorrect:
		return fmt.Sprintf("%d correct flashcards", n)
	case ActivityQuizCorrect:
		return fmt.Sprintf("%d correct quiz answers", n)
	}
	return "productivity activity"
}

// Counters maps each activity kind to its running total.
type Counters map[ActivityKind]int64

// NewCounters returns a zeroed counter set containing every kind.
func NewCounters() Counters {
	c := make(Counters, len(ActivityKinds()))
	for _, k := range ActivityKinds() {
		c[k] = 0
	}
	return c
}

// Clone returns an independent copy.
func (c Counters) Clone() Counters {
	out := NewCounters()
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Any reports whether at least one counter is non-zero.
func (c Counters) Any() bool {
	for _, v := range c {
		if v > 0 {
			return true
		}
	}
	return false
}

// ─── Earning Rules ──────────────────────────────────────────────────────────

// EarningRule awards Reward currency each time a counter passes a multiple
// of Threshold.
type EarningRule struct {
	Threshold int64           `json:"threshold"`
	Reward    decimal.Decimal `json:"reward"`
}

// Validate checks that both fields are positive.
func (r EarningRule) Validate() error {
	if r.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive, got %d", r.Threshold)
	}
	if !r.Reward.IsPositive() {
		return fmt.Errorf("reward must be positive, got %s", r.Reward)
	}
	if !r.Reward.Equal(RoundAmount(r.Reward)) {
		return fmt.Errorf("reward %s has more than %d decimal places", r.Reward, AmountPlaces)
	}
	return nil
}

// EarningRules holds one rule per activity kind.
type EarningRules map[ActivityKind]EarningRule

// DefaultEarningRules returns the stock rates: every 10 tasks, 50 words,
// 10 focus minutes, 10 flashcards or 10 quiz answers is worth 0.10 CC.
func DefaultEarningRules() EarningRules {
	tenth := decimal.New(1, -1)
	return EarningRules{
		ActivityTasksCompleted:    {Threshold: 10, Reward: tenth},
		ActivityWordsWritten:      {Threshold: 50, Reward: tenth},
		ActivityFocusMinutes:      {Threshold: 10, Reward: tenth},
		ActivityFlashcardsCorrect: {Threshold: 10, Reward: tenth},
		ActivityQuizCorrect:       {Threshold: 10, Reward: tenth},
	}
}

// Validate requires a valid rule for every kind.
func (rs EarningRules) Validate() error {
	for _, k := range ActivityKinds() {
		r, ok := rs[k]
		if !ok {
			return fmt.Errorf("missing earning rule for %s", k)
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("earning rule %s: %w", k, err)
		}
	}
	return nil
}
