// Package inactivity decides the penalty owed for calendar days without a
// session, and advances the daily streak.
//
// Evaluation is pure: it returns an Outcome and leaves applying the penalty
// to the caller.
package inactivity

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/studybunny/carrot/internal/domain"
)

// Tier is one penalty step: after Days idle days, deduct Penalty.
type Tier struct {
	Name     string
	Days     int
	Penalty  decimal.Decimal
	Severity domain.Severity
}

// DefaultTiers returns the stock tiers: 3 days costs 0.30, a week 0.70.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "short", Days: 3, Penalty: decimal.RequireFromString("0.30"), Severity: domain.SeverityWarning},
		{Name: "weekly", Days: 7, Penalty: decimal.RequireFromString("0.70"), Severity: domain.SeverityError},
	}
}

// Outcome describes what a session start should do.
type Outcome struct {
	FirstRun     bool
	Skipped      bool // same day, or a recorded date in the future
	DaysInactive int
	Tier         *Tier // nil when no penalty is owed
	NewDate      string
	StreakDays   int
}

// Penalized reports whether a tier applies.
func (o Outcome) Penalized() bool { return o.Tier != nil }

// Reason is the transaction reason for the penalty.
func (o Outcome) Reason() string {
	return fmt.Sprintf("%d days inactive", o.DaysInactive)
}

// Message is the user-facing notification text.
func (o Outcome) Message() string {
	if o.Tier == nil {
		return ""
	}
	return fmt.Sprintf("Lost %s CC for being inactive for %d days!",
		domain.FormatAmount(o.Tier.Penalty), o.DaysInactive)
}

// Evaluator applies a fixed tier table.
type Evaluator struct {
	tiers []Tier // sorted by Days descending
}

// NewEvaluator validates and orders the tiers.
func NewEvaluator(tiers []Tier) (*Evaluator, error) {
	sorted := append([]Tier{}, tiers...)
	for _, t := range sorted {
		if t.Days <= 0 {
			return nil, fmt.Errorf("tier %q: days must be positive", t.Name)
		}
		if t.Penalty.IsNegative() {
			return nil, fmt.Errorf("tier %q: penalty must not be negative", t.Name)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Days > sorted[j].Days })
	return &Evaluator{tiers: sorted}, nil
}

// Evaluate compares the last active date with today. Only the highest
// matching tier applies; tiers never stack within one evaluation.
func (e *Evaluator) Evaluate(lastActive, today string, streak int) (Outcome, error) {
	if lastActive == "" {
		return Outcome{FirstRun: true, NewDate: today, StreakDays: 1}, nil
	}

	days, err := domain.DaysBetween(lastActive, today)
	if err != nil {
		return Outcome{}, err
	}
	if days <= 0 {
		// Never move the date backwards.
		return Outcome{Skipped: true, NewDate: lastActive, StreakDays: max(streak, 1)}, nil
	}

	out := Outcome{DaysInactive: days, NewDate: today, StreakDays: 1}
	if days == 1 {
		out.StreakDays = streak + 1
	}
	for i := range e.tiers {
		if days >= e.tiers[i].Days {
			t := e.tiers[i]
			out.Tier = &t
			break
		}
	}
	return out, nil
}

// Tiers returns the tiers, highest first.
func (e *Evaluator) Tiers() []Tier { return append([]Tier{}, e.tiers...) }
