package inactivity

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/studybunny/carrot/internal/domain"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(DefaultTiers())
	if err != nil {
		t.Fatalf("NewEvaluator() error: %v", err)
	}
	return e
}

func TestEvaluate_Tiers(t *testing.T) {
	e := newTestEvaluator(t)

	tests := []struct {
		name        string
		last        string
		wantDays    int
		wantPenalty string // "" means no penalty
		wantSev     domain.Severity
	}{
		{"yesterday", "2026-06-09", 1, "", ""},
		{"two days", "2026-06-08", 2, "", ""},
		{"three days", "2026-06-07", 3, "0.30", domain.SeverityWarning},
		{"six days", "2026-06-04", 6, "0.30", domain.SeverityWarning},
		{"one week", "2026-06-03", 7, "0.70", domain.SeverityError},
		{"ten days", "2026-05-31", 10, "0.70", domain.SeverityError},
		{"a year", "2025-06-10", 365, "0.70", domain.SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.Evaluate(tt.last, "2026-06-10", 3)
			if err != nil {
				t.Fatalf("Evaluate() error: %v", err)
			}
			if out.DaysInactive != tt.wantDays {
				t.Errorf("days = %d, want %d", out.DaysInactive, tt.wantDays)
			}
			if out.NewDate != "2026-06-10" {
				t.Errorf("new date = %q, want today", out.NewDate)
			}
			if tt.wantPenalty == "" {
				if out.Penalized() {
					t.Errorf("unexpected penalty %s", out.Tier.Penalty)
				}
				return
			}
			if !out.Penalized() {
				t.Fatal("expected a penalty")
			}
			if !out.Tier.Penalty.Equal(decimal.RequireFromString(tt.wantPenalty)) {
				t.Errorf("penalty = %s, want %s", out.Tier.Penalty, tt.wantPenalty)
			}
			if out.Tier.Severity != tt.wantSev {
				t.Errorf("severity = %s, want %s", out.Tier.Severity, tt.wantSev)
			}
		})
	}
}

func TestEvaluate_FirstRun(t *testing.T) {
	out, err := newTestEvaluator(t).Evaluate("", "2026-06-10", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !out.FirstRun || out.Penalized() {
		t.Errorf("outcome = %+v, want first run without penalty", out)
	}
	if out.NewDate != "2026-06-10" || out.StreakDays != 1 {
		t.Errorf("outcome = %+v", out)
	}
}

func TestEvaluate_SameDayIsNoOp(t *testing.T) {
	out, err := newTestEvaluator(t).Evaluate("2026-06-10", "2026-06-10", 5)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Skipped || out.Penalized() || out.StreakDays != 5 {
		t.Errorf("outcome = %+v", out)
	}
}

func TestEvaluate_FutureDateNotRewound(t *testing.T) {
	out, _ := newTestEvaluator(t).Evaluate("2026-06-12", "2026-06-10", 2)
	if out.NewDate != "2026-06-12" {
		t.Errorf("new date = %q, last active must not move backwards", out.NewDate)
	}
}

func TestEvaluate_Streak(t *testing.T) {
	e := newTestEvaluator(t)

	out, _ := e.Evaluate("2026-06-09", "2026-06-10", 6)
	if out.StreakDays != 7 {
		t.Errorf("consecutive day streak = %d, want 7", out.StreakDays)
	}
	out, _ = e.Evaluate("2026-06-08", "2026-06-10", 6)
	if out.StreakDays != 1 {
		t.Errorf("broken streak = %d, want 1", out.StreakDays)
	}
}

func TestEvaluate_MessageAndReason(t *testing.T) {
	out, _ := newTestEvaluator(t).Evaluate("2026-05-31", "2026-06-10", 0)
	if got := out.Message(); got != "Lost 0.70 CC for being inactive for 10 days!" {
		t.Errorf("Message() = %q", got)
	}
	if got := out.Reason(); got != "10 days inactive" {
		t.Errorf("Reason() = %q", got)
	}
}

func TestNewEvaluator_RejectsBadTiers(t *testing.T) {
	if _, err := NewEvaluator([]Tier{{Name: "x", Days: 0}}); err == nil {
		t.Error("zero-day tier should be rejected")
	}
	if _, err := NewEvaluator([]Tier{{Name: "x", Days: 2, Penalty: decimal.NewFromInt(-1)}}); err == nil {
		t.Error("negative penalty should be rejected")
	}
}

func TestEvaluate_MalformedDate(t *testing.T) {
	if _, err := newTestEvaluator(t).Evaluate("last tuesday", "2026-06-10", 0); err == nil {
		t.Error("malformed date should error")
	}
}
