package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// ─── ActivityKind Tests ─────────────────────────────────────────────────────

func TestParseActivityKind(t *testing.T) {
	tests := []struct {
		input   string
		want    ActivityKind
		wantErr bool
	}{
		{"tasks_completed", ActivityTasksCompleted, false},
		{"words_written", ActivityWordsWritten, false},
		{"focus_minutes", ActivityFocusMinutes, false},
		{"flashcards_correct", ActivityFlashcardsCorrect, false},
		{"quiz_correct", ActivityQuizCorrect, false},
		{"todoCompleted", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseActivityKind(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownActivity) {
					t.Fatalf("ParseActivityKind(%q) error = %v, want ErrUnknownActivity", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseActivityKind(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseActivityKind(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestActivityKind_Describe(t *testing.T) {
	if got := ActivityTasksCompleted.Describe(20); got != "Completing 20 tasks" {
		t.Errorf("Describe = %q", got)
	}
	if got := ActivityWordsWritten.Describe(50); got != "Writing 50 words" {
		t.Errorf("Describe = %q", got)
	}
	if got := ActivityKind("bogus").Describe(1); got != "productivity activity" {
		t.Errorf("Describe = %q", got)
	}
}

func TestDefaultEarningRules_Valid(t *testing.T) {
	rules := DefaultEarningRules()
	if err := rules.Validate(); err != nil {
		t.Fatalf("default rules invalid: %v", err)
	}
	if rules[ActivityWordsWritten].Threshold != 50 {
		t.Errorf("words threshold = %d, want 50", rules[ActivityWordsWritten].Threshold)
	}
}

func TestEarningRules_ValidateRejectsMissingAndZero(t *testing.T) {
	rules := DefaultEarningRules()
	delete(rules, ActivityQuizCorrect)
	if err := rules.Validate(); err == nil {
		t.Error("missing rule should fail validation")
	}

	rules = DefaultEarningRules()
	rules[ActivityFocusMinutes] = EarningRule{Threshold: 0, Reward: decimal.NewFromInt(1)}
	if err := rules.Validate(); err == nil {
		t.Error("zero threshold should fail validation")
	}
}

func TestEarningRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    EarningRule
		wantErr bool
	}{
		{"stock", EarningRule{Threshold: 10, Reward: decimal.RequireFromString("0.10")}, false},
		{"whole", EarningRule{Threshold: 1, Reward: decimal.NewFromInt(2)}, false},
		{"negative threshold", EarningRule{Threshold: -5, Reward: decimal.RequireFromString("0.10")}, true},
		{"zero reward", EarningRule{Threshold: 10, Reward: decimal.Zero}, true},
		{"negative reward", EarningRule{Threshold: 10, Reward: decimal.RequireFromString("-0.10")}, true},
		{"sub-cent reward", EarningRule{Threshold: 10, Reward: decimal.RequireFromString("0.004")}, true},
		{"three places", EarningRule{Threshold: 10, Reward: decimal.RequireFromString("0.125")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// ─── Snapshot Codec Tests ───────────────────────────────────────────────────

func TestSnapshot_RecordsRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewSnapshot()
	s.Balance = decimal.RequireFromString("12.30")
	s.Counters[ActivityTasksCompleted] = 25
	s.Counters[ActivityWordsWritten] = 130
	s.LastActiveDate = "2026-03-01"
	s.Achievements = []string{"first_day", "perfect_quiz"}
	s.StreakDays = 4
	s.PerfectQuizzes = 2
	s.Daily = NewDailyLog("2026-03-01")
	s.Daily.Hydration = 3
	s.Transactions = []Transaction{
		{ID: "b", Type: TxSpent, Amount: decimal.RequireFromString("0.50"), Reason: "theme", Timestamp: ts},
		{ID: "a", Type: TxEarned, Amount: decimal.RequireFromString("0.20"), Reason: "Completing 20 tasks", Timestamp: ts},
	}

	rec, err := s.Records()
	if err != nil {
		t.Fatalf("Records() error: %v", err)
	}
	if rec[KeyBalance] != "12.30" {
		t.Errorf("balance record = %q, want %q", rec[KeyBalance], "12.30")
	}

	got, err := SnapshotFromRecords(rec)
	if err != nil {
		t.Fatalf("SnapshotFromRecords() error: %v", err)
	}
	if !got.Balance.Equal(s.Balance) {
		t.Errorf("balance = %s, want %s", got.Balance, s.Balance)
	}
	if got.Counters[ActivityTasksCompleted] != 25 || got.Counters[ActivityWordsWritten] != 130 {
		t.Errorf("counters = %v", got.Counters)
	}
	if got.LastActiveDate != "2026-03-01" {
		t.Errorf("last active = %q", got.LastActiveDate)
	}
	if len(got.Achievements) != 2 || got.Achievements[1] != "perfect_quiz" {
		t.Errorf("achievements = %v", got.Achievements)
	}
	if len(got.Transactions) != 2 || got.Transactions[0].ID != "b" {
		t.Fatalf("transactions = %+v", got.Transactions)
	}
	if !got.Transactions[0].Amount.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("tx amount = %s", got.Transactions[0].Amount)
	}
	if !got.Transactions[0].Timestamp.Equal(ts) {
		t.Errorf("tx timestamp = %v", got.Transactions[0].Timestamp)
	}
	if got.StreakDays != 4 || got.PerfectQuizzes != 2 || got.Daily.Hydration != 3 {
		t.Errorf("supplementary fields = %d %d %d", got.StreakDays, got.PerfectQuizzes, got.Daily.Hydration)
	}
}

func TestSnapshotFromRecords_Empty(t *testing.T) {
	_, err := SnapshotFromRecords(map[string]string{})
	if !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("error = %v, want ErrNoSnapshot", err)
	}
}

func TestSnapshotFromRecords_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		rec  map[string]string
	}{
		{"balance not numeric", map[string]string{KeyBalance: "lots"}},
		{"negative balance", map[string]string{KeyBalance: "-1.00"}},
		{"counters not json", map[string]string{KeyCounters: "{"}},
		{"negative counter", map[string]string{KeyCounters: `{"tasks_completed":-3}`}},
		{"bad date", map[string]string{KeyLastActiveDate: "yesterday"}},
		{"transactions not json", map[string]string{KeyTransactions: "[{]"}},
		{"bad streak", map[string]string{KeyStreakDays: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SnapshotFromRecords(tt.rec)
			if !errors.Is(err, ErrCorruptSnapshot) {
				t.Errorf("error = %v, want ErrCorruptSnapshot", err)
			}
		})
	}
}

func TestSnapshotFromRecords_DropsDuplicateAchievements(t *testing.T) {
	got, err := SnapshotFromRecords(map[string]string{
		KeyAchievements: `["first_day","first_day","week_streak"]`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Achievements) != 2 {
		t.Errorf("achievements = %v, want 2 unique", got.Achievements)
	}
}

// ─── Date Tests ─────────────────────────────────────────────────────────────

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		from, to string
		want     int
	}{
		{"2026-01-01", "2026-01-01", 0},
		{"2026-01-01", "2026-01-04", 3},
		{"2026-01-01", "2026-01-11", 10},
		{"2025-12-31", "2026-01-01", 1},
		{"2026-01-05", "2026-01-01", -4},
		{"2024-02-28", "2024-03-01", 2}, // leap year
	}

	for _, tt := range tests {
		t.Run(tt.from+"→"+tt.to, func(t *testing.T) {
			got, err := DaysBetween(tt.from, tt.to)
			if err != nil {
				t.Fatalf("DaysBetween error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DaysBetween(%s, %s) = %d, want %d", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestDateOf_UsesLocation(t *testing.T) {
	ts := time.Date(2026, 5, 1, 23, 30, 0, 0, time.UTC)
	if got := DateOf(ts, nil); got != "2026-05-01" {
		t.Errorf("DateOf(UTC) = %q", got)
	}
	tokyo := time.FixedZone("JST", 9*60*60)
	if got := DateOf(ts, tokyo); got != "2026-05-02" {
		t.Errorf("DateOf(JST) = %q", got)
	}
}

// ─── Goals & Packages ───────────────────────────────────────────────────────

func TestDailyGoals_MetBy(t *testing.T) {
	goals := DailyGoals{
		Activities: map[ActivityKind]int64{ActivityTasksCompleted: 2},
		Hydration:  4,
	}
	d := NewDailyLog("2026-01-01")
	d.Counts[ActivityTasksCompleted] = 2
	d.Hydration = 3
	if goals.MetBy(d) {
		t.Error("hydration short, goals should not be met")
	}
	d.Hydration = 4
	if !goals.MetBy(d) {
		t.Error("all goals reached, should be met")
	}
	if (DailyGoals{}).MetBy(d) {
		t.Error("empty goal set should never be met")
	}
}

func TestPurchasePackage_Reason(t *testing.T) {
	pkg := DefaultPurchasePackages()["small"]
	if got := pkg.Reason(); got != "$0.99 purchase" {
		t.Errorf("Reason() = %q", got)
	}
}
