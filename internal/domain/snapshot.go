package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Ledger Snapshot ────────────────────────────────────────────────────────
// The unit of persistence. Stores never patch individual fields: they
// always receive and return the full snapshot.

// DailyLog tallies what happened on a single calendar day. It is replaced
// with an empty log when the date rolls over.
type DailyLog struct {
	Date               string   `json:"date"`
	Counts             Counters `json:"counts"`
	Hydration          int      `json:"hydration"`
	HydrationBonusPaid bool     `json:"hydration_bonus_paid"`
	PerfectQuiz        bool     `json:"perfect_quiz"`
}

// NewDailyLog returns an empty log for date.
func NewDailyLog(date string) DailyLog {
	return DailyLog{Date: date, Counts: NewCounters()}
}

// Snapshot is the complete persisted ledger state.
type Snapshot struct {
	Balance        decimal.Decimal `json:"balance"`
	Counters       Counters        `json:"counters"`
	Transactions   []Transaction   `json:"transactions"`
	LastActiveDate string          `json:"last_active_date,omitempty"`
	Achievements   []string        `json:"achievements"`
	StreakDays     int             `json:"streak_days"`
	Daily          DailyLog        `json:"daily"`
	PerfectQuizzes int             `json:"perfect_quizzes"`
}

// NewSnapshot returns the first-use defaults: zero balance, zero counters,
// empty history.
func NewSnapshot() Snapshot {
	return Snapshot{
		Balance:      decimal.Zero,
		Counters:     NewCounters(),
		Transactions: []Transaction{},
		Achievements: []string{},
		Daily:        NewDailyLog(""),
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Counters = s.Counters.Clone()
	out.Transactions = append([]Transaction{}, s.Transactions...)
	out.Achievements = append([]string{}, s.Achievements...)
	out.Daily.Counts = s.Daily.Counts.Clone()
	return out
}

// ─── Record Codec ───────────────────────────────────────────────────────────
// Key-value layout shared by every StateStore adapter.

const (
	KeyBalance        = "balance"
	KeyCounters       = "activity-counters"
	KeyLastActiveDate = "last-active-date"
	KeyAchievements   = "achievement-ids"
	KeyTransactions   = "transactions"
	KeyStreakDays     = "streak-days"
	KeyDailyLog       = "daily-log"
	KeyPerfectQuizzes = "perfect-quizzes"
)

// Records encodes the snapshot as string records.
func (s Snapshot) Records() (map[string]string, error) {
	counters, err := json.Marshal(s.Counters)
	if err != nil {
		return nil, fmt.Errorf("encode counters: %w", err)
	}
	achievements, err := json.Marshal(s.Achievements)
	if err != nil {
		return nil, fmt.Errorf("encode achievements: %w", err)
	}
	txs, err := json.Marshal(s.Transactions)
	if err != nil {
		return nil, fmt.Errorf("encode transactions: %w", err)
	}
	daily, err := json.Marshal(s.Daily)
	if err != nil {
		return nil, fmt.Errorf("encode daily log: %w", err)
	}
	return map[string]string{
		KeyBalance:        FormatAmount(s.Balance),
		KeyCounters:       string(counters),
		KeyLastActiveDate: s.LastActiveDate,
		KeyAchievements:   string(achievements),
		KeyTransactions:   string(txs),
		KeyStreakDays:     strconv.Itoa(s.StreakDays),
		KeyDailyLog:       string(daily),
		KeyPerfectQuizzes: strconv.Itoa(s.PerfectQuizzes),
	}, nil
}

// SnapshotFromRecords decodes records written by Records. Missing keys fall
// back to defaults; malformed values yield ErrCorruptSnapshot.
func SnapshotFromRecords(rec map[string]string) (Snapshot, error) {
	if len(rec) == 0 {
		return Snapshot{}, ErrNoSnapshot
	}
	s := NewSnapshot()

	if v, ok := rec[KeyBalance]; ok && v != "" {
		bal, err := decimal.NewFromString(v)
		if err != nil {
			return Snapshot{}, corrupt(KeyBalance, err)
		}
		if bal.IsNegative() {
			return Snapshot{}, corrupt(KeyBalance, fmt.Errorf("negative balance %s", v))
		}
		s.Balance = RoundAmount(bal)
	}

	if v, ok := rec[KeyCounters]; ok && v != "" {
		var raw map[ActivityKind]int64
		if err := json.Unmarshal([]byte(v), &raw); err != nil {
			return Snapshot{}, corrupt(KeyCounters, err)
		}
		for k, n := range raw {
			if !k.Valid() {
				continue
			}
			if n < 0 {
				return Snapshot{}, corrupt(KeyCounters, fmt.Errorf("negative counter %s", k))
			}
			s.Counters[k] = n
		}
	}

	if v := rec[KeyLastActiveDate]; v != "" {
		if _, err := time.Parse(time.DateOnly, v); err != nil {
			return Snapshot{}, corrupt(KeyLastActiveDate, err)
		}
		s.LastActiveDate = v
	}

	if v, ok := rec[KeyAchievements]; ok && v != "" {
		var ids []string
		if err := json.Unmarshal([]byte(v), &ids); err != nil {
			return Snapshot{}, corrupt(KeyAchievements, err)
		}
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			s.Achievements = append(s.Achievements, id)
		}
	}

	if v, ok := rec[KeyTransactions]; ok && v != "" {
		var txs []Transaction
		if err := json.Unmarshal([]byte(v), &txs); err != nil {
			return Snapshot{}, corrupt(KeyTransactions, err)
		}
		if len(txs) > MaxTransactions {
			txs = txs[:MaxTransactions]
		}
		s.Transactions = append(s.Transactions, txs...)
	}

	if v, ok := rec[KeyStreakDays]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Snapshot{}, corrupt(KeyStreakDays, fmt.Errorf("bad streak %q", v))
		}
		s.StreakDays = n
	}

	if v, ok := rec[KeyDailyLog]; ok && v != "" {
		var d DailyLog
		if err := json.Unmarshal([]byte(v), &d); err != nil {
			return Snapshot{}, corrupt(KeyDailyLog, err)
		}
		counts := NewCounters()
		for k, n := range d.Counts {
			if k.Valid() && n > 0 {
				counts[k] = n
			}
		}
		d.Counts = counts
		s.Daily = d
	}

	if v, ok := rec[KeyPerfectQuizzes]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Snapshot{}, corrupt(KeyPerfectQuizzes, fmt.Errorf("bad count %q", v))
		}
		s.PerfectQuizzes = n
	}

	return s, nil
}

func corrupt(key string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrCorruptSnapshot, key, err)
}

// ─── Calendar Dates ─────────────────────────────────────────────────────────

// DateOf returns the calendar date of t in loc as YYYY-MM-DD.
func DateOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(time.DateOnly)
}

// DaysBetween returns the whole calendar days from one date to another.
// The result is negative when to precedes from.
func DaysBetween(from, to string) (int, error) {
	a, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", from, err)
	}
	b, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", to, err)
	}
	return int(b.Sub(a).Hours() / 24), nil
}
