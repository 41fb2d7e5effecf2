// Package achievement evaluates the fixed badge rule table.
//
// Check is idempotent: a rule whose id is already unlocked is skipped, so it
// can run after every mutation without granting anything twice.
package achievement

import (
	"github.com/shopspring/decimal"

	"github.com/studybunny/carrot/internal/domain"
)

// View is the read-only state rules are evaluated against.
type View struct {
	Balance        decimal.Decimal
	Counters       domain.Counters
	StreakDays     int
	Daily          domain.DailyLog
	Goals          domain.DailyGoals
	PerfectQuizzes int
}

// Rule pairs a badge definition with its unlock predicate.
type Rule struct {
	domain.AchievementDef
	Predicate func(View) bool
}

// DefaultRules returns the stock rule table. Order is the unlock order
// reported when several rules become true at once.
func DefaultRules() []Rule {
	return []Rule{
		{
			AchievementDef: domain.AchievementDef{ID: "first_day", Name: "First Day", Description: "Record any productive activity", Icon: "🥕"},
			Predicate:      func(v View) bool { return v.Counters.Any() },
		},
		{
			AchievementDef: domain.AchievementDef{ID: "week_streak", Name: "Week Streak", Description: "Show up 7 days in a row", Icon: "🔥"},
			Predicate:      func(v View) bool { return v.StreakDays >= 7 },
		},
		{
			AchievementDef: domain.AchievementDef{ID: "all_daily_goals", Name: "Goal Getter", Description: "Meet every daily goal on the same day", Icon: "🎯"},
			Predicate:      func(v View) bool { return v.Goals.MetBy(v.Daily) },
		},
		{
			AchievementDef: domain.AchievementDef{ID: "hydration_hero", Name: "Hydration Hero", Description: "Log 10 glasses of water in one day", Icon: "💧"},
			Predicate:      func(v View) bool { return v.Daily.Hydration >= 10 },
		},
		{
			AchievementDef: domain.AchievementDef{ID: "perfect_quiz", Name: "Perfect Score", Description: "Answer every question in a quiz correctly", Icon: "🏆"},
			Predicate:      func(v View) bool { return v.PerfectQuizzes > 0 },
		},
		{
			AchievementDef: domain.AchievementDef{ID: "task_centurion", Name: "Centurion", Description: "Complete 100 tasks", Icon: "✅"},
			Predicate:      func(v View) bool { return v.Counters[domain.ActivityTasksCompleted] >= 100 },
		},
		{
			AchievementDef: domain.AchievementDef{ID: "wordsmith", Name: "Wordsmith", Description: "Write 1,000 words of notes", Icon: "✍️"},
			Predicate:      func(v View) bool { return v.Counters[domain.ActivityWordsWritten] >= 1000 },
		},
	}
}

// Evaluator holds an immutable rule table.
type Evaluator struct {
	rules []Rule
	byID  map[string]domain.AchievementDef
}

// NewEvaluator copies rules. Rules with duplicate ids keep the first one.
func NewEvaluator(rules []Rule) *Evaluator {
	e := &Evaluator{byID: make(map[string]domain.AchievementDef, len(rules))}
	for _, r := range rules {
		if _, dup := e.byID[r.ID]; dup || r.Predicate == nil {
			continue
		}
		e.rules = append(e.rules, r)
		e.byID[r.ID] = r.AchievementDef
	}
	return e
}

// Check returns the definitions newly unlocked by view. unlocked is the
// current set; it is not modified.
func (e *Evaluator) Check(view View, unlocked []string) []domain.AchievementDef {
	have := make(map[string]bool, len(unlocked))
	for _, id := range unlocked {
		have[id] = true
	}

	var out []domain.AchievementDef
	for _, r := range e.rules {
		if have[r.ID] {
			continue
		}
		if r.Predicate(view) {
			out = append(out, r.AchievementDef)
			have[r.ID] = true
		}
	}
	return out
}

// Definitions lists every badge in table order.
func (e *Evaluator) Definitions() []domain.AchievementDef {
	out := make([]domain.AchievementDef, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, r.AchievementDef)
	}
	return out
}

// Lookup returns the definition for id.
func (e *Evaluator) Lookup(id string) (domain.AchievementDef, bool) {
	d, ok := e.byID[id]
	return d, ok
}
