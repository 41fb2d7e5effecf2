package domain

import "time"

// ─── Achievement Types ──────────────────────────────────────────────────────
// IDs are persisted; keep them stable.

// AchievementDef describes a one-time badge.
type AchievementDef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// UnlockedAchievement pairs a badge with the moment it was granted.
type UnlockedAchievement struct {
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// DailyGoals is the per-day target for each activity kind plus hydration.
// A zero goal is ignored when checking whether all goals are met.
type DailyGoals struct {
	Activities map[ActivityKind]int64 `json:"activities"`
	Hydration  int                    `json:"hydration"`
}

// DefaultDailyGoals returns the stock daily targets.
func DefaultDailyGoals() DailyGoals {
	return DailyGoals{
		Activities: map[ActivityKind]int64{
			ActivityTasksCompleted:    5,
			ActivityWordsWritten:      200,
			ActivityFocusMinutes:      50,
			ActivityFlashcardsCorrect: 10,
			ActivityQuizCorrect:       10,
		},
		Hydration: 8,
	}
}

// MetBy reports whether the daily log satisfies every non-zero goal.
// Goals with nothing configured are never met.
func (g DailyGoals) MetBy(d DailyLog) bool {
	configured := 0
	for k, target := range g.Activities {
		if target <= 0 {
			continue
		}
		configured++
		if d.Counts[k] < target {
			return false
		}
	}
	if g.Hydration > 0 {
		configured++
		if d.Hydration < g.Hydration {
			return false
		}
	}
	return configured > 0
}
