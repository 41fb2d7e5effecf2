package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Notification Events ────────────────────────────────────────────────────

// EventType classifies a wallet event.
type EventType string

const (
	EventBalanceChanged      EventType = "balance_changed"
	EventAchievementUnlocked EventType = "achievement_unlocked"
	EventNotice              EventType = "notice"
)

// Severity mirrors the toast styles the UI renders.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event is published on every observable outcome.
type Event struct {
	Type          EventType       `json:"type"`
	Severity      Severity        `json:"severity,omitempty"`
	Message       string          `json:"message,omitempty"`
	Balance       decimal.Decimal `json:"balance"`
	AchievementID string          `json:"achievement_id,omitempty"`
	At            time.Time       `json:"at"`
}
