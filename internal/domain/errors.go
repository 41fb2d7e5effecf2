package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Ledger errors
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient CC")

	// Activity errors
	ErrUnknownActivity = errors.New("unknown activity kind")

	// Purchase errors
	ErrUnknownPackage    = errors.New("unknown purchase package")
	ErrDuplicatePurchase = errors.New("purchase already credited")
	ErrMissingReference  = errors.New("purchase confirmation requires a gateway reference")

	// Persistence errors
	ErrNoSnapshot      = errors.New("no persisted state")
	ErrCorruptSnapshot = errors.New("persisted state is corrupt")
)
