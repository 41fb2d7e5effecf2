package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Credit Types ───────────────────────────────────────────────────────────
// These live in domain because they represent core business rules.
// The ledger package owns mutation; everything else only reads them.

// AmountPlaces is the number of decimal places currency is kept at.
const AmountPlaces = 2

// MaxTransactions caps the transaction log. Oldest entries are evicted first.
const MaxTransactions = 50

// RoundAmount normalizes a currency amount to AmountPlaces.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPlaces)
}

// FormatAmount renders an amount the way the UI shows it ("0.10").
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountPlaces)
}

// TransactionType represents the business reason for a balance change.
type TransactionType string

const (
	TxEarned    TransactionType = "earned"
	TxSpent     TransactionType = "spent"
	TxPurchased TransactionType = "purchased"
	TxPenalty   TransactionType = "penalty"
)

// Transaction is a single entry in the newest-first transaction log.
type Transaction struct {
	ID        string          `json:"id"`
	Type      TransactionType `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	Ref       string          `json:"ref,omitempty"` // gateway reference for purchases
	Timestamp time.Time       `json:"timestamp"`
}

// ─── Purchases ──────────────────────────────────────────────────────────────

// PurchasePackage is a currency bundle sold through the payment gateway.
type PurchasePackage struct {
	ID      string          `json:"id"`
	Price   decimal.Decimal `json:"price"`   // USD charged by the gateway
	Credits decimal.Decimal `json:"credits"` // CC granted on confirmation
}

// Reason is the transaction reason recorded for this package.
func (p PurchasePackage) Reason() string {
	return fmt.Sprintf("$%s purchase", FormatAmount(p.Price))
}

// DefaultPurchasePackages returns the stock catalog.
func DefaultPurchasePackages() map[string]PurchasePackage {
	return map[string]PurchasePackage{
		"small":  {ID: "small", Price: decimal.RequireFromString("0.99"), Credits: decimal.NewFromInt(100)},
		"medium": {ID: "medium", Price: decimal.RequireFromString("9.99"), Credits: decimal.NewFromInt(1500)},
		"large":  {ID: "large", Price: decimal.RequireFromString("19.99"), Credits: decimal.NewFromInt(4000)},
	}
}

// PurchaseConfirmation is the event a payment gateway emits once money has
// actually moved. Currency is only granted against one of these.
type PurchaseConfirmation struct {
	PackageID   string    `json:"package_id"`
	Ref         string    `json:"ref"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}
