// Package ledger holds the currency balance and its transaction log.
//
// The ledger is the only writer of the balance. It never lets the balance go
// negative: spends beyond the balance are refused and penalties clamp at zero.
// It is not safe for concurrent use; the wallet serializes access.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/studybunny/carrot/internal/domain"
)

// Ledger is the authoritative balance plus a bounded, newest-first log.
type Ledger struct {
	balance decimal.Decimal
	txs     []domain.Transaction
	now     func() time.Time
}

// New restores a ledger from persisted state. A negative balance is clamped
// to zero and the log is truncated to domain.MaxTransactions.
func New(balance decimal.Decimal, txs []domain.Transaction, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	if len(txs) > domain.MaxTransactions {
		txs = txs[:domain.MaxTransactions]
	}
	return &Ledger{
		balance: domain.RoundAmount(balance),
		txs:     append([]domain.Transaction{}, txs...),
		now:     now,
	}
}

// Balance returns the current balance.
func (l *Ledger) Balance() decimal.Decimal { return l.balance }

// Transactions returns up to limit entries, newest first. limit <= 0 means all.
func (l *Ledger) Transactions(limit int) []domain.Transaction {
	if limit <= 0 || limit > len(l.txs) {
		limit = len(l.txs)
	}
	out := make([]domain.Transaction, limit)
	copy(out, l.txs[:limit])
	return out
}

// HasRef reports whether a purchase with this gateway reference is still in
// the retained log.
func (l *Ledger) HasRef(ref string) bool {
	for _, tx := range l.txs {
		if tx.Type == domain.TxPurchased && tx.Ref == ref {
			return true
		}
	}
	return false
}

// Earn credits amount. Non-positive amounts are rejected with ErrInvalidAmount.
func (l *Ledger) Earn(amount decimal.Decimal, reason string) (domain.Transaction, error) {
	amount = domain.RoundAmount(amount)
	if !amount.IsPositive() {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}
	l.balance = l.balance.Add(amount)
	return l.record(domain.TxEarned, amount, reason, ""), nil
}

// Spend debits amount if the balance covers it. Otherwise the ledger is left
// untouched and ErrInsufficientFunds is returned.
func (l *Ledger) Spend(amount decimal.Decimal, reason string) (domain.Transaction, error) {
	amount = domain.RoundAmount(amount)
	if !amount.IsPositive() {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}
	if l.balance.LessThan(amount) {
		return domain.Transaction{}, fmt.Errorf("%w: balance %s, need %s",
			domain.ErrInsufficientFunds, domain.FormatAmount(l.balance), domain.FormatAmount(amount))
	}
	l.balance = l.balance.Sub(amount)
	return l.record(domain.TxSpent, amount, reason, ""), nil
}

// ApplyPenalty deducts amount, clamping the balance at zero. The logged
// amount is the penalty as assessed, not the amount actually removed.
func (l *Ledger) ApplyPenalty(amount decimal.Decimal, reason string) (domain.Transaction, error) {
	amount = domain.RoundAmount(amount)
	if amount.IsNegative() {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}
	l.balance = decimal.Max(decimal.Zero, l.balance.Sub(amount))
	return l.record(domain.TxPenalty, amount, reason, ""), nil
}

// Purchase credits a package after the gateway confirmed payment.
func (l *Ledger) Purchase(pkg domain.PurchasePackage, ref string) (domain.Transaction, error) {
	credits := domain.RoundAmount(pkg.Credits)
	if !credits.IsPositive() {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}
	if ref == "" {
		return domain.Transaction{}, domain.ErrMissingReference
	}
	if l.HasRef(ref) {
		return domain.Transaction{}, fmt.Errorf("%w: ref %s", domain.ErrDuplicatePurchase, ref)
	}
	l.balance = l.balance.Add(credits)
	return l.record(domain.TxPurchased, credits, pkg.Reason(), ref), nil
}

// Reset zeroes the balance and clears the log.
func (l *Ledger) Reset() {
	l.balance = decimal.Zero
	l.txs = l.txs[:0]
}

// record prepends a transaction and evicts the oldest beyond the cap.
func (l *Ledger) record(typ domain.TransactionType, amount decimal.Decimal, reason, ref string) domain.Transaction {
	tx := domain.Transaction{
		ID:        uuid.NewString(),
		Type:      typ,
		Amount:    amount,
		Reason:    reason,
		Ref:       ref,
		Timestamp: l.now().UTC(),
	}
	l.txs = append([]domain.Transaction{tx}, l.txs...)
	if len(l.txs) > domain.MaxTransactions {
		l.txs = l.txs[:domain.MaxTransactions]
	}
	return tx
}
