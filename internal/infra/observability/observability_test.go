package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/studybunny/carrot/internal/domain"
)

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

func TestMetrics_ObserveTransaction(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveTransaction(domain.Transaction{
		Type:      domain.TxEarned,
		Amount:    decimal.RequireFromString("0.20"),
		Timestamp: time.Now(),
	}, decimal.RequireFromString("1.25"))

	if got := testutil.ToFloat64(m.Transactions.WithLabelValues("earned")); got != 1 {
		t.Errorf("transactions{earned} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Currency.WithLabelValues("earned")); got != 0.2 {
		t.Errorf("currency{earned} = %v, want 0.2", got)
	}
	if got := testutil.ToFloat64(m.Balance); got != 1.25 {
		t.Errorf("balance = %v, want 1.25", got)
	}
}

func TestMetrics_ObserveActivity(t *testing.T) {
	m := NewMetrics(nil)
	m.ObserveActivity(domain.ActivityFocusMinutes, 25, 2)
	m.ObserveActivity(domain.ActivityFocusMinutes, 3, 0)

	if got := testutil.ToFloat64(m.ActivityUnits.WithLabelValues("focus_minutes")); got != 28 {
		t.Errorf("units = %v, want 28", got)
	}
	if got := testutil.ToFloat64(m.Thresholds.WithLabelValues("focus_minutes")); got != 2 {
		t.Errorf("thresholds = %v, want 2", got)
	}
}

func TestMetrics_PersistenceCounters(t *testing.T) {
	m := NewMetrics(nil)
	m.ObserveSaveFailure()
	m.ObserveSaveFailure()
	m.ObserveSaveSkipped()
	m.SetBreakerState(2)
	m.ObserveLoadFallback()

	if got := testutil.ToFloat64(m.SaveFailures); got != 2 {
		t.Errorf("save failures = %v", got)
	}
	if got := testutil.ToFloat64(m.SaveSkipped); got != 1 {
		t.Errorf("save skipped = %v", got)
	}
	if got := testutil.ToFloat64(m.BreakerState); got != 2 {
		t.Errorf("breaker state = %v", got)
	}
	if got := testutil.ToFloat64(m.LoadFallbacks); got != 1 {
		t.Errorf("load fallbacks = %v", got)
	}
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// Two wallets in one process must not panic on duplicate registration.
	NewMetrics(prometheus.NewRegistry())
	NewMetrics(prometheus.NewRegistry())
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTransaction(domain.Transaction{Type: domain.TxSpent}, decimal.Zero)
	m.ObserveActivity(domain.ActivityQuizCorrect, 1, 1)
	m.ObserveAchievement("first_day")
	m.ObserveRejection("insufficient_funds")
	m.ObserveIdleDays(4)
	m.ObserveSaveFailure()
	m.ObserveSaveSkipped()
	m.SetBreakerState(1)
	m.ObserveLoadFallback()
	m.ObserveDroppedEvent()
}
