// Package observability exposes Prometheus metrics for the currency ledger.
//
// Metrics are registered on an explicit registerer so tests and multiple
// wallets in one process do not collide on the global registry. All methods
// are nil-safe: a nil *Metrics records nothing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/studybunny/carrot/internal/domain"
)

// Metrics groups every ledger collector.
type Metrics struct {
	Balance        prometheus.Gauge
	Transactions   *prometheus.CounterVec
	Currency       *prometheus.CounterVec
	ActivityUnits  *prometheus.CounterVec
	Thresholds     *prometheus.CounterVec
	Achievements   *prometheus.CounterVec
	Rejections     *prometheus.CounterVec
	SaveFailures   prometheus.Counter
	SaveSkipped    prometheus.Counter
	BreakerState   prometheus.Gauge
	EventsDropped  prometheus.Counter
	LoadFallbacks  prometheus.Counter
	InactivityDays prometheus.Histogram
}

// NewMetrics registers collectors on reg. A nil reg uses a private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		// ─── Ledger ─────────────────────────────────────────────────────
		Balance: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "carrot",
			Subsystem: "ledger",
			Name:      "balance",
			Help:      "Current CC balance.",
		}),
		Transactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carrot",
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Ledger transactions by type.",
		}, []string{"type"}),
		Currency: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carrot",
			Subsystem: "ledger",
			Name:      "currency_total",
			Help:      "CC moved by transaction type.",
		}, []string{"type"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carrot",
			Subsystem: "ledger",
			Name:      "rejections_total",
			Help:      "Refused operations by reason.",
		}, []string{"reason"}),

		// ─── Activity ───────────────────────────────────────────────────
		ActivityUnits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carrot",
			Subsystem: "activity",
			Name:      "units_total",
			Help:      "Activity units reported by kind.",
		}, []string{"kind"}),
		Thresholds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carrot",
			Subsystem: "activity",
			Name:      "thresholds_crossed_total",
			Help:      "Earning thresholds crossed by kind.",
		}, []string{"kind"}),
		Achievements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carrot",
			Subsystem: "achievement",
			Name:      "unlocked_total",
			Help:      "Achievements unlocked by id.",
		}, []string{"id"}),
		InactivityDays: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "carrot",
			Subsystem: "inactivity",
			Name:      "idle_days",
			Help:      "Idle calendar days observed at session start.",
			Buckets:   []float64{1, 2, 3, 5, 7, 14, 30},
		}),

		// ─── Persistence ────────────────────────────────────────────────
		SaveFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "carrot",
			Subsystem: "store",
			Name:      "save_failures_total",
			Help:      "Snapshot saves that returned an error.",
		}),
		SaveSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "carrot",
			Subsystem: "store",
			Name:      "save_skipped_total",
			Help:      "Snapshot saves skipped while the circuit breaker was open.",
		}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "carrot",
			Subsystem: "store",
			Name:      "breaker_state",
			Help:      "Save circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		LoadFallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "carrot",
			Subsystem: "store",
			Name:      "load_fallbacks_total",
			Help:      "Boots that fell back to default state after a failed load.",
		}),

		// ─── Events ─────────────────────────────────────────────────────
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "carrot",
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Events not delivered to a full subscriber.",
		}),
	}
}

// ObserveTransaction records one ledger entry and the resulting balance.
func (m *Metrics) ObserveTransaction(tx domain.Transaction, balance decimal.Decimal) {
	if m == nil {
		return
	}
	m.Transactions.WithLabelValues(string(tx.Type)).Inc()
	m.Currency.WithLabelValues(string(tx.Type)).Add(tx.Amount.InexactFloat64())
	m.SetBalance(balance)
}

// SetBalance updates the balance gauge.
func (m *Metrics) SetBalance(balance decimal.Decimal) {
	if m == nil {
		return
	}
	m.Balance.Set(balance.InexactFloat64())
}

// ObserveActivity records units reported and thresholds crossed.
func (m *Metrics) ObserveActivity(kind domain.ActivityKind, units, crossed int64) {
	if m == nil {
		return
	}
	m.ActivityUnits.WithLabelValues(string(kind)).Add(float64(units))
	if crossed > 0 {
		m.Thresholds.WithLabelValues(string(kind)).Add(float64(crossed))
	}
}

// ObserveAchievement counts an unlock.
func (m *Metrics) ObserveAchievement(id string) {
	if m == nil {
		return
	}
	m.Achievements.WithLabelValues(id).Inc()
}

// ObserveRejection counts a refused operation.
func (m *Metrics) ObserveRejection(reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(reason).Inc()
}

// ObserveIdleDays records the idle gap seen at session start.
func (m *Metrics) ObserveIdleDays(days int) {
	if m == nil {
		return
	}
	m.InactivityDays.Observe(float64(days))
}

// ObserveSaveFailure counts a failed save.
func (m *Metrics) ObserveSaveFailure() {
	if m == nil {
		return
	}
	m.SaveFailures.Inc()
}

// ObserveSaveSkipped counts a save skipped by the breaker.
func (m *Metrics) ObserveSaveSkipped() {
	if m == nil {
		return
	}
	m.SaveSkipped.Inc()
}

// SetBreakerState mirrors the save breaker state.
func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.BreakerState.Set(float64(state))
}

// ObserveLoadFallback counts a boot that discarded persisted state.
func (m *Metrics) ObserveLoadFallback() {
	if m == nil {
		return
	}
	m.LoadFallbacks.Inc()
}

// ObserveDroppedEvent counts an undelivered event.
func (m *Metrics) ObserveDroppedEvent() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}
