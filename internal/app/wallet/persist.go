package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/studybunny/carrot/internal/domain"
	"github.com/studybunny/carrot/internal/infra/observability"
)

// persister saves snapshots through a circuit breaker. Failures are logged
// and counted, never returned to producers: in-memory state stays
// authoritative and the next save writes everything again.
type persister struct {
	store   domain.StateStore
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	log     zerolog.Logger
	metrics *observability.Metrics
}

// BreakerSettings tunes the save breaker.
type BreakerSettings struct {
	ConsecutiveFailures uint32        // trips after this many failed saves in a row
	OpenTimeout         time.Duration // how long saves are skipped once tripped
}

// DefaultBreakerSettings trips after 5 consecutive failures for 30s.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second}
}

func newPersister(store domain.StateStore, bs BreakerSettings, timeout time.Duration, log zerolog.Logger, m *observability.Metrics) *persister {
	if bs.ConsecutiveFailures == 0 {
		bs.ConsecutiveFailures = DefaultBreakerSettings().ConsecutiveFailures
	}
	if bs.OpenTimeout <= 0 {
		bs.OpenTimeout = DefaultBreakerSettings().OpenTimeout
	}
	p := &persister{store: store, timeout: timeout, log: log, metrics: m}
	p.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ledger-save",
		MaxRequests: 1,
		Timeout:     bs.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= bs.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("save breaker state changed")
			p.metrics.SetBreakerState(int(to))
		},
	})
	return p
}

// save writes snap. The caller's cancellation is ignored: once a mutation
// happened it should be persisted if at all possible.
func (p *persister) save(ctx context.Context, snap domain.Snapshot) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.store.Save(ctx, snap)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		p.metrics.ObserveSaveSkipped()
		p.log.Warn().Err(err).Msg("ledger save skipped; breaker open")
	default:
		p.metrics.ObserveSaveFailure()
		p.log.Error().Err(err).Msg("ledger save failed; state kept in memory")
	}
	return err
}

// state exposes the breaker state for health reporting.
func (p *persister) state() gobreaker.State { return p.cb.State() }

// healthy is false while saves are being skipped.
func (p *persister) healthy() bool { return p.cb.State() != gobreaker.StateOpen }
