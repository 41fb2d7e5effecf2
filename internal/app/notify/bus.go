// Package notify fans wallet events out to explicit subscribers.
//
// Delivery is best effort: Emit never blocks, and a subscriber whose buffer
// is full misses the event.
package notify

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/studybunny/carrot/internal/domain"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 32

// Bus implements domain.Sink.
type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]chan domain.Event
	next    uint64
	dropped atomic.Uint64
	onDrop  func(domain.Event)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]chan domain.Event)}
}

// OnDrop registers a callback invoked for each event a subscriber missed.
func (b *Bus) OnDrop(fn func(domain.Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDrop = fn
}

// Subscribe returns a channel of future events and a cancel func that
// closes it. buffer <= 0 uses DefaultBuffer.
func (b *Bus) Subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan domain.Event, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Emit delivers e to every subscriber without blocking.
func (b *Bus) Emit(e domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
			if b.onDrop != nil {
				b.onDrop(e)
			}
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber
// was full.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// ─── Logging Sink ───────────────────────────────────────────────────────────

// LogSink writes every event to a zerolog logger.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink wraps logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{log: logger}
}

// Emit implements domain.Sink.
func (s *LogSink) Emit(e domain.Event) {
	ev := s.log.Info()
	switch e.Severity {
	case domain.SeverityWarning:
		ev = s.log.Warn()
	case domain.SeverityError:
		ev = s.log.Error()
	}
	ev = ev.Str("event", string(e.Type)).Str("balance", domain.FormatAmount(e.Balance))
	if e.AchievementID != "" {
		ev = ev.Str("achievement", e.AchievementID)
	}
	ev.Msg(e.Message)
}

// ─── Fan-out ────────────────────────────────────────────────────────────────

// Multi emits to several sinks in order.
type Multi []domain.Sink

// Emit implements domain.Sink.
func (m Multi) Emit(e domain.Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}
