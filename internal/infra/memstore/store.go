// Package memstore keeps encoded snapshots in process memory. It is used for
// ephemeral wallets and as a test double that still exercises the record
// codec.
package memstore

import (
	"context"
	"sync"

	"github.com/studybunny/carrot/internal/domain"
)

// Store implements domain.StateStore.
type Store struct {
	mu      sync.Mutex
	rec     map[string]string
	saves   int
	failErr error
}

var _ domain.StateStore = (*Store)(nil)

// New returns an empty store.
func New() *Store { return &Store{} }

// Load decodes the last saved records.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SnapshotFromRecords(s.rec)
}

// Save encodes and replaces the records unless a failure is injected.
func (s *Store) Save(ctx context.Context, snap domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := snap.Records()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.rec = rec
	s.saves++
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// FailWith makes every Save return err until called again with nil.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Put overwrites a raw record, for seeding corrupt or legacy state.
func (s *Store) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		s.rec = make(map[string]string)
	}
	s.rec[key] = value
}

// Saves returns the number of successful saves.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
