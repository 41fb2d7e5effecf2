package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the wallet depends on them.

// StateStore persists the whole ledger snapshot.
//
// Save must be atomic: a failed Save leaves the previous snapshot readable.
// Load returns ErrNoSnapshot when nothing was ever saved and an error
// wrapping ErrCorruptSnapshot when the stored records cannot be decoded.
type StateStore interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
	Close() error
}

// Sink receives wallet events. Implementations must not block.
type Sink interface {
	Emit(e Event)
}
