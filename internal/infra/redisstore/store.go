// Package redisstore persists ledger snapshots in a single Redis hash.
//
// Save replaces the hash inside MULTI/EXEC so readers never observe a
// half-written snapshot.
package redisstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/studybunny/carrot/internal/domain"
)

// DefaultPrefix namespaces keys when none is configured.
const DefaultPrefix = "carrot"

// Store implements domain.StateStore.
type Store struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

var _ domain.StateStore = (*Store)(nil)

// New wraps an existing client. The snapshot lives at "<prefix>:state".
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, key: prefix + ":state", timeout: 500 * time.Millisecond}
}

// Open dials addr and verifies the connection.
func Open(ctx context.Context, addr, password string, db int, prefix string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return New(client, prefix), nil
}

// Key returns the hash key holding the snapshot.
func (s *Store) Key() string { return s.key }

// SetTimeout bounds each Load and Save.
func (s *Store) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Load reads the hash and decodes it.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rec, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("hgetall %s: %w", s.key, err)
	}
	return domain.SnapshotFromRecords(rec)
}

// Save replaces the hash atomically.
func (s *Store) Save(ctx context.Context, snap domain.Snapshot) error {
	rec, err := snap.Records()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)
	pipe.HSet(ctx, s.key, fieldValues(rec)...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save %s: %w", s.key, err)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error { return s.client.Close() }

// fieldValues flattens rec into sorted field/value pairs so commands are
// deterministic.
func fieldValues(rec map[string]string) []interface{} {
	names := make([]string, 0, len(rec))
	for k := range rec {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]interface{}, 0, len(rec)*2)
	for _, k := range names {
		out = append(out, k, rec[k])
	}
	return out
}
