// Package sqlstore persists ledger snapshots in a SQL key-value table.
//
// SQLite (modernc.org/sqlite, pure Go) is the default; the same queries run
// on PostgreSQL through lib/pq because placeholders are rebound by sqlx.
// Every Save replaces all records inside one transaction.
package sqlstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/studybunny/carrot/internal/domain"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DBFile is the SQLite file name created inside the data directory.
const DBFile = "carrot.db"

// Store implements domain.StateStore.
type Store struct {
	db      *sqlx.DB
	driver  string
	timeout time.Duration
}

var _ domain.StateStore = (*Store)(nil)

// Open connects with driver and dsn, then applies migrations.
func Open(driver, dsn string) (*Store, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := &Store{db: db, driver: driver, timeout: 5 * time.Second}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// OpenSQLite opens (creating if needed) dir/carrot.db in WAL mode.
func OpenSQLite(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(filepath.Clean(dir), DBFile)
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	return Open(DriverSQLite, dsn)
}

// SetTimeout bounds each Load and Save.
func (s *Store) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

type record struct {
	Name  string `db:"name"`
	Value string `db:"value"`
}

// Load reads every record and decodes the snapshot.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []record
	if err := s.db.SelectContext(ctx, &rows, `SELECT name, value FROM ledger_state`); err != nil {
		return domain.Snapshot{}, fmt.Errorf("select ledger state: %w", err)
	}
	rec := make(map[string]string, len(rows))
	for _, r := range rows {
		rec[r.Name] = r.Value
	}
	return domain.SnapshotFromRecords(rec)
}

// Save writes the full snapshot atomically.
func (s *Store) Save(ctx context.Context, snap domain.Snapshot) error {
	rec, err := snap.Records()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger save: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w: rollback ledger save: %v", cause, rbErr)
		}
		return cause
	}

	upsert := tx.Rebind(`
		INSERT INTO ledger_state (name, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at`)

	now := time.Now().UTC().Format(time.RFC3339)
	names := make([]string, 0, len(rec))
	for name := range rec {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := tx.ExecContext(ctx, upsert, name, rec[name], now); err != nil {
			return rollbackWith(fmt.Errorf("upsert %s: %w", name, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger save: %w", err)
	}
	return nil
}

// Clear deletes every record. Load afterwards returns ErrNoSnapshot.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ledger_state`)
	return err
}
