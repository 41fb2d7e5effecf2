package sqlstore

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema statements. Each string is a single
// statement; all of them are idempotent and valid on SQLite and PostgreSQL.
func Migrations() []string {
	return []string{
		// One row per snapshot record (balance, activity-counters, ...).
		`CREATE TABLE IF NOT EXISTS ledger_state (
			name       TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}
}
