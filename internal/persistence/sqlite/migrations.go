package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration pairs a unique name with the DDL it applies. Applied names are
// recorded in the migrations table, so entries must never be renamed or
// reordered once released.
type migration struct {
	name string
	ddl  string
}

var migrations = []migration{
	{
		name: "0001_roster_schema",
		ddl: `
CREATE TABLE users (
	id TEXT PRIMARY KEY,
	external_id TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	has_role INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE templates (
	id TEXT PRIMARY KEY,
	max_participants INTEGER NOT NULL CHECK (max_participants >= 1),
	place TEXT NOT NULL,
	name TEXT NOT NULL,
	instructions TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE instances (
	id TEXT PRIMARY KEY,
	template_id TEXT NOT NULL REFERENCES templates(id),
	date_start TEXT NOT NULL,
	date_end TEXT NOT NULL CHECK (date_end >= date_start),
	started INTEGER NOT NULL DEFAULT 0,
	finished INTEGER NOT NULL DEFAULT 0,
	thread_ref TEXT NOT NULL DEFAULT '',
	sent_next_week INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX idx_instances_template ON instances(template_id);
CREATE INDEX idx_instances_dates ON instances(date_start, date_end);

CREATE TABLE participants (
	instance_id TEXT NOT NULL REFERENCES instances(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL REFERENCES users(id),
	PRIMARY KEY (instance_id, user_id)
);
`,
	},
}

// Migrate creates the migrations ledger when absent and applies every
// pending migration in order, each inside its own transaction together with
// its ledger entry.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.DB().ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		)`)
	if err != nil {
		return fmt.Errorf("sqlite: create migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := s.pool.DB().QueryContext(ctx, "SELECT name FROM migrations")
	if err != nil {
		return fmt.Errorf("sqlite: read applied migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("sqlite: scan migration name: %w", err)
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: read applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.name] {
			continue
		}
		err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.ddl); err != nil {
				return fmt.Errorf("apply %s: %w", m.name, err)
			}
			if _, err := tx.Exec("INSERT INTO migrations (name) VALUES (?)", m.name); err != nil {
				return fmt.Errorf("record %s: %w", m.name, err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}

	return nil
}
