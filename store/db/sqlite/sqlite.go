// Package sqlite implements the store driver on SQLite. Intended for
// development and single-user instances; postgres is the production driver.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/Hrishap/ParallelLives/internal/profile"
	"github.com/Hrishap/ParallelLives/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database named by the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// WAL journal mode avoids writer starvation; busy_timeout covers the
	// short write bursts of concurrent node finalizations.
	//
	// Note: with `modernc.org/sqlite`, each pragma must be prefixed with
	// `_pragma=`. See https://pkg.go.dev/modernc.org/sqlite#Driver.Open.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// A single connection is optimal for SQLite with WAL.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	driver := DB{db: sqliteDB, profile: profile}
	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS life_session (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'active',
	base_city TEXT NOT NULL DEFAULT '',
	base_country TEXT NOT NULL DEFAULT '',
	base_occupation TEXT NOT NULL DEFAULT '',
	total_nodes INTEGER NOT NULL DEFAULT 0,
	max_depth INTEGER NOT NULL DEFAULT 0,
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS life_node (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	session_id INTEGER NOT NULL,
	parent_id INTEGER,
	depth INTEGER NOT NULL DEFAULT 0,
	sibling_order INTEGER NOT NULL DEFAULT 0,
	choice TEXT,
	metrics TEXT,
	narrative TEXT,
	media TEXT,
	status TEXT NOT NULL DEFAULT 'generating',
	error_message TEXT,
	processing_time_ms BIGINT NOT NULL DEFAULT 0,
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_life_node_session ON life_node (session_id);
CREATE INDEX IF NOT EXISTS idx_life_node_parent ON life_node (parent_id);
`

// Migrate creates the schema when missing.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}
