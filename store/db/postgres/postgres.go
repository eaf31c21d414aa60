// Package postgres implements the store driver on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/Hrishap/ParallelLives/internal/profile"
	"github.com/Hrishap/ParallelLives/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL database specified by the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	postgresDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	if err := postgresDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping db")
	}

	driver := DB{db: postgresDB, profile: profile}
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
	id SERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'active',
	base_city TEXT NOT NULL DEFAULT '',
	base_country TEXT NOT NULL DEFAULT '',
	base_occupation TEXT NOT NULL DEFAULT '',
	total_nodes INTEGER NOT NULL DEFAULT 0,
	max_depth INTEGER NOT NULL DEFAULT 0,
	created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
	updated_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
);

CREATE TABLE IF NOT EXISTS life_node (
	id SERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	session_id INTEGER NOT NULL,
	parent_id INTEGER,
	depth INTEGER NOT NULL DEFAULT 0,
	sibling_order INTEGER NOT NULL DEFAULT 0,
	choice JSONB,
	metrics JSONB,
	narrative JSONB,
	media JSONB,
	status TEXT NOT NULL DEFAULT 'generating',
	error_message TEXT,
	processing_time_ms BIGINT NOT NULL DEFAULT 0,
	created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
	updated_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
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
