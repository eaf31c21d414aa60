// Package db provides the database driver factory.
package db

import (
	"github.com/pkg/errors"

	"github.com/Hrishap/ParallelLives/internal/profile"
	"github.com/Hrishap/ParallelLives/store"
	"github.com/Hrishap/ParallelLives/store/db/postgres"
	"github.com/Hrishap/ParallelLives/store/db/sqlite"
)

// NewDBDriver creates a new DB driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		return sqlite.NewDB(profile)
	case "postgres":
		return postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q", profile.Driver)
	}
}
