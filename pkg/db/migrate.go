package db

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"hotelapi/pkg/config"
)

// MigrateConfig applies pending migrations from migrationsPath
// (e.g. file://migrations) using DIRECT_URL when set.
func MigrateConfig(migrationsPath string, cfg config.Config) error {
	return MigrateURL(migrationsPath, migrationConnString(cfg))
}

func MigrateURL(migrationsPath, connString string) error {
	m, err := migrate.New(migrationsPath, connString)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return err
	}
	return nil
}
