package database

import (
	"errors"
	"fmt"
	"strings"

	"campaign-automator-api/db/migrations"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers the pgx5:// scheme
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// MigrationURL rewrites a postgres:// DSN to the scheme the pgx/v5 migrate driver expects.
func MigrationURL(dbURL string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dbURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(dbURL, prefix)
		}
	}
	return dbURL
}

func newMigrator(dbURL string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations.SQLFiles, ".")
	if err != nil {
		return nil, fmt.Errorf("could not open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, MigrationURL(dbURL))
	if err != nil {
		return nil, fmt.Errorf("could not initialise migrator: %w", err)
	}
	return m, nil
}

// RunMigrations applies all pending up migrations.
func RunMigrations(dbURL string, log *zap.Logger) error {
	log.Info("running database migrations", zap.String("component", "migrations"))

	m, err := newMigrator(dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("database schema is up to date", zap.String("component", "migrations"))
			return nil
		}
		log.Error("database migration failed", zap.Error(err), zap.String("component", "migrations"))
		return err
	}

	version, _, _ := m.Version()
	log.Info("all database migrations applied successfully",
		zap.Uint("version", version),
		zap.String("component", "migrations"),
	)
	return nil
}

// RollbackMigrations reverts the given number of migrations.
func RollbackMigrations(dbURL string, steps int, log *zap.Logger) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive")
	}

	m, err := newMigrator(dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	log.Info("rolled back migrations", zap.Int("steps", steps), zap.String("component", "migrations"))
	return nil
}
