// Package migrate runs database migrations from embedded SQL files using golang-migrate.
package migrate

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"soori/internal/db"
)

// ErrNoChange is returned when Up/Down has nothing to do (already at target version).
var ErrNoChange = migrate.ErrNoChange

// ErrEmptyDSN is returned when no database URL is configured.
var ErrEmptyDSN = errors.New("DATABASE_URL is not set; create a .env or set DATABASE_URL")

// Direction selects which way migrations are applied.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection validates a --direction flag value. Matching is exact.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	}
	return "", fmt.Errorf("direction must be up or down, got %q", s)
}

// Run applies migrations in the given direction using the provided DSN and logs the resulting version.
// Already being at the target is not an error.
func Run(dsn string, direction Direction, logger *zap.Logger) error {
	if dsn == "" {
		return ErrEmptyDSN
	}
	if _, err := ParseDirection(string(direction)); err != nil {
		return err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sourceDriver, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, dsn)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("migrations already applied", zap.String("direction", string(direction)))
		return nil
	}
	if err != nil {
		return err
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("migrate version: %w", verr)
	}
	logger.Info("migrations applied",
		zap.String("direction", string(direction)),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}
