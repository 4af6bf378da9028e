package framelog

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateUp applies all pending schema migrations. Returns nil when the
// schema is already current.
func (l *Log) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("framelog: load migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(l.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("framelog: migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("framelog: migration setup: %w", err)
	}
	// Not closing m here: it would close the underlying DB connection.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("framelog: migration up failed: %w", err)
	}
	return nil
}
