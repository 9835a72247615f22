package postgres

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// migrateLogger adapts slog to migrate.Logger.
type migrateLogger struct {
	logger *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l migrateLogger) Verbose() bool {
	return false
}

// RunMigrations applies every pending up migration found at path.
// An already up-to-date schema is not an error.
func RunMigrations(path string, dsn string, logger ...*slog.Logger) error {
	const op = "postgres.RunMigrations"

	m, err := migrate.New(path, dsn)
	if err != nil {
		return fmt.Errorf("%s: failed to initialize migrations: %w", op, err)
	}
	defer m.Close()

	if len(logger) > 0 && logger[0] != nil {
		m.Log = migrateLogger{logger: logger[0]}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("%s: failed to read schema version: %w", op, err)
	}
	if dirty {
		return fmt.Errorf("%s: schema version %d is dirty", op, version)
	}

	return nil
}
