package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"spendwise/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded SQL migrations.
type Migrator struct {
	m      *migrate.Migrate
	closer func() error
}

// NewMigrator builds a migrator for the configured driver. SQLite migrations
// run over their own pure-Go connection, separate from the GORM pool.
func NewMigrator(config *Config) (*Migrator, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	var (
		driver migratedb.Driver
		name   string
		closer = func() error { return nil }
	)

	switch config.Driver {
	case DriverSQLite:
		conn, err := sql.Open("sqlite", config.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open migration database: %w", err)
		}
		driver, err = sqlite.WithInstance(conn, &sqlite.Config{})
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to create sqlite migration driver: %w", err)
		}
		name = "sqlite"
		closer = conn.Close
	case DriverPostgres:
		p := &postgres.Postgres{}
		driver, err = p.Open(config.MigrateURL())
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres migration driver: %w", err)
		}
		name = "postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	m, err := migrate.NewWithInstance("iofs", src, name, driver)
	if err != nil {
		_ = closer()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return &Migrator{m: m, closer: closer}, nil
}

// Up applies all pending migrations. Running it against an up-to-date
// schema is a no-op.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Down rolls back the given number of migrations.
func (mg *Migrator) Down(steps int) error {
	if err := mg.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Version reports the current schema version and whether it is dirty.
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close releases the migration source and database handles.
func (mg *Migrator) Close() {
	srcErr, dbErr := mg.m.Close()
	if srcErr != nil {
		logger.Get().Warnf("migrate source close error: %v", srcErr)
	}
	if dbErr != nil {
		logger.Get().Warnf("migrate database close error: %v", dbErr)
	}
	if err := mg.closer(); err != nil {
		logger.Get().Warnf("migration connection close error: %v", err)
	}
}

// RunMigrations applies pending migrations for the manager's database.
func (m *Manager) RunMigrations() error {
	logger.Get().Info("Running database migrations...")

	mg, err := NewMigrator(m.config)
	if err != nil {
		return err
	}
	defer mg.Close()

	if err := mg.Up(); err != nil {
		return err
	}

	logger.Get().Info("Database migrations completed successfully")
	return nil
}
