// Package migrations applies the embedded SQL migrations with golang-migrate.
package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var embedded embed.FS

const migrationsTable = "schema_migrations"

// Source returns the embedded migrations as a golang-migrate source.
func Source() (source.Driver, error) {
	src, err := iofs.New(embedded, "sql")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return src, nil
}

// Versions lists the embedded migration versions in order.
func Versions() ([]uint, error) {
	src, err := Source()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return nil, fmt.Errorf("failed to read first migration: %w", err)
	}
	out := []uint{v}
	for {
		v, err = src.Next(v)
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read migration after %d: %w", v, err)
		}
		out = append(out, v)
	}
}

type Runner struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewRunner(pool *pgxpool.Pool, log *zap.Logger) *Runner {
	return &Runner{pool: pool, log: log}
}

// Apply brings the schema up to the latest embedded version and returns how
// many migrations ran. Cancelling ctx stops after the migration in flight.
func (r *Runner) Apply(ctx context.Context) (int, error) {
	src, err := Source()
	if err != nil {
		return 0, err
	}

	db := stdlib.OpenDBFromPool(r.pool)
	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{MigrationsTable: migrationsTable})
	if err != nil {
		src.Close()
		db.Close()
		return 0, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		src.Close()
		driver.Close()
		return 0, fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()
	m.Log = migrateLogger{r.log.Sugar()}

	before, err := currentVersion(m)
	if err != nil {
		return 0, err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("migrations interrupted: %w", err)
	}

	after, err := currentVersion(m)
	if err != nil {
		return 0, err
	}
	applied, err := countBetween(before, after)
	if err != nil {
		return 0, err
	}

	if applied == 0 {
		r.log.Info("database schema is up to date", zap.Uint("version", after))
	} else {
		r.log.Info("migrations complete",
			zap.Int("applied", applied),
			zap.Uint("version", after),
			zap.Duration("took", time.Since(start)))
	}
	return applied, nil
}

// currentVersion returns 0 for a fresh database and refuses a dirty one.
func currentVersion(m *migrate.Migrate) (uint, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("database schema is dirty at version %d", v)
	}
	return v, nil
}

// countBetween counts embedded versions in (from, to].
func countBetween(from, to uint) (int, error) {
	versions, err := Versions()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, v := range versions {
		if v > from && v <= to {
			n++
		}
	}
	return n, nil
}

// migrateLogger adapts zap to migrate.Logger.
type migrateLogger struct {
	l *zap.SugaredLogger
}

func (m migrateLogger) Printf(format string, v ...interface{}) {
	m.l.Debugf(format, v...)
}

func (m migrateLogger) Verbose() bool {
	return false
}
