package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/isdelr/accounts-be/internal/database/migrations"

	_ "modernc.org/sqlite" // SQLite driver
)

// Querier is the subset of *sql.DB, *sql.Conn and *sql.Tx the stores need.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new database connection pool.
func New(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies any pending schema migrations embedded in the binary.
func Migrate(db *sql.DB) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	instance, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying the request's storage session.
func WithSession(ctx context.Context, q Querier) context.Context {
	return context.WithValue(ctx, sessionKey{}, q)
}

// SessionFrom returns the session stored in ctx, or fallback when there is none.
func SessionFrom(ctx context.Context, fallback Querier) Querier {
	if q, ok := ctx.Value(sessionKey{}).(Querier); ok && q != nil {
		return q
	}
	return fallback
}
