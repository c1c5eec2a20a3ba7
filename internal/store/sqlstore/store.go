// Package sqlstore implements the user directory and the token denylist on
// database/sql. The same queries run on PostgreSQL (pgx) and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"hosi.com/identity/internal/auth"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

var (
	_ auth.UserDirectory   = (*Store)(nil)
	_ auth.UserWriter      = (*Store)(nil)
	_ auth.RevocationStore = (*Store)(nil)
	_ auth.Purger          = (*Store)(nil)
)

// Store is safe for concurrent use; all synchronization is left to the database.
type Store struct {
	db *sql.DB
}

// Open connects with the named driver ("pgx"/"postgres" or "sqlite").
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverPostgres, "postgres", "":
		driver = DriverPostgres
	case DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if dsn == "" {
		return nil, errors.New("database DSN is required")
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer; serialize through one connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(15 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping checks connectivity for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("database connection unavailable")
	}
	return s.db.PingContext(ctx)
}
