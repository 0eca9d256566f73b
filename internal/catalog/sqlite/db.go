// Package sqlite is the modernc.org/sqlite-backed implementation of
// catalog.Store, grounded on the teacher's pkg/storage/sqlite package
// (pragma set, single-writer connection pool, embedded migrations).
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/agent-matrix/matrix-hub/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps *sql.DB with the pragmas and lifecycle matrix-hub needs.
type DB struct {
	db *sql.DB
}

// DefaultDBPath returns the default sqlite file location used when no
// database_url is configured for local/dev runs.
func DefaultDBPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "matrix-hub", "catalog.db")
}

// Open opens (creating if necessary) the sqlite database at path,
// applies the teacher's pragma set, runs migrations, and returns a
// ready-to-use *DB.
func Open(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		path = DefaultDBPath()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single writer connection avoids SQLITE_BUSY under the
	// single-process write model described in spec.md §5; WAL still
	// allows concurrent readers.
	sqlDB.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA cache_size=-2000",
	}
	for _, p := range pragmas {
		if _, err := sqlDB.ExecContext(ctx, p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	logger.Infof("opened catalog database at %s", path)
	return &DB{db: sqlDB}, nil
}

// DB returns the underlying *sql.DB, mainly for tests.
func (d *DB) DB() *sql.DB { return d.db }

// Close closes the underlying connection.
func (d *DB) Close() error { return d.db.Close() }
