// Package db persists workspaces, agents and tasks for teamlead.
//
// SQLite (modernc, pure Go) is the default backend; PostgreSQL is reached
// through pgx. Both share the same table layout, with context_data and
// result stored as JSON text.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/randalmurphal/teamlead/internal/db/driver"
)

//go:embed schema/*.sql
var schemaFS embed.FS

type embedFSAdapter struct {
	fs embed.FS
}

func (e embedFSAdapter) ReadDir(name string) ([]driver.DirEntry, error) {
	entries, err := e.fs.ReadDir(name)
	if err != nil {
		return nil, err
	}
	out := make([]driver.DirEntry, len(entries))
	for i, entry := range entries {
		out[i] = entry
	}
	return out, nil
}

func (e embedFSAdapter) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(e.fs, name)
}

// DB wraps a database connection with driver abstraction.
type DB struct {
	driver driver.Driver
	dsn    string
	now    func() time.Time
}

// Open opens a SQLite database at path, creating its parent directory.
func Open(path string) (*DB, error) {
	return OpenWithDialect(path, driver.DialectSQLite)
}

// OpenInMemory opens an isolated in-memory SQLite database.
func OpenInMemory() (*DB, error) {
	drv := driver.NewSQLite()
	if err := drv.Open(":memory:"); err != nil {
		return nil, err
	}
	return &DB{driver: drv, dsn: ":memory:", now: time.Now}, nil
}

// OpenWithDialect opens dsn with the given dialect.
func OpenWithDialect(dsn string, dialect driver.Dialect) (*DB, error) {
	if dialect == driver.DialectSQLite && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	drv, err := driver.New(dialect)
	if err != nil {
		return nil, err
	}
	if err := drv.Open(dsn); err != nil {
		return nil, err
	}
	return &DB{driver: drv, dsn: dsn, now: time.Now}, nil
}

// Migrate applies pending schema migrations for the open dialect.
func (d *DB) Migrate(ctx context.Context) error {
	return d.driver.Migrate(ctx, embedFSAdapter{fs: schemaFS})
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.driver.Close()
}

// DSN returns the path or connection string the database was opened with.
func (d *DB) DSN() string {
	return d.dsn
}

// Dialect returns the database dialect.
func (d *DB) Dialect() driver.Dialect {
	return d.driver.Dialect()
}

// SetClock overrides the timestamp source for created_at/updated_at.
func (d *DB) SetClock(now func() time.Time) {
	d.now = now
}

func (d *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.driver.Exec(ctx, query, args...)
}

func (d *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.driver.Query(ctx, query, args...)
}

func (d *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.driver.QueryRow(ctx, query, args...)
}

func (d *DB) timestamp() time.Time {
	return d.now().UTC()
}

// timeLayout keeps a fixed-width fraction so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
