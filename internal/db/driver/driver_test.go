package driver

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDriver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect Dialect
		wantErr bool
	}{
		{"sqlite", DialectSQLite, false},
		{"postgres", DialectPostgres, false},
		{"invalid", Dialect("invalid"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			drv, err := New(tt.dialect)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, drv.Dialect())
		})
	}
}

func TestParseDialect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Dialect
		wantErr bool
	}{
		{"sqlite", DialectSQLite, false},
		{"SQLite3", DialectSQLite, false},
		{"postgres", DialectPostgres, false},
		{"postgresql", DialectPostgres, false},
		{"pg", DialectPostgres, false},
		{"mysql", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDialect(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRebind(t *testing.T) {
	t.Parallel()

	pg := NewPostgres()
	assert.Equal(t,
		"SELECT * FROM tasks WHERE workspace_id = $1 AND status = $2",
		pg.Rebind("SELECT * FROM tasks WHERE workspace_id = ? AND status = ?"))
	assert.Equal(t,
		"SELECT '?' FROM t WHERE id = $1",
		pg.Rebind("SELECT '?' FROM t WHERE id = ?"))
	assert.Equal(t, "$3", pg.Placeholder(3))

	lite := NewSQLite()
	assert.Equal(t, "id = ?", lite.Rebind("id = ?"))
	assert.Equal(t, "?", lite.Placeholder(3))
}

func TestSQLiteDriver(t *testing.T) {
	t.Parallel()

	drv := NewSQLite()
	require.NoError(t, drv.Open(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { _ = drv.Close() })

	ctx := context.Background()
	require.NotNil(t, drv.DB())

	_, err := drv.Exec(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)

	res, err := drv.Exec(ctx, "INSERT INTO test (name) VALUES (?)", "hello")
	require.NoError(t, err)
	id, _ := res.LastInsertId()
	assert.Equal(t, int64(1), id)

	var name string
	require.NoError(t, drv.QueryRow(ctx, "SELECT name FROM test WHERE id = ?", 1).Scan(&name))
	assert.Equal(t, "hello", name)

	tx, err := drv.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, "INSERT INTO test (name) VALUES (?)", "world")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx2, err := drv.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = tx2.Exec(ctx, "INSERT INTO test (name) VALUES (?)", "rollback")
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback())

	var count int
	require.NoError(t, drv.QueryRow(ctx, "SELECT COUNT(*) FROM test").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestSQLiteDriver_CloseWithoutOpen(t *testing.T) {
	t.Parallel()
	assert.NoError(t, NewSQLite().Close())
	assert.NoError(t, NewPostgres().Close())
}

type mapFS struct{ fstest.MapFS }

func (m mapFS) ReadDir(name string) ([]DirEntry, error) {
	entries, err := fs.ReadDir(m.MapFS, name)
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, len(entries))
	for i, e := range entries {
		out[i] = e
	}
	return out, nil
}

func (m mapFS) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(m.MapFS, name)
}

func TestSQLiteMigrate(t *testing.T) {
	t.Parallel()

	schema := mapFS{fstest.MapFS{
		"schema/sqlite_001.sql":   {Data: []byte("CREATE TABLE a (id TEXT PRIMARY KEY);")},
		"schema/sqlite_002.sql":   {Data: []byte("CREATE TABLE b (id TEXT PRIMARY KEY);")},
		"schema/postgres_001.sql": {Data: []byte("CREATE TABLE ignored (id SERIAL);")},
	}}

	drv := NewSQLite()
	require.NoError(t, drv.Open(":memory:"))
	t.Cleanup(func() { _ = drv.Close() })

	ctx := context.Background()
	require.NoError(t, drv.Migrate(ctx, schema))
	// A second run applies nothing.
	require.NoError(t, drv.Migrate(ctx, schema))

	var versions int
	require.NoError(t, drv.QueryRow(ctx, "SELECT COUNT(*) FROM _migrations").Scan(&versions))
	assert.Equal(t, 2, versions)

	var tables int
	require.NoError(t, drv.QueryRow(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('a', 'b', 'ignored')").Scan(&tables))
	assert.Equal(t, 2, tables)
}

func TestExtractVersion(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1, extractVersion("sqlite_001.sql", "sqlite_"))
	assert.Equal(t, 12, extractVersion("postgres_012.sql", "postgres_"))
}
