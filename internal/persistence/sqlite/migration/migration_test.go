package migration

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(DriverName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleFS() fstest.MapFS {
	return fstest.MapFS{
		"migrations/001_create_widgets.sql": {Data: []byte(
			"-- Description: create widgets\nCREATE TABLE widgets (id TEXT PRIMARY KEY, label TEXT NOT NULL DEFAULT 'it''s');\n",
		)},
		"migrations/002_add_widget_index.sql": {Data: []byte(
			"CREATE INDEX idx_widgets_label ON widgets(label);\n-- trailing comment\n",
		)},
		"migrations/README.md": {Data: []byte("ignored")},
	}
}

func TestFileScanner_ScanMigrations(t *testing.T) {
	t.Run("orders files and extracts metadata", func(t *testing.T) {
		migrations, err := NewFileScanner(sampleFS()).ScanMigrations("migrations")
		require.NoError(t, err)
		require.Len(t, migrations, 2)

		assert.Equal(t, "001", migrations[0].Version)
		assert.Equal(t, "create widgets", migrations[0].Description)
		assert.Equal(t, "migrations/001_create_widgets.sql", migrations[0].FilePath)
		assert.Len(t, migrations[0].Checksum, 64)

		assert.Equal(t, "002", migrations[1].Version)
		assert.Equal(t, "add widget index", migrations[1].Description)
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		fsys := sampleFS()
		fsys["migrations/1_other.sql"] = &fstest.MapFile{Data: []byte("SELECT 1;")}

		_, err := NewFileScanner(fsys).ScanMigrations("migrations")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateVersion)
	})

	t.Run("rejects malformed names and bodies", func(t *testing.T) {
		cases := map[string]string{
			"migrations/abc_bad.sql":       "SELECT 1;",
			"migrations/003_empty.sql":     "  \n-- only a comment\n",
			"migrations/004_paren.sql":     "CREATE TABLE x (id TEXT;",
			"migrations/005_unterminated.sql": "INSERT INTO x VALUES ('oops);",
		}
		for name, body := range cases {
			fsys := fstest.MapFS{name: {Data: []byte(body)}}
			_, err := NewFileScanner(fsys).ScanMigrations("migrations")
			assert.ErrorIs(t, err, ErrInvalidMigrationFile, name)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := NewFileScanner(fstest.MapFS{}).ScanMigrations("migrations")
		require.Error(t, err)
	})
}

func TestParseSQL(t *testing.T) {
	statements := parseSQL("-- header\nCREATE TABLE a (id TEXT);\n\n-- note\nCREATE TABLE b (id TEXT);\n")
	assert.Equal(t, []string{"CREATE TABLE a (id TEXT)", "CREATE TABLE b (id TEXT)"}, statements)
}

func TestRunner_RunMigrations(t *testing.T) {
	ctx := context.Background()

	t.Run("applies pending migrations once", func(t *testing.T) {
		db := openMemoryDB(t)
		r := NewRunner(NewFileScanner(sampleFS()), NewSQLiteExecutor(db), "migrations", nil)

		require.NoError(t, r.RunMigrations(ctx))

		status, err := r.GetMigrationStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, "002", status.CurrentVersion)
		assert.Zero(t, status.PendingCount)
		require.Len(t, status.AppliedMigrations, 2)
		assert.NotEmpty(t, status.AppliedMigrations[0].Checksum)

		_, err = db.Exec(`INSERT INTO widgets (id) VALUES ('w1')`)
		require.NoError(t, err)

		require.NoError(t, r.RunMigrations(ctx))
	})

	t.Run("detects edited migrations", func(t *testing.T) {
		db := openMemoryDB(t)
		fsys := sampleFS()
		require.NoError(t, NewRunner(NewFileScanner(fsys), NewSQLiteExecutor(db), "migrations", nil).RunMigrations(ctx))

		fsys["migrations/002_add_widget_index.sql"] = &fstest.MapFile{Data: []byte("CREATE INDEX idx_other ON widgets(id);")}
		_, err := NewRunner(NewFileScanner(fsys), NewSQLiteExecutor(db), "migrations", nil).GetPendingMigrations(ctx)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("rejects gaps in the sequence", func(t *testing.T) {
		fsys := sampleFS()
		fsys["migrations/004_late.sql"] = &fstest.MapFile{Data: []byte("SELECT 1;")}

		err := NewRunner(NewFileScanner(fsys), NewSQLiteExecutor(openMemoryDB(t)), "migrations", nil).RunMigrations(ctx)
		assert.ErrorIs(t, err, ErrVersionConflict)
	})

	t.Run("rolls back a failing migration", func(t *testing.T) {
		db := openMemoryDB(t)
		fsys := sampleFS()
		fsys["migrations/003_broken.sql"] = &fstest.MapFile{Data: []byte(
			"CREATE TABLE gadgets (id TEXT);\nINSERT INTO missing_table VALUES (1);",
		)}

		err := NewRunner(NewFileScanner(fsys), NewSQLiteExecutor(db), "migrations", nil).RunMigrations(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMigrationFailed)

		var count int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'gadgets'`).Scan(&count))
		assert.Zero(t, count)

		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
		assert.Equal(t, 2, count)
	})
}

func TestConnectionManager(t *testing.T) {
	t.Run("builds pragma DSN", func(t *testing.T) {
		cm := &sqliteConnectionManager{config: DefaultSQLiteConfig("data/akiya.db")}
		dsn := cm.DSN()
		assert.True(t, strings.HasPrefix(dsn, "file:data/akiya.db?"))
		assert.Contains(t, dsn, "foreign_keys%281%29")
		assert.Contains(t, dsn, "journal_mode%28WAL%29")
	})

	t.Run("opens a file database with foreign keys", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "test.db")
		db, err := NewConnectionManager(TempFileTestSQLiteConfig(path)).GetConnection()
		require.NoError(t, err)
		defer db.Close()

		var enabled int
		require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&enabled))
		assert.Equal(t, 1, enabled)
	})

	t.Run("validates configuration", func(t *testing.T) {
		cfg := DefaultSQLiteConfig("x.db")
		cfg.JournalMode = "SOMETIMES"
		assert.Error(t, NewConnectionManager(cfg).ValidateConfig())

		cfg = DefaultSQLiteConfig(" ")
		assert.Error(t, NewConnectionManager(cfg).ValidateConfig())
	})
}
