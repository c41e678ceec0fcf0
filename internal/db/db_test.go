package db

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lanequote/internal/config"
)

func TestInit_Layout(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "nested", ".lanequote")

	db, err := Init(baseDir)
	require.NoError(t, err)
	defer db.Close()

	require.FileExists(t, filepath.Join(baseDir, "lanequote.db"))
	require.DirExists(t, filepath.Join(baseDir, "exports"))

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode))
	require.Equal(t, "wal", journalMode)
}

func TestInit_Schema(t *testing.T) {
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []Table{PriceList, RateList, DistanceCache, ClientSummaryCache, TermsList} {
		t.Run(table.Name, func(t *testing.T) {
			rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table.Name)
			require.NoError(t, err)
			defer rows.Close()

			var cols []string
			for rows.Next() {
				var name string
				require.NoError(t, rows.Scan(&name))
				cols = append(cols, name)
			}
			require.NoError(t, rows.Err())
			require.Equal(t, table.Columns, cols)
		})
	}

	var name string
	require.NoError(t, db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='request_log'").Scan(&name))
}

func TestInit_ReopenKeepsVersion(t *testing.T) {
	dir := t.TempDir()

	first, err := Init(dir)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	db, err := Init(dir)
	require.NoError(t, err)
	defer db.Close()

	version, err := GetUserVersion(db)
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion, version)

	require.NoError(t, SetUserVersion(db, 99))
	version, err = GetUserVersion(db)
	require.NoError(t, err)
	require.Equal(t, 99, version)
}

func TestConfigurePool(t *testing.T) {
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	ConfigurePool(db, nil)
	ConfigurePool(db, &config.Config{DBMaxOpenConns: 3, DBMaxIdleConns: 1})
	require.Equal(t, 3, db.Stats().MaxOpenConnections)
}

func TestInit_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permissions not enforced")
	}
	dir := t.TempDir()
	db, err := Init(dir)
	require.NoError(t, err)
	defer db.Close()

	info, err := os.Stat(filepath.Join(dir, "exports"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}
