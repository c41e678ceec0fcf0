package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/lanequote/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Init initializes the SQLite database at baseDir/lanequote.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.lanequote.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Documents and priced workbooks land here by default
	exportsDir := filepath.Join(baseDir, "exports")
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	_ = os.Chmod(exportsDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "lanequote.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
//
// Reference and cache tables mirror the spreadsheet tabs they replace:
// column names are kept and numeric cells are stored as authored text.
// rowid order is table order for first-match lookups.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS price_list (
		  From_Country TEXT NOT NULL DEFAULT '',
		  From_City    TEXT NOT NULL DEFAULT '',
		  To_Country   TEXT NOT NULL DEFAULT '',
		  To_City      TEXT NOT NULL DEFAULT '',
		  Truck_Type   TEXT NOT NULL DEFAULT '',
		  Currency     TEXT NOT NULL DEFAULT '',
		  Price        TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS rate_list (
		  Truck_Type  TEXT NOT NULL DEFAULT '',
		  Rate_per_KM TEXT NOT NULL DEFAULT '',
		  Currency    TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS distance_cache (
		  From_Country TEXT NOT NULL DEFAULT '',
		  From_City    TEXT NOT NULL DEFAULT '',
		  To_Country   TEXT NOT NULL DEFAULT '',
		  To_City      TEXT NOT NULL DEFAULT '',
		  Distance_KM  TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS client_summary_cache (
		  Client_Company_Name TEXT NOT NULL DEFAULT '',
		  Summary_Text        TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS terms_list (
		  From_Country TEXT NOT NULL DEFAULT '',
		  To_Country   TEXT NOT NULL DEFAULT '',
		  Terms_Text   TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS request_log (
		  id             TEXT PRIMARY KEY,
		  timestamp      TEXT NOT NULL,
		  mode           TEXT NOT NULL,
		  prepared_by    TEXT NOT NULL DEFAULT '',
		  client_type    TEXT NOT NULL DEFAULT '',
		  client_company TEXT NOT NULL DEFAULT '',
		  contact_name   TEXT NOT NULL DEFAULT '',
		  contact_email  TEXT NOT NULL DEFAULT '',
		  contact_phone  TEXT NOT NULL DEFAULT '',
		  from_country   TEXT NOT NULL DEFAULT '',
		  from_city      TEXT NOT NULL DEFAULT '',
		  to_country     TEXT NOT NULL DEFAULT '',
		  to_city        TEXT NOT NULL DEFAULT '',
		  truck_type     TEXT NOT NULL DEFAULT '',
		  status         TEXT NOT NULL,
		  price          TEXT NOT NULL,
		  currency       TEXT NOT NULL
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
