// Package store provides a versioned, backup-before-migrate schema upgrade
// path for context engine session databases.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"ctxengine/internal/logging"
)

// Schema versions:
// v1: single sessions table with an inline history_json blob (the legacy
//
//	single-table layout).
//
// v2: sessions split from normalized messages, file_references,
//
//	compaction_events and embeddings tables; schema_versions bookkeeping
//	table added.
const CurrentSchemaVersion = 2

// MigrationResult describes the outcome of an upgrade from an older
// on-disk schema.
type MigrationResult struct {
	FromVersion   int
	ToVersion     int
	MigrationsRun int
	BackupPath    string
	Duration      time.Duration
	Warnings      []string
}

// tableExists reports whether a table exists in the database.
func tableExists(db *sql.DB, table string) bool {
	var count int
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?"
	if err := db.QueryRow(query, table).Scan(&count); err != nil {
		logging.StoreDebug("table existence check failed for %s: %v", table, err)
		return false
	}
	return count > 0
}

// columnExists reports whether a column exists on a table, via
// PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		logging.StoreDebug("PRAGMA table_info(%s) failed: %v", table, err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// GetSchemaVersion returns the current schema version, inferring it from
// table structure when no schema_versions bookkeeping table is present
// (i.e. a legacy v1 database).
func GetSchemaVersion(db *sql.DB) int {
	if tableExists(db, "schema_versions") {
		var version int
		err := db.QueryRow("SELECT version FROM schema_versions ORDER BY applied_at DESC LIMIT 1").Scan(&version)
		if err == nil {
			return version
		}
	}
	return inferSchemaVersion(db)
}

// inferSchemaVersion recognizes a v1 database by the presence of the
// original single-table "sessions" schema with its inline history_json
// column and the absence of the normalized v2 tables.
func inferSchemaVersion(db *sql.DB) int {
	if !tableExists(db, "sessions") {
		return 0
	}
	if columnExists(db, "sessions", "history_json") && !tableExists(db, "messages") {
		return 1
	}
	return CurrentSchemaVersion
}

// SetSchemaVersion records the given version in the schema_versions table.
func SetSchemaVersion(db *sql.DB, version int, description string) error {
	createTable := `
		CREATE TABLE IF NOT EXISTS schema_versions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`
	if _, err := db.Exec(createTable); err != nil {
		return fmt.Errorf("failed to create schema_versions table: %w", err)
	}
	_, err := db.Exec(
		"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
		version, description,
	)
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	logging.Store("schema version set to %d: %s", version, description)
	return nil
}

// RunMigrations brings a database up to CurrentSchemaVersion, backing up
// the file before any destructive change and rolling back (restoring the
// backup) if a migration step fails partway through.
func RunMigrations(dbPath string, db *sql.DB) (MigrationResult, error) {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	start := time.Now()
	from := GetSchemaVersion(db)
	result := MigrationResult{FromVersion: from, ToVersion: CurrentSchemaVersion}

	if from >= CurrentSchemaVersion {
		result.Duration = time.Since(start)
		return result, nil
	}

	backupPath, err := backupDatabaseFile(dbPath)
	if err != nil {
		return result, fmt.Errorf("failed to back up database before migration: %w", err)
	}
	result.BackupPath = backupPath
	logging.Store("backed up database to %s before migrating v%d -> v%d", backupPath, from, CurrentSchemaVersion)

	if from <= 1 {
		if err := migrateV1ToV2(db); err != nil {
			if restoreErr := restoreDatabaseFile(backupPath, dbPath); restoreErr != nil {
				return result, fmt.Errorf("migration v1->v2 failed: %v (rollback also failed: %w)", err, restoreErr)
			}
			return result, fmt.Errorf("migration v1->v2 failed, rolled back: %w", err)
		}
		result.MigrationsRun++
	}

	if err := SetSchemaVersion(db, CurrentSchemaVersion, "migrated to normalized session schema"); err != nil {
		return result, err
	}

	result.Duration = time.Since(start)
	logging.Store("migration complete: v%d -> v%d (%d steps, %v)", from, CurrentSchemaVersion, result.MigrationsRun, result.Duration)
	return result, nil
}

// migrateV1ToV2 creates the normalized v2 tables alongside the legacy
// single-table "sessions" layout. It does not read the legacy
// history_json column: no messages rows are created from it, and the
// column and its contents are left in place untouched. Every statement is
// CREATE ... IF NOT EXISTS, so re-running it is idempotent.
func migrateV1ToV2(db *sql.DB) error {
	logging.Store("migrating v1 -> v2: creating normalized session tables")
	if err := createSchemaV2(db); err != nil {
		return err
	}
	return nil
}

// backupDatabaseFile copies the database file to a sibling path stamped
// with the current time, so a failed migration can be rolled back.
func backupDatabaseFile(dbPath string) (string, error) {
	if dbPath == "" || dbPath == ":memory:" {
		return "", nil
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return "", nil
	}

	backupPath := fmt.Sprintf("%s.backup.%d", dbPath, time.Now().UnixNano())
	src, err := os.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.OpenFile(backupPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return backupPath, nil
}

func restoreDatabaseFile(backupPath, dbPath string) error {
	if backupPath == "" {
		return nil
	}
	src, err := os.Open(backupPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(dbPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// hashFile returns the hex SHA-256 digest of a file's contents, for
// checking that a backup is byte-identical to the pre-migration source
// file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
