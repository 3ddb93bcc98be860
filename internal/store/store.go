// Package store implements the persistence layer for the context
// engine: sessions, their messages, tracked file references, and the
// compaction event history, backed by SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"ctxengine/internal/ctxerr"
	"ctxengine/internal/logging"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a SQLite-backed handle to the session database. All
// exported methods are safe for concurrent use; SQLite serializes writers
// internally and Store additionally holds a RWMutex so that schema
// migrations and maintenance operations can exclude readers.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes (creating if necessary) the SQLite database at path,
// applies any pending schema migrations, and enables foreign key
// enforcement (required for ON DELETE CASCADE to take effect). An empty
// path selects the platform default location.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if path == "" {
		var err error
		path, err = DefaultDBPath()
		if err != nil {
			return nil, ctxerr.New(ctxerr.KindStoreIO, "store.Open", err)
		}
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, ctxerr.New(ctxerr.KindStoreIO, "store.Open", fmt.Errorf("failed to create directory: %w", err))
		}
	}

	logging.Store("opening session database at %s", path)

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.Open", fmt.Errorf("failed to open database: %w", err))
	}

	// SQLite only supports a single writer; cap the pool so concurrent
	// callers queue rather than hit SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, ctxerr.New(ctxerr.KindStoreIO, "store.Open", fmt.Errorf("failed to enable foreign keys: %w", err))
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	if path != ":memory:" {
		if err := os.Chmod(path, 0600); err != nil && runtime.GOOS != "windows" {
			logging.StoreWarn("could not set database file permissions on %s: %v", path, err)
		}
	}

	return s, nil
}

func (s *Store) initialize() error {
	version := GetSchemaVersion(s.db)
	if version > 0 && version < CurrentSchemaVersion {
		result, err := RunMigrations(s.dbPath, s.db)
		if err != nil {
			return ctxerr.New(ctxerr.KindMigrationFailed, "store.initialize", err)
		}
		logging.Store("migrated schema v%d -> v%d in %v", result.FromVersion, result.ToVersion, result.Duration)
		return nil
	}

	if err := createSchemaV2(s.db); err != nil {
		return ctxerr.New(ctxerr.KindStoreIO, "store.initialize", fmt.Errorf("failed to create schema: %w", err))
	}
	if version == 0 {
		if err := SetSchemaVersion(s.db, CurrentSchemaVersion, "initial schema"); err != nil {
			return ctxerr.New(ctxerr.KindStoreIO, "store.initialize", err)
		}
	}

	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DefaultDBPath returns the platform-appropriate default session database
// location, honoring the CTXENGINE_DB_PATH environment variable override.
func DefaultDBPath() (string, error) {
	if p := os.Getenv("CTXENGINE_DB_PATH"); p != "" {
		return p, nil
	}

	if runtime.GOOS == "windows" {
		base := os.Getenv("APPDATA")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(base, "ctxengine", "sessions.db"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ctxengine", "sessions.db"), nil
}
