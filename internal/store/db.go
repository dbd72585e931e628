// Package store provides the durable local mirror backing offline
// operation: cached lessons, progress shadows, cached translations and
// the pending-action queue.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	apperrors "github.com/eduplatform/edusync/internal/errors"
)

// DB wraps sql.DB with EduSync-specific configuration.
type DB struct {
	*sql.DB
}

// Open opens the client database under dataDir, creating it when
// absent. The database is opened with WAL mode for concurrent reads
// and a single writer, which is all SQLite supports anyway.
//
// A failure here means local persistence is unavailable; callers are
// expected to degrade to a memory-only store rather than abort.
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to create data directory", err)
	}

	dbPath := filepath.Join(dataDir, "edusync.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to open database", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to enable WAL mode", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to enable foreign keys", err)
	}

	// Verify the file is actually writable before declaring victory;
	// sql.Open alone does not touch the disk.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, fmt.Sprintf("cannot reach database at %s", dbPath), err)
	}

	return &DB{db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
