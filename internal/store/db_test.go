package store

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/eduplatform/edusync/internal/errors"
)

// TestOpenCreatesDatabase tests that Open creates the data directory
// and database file.
func TestOpenCreatesDatabase(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "nested", "data")

	db, err := Open(dataDir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dataDir, "edusync.db")); err != nil {
		t.Errorf("Expected database file on disk: %v", err)
	}

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA query failed: %v", err)
	}
	if mode != "wal" {
		t.Errorf("Expected WAL journal mode, got %q", mode)
	}
}

// TestOpenFailureIsStorageUnavailable tests the degraded-mode error
// code when the data dir cannot be created.
func TestOpenFailureIsStorageUnavailable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("file, not a dir"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := Open(filepath.Join(blocker, "data"))
	if !apperrors.Is(err, apperrors.ErrStorageUnavailable) {
		t.Errorf("Expected STORAGE_UNAVAILABLE, got %v", err)
	}
}
