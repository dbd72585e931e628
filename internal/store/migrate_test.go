package store

import (
	"testing"

	apperrors "github.com/eduplatform/edusync/internal/errors"
)

func setupMigrator(t *testing.T) *Migrator {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewMigrator(db.DB)
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return m
}

// TestMigrateUp tests applying the schema from scratch.
func TestMigrateUp(t *testing.T) {
	m := setupMigrator(t)

	if err := m.Up(); err != nil {
		t.Fatalf("Up failed: %v", err)
	}

	version, err := m.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("Expected version %d, got %d", len(migrations), version)
	}

	// Every collection table must exist.
	for _, table := range []string{"lessons", "progress", "translations", "pending_actions"} {
		var name string
		err := m.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s missing after migration: %v", table, err)
		}
	}
}

// TestMigrateUpIdempotent tests that a second Up is a no-op.
func TestMigrateUpIdempotent(t *testing.T) {
	m := setupMigrator(t)

	if err := m.Up(); err != nil {
		t.Fatalf("First Up failed: %v", err)
	}
	if err := m.Up(); err != nil {
		t.Fatalf("Second Up failed: %v", err)
	}

	applied, err := m.GetAppliedMigrations()
	if err != nil {
		t.Fatalf("GetAppliedMigrations failed: %v", err)
	}
	if len(applied) != len(migrations) {
		t.Errorf("Expected %d applied migrations, got %d", len(migrations), len(applied))
	}
}

// TestMigrateChecksumMismatch tests that a tampered migration record
// refuses to proceed.
func TestMigrateChecksumMismatch(t *testing.T) {
	m := setupMigrator(t)

	if err := m.Up(); err != nil {
		t.Fatalf("Up failed: %v", err)
	}

	tampered := checksumSQL("something else entirely")
	if _, err := m.db.Exec("UPDATE schema_migrations SET checksum = ? WHERE version = 1", tampered); err != nil {
		t.Fatalf("Failed to tamper checksum: %v", err)
	}

	err := m.Up()
	if !apperrors.Is(err, apperrors.ErrMigration) {
		t.Errorf("Expected MIGRATION_ERROR for checksum mismatch, got %v", err)
	}
}

// TestCurrentVersionEmpty tests version 0 before any migration.
func TestCurrentVersionEmpty(t *testing.T) {
	m := setupMigrator(t)

	version, err := m.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("Expected version 0, got %d", version)
	}
}
