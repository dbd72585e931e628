// Package store provides database schema migration management.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	apperrors "github.com/eduplatform/edusync/internal/errors"
)

// Migration represents an applied database schema migration.
type Migration struct {
	Version     int
	AppliedAt   time.Time
	Description string
	Checksum    string
}

// schemaMigration pairs a version with its SQL. Migrations are
// embedded rather than read from disk: a client install has no
// migrations directory to ship.
type schemaMigration struct {
	version     int
	description string
	sql         string
}

// migrations is the ordered schema history. Append only; never edit an
// entry that has shipped, the checksum check will refuse to start.
var migrations = []schemaMigration{
	{
		version:     1,
		description: "initial offline collections",
		sql: `
CREATE TABLE IF NOT EXISTS lessons (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	subject TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	class_level INTEGER NOT NULL DEFAULT 0,
	language TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL DEFAULT '',
	document TEXT NOT NULL,
	cached_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lessons_class_level ON lessons(class_level);
CREATE INDEX IF NOT EXISTS idx_lessons_subject ON lessons(subject);

CREATE TABLE IF NOT EXISTS progress (
	student TEXT NOT NULL,
	lesson TEXT NOT NULL,
	id TEXT NOT NULL DEFAULT '',
	is_completed INTEGER NOT NULL DEFAULT 0,
	quiz_score INTEGER NOT NULL DEFAULT 0,
	total_questions INTEGER NOT NULL DEFAULT 0,
	time_spent_seconds INTEGER NOT NULL DEFAULT 0,
	completed_at TEXT NOT NULL DEFAULT '',
	origin TEXT NOT NULL DEFAULT 'optimistic',
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (student, lesson)
);
CREATE INDEX IF NOT EXISTS idx_progress_student ON progress(student);

CREATE TABLE IF NOT EXISTS translations (
	source_text TEXT NOT NULL,
	source_lang TEXT NOT NULL,
	target_lang TEXT NOT NULL,
	translated_text TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (source_text, source_lang, target_lang)
);

CREATE TABLE IF NOT EXISTS pending_actions (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	method TEXT NOT NULL,
	body TEXT,
	headers TEXT,
	created_at INTEGER NOT NULL,
	retries INTEGER NOT NULL DEFAULT 0
);
`,
	},
}

// Migrator handles database schema migrations.
type Migrator struct {
	db *sql.DB
}

// NewMigrator creates a new Migrator instance.
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (m *Migrator) Initialize() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY CHECK(version > 0),
		applied_at INTEGER NOT NULL CHECK(applied_at > 0),
		description TEXT NOT NULL CHECK(length(description) > 0),
		checksum TEXT NOT NULL CHECK(length(checksum) = 64)
	);`
	if _, err := m.db.Exec(query); err != nil {
		return apperrors.Wrap(apperrors.ErrMigration, "failed to create schema_migrations", err)
	}
	return nil
}

// CurrentVersion returns the current schema version, 0 when no
// migration has been applied.
func (m *Migrator) CurrentVersion() (int, error) {
	var version int
	err := m.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// GetAppliedMigrations returns all applied migrations in order.
func (m *Migrator) GetAppliedMigrations() ([]Migration, error) {
	rows, err := m.db.Query("SELECT version, applied_at, description, checksum FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var applied []Migration
	for rows.Next() {
		var mig Migration
		var appliedAt int64
		if err := rows.Scan(&mig.Version, &appliedAt, &mig.Description, &mig.Checksum); err != nil {
			return nil, err
		}
		mig.AppliedAt = time.Unix(appliedAt, 0)
		applied = append(applied, mig)
	}
	return applied, rows.Err()
}

// Up applies all pending migrations. Already-applied versions are
// verified against their recorded checksum so a modified migration is
// caught instead of silently diverging the schema.
func (m *Migrator) Up() error {
	applied, err := m.GetAppliedMigrations()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrMigration, "failed to read applied migrations", err)
	}
	appliedByVersion := make(map[int]Migration, len(applied))
	for _, mig := range applied {
		appliedByVersion[mig.Version] = mig
	}

	for _, mig := range migrations {
		checksum := checksumSQL(mig.sql)

		if prior, ok := appliedByVersion[mig.version]; ok {
			if prior.Checksum != checksum {
				return apperrors.New(apperrors.ErrMigration,
					fmt.Sprintf("migration V%d checksum mismatch: recorded %s, current %s", mig.version, prior.Checksum, checksum))
			}
			continue
		}

		tx, err := m.db.Begin()
		if err != nil {
			return apperrors.Wrap(apperrors.ErrMigration, fmt.Sprintf("failed to begin migration V%d", mig.version), err)
		}

		if _, err := tx.Exec(mig.sql); err != nil {
			tx.Rollback()
			return apperrors.Wrap(apperrors.ErrMigration, fmt.Sprintf("failed to apply migration V%d", mig.version), err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at, description, checksum) VALUES (?, ?, ?, ?)",
			mig.version, time.Now().Unix(), mig.description, checksum,
		); err != nil {
			tx.Rollback()
			return apperrors.Wrap(apperrors.ErrMigration, fmt.Sprintf("failed to record migration V%d", mig.version), err)
		}

		if err := tx.Commit(); err != nil {
			return apperrors.Wrap(apperrors.ErrMigration, fmt.Sprintf("failed to commit migration V%d", mig.version), err)
		}
	}

	return nil
}

func checksumSQL(sqlText string) string {
	sum := sha256.Sum256([]byte(sqlText))
	return hex.EncodeToString(sum[:])
}
