// Package store provides SQLite-backed repository operations for the
// offline collections.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "github.com/eduplatform/edusync/internal/errors"
	"github.com/eduplatform/edusync/internal/models"
)

// Repository provides persistence for all offline collections.
// Frequently used statements are prepared on first use and cached.
type Repository struct {
	db *sql.DB

	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// prepareStmt gets or creates a prepared statement from the cache.
func (r *Repository) prepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		if err := value.(*sql.Stmt).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// =====================================================
// Lesson Operations
// =====================================================

// SaveLessons upserts each lesson by id in one transaction. The full
// server record is stored as a JSON document next to the columns the
// filter queries need, so an upsert supersedes the record wholesale.
func (r *Repository) SaveLessons(lessons []*models.Lesson) error {
	if len(lessons) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to begin lesson upsert", err)
	}

	query := `
	INSERT INTO lessons (id, title, subject, category, class_level, language, content_type, document, cached_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		subject = excluded.subject,
		category = excluded.category,
		class_level = excluded.class_level,
		language = excluded.language,
		content_type = excluded.content_type,
		document = excluded.document,
		cached_at = excluded.cached_at
	`

	now := time.Now().Unix()
	for _, lesson := range lessons {
		if lesson.ID == "" {
			tx.Rollback()
			return apperrors.New(apperrors.ErrInvalid, "lesson without id cannot be cached")
		}

		doc, err := json.Marshal(lesson)
		if err != nil {
			tx.Rollback()
			return apperrors.Wrap(apperrors.ErrInvalid, "failed to encode lesson", err)
		}

		if _, err := tx.Exec(query,
			lesson.ID, lesson.Title, lesson.Subject, lesson.Category,
			lesson.ClassLevel, lesson.Language, lesson.ContentType, string(doc), now,
		); err != nil {
			tx.Rollback()
			return apperrors.Wrap(apperrors.ErrDatabase, fmt.Sprintf("failed to upsert lesson %s", lesson.ID), err)
		}
		lesson.CachedAt = now
	}

	return tx.Commit()
}

// GetLessons returns cached lessons optionally narrowed by equality
// filters, newest cached first. An empty result is valid.
func (r *Repository) GetLessons(filter models.LessonFilter) ([]*models.Lesson, error) {
	query := "SELECT document, cached_at FROM lessons"
	var clauses []string
	var args []interface{}

	if filter.Subject != "" {
		clauses = append(clauses, "subject = ?")
		args = append(args, filter.Subject)
	}
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.ClassLevel != 0 {
		clauses = append(clauses, "class_level = ?")
		args = append(args, filter.ClassLevel)
	}
	if filter.Language != "" {
		clauses = append(clauses, "language = ?")
		args = append(args, filter.Language)
	}
	if filter.ContentType != "" {
		clauses = append(clauses, "content_type = ?")
		args = append(args, filter.ContentType)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY cached_at DESC, id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to query lessons", err)
	}
	defer rows.Close()

	var lessons []*models.Lesson
	for rows.Next() {
		var doc string
		var cachedAt int64
		if err := rows.Scan(&doc, &cachedAt); err != nil {
			return nil, err
		}
		lesson, err := decodeLesson(doc, cachedAt)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, lesson)
	}
	return lessons, rows.Err()
}

// GetLesson returns one cached lesson by id, (nil, nil) when absent.
func (r *Repository) GetLesson(id string) (*models.Lesson, error) {
	stmt, err := r.prepareStmt("SELECT document, cached_at FROM lessons WHERE id = ?")
	if err != nil {
		return nil, err
	}

	var doc string
	var cachedAt int64
	err = stmt.QueryRow(id).Scan(&doc, &cachedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, fmt.Sprintf("failed to read lesson %s", id), err)
	}
	return decodeLesson(doc, cachedAt)
}

func decodeLesson(doc string, cachedAt int64) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := json.Unmarshal([]byte(doc), &lesson); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "corrupt cached lesson document", err)
	}
	lesson.CachedAt = cachedAt
	return &lesson, nil
}

// =====================================================
// Progress Operations
// =====================================================

// SaveProgress upserts by (student, lesson): a later completion for
// the same pair overwrites rather than duplicates.
func (r *Repository) SaveProgress(record *models.LocalProgressRecord) error {
	if record.Student == "" || record.Lesson == "" {
		return apperrors.New(apperrors.ErrInvalid, "progress record requires student and lesson ids")
	}

	query := `
	INSERT INTO progress (student, lesson, id, is_completed, quiz_score, total_questions,
		time_spent_seconds, completed_at, origin, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(student, lesson) DO UPDATE SET
		id = excluded.id,
		is_completed = excluded.is_completed,
		quiz_score = excluded.quiz_score,
		total_questions = excluded.total_questions,
		time_spent_seconds = excluded.time_spent_seconds,
		completed_at = excluded.completed_at,
		origin = excluded.origin,
		updated_at = excluded.updated_at
	`
	stmt, err := r.prepareStmt(query)
	if err != nil {
		return err
	}

	if record.UpdatedAt == 0 {
		record.UpdatedAt = time.Now().Unix()
	}

	_, err = stmt.Exec(record.Student, record.Lesson, record.ID, record.IsCompleted,
		record.QuizScore, record.TotalQuestions, record.TimeSpentSeconds,
		record.CompletedAt, record.Origin, record.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to upsert progress", err)
	}
	return nil
}

// GetProgressByStudent returns all progress shadows for a student.
func (r *Repository) GetProgressByStudent(student string) ([]*models.LocalProgressRecord, error) {
	stmt, err := r.prepareStmt(`
	SELECT student, lesson, id, is_completed, quiz_score, total_questions,
		time_spent_seconds, completed_at, origin, updated_at
	FROM progress WHERE student = ? ORDER BY updated_at DESC, lesson`)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(student)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to query progress", err)
	}
	defer rows.Close()

	var records []*models.LocalProgressRecord
	for rows.Next() {
		var rec models.LocalProgressRecord
		if err := rows.Scan(&rec.Student, &rec.Lesson, &rec.ID, &rec.IsCompleted,
			&rec.QuizScore, &rec.TotalQuestions, &rec.TimeSpentSeconds,
			&rec.CompletedAt, &rec.Origin, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// =====================================================
// Translation Operations
// =====================================================

// SaveTranslation overwrites any existing entry for the composite key.
func (r *Repository) SaveTranslation(tr *models.Translation) error {
	query := `
	INSERT INTO translations (source_text, source_lang, target_lang, translated_text, created_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(source_text, source_lang, target_lang) DO UPDATE SET
		translated_text = excluded.translated_text,
		created_at = excluded.created_at
	`
	stmt, err := r.prepareStmt(query)
	if err != nil {
		return err
	}

	if tr.CreatedAt == 0 {
		tr.CreatedAt = time.Now().Unix()
	}

	_, err = stmt.Exec(tr.SourceText, tr.SourceLang, tr.TargetLang, tr.TranslatedText, tr.CreatedAt)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to upsert translation", err)
	}
	return nil
}

// GetTranslation returns (nil, nil) when the entry is absent or older
// than ttl. Expired rows are skipped, not evicted.
func (r *Repository) GetTranslation(sourceText, sourceLang, targetLang string, ttl time.Duration) (*models.Translation, error) {
	stmt, err := r.prepareStmt(`
	SELECT source_text, source_lang, target_lang, translated_text, created_at
	FROM translations WHERE source_text = ? AND source_lang = ? AND target_lang = ?`)
	if err != nil {
		return nil, err
	}

	var tr models.Translation
	err = stmt.QueryRow(sourceText, sourceLang, targetLang).Scan(
		&tr.SourceText, &tr.SourceLang, &tr.TargetLang, &tr.TranslatedText, &tr.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to read translation", err)
	}

	if tr.Expired(ttl, time.Now()) {
		return nil, nil
	}
	return &tr, nil
}

// =====================================================
// Pending Action Operations
// =====================================================

// QueuePendingAction appends an action to the replay queue. Insertion
// order is the replay order (rowid).
func (r *Repository) QueuePendingAction(action *models.PendingAction) error {
	if action.ID == "" {
		return apperrors.New(apperrors.ErrInvalid, "pending action requires a generated id")
	}

	var headers sql.NullString
	if len(action.Headers) > 0 {
		encoded, err := json.Marshal(action.Headers)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInvalid, "failed to encode action headers", err)
		}
		headers = sql.NullString{String: string(encoded), Valid: true}
	}

	var body sql.NullString
	if len(action.Body) > 0 {
		body = sql.NullString{String: string(action.Body), Valid: true}
	}

	stmt, err := r.prepareStmt(`
	INSERT INTO pending_actions (id, url, method, body, headers, created_at, retries)
	VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}

	_, err = stmt.Exec(action.ID, action.URL, action.Method, body, headers, action.CreatedAt, action.Retries)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to queue pending action", err)
	}
	return nil
}

// GetPendingActions returns queued actions in creation order.
func (r *Repository) GetPendingActions() ([]*models.PendingAction, error) {
	rows, err := r.db.Query(`
	SELECT id, url, method, body, headers, created_at, retries
	FROM pending_actions ORDER BY rowid`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to query pending actions", err)
	}
	defer rows.Close()

	var actions []*models.PendingAction
	for rows.Next() {
		var action models.PendingAction
		var body, headers sql.NullString
		if err := rows.Scan(&action.ID, &action.URL, &action.Method, &body, &headers,
			&action.CreatedAt, &action.Retries); err != nil {
			return nil, err
		}
		if body.Valid {
			action.Body = json.RawMessage(body.String)
		}
		if headers.Valid {
			if err := json.Unmarshal([]byte(headers.String), &action.Headers); err != nil {
				return nil, apperrors.Wrap(apperrors.ErrDatabase, "corrupt action headers", err)
			}
		}
		actions = append(actions, &action)
	}
	return actions, rows.Err()
}

// UpdatePendingAction persists the retry counter.
func (r *Repository) UpdatePendingAction(action *models.PendingAction) error {
	stmt, err := r.prepareStmt("UPDATE pending_actions SET retries = ? WHERE id = ?")
	if err != nil {
		return err
	}

	res, err := stmt.Exec(action.Retries, action.ID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to update pending action", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.New(apperrors.ErrNotFound, fmt.Sprintf("pending action %s not found", action.ID))
	}
	return nil
}

// ClearPendingAction removes one action. Clearing an absent id is not
// an error; a replayed action may already have been dropped.
func (r *Repository) ClearPendingAction(id string) error {
	stmt, err := r.prepareStmt("DELETE FROM pending_actions WHERE id = ?")
	if err != nil {
		return err
	}
	if _, err := stmt.Exec(id); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to clear pending action", err)
	}
	return nil
}

// =====================================================
// Reset
// =====================================================

// ClearAll wipes all four collections in one transaction.
func (r *Repository) ClearAll() error {
	tx, err := r.db.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to begin reset", err)
	}

	for _, table := range []string{"lessons", "progress", "translations", "pending_actions"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			tx.Rollback()
			return apperrors.Wrap(apperrors.ErrDatabase, fmt.Sprintf("failed to clear %s", table), err)
		}
	}

	return tx.Commit()
}
