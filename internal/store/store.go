// Package store provides the storage interface shared by the SQLite
// repository and the in-memory degraded-mode store.
package store

import (
	"time"

	"github.com/eduplatform/edusync/internal/models"
)

// Store is the contract every other component persists through. No
// component outside this package owns durable state.
//
// Lookup methods return (nil, nil) when a record is absent (or, for
// translations, expired); an empty result is valid, not an error.
type Store interface {
	// SaveLessons upserts each lesson by id. Lessons not in the batch
	// are untouched; there is no implicit deletion.
	SaveLessons(lessons []*models.Lesson) error

	// GetLessons returns cached lessons narrowed by the filter's set
	// fields, newest cached first.
	GetLessons(filter models.LessonFilter) ([]*models.Lesson, error)

	// GetLesson returns one cached lesson by id.
	GetLesson(id string) (*models.Lesson, error)

	// SaveProgress upserts the record by its (student, lesson) key.
	SaveProgress(record *models.LocalProgressRecord) error

	// GetProgressByStudent returns all progress shadows for a student.
	GetProgressByStudent(student string) ([]*models.LocalProgressRecord, error)

	// SaveTranslation upserts a translation by its composite key.
	SaveTranslation(tr *models.Translation) error

	// GetTranslation returns the cached translation unless it is
	// absent or older than ttl. Expiry is checked at read time only.
	GetTranslation(sourceText, sourceLang, targetLang string, ttl time.Duration) (*models.Translation, error)

	// QueuePendingAction appends an action to the replay queue.
	QueuePendingAction(action *models.PendingAction) error

	// GetPendingActions returns queued actions in creation order.
	GetPendingActions() ([]*models.PendingAction, error)

	// UpdatePendingAction persists the action's mutable fields
	// (currently the retry counter).
	UpdatePendingAction(action *models.PendingAction) error

	// ClearPendingAction removes one action by id.
	ClearPendingAction(id string) error

	// ClearAll wipes all four collections. Used by logout/reset flows.
	ClearAll() error
}

// Ensure both implementations satisfy the interface at compile time.
var (
	_ Store = (*Repository)(nil)
	_ Store = (*MemoryStore)(nil)
)
