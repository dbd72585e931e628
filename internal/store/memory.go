// Package store provides the in-memory fallback used when local
// persistence cannot be opened (degraded mode). Nothing survives a
// process restart, but every contract of the Store interface holds.
package store

import (
	"sort"
	"sync"
	"time"

	apperrors "github.com/eduplatform/edusync/internal/errors"
	"github.com/eduplatform/edusync/internal/models"
)

// MemoryStore is a map-backed Store implementation. It doubles as a
// test fixture for components that only need the interface.
type MemoryStore struct {
	mu           sync.RWMutex
	lessons      map[string]*models.Lesson
	progress     map[string]*models.LocalProgressRecord // key: student + "\x00" + lesson
	translations map[string]*models.Translation         // key: text + "\x00" + source + "\x00" + target
	actions      []*models.PendingAction                // creation order
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lessons:      make(map[string]*models.Lesson),
		progress:     make(map[string]*models.LocalProgressRecord),
		translations: make(map[string]*models.Translation),
	}
}

func progressKey(student, lesson string) string {
	return student + "\x00" + lesson
}

func translationKey(text, source, target string) string {
	return text + "\x00" + source + "\x00" + target
}

// SaveLessons upserts each lesson by id.
func (s *MemoryStore) SaveLessons(lessons []*models.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	for _, lesson := range lessons {
		if lesson.ID == "" {
			return apperrors.New(apperrors.ErrInvalid, "lesson without id cannot be cached")
		}
		stored := *lesson
		stored.CachedAt = now
		s.lessons[lesson.ID] = &stored
		lesson.CachedAt = now
	}
	return nil
}

// GetLessons returns cached lessons matching the filter, newest first.
func (s *MemoryStore) GetLessons(filter models.LessonFilter) ([]*models.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lessons []*models.Lesson
	for _, lesson := range s.lessons {
		if filter.Matches(lesson) {
			copied := *lesson
			lessons = append(lessons, &copied)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].CachedAt != lessons[j].CachedAt {
			return lessons[i].CachedAt > lessons[j].CachedAt
		}
		return lessons[i].ID < lessons[j].ID
	})
	return lessons, nil
}

// GetLesson returns one lesson by id, (nil, nil) when absent.
func (s *MemoryStore) GetLesson(id string) (*models.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lesson, ok := s.lessons[id]
	if !ok {
		return nil, nil
	}
	copied := *lesson
	return &copied, nil
}

// SaveProgress upserts by (student, lesson).
func (s *MemoryStore) SaveProgress(record *models.LocalProgressRecord) error {
	if record.Student == "" || record.Lesson == "" {
		return apperrors.New(apperrors.ErrInvalid, "progress record requires student and lesson ids")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if record.UpdatedAt == 0 {
		record.UpdatedAt = time.Now().Unix()
	}
	stored := *record
	s.progress[progressKey(record.Student, record.Lesson)] = &stored
	return nil
}

// GetProgressByStudent returns all progress shadows for a student.
func (s *MemoryStore) GetProgressByStudent(student string) ([]*models.LocalProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*models.LocalProgressRecord
	for _, rec := range s.progress {
		if rec.Student == student {
			copied := *rec
			records = append(records, &copied)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].UpdatedAt != records[j].UpdatedAt {
			return records[i].UpdatedAt > records[j].UpdatedAt
		}
		return records[i].Lesson < records[j].Lesson
	})
	return records, nil
}

// SaveTranslation overwrites any existing entry for the key.
func (s *MemoryStore) SaveTranslation(tr *models.Translation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tr.CreatedAt == 0 {
		tr.CreatedAt = time.Now().Unix()
	}
	stored := *tr
	s.translations[translationKey(tr.SourceText, tr.SourceLang, tr.TargetLang)] = &stored
	return nil
}

// GetTranslation returns (nil, nil) when absent or expired.
func (s *MemoryStore) GetTranslation(sourceText, sourceLang, targetLang string, ttl time.Duration) (*models.Translation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr, ok := s.translations[translationKey(sourceText, sourceLang, targetLang)]
	if !ok || tr.Expired(ttl, time.Now()) {
		return nil, nil
	}
	copied := *tr
	return &copied, nil
}

// QueuePendingAction appends to the in-memory queue.
func (s *MemoryStore) QueuePendingAction(action *models.PendingAction) error {
	if action.ID == "" {
		return apperrors.New(apperrors.ErrInvalid, "pending action requires a generated id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *action
	s.actions = append(s.actions, &stored)
	return nil
}

// GetPendingActions returns queued actions in creation order.
func (s *MemoryStore) GetPendingActions() ([]*models.PendingAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	actions := make([]*models.PendingAction, 0, len(s.actions))
	for _, action := range s.actions {
		copied := *action
		actions = append(actions, &copied)
	}
	return actions, nil
}

// UpdatePendingAction persists the retry counter.
func (s *MemoryStore) UpdatePendingAction(action *models.PendingAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stored := range s.actions {
		if stored.ID == action.ID {
			stored.Retries = action.Retries
			return nil
		}
	}
	return apperrors.New(apperrors.ErrNotFound, "pending action "+action.ID+" not found")
}

// ClearPendingAction removes one action by id.
func (s *MemoryStore) ClearPendingAction(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, stored := range s.actions {
		if stored.ID == id {
			s.actions = append(s.actions[:i], s.actions[i+1:]...)
			return nil
		}
	}
	return nil
}

// ClearAll wipes all four collections.
func (s *MemoryStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lessons = make(map[string]*models.Lesson)
	s.progress = make(map[string]*models.LocalProgressRecord)
	s.translations = make(map[string]*models.Translation)
	s.actions = nil
	return nil
}
