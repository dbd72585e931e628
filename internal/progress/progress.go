// Package progress reconciles locally recorded lesson completions with
// the authoritative server records.
package progress

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/eduplatform/edusync/internal/gateway"
	"github.com/eduplatform/edusync/internal/logging"
	"github.com/eduplatform/edusync/internal/models"
	"github.com/eduplatform/edusync/internal/store"
	"github.com/eduplatform/edusync/internal/uuid"
)

// State is the client-side view of a lesson for one student.
type State string

const (
	StateNotStarted          State = "not_started"
	StateInProgress          State = "in_progress"
	StateCompletedOptimistic State = "completed_optimistic"
	StateCompletedConfirmed  State = "completed_confirmed"
)

// Fetcher is the network surface the reconciler completes lessons
// through.
type Fetcher interface {
	FetchWithFallback(ctx context.Context, path string, opts gateway.Options) *gateway.Response
}

// Queuer records a completion for replay when the live call failed.
type Queuer interface {
	Enqueue(url, method string, body json.RawMessage, headers map[string]string) (*models.PendingAction, error)
}

// completionPayload is the body of POST /api/lessons/{id}/complete.
type completionPayload struct {
	QuizScore        int `json:"quizScore"`
	TotalQuestions   int `json:"totalQuestions"`
	TimeSpentSeconds int `json:"timeSpentSeconds"`
}

// Reconciler tracks lesson states for a single signed-in student. A
// completion recorded while offline (or while the server is failing)
// becomes an optimistic local record; the eventual replayed response
// replaces it with the authoritative one. A completion is never lost:
// the optimistic record survives even replay exhaustion.
type Reconciler struct {
	student string
	store   store.Store
	fetcher Fetcher
	queue   Queuer

	mu        sync.RWMutex
	states    map[string]State
	onConfirm []func(*models.LocalProgressRecord)
}

// New creates a reconciler for the given student.
func New(student string, st store.Store, fetcher Fetcher, queue Queuer) *Reconciler {
	return &Reconciler{
		student: student,
		store:   st,
		fetcher: fetcher,
		queue:   queue,
		states:  make(map[string]State),
	}
}

// OnConfirmed registers a callback fired whenever a completion is
// confirmed by the server, live or via replay.
func (r *Reconciler) OnConfirmed(fn func(*models.LocalProgressRecord)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onConfirm = append(r.onConfirm, fn)
}

// StartLesson marks a lesson in progress. Completed lessons keep their
// state.
func (r *Reconciler) StartLesson(lessonID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.states[lessonID] {
	case StateCompletedOptimistic, StateCompletedConfirmed:
	default:
		r.states[lessonID] = StateInProgress
	}
}

// CompleteLesson records a completion. Online with a healthy server
// the authoritative record comes back immediately; otherwise an
// optimistic record is stored and the completion is queued for replay.
// Connectivity never makes this fail: the returned record is the best
// current view of the completion.
func (r *Reconciler) CompleteLesson(ctx context.Context, lessonID string, quizScore, totalQuestions, timeSpentSeconds int) *models.LocalProgressRecord {
	body, _ := json.Marshal(completionPayload{
		QuizScore:        quizScore,
		TotalQuestions:   totalQuestions,
		TimeSpentSeconds: timeSpentSeconds,
	})
	path := "/api/lessons/" + lessonID + "/complete"

	resp := r.fetcher.FetchWithFallback(ctx, path, gateway.Options{
		Method: http.MethodPost,
		Body:   body,
	})

	switch {
	case !resp.Offline && resp.StatusCode < 300:
		var server models.ServerProgress
		if err := json.Unmarshal(resp.Body, &server); err == nil && server.ID != "" {
			return r.confirm(&server)
		}
		// A confirmed completion with an unreadable body still counts;
		// fall through to the optimistic path so nothing is lost.
		logging.Warn("completion response unparseable, keeping optimistic record", logging.Fields{
			"lesson": lessonID,
		})
		return r.optimistic(lessonID, quizScore, totalQuestions, timeSpentSeconds)

	case resp.Offline && resp.StatusCode == http.StatusAccepted:
		// Already queued by the offline fallback.
		return r.optimistic(lessonID, quizScore, totalQuestions, timeSpentSeconds)

	default:
		// Live failure or an unqueueable offline miss: queue it here so
		// the completion still reaches the server eventually.
		if _, err := r.queue.Enqueue(path, http.MethodPost, body, nil); err != nil {
			logging.Error("failed to queue completion for replay", err, logging.Fields{
				"lesson": lessonID,
			})
		}
		return r.optimistic(lessonID, quizScore, totalQuestions, timeSpentSeconds)
	}
}

// confirm stores an authoritative server record.
func (r *Reconciler) confirm(server *models.ServerProgress) *models.LocalProgressRecord {
	record := server.ToLocal()
	if record.Student == "" {
		record.Student = r.student
	}
	if err := r.store.SaveProgress(record); err != nil {
		logging.Error("failed to store confirmed progress", err, logging.Fields{
			"lesson": record.Lesson,
		})
	}

	r.mu.Lock()
	r.states[record.Lesson] = StateCompletedConfirmed
	callbacks := make([]func(*models.LocalProgressRecord), len(r.onConfirm))
	copy(callbacks, r.onConfirm)
	r.mu.Unlock()

	logging.Info("lesson completion confirmed", logging.Fields{
		"student": record.Student,
		"lesson":  record.Lesson,
	})
	for _, fn := range callbacks {
		fn(record)
	}
	return record
}

// optimistic stores a local record pending server confirmation.
func (r *Reconciler) optimistic(lessonID string, quizScore, totalQuestions, timeSpentSeconds int) *models.LocalProgressRecord {
	record := &models.LocalProgressRecord{
		ID:               uuid.New(),
		Student:          r.student,
		Lesson:           lessonID,
		IsCompleted:      true,
		QuizScore:        quizScore,
		TotalQuestions:   totalQuestions,
		TimeSpentSeconds: timeSpentSeconds,
		CompletedAt:      time.Now().UTC().Format(time.RFC3339),
		Origin:           models.OriginOptimistic,
		UpdatedAt:        time.Now().Unix(),
	}
	if err := r.store.SaveProgress(record); err != nil {
		logging.Error("failed to store optimistic progress", err, logging.Fields{
			"lesson": lessonID,
		})
	}

	r.mu.Lock()
	r.states[lessonID] = StateCompletedOptimistic
	r.mu.Unlock()

	logging.Info("lesson completion recorded locally", logging.Fields{
		"student": r.student,
		"lesson":  lessonID,
	})
	return record
}

// OnReplayed consumes a successfully replayed action. Replayed
// completion responses carry the authoritative record, which replaces
// the optimistic one for the same (student, lesson) pair.
func (r *Reconciler) OnReplayed(action *models.PendingAction, response []byte) {
	lessonID := completionLessonID(action.URL)
	if lessonID == "" {
		return
	}

	var server models.ServerProgress
	if err := json.Unmarshal(response, &server); err != nil || server.ID == "" {
		logging.Warn("replayed completion response unparseable", logging.Fields{
			"action_id": action.ID,
			"lesson":    lessonID,
		})
		return
	}
	if server.Lesson.String() == "" {
		server.Lesson = models.LessonRef(lessonID)
	}
	r.confirm(&server)
}

// OnExhausted consumes a dropped action. The optimistic record stays
// so the completion is still visible locally.
func (r *Reconciler) OnExhausted(action *models.PendingAction, err error) {
	lessonID := completionLessonID(action.URL)
	if lessonID == "" {
		return
	}
	logging.Warn("completion replay exhausted, keeping local record", logging.Fields{
		"action_id": action.ID,
		"lesson":    lessonID,
		"error":     err.Error(),
	})
}

// Progress returns the stored record and state for a lesson. The
// record is nil when nothing has been stored yet.
func (r *Reconciler) Progress(lessonID string) (*models.LocalProgressRecord, State, error) {
	r.mu.RLock()
	state, ok := r.states[lessonID]
	r.mu.RUnlock()
	if !ok {
		state = StateNotStarted
	}

	records, err := r.store.GetProgressByStudent(r.student)
	if err != nil {
		return nil, state, err
	}
	for _, rec := range records {
		if rec.Lesson == lessonID {
			return rec, state, nil
		}
	}
	return nil, state, nil
}

// All returns every stored progress record for the student.
func (r *Reconciler) All() ([]*models.LocalProgressRecord, error) {
	return r.store.GetProgressByStudent(r.student)
}

// completionLessonID extracts the lesson id from a completion URL,
// ignoring any query string.
func completionLessonID(url string) string {
	path := strings.SplitN(url, "?", 2)[0]
	rest, ok := strings.CutPrefix(path, "/api/lessons/")
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, "/complete")
	if !ok || id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
