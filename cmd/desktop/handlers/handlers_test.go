package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eduplatform/edusync/internal/connectivity"
	"github.com/eduplatform/edusync/internal/gateway"
	"github.com/eduplatform/edusync/internal/models"
	"github.com/eduplatform/edusync/internal/progress"
	"github.com/eduplatform/edusync/internal/queue"
	"github.com/eduplatform/edusync/internal/store"
	"github.com/eduplatform/edusync/internal/translate"
)

// fakeFetcher serves lesson reads from a canned list and marks
// completion posts as queued.
type fakeFetcher struct {
	offline bool
	lessons []*models.Lesson
}

func (f *fakeFetcher) FetchWithFallback(ctx context.Context, path string, opts gateway.Options) *gateway.Response {
	if opts.Method == http.MethodPost || f.offline {
		return &gateway.Response{
			StatusCode: http.StatusAccepted,
			Body:       []byte(`{"message":"Queued for sync when online","offline":true}`),
			Offline:    true,
		}
	}
	body, _ := json.Marshal(f.lessons)
	return &gateway.Response{StatusCode: http.StatusOK, Body: body}
}

type nopSender struct{}

func (nopSender) Send(ctx context.Context, action *models.PendingAction) ([]byte, error) {
	return nil, errors.New("not reachable in tests")
}

func newTestReconciler(t *testing.T, fetcher *fakeFetcher) (*progress.Reconciler, *queue.Manager) {
	t.Helper()
	st := store.NewMemoryStore()
	monitor := connectivity.NewMonitor(false)
	mgr := queue.NewManager(st, monitor, nopSender{}, queue.Config{MaxRetries: 3})
	return progress.New("s1", st, fetcher, mgr), mgr
}

// TestLessonListProxied tests GET /api/lessons pass-through.
func TestLessonListProxied(t *testing.T) {
	fetcher := &fakeFetcher{lessons: []*models.Lesson{
		{ID: "l1", Title: "Fractions", Subject: models.SubjectMath, ClassLevel: 5},
	}}
	reconciler, _ := newTestReconciler(t, fetcher)
	handler := NewLessonHandler(fetcher, reconciler)

	req := httptest.NewRequest(http.MethodGet, "/api/lessons?subject=Math", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var got []*models.Lesson
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Bad body: %v", err)
	}
	if len(got) != 1 || got[0].ID != "l1" {
		t.Errorf("Unexpected lessons %+v", got)
	}
}

// TestLessonCompleteOffline tests POST /api/lessons/{id}/complete while
// offline: 202 with the optimistic record.
func TestLessonCompleteOffline(t *testing.T) {
	fetcher := &fakeFetcher{offline: true}
	reconciler, _ := newTestReconciler(t, fetcher)
	handler := NewLessonHandler(fetcher, reconciler)

	req := httptest.NewRequest(http.MethodPost, "/api/lessons/l1/complete",
		strings.NewReader(`{"quizScore":80,"totalQuestions":10,"timeSpentSeconds":300}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}
	var record models.LocalProgressRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("Bad body: %v", err)
	}
	if record.Origin != models.OriginOptimistic || record.QuizScore != 80 {
		t.Errorf("Unexpected record %+v", record)
	}
}

// TestLessonCompleteValidation tests bad completion requests.
func TestLessonCompleteValidation(t *testing.T) {
	fetcher := &fakeFetcher{}
	reconciler, _ := newTestReconciler(t, fetcher)
	handler := NewLessonHandler(fetcher, reconciler)

	// GET on a completion URL is not allowed.
	req := httptest.NewRequest(http.MethodGet, "/api/lessons/l1/complete", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}

	// Garbage body.
	req = httptest.NewRequest(http.MethodPost, "/api/lessons/l1/complete", strings.NewReader("not json"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

// TestProgressEndpoint tests GET /api/progress.
func TestProgressEndpoint(t *testing.T) {
	fetcher := &fakeFetcher{offline: true}
	reconciler, _ := newTestReconciler(t, fetcher)
	reconciler.CompleteLesson(context.Background(), "l1", 70, 10, 100)

	handler := NewProgressHandler(reconciler)
	req := httptest.NewRequest(http.MethodGet, "/api/progress", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var records []*models.LocalProgressRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("Bad body: %v", err)
	}
	if len(records) != 1 || records[0].Lesson != "l1" {
		t.Errorf("Unexpected records %+v", records)
	}
}

// TestStatusEndpoints tests health, status and the network signal.
func TestStatusEndpoints(t *testing.T) {
	st := store.NewMemoryStore()
	monitor := connectivity.NewMonitor(false)
	mgr := queue.NewManager(st, monitor, nopSender{}, queue.Config{MaxRetries: 3})
	handler := NewStatusHandler(monitor, mgr, "memory")

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from health, got %d", rec.Code)
	}

	if _, err := mgr.Enqueue("/api/x", http.MethodPost, nil, nil); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	rec = httptest.NewRecorder()
	handler.Status(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	var status struct {
		Online         bool   `json:"online"`
		PendingActions int    `json:"pending_actions"`
		Storage        string `json:"storage"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("Bad status body: %v", err)
	}
	if status.Online || status.PendingActions != 1 || status.Storage != "memory" {
		t.Errorf("Unexpected status %+v", status)
	}

	// Feed the network signal.
	rec = httptest.NewRecorder()
	handler.SetNetwork(rec, httptest.NewRequest(http.MethodPost, "/api/network",
		strings.NewReader(`{"online":true}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from network, got %d", rec.Code)
	}
	if !monitor.Online() {
		t.Error("Expected monitor switched online")
	}
}

// fakeTranslator returns a canned result.
type fakeTranslator struct {
	result string
	source translate.Source
}

func (f *fakeTranslator) TranslateDetailed(ctx context.Context, text, source, target string) (string, translate.Source) {
	return f.result, f.source
}

// TestTranslateEndpoint tests POST /api/translate.
func TestTranslateEndpoint(t *testing.T) {
	handler := NewTranslateHandler(&fakeTranslator{result: "माउस", source: translate.SourceFallback})

	req := httptest.NewRequest(http.MethodPost, "/api/translate",
		strings.NewReader(`{"q":"Mouse","source":"en","target":"hi"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body struct {
		TranslatedText string `json:"translatedText"`
		Approximate    bool   `json:"approximate"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Bad body: %v", err)
	}
	if body.TranslatedText != "माउस" || !body.Approximate {
		t.Errorf("Unexpected body %+v", body)
	}

	// Missing fields are rejected.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/translate",
		strings.NewReader(`{"q":"Mouse"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

// fakeReplayer scripts /api/sync/now outcomes.
type fakeReplayer struct {
	err error
}

func (f *fakeReplayer) ReplayNow(ctx context.Context) error { return f.err }

// TestSyncNowEndpoint tests the manual replay trigger.
func TestSyncNowEndpoint(t *testing.T) {
	st := store.NewMemoryStore()
	monitor := connectivity.NewMonitor(true)
	mgr := queue.NewManager(st, monitor, nopSender{}, queue.Config{MaxRetries: 3})

	handler := NewSyncHandler(&fakeReplayer{}, mgr)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync/now", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	handler = NewSyncHandler(&fakeReplayer{err: errors.New("replay failed")}, mgr)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync/now", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sync/now", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}
