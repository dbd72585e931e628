package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/eduplatform/edusync/internal/errors"
	"github.com/eduplatform/edusync/internal/models"
	"github.com/eduplatform/edusync/internal/store"
)

type staticOnline bool

func (s staticOnline) Online() bool { return bool(s) }

type fakeQueuer struct {
	actions []*models.PendingAction
	err     error
}

func (f *fakeQueuer) Enqueue(url, method string, body json.RawMessage, headers map[string]string) (*models.PendingAction, error) {
	if f.err != nil {
		return nil, f.err
	}
	action := &models.PendingAction{ID: "queued", URL: url, Method: method, Body: body, Headers: headers}
	f.actions = append(f.actions, action)
	return action, nil
}

func sampleLessons() []*models.Lesson {
	return []*models.Lesson{
		{ID: "l1", Title: "Fractions", Subject: models.SubjectMath, ClassLevel: 5, Language: "en"},
		{ID: "l2", Title: "Photosynthesis", Subject: models.SubjectScience, ClassLevel: 6, Language: "en"},
	}
}

// TestFetchOnlineCachesLessonRead tests that a successful live lesson
// read is returned as-is and mirrored into the store.
func TestFetchOnlineCachesLessonRead(t *testing.T) {
	lessons := sampleLessons()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/lessons" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(lessons)
	}))
	defer server.Close()

	st := store.NewMemoryStore()
	g := New(server.URL, nil, StaticToken("tok"), st, staticOnline(true), &fakeQueuer{})

	resp := g.FetchWithFallback(context.Background(), "/api/lessons", Options{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if resp.Offline {
		t.Error("Expected a live response")
	}

	cached, err := st.GetLessons(models.LessonFilter{})
	if err != nil {
		t.Fatalf("GetLessons failed: %v", err)
	}
	if len(cached) != 2 {
		t.Errorf("Expected 2 cached lessons, got %d", len(cached))
	}
}

// TestFetchOfflineServesLessonsFromCache tests the read fallback: 200
// with cached lessons, honoring query filters.
func TestFetchOfflineServesLessonsFromCache(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.SaveLessons(sampleLessons()); err != nil {
		t.Fatalf("SaveLessons failed: %v", err)
	}

	g := New("http://unreachable.invalid", nil, StaticToken("tok"), st, staticOnline(false), &fakeQueuer{})

	resp := g.FetchWithFallback(context.Background(), "/api/lessons?subject=Math", Options{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from cache, got %d", resp.StatusCode)
	}
	if !resp.Offline {
		t.Error("Expected offline-marked response")
	}

	var got []*models.Lesson
	if err := json.Unmarshal(resp.Body, &got); err != nil {
		t.Fatalf("Response body not a lesson list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "l1" {
		t.Errorf("Expected only the Math lesson, got %+v", got)
	}
}

// TestFetchTransportFailureFallsBack tests that a live call that dies
// mid-transport degrades to the cache instead of erroring.
func TestFetchTransportFailureFallsBack(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.SaveLessons(sampleLessons()); err != nil {
		t.Fatalf("SaveLessons failed: %v", err)
	}

	// Online per the monitor, but the server is not reachable.
	g := New("http://127.0.0.1:1", nil, StaticToken("tok"), st, staticOnline(true), &fakeQueuer{})

	resp := g.FetchWithFallback(context.Background(), "/api/lessons", Options{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from cache, got %d", resp.StatusCode)
	}
	if !resp.Offline {
		t.Error("Expected offline-marked response")
	}
}

// TestFetchOfflineQueuesMutation tests the write fallback: the action
// is enqueued and acknowledged with 202.
func TestFetchOfflineQueuesMutation(t *testing.T) {
	queue := &fakeQueuer{}
	g := New("http://unreachable.invalid", nil, StaticToken("tok"), store.NewMemoryStore(), staticOnline(false), queue)

	body := json.RawMessage(`{"quizScore":90,"totalQuestions":10,"timeSpentSeconds":300}`)
	resp := g.FetchWithFallback(context.Background(), "/api/lessons/l1/complete", Options{
		Method: http.MethodPost,
		Body:   body,
	})

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", resp.StatusCode)
	}
	var ack struct {
		Message string `json:"message"`
		Offline bool   `json:"offline"`
	}
	if err := json.Unmarshal(resp.Body, &ack); err != nil {
		t.Fatalf("Bad ack body: %v", err)
	}
	if !ack.Offline || ack.Message != "Queued for sync when online" {
		t.Errorf("Unexpected ack: %+v", ack)
	}

	if len(queue.actions) != 1 {
		t.Fatalf("Expected 1 queued action, got %d", len(queue.actions))
	}
	if queue.actions[0].URL != "/api/lessons/l1/complete" || queue.actions[0].Method != http.MethodPost {
		t.Errorf("Unexpected queued action: %+v", queue.actions[0])
	}
}

// TestFetchOfflineRejectsUnknownRequest tests that requests with no
// offline handling get 503.
func TestFetchOfflineRejectsUnknownRequest(t *testing.T) {
	g := New("http://unreachable.invalid", nil, StaticToken("tok"), store.NewMemoryStore(), staticOnline(false), &fakeQueuer{})

	resp := g.FetchWithFallback(context.Background(), "/api/users/me", Options{})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", resp.StatusCode)
	}
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body, &msg); err != nil {
		t.Fatalf("Bad error body: %v", err)
	}
	if msg.Message != "Offline - please check your connection" {
		t.Errorf("Unexpected message %q", msg.Message)
	}
}

// TestFetchOfflineSingleLesson tests serving one cached lesson by id.
func TestFetchOfflineSingleLesson(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.SaveLessons(sampleLessons()); err != nil {
		t.Fatalf("SaveLessons failed: %v", err)
	}

	g := New("http://unreachable.invalid", nil, StaticToken("tok"), st, staticOnline(false), &fakeQueuer{})

	resp := g.FetchWithFallback(context.Background(), "/api/lessons/l2", Options{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var lesson models.Lesson
	if err := json.Unmarshal(resp.Body, &lesson); err != nil {
		t.Fatalf("Bad lesson body: %v", err)
	}
	if lesson.ID != "l2" {
		t.Errorf("Expected lesson l2, got %s", lesson.ID)
	}

	// Unknown lesson cannot be served offline.
	resp = g.FetchWithFallback(context.Background(), "/api/lessons/nope", Options{})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 for uncached lesson, got %d", resp.StatusCode)
	}
}

// TestFetchOnlineAttachesBearerToken tests that live calls carry the
// token, so an auth-enforcing server confirms mutations instead of
// pushing them onto the queue.
func TestFetchOnlineAttachesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if gotAuth != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"_id":"srv-1","isCompleted":true}`))
	}))
	defer server.Close()

	queue := &fakeQueuer{}
	g := New(server.URL, nil, StaticToken("tok-123"), store.NewMemoryStore(), staticOnline(true), queue)

	resp := g.FetchWithFallback(context.Background(), "/api/lessons/l1/complete", Options{
		Method: http.MethodPost,
		Body:   json.RawMessage(`{"quizScore":80,"totalQuestions":10}`),
	})

	if gotAuth != "Bearer tok-123" {
		t.Errorf("Expected bearer token on live call, got %q", gotAuth)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected live 200, got %d", resp.StatusCode)
	}
	if resp.Offline {
		t.Error("Expected a live response, not a queued fallback")
	}
	if len(queue.actions) != 0 {
		t.Errorf("Expected nothing queued, got %d actions", len(queue.actions))
	}
}

// TestFetchOnlineToleratesMissingToken tests that public lesson reads
// go through without credentials.
func TestFetchOnlineToleratesMissingToken(t *testing.T) {
	var sawAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization") != ""
		json.NewEncoder(w).Encode(sampleLessons())
	}))
	defer server.Close()

	g := New(server.URL, nil, StaticToken(""), store.NewMemoryStore(), staticOnline(true), &fakeQueuer{})

	resp := g.FetchWithFallback(context.Background(), "/api/lessons", Options{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if sawAuth {
		t.Error("Expected no Authorization header without a token")
	}
}

// TestSendAttachesBearerToken tests the replay path headers and body.
func TestSendAttachesBearerToken(t *testing.T) {
	var gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.Write([]byte(`{"completed":true}`))
	}))
	defer server.Close()

	g := New(server.URL, nil, StaticToken("secret"), store.NewMemoryStore(), staticOnline(true), &fakeQueuer{})

	action := &models.PendingAction{
		ID:     "a1",
		URL:    "/api/lessons/l1/complete",
		Method: http.MethodPost,
		Body:   json.RawMessage(`{"quizScore":80}`),
	}
	body, err := g.Send(context.Background(), action)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Expected bearer token, got %q", gotAuth)
	}
	if gotBody != `{"quizScore":80}` {
		t.Errorf("Unexpected forwarded body %q", gotBody)
	}
	if string(body) != `{"completed":true}` {
		t.Errorf("Unexpected response body %q", body)
	}
}

// TestSendAuthFailures tests the AUTH_REQUIRED mappings.
func TestSendAuthFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	action := &models.PendingAction{ID: "a1", URL: "/api/x", Method: http.MethodPost}

	// Server rejects the token.
	g := New(server.URL, nil, StaticToken("stale"), store.NewMemoryStore(), staticOnline(true), &fakeQueuer{})
	if _, err := g.Send(context.Background(), action); !apperrors.Is(err, apperrors.ErrAuthRequired) {
		t.Errorf("Expected AUTH_REQUIRED for 401, got %v", err)
	}

	// No token at all: the server must not even be contacted.
	g = New("http://unreachable.invalid", nil, StaticToken(""), store.NewMemoryStore(), staticOnline(true), &fakeQueuer{})
	if _, err := g.Send(context.Background(), action); !apperrors.Is(err, apperrors.ErrAuthRequired) {
		t.Errorf("Expected AUTH_REQUIRED for missing token, got %v", err)
	}
}

// TestSendServerErrorIsRetryable tests that a 5xx surfaces as a
// non-auth error so the queue retries it.
func TestSendServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	g := New(server.URL, nil, StaticToken("tok"), store.NewMemoryStore(), staticOnline(true), &fakeQueuer{})
	action := &models.PendingAction{ID: "a1", URL: "/api/x", Method: http.MethodPost}

	_, err := g.Send(context.Background(), action)
	if err == nil {
		t.Fatal("Expected error for 500")
	}
	if apperrors.Is(err, apperrors.ErrAuthRequired) {
		t.Error("500 must not map to AUTH_REQUIRED")
	}
	if !apperrors.Is(err, apperrors.ErrServerRejected) {
		t.Errorf("Expected SERVER_REJECTED, got %v", err)
	}
}
