// Package handlers provides the REST surface of the local control
// plane consumed by the desktop UI.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/eduplatform/edusync/internal/gateway"
	"github.com/eduplatform/edusync/internal/logging"
	"github.com/eduplatform/edusync/internal/models"
	"github.com/eduplatform/edusync/internal/progress"
)

// Fetcher is the gateway surface the handlers proxy through.
type Fetcher interface {
	FetchWithFallback(ctx context.Context, path string, opts gateway.Options) *gateway.Response
}

// LessonHandler serves lesson reads and completions.
type LessonHandler struct {
	fetcher    Fetcher
	reconciler *progress.Reconciler
}

// NewLessonHandler creates a LessonHandler.
func NewLessonHandler(fetcher Fetcher, reconciler *progress.Reconciler) *LessonHandler {
	return &LessonHandler{fetcher: fetcher, reconciler: reconciler}
}

// ServeHTTP routes /api/lessons requests: list and single reads go
// through the gateway, completions through the reconciler.
func (h *LessonHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/complete") {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.complete(w, r)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Path
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}
	writeGatewayResponse(w, h.fetcher.FetchWithFallback(r.Context(), path, gateway.Options{}))
}

// complete handles POST /api/lessons/{id}/complete.
func (h *LessonHandler) complete(w http.ResponseWriter, r *http.Request) {
	lessonID := completionLessonID(r.URL.Path)
	if lessonID == "" {
		http.Error(w, "Lesson id is required", http.StatusBadRequest)
		return
	}

	var body struct {
		QuizScore        int `json:"quizScore"`
		TotalQuestions   int `json:"totalQuestions"`
		TimeSpentSeconds int `json:"timeSpentSeconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record := h.reconciler.CompleteLesson(r.Context(), lessonID,
		body.QuizScore, body.TotalQuestions, body.TimeSpentSeconds)

	status := http.StatusOK
	if record.Origin == models.OriginOptimistic {
		status = http.StatusAccepted
	}
	writeJSON(w, status, record)
}

// ProgressHandler serves GET /api/progress.
type ProgressHandler struct {
	reconciler *progress.Reconciler
}

// NewProgressHandler creates a ProgressHandler.
func NewProgressHandler(reconciler *progress.Reconciler) *ProgressHandler {
	return &ProgressHandler{reconciler: reconciler}
}

func (h *ProgressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := h.reconciler.All()
	if err != nil {
		logging.Error("failed to read progress", err)
		http.Error(w, "Failed to read progress", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*models.LocalProgressRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// writeGatewayResponse mirrors a gateway response to the UI client.
func writeGatewayResponse(w http.ResponseWriter, resp *gateway.Response) {
	w.Header().Set("Content-Type", "application/json")
	if resp.Offline {
		w.Header().Set("X-Served-From", "cache")
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// completionLessonID extracts the id from /api/lessons/{id}/complete.
func completionLessonID(path string) string {
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
