package handlers

import (
	"context"
	"net/http"

	apperrors "github.com/eduplatform/edusync/internal/errors"
	"github.com/eduplatform/edusync/internal/queue"
)

// Replayer triggers a synchronous queue replay.
type Replayer interface {
	ReplayNow(ctx context.Context) error
}

// SyncHandler serves POST /api/sync/now.
type SyncHandler struct {
	replayer Replayer
	queue    *queue.Manager
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(replayer Replayer, q *queue.Manager) *SyncHandler {
	return &SyncHandler{replayer: replayer, queue: q}
}

func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	err := h.replayer.ReplayNow(r.Context())

	pending, pendingErr := h.queue.Pending()
	remaining := -1
	if pendingErr == nil {
		remaining = len(pending)
	}

	if err != nil {
		status := http.StatusInternalServerError
		if apperrors.Is(err, apperrors.ErrAuthRequired) {
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, map[string]interface{}{
			"status":    "failed",
			"error":     err.Error(),
			"remaining": remaining,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "success",
		"remaining": remaining,
	})
}
