package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/eduplatform/edusync/internal/connectivity"
	"github.com/eduplatform/edusync/internal/queue"
)

// StatusHandler serves health, status and the platform network signal.
type StatusHandler struct {
	monitor     *connectivity.Monitor
	queue       *queue.Manager
	storageMode string // "sqlite" or "memory" (degraded)
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(monitor *connectivity.Monitor, q *queue.Manager, storageMode string) *StatusHandler {
	return &StatusHandler{monitor: monitor, queue: q, storageMode: storageMode}
}

// Health handles GET /api/health.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "edusync-desktop",
	})
}

// Status handles GET /api/status.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pending, err := h.queue.Pending()
	if err != nil {
		http.Error(w, "Failed to read pending actions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"online":          h.monitor.Online(),
		"syncing":         h.queue.Syncing(),
		"pending_actions": len(pending),
		"storage":         h.storageMode,
	})
}

// SetNetwork handles POST /api/network: the platform layer feeds the
// connectivity signal through here.
func (h *StatusHandler) SetNetwork(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.monitor.SetOnline(body.Online)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"online": h.monitor.Online(),
	})
}
