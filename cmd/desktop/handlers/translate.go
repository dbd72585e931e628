package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/eduplatform/edusync/internal/translate"
)

// Translator is the translation surface the handler exposes.
type Translator interface {
	TranslateDetailed(ctx context.Context, text, source, target string) (string, translate.Source)
}

// TranslateHandler serves POST /api/translate.
type TranslateHandler struct {
	translator Translator
}

// NewTranslateHandler creates a TranslateHandler.
func NewTranslateHandler(translator Translator) *TranslateHandler {
	return &TranslateHandler{translator: translator}
}

func (h *TranslateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Q      string `json:"q"`
		Source string `json:"source"`
		Target string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Q == "" || body.Source == "" || body.Target == "" {
		http.Error(w, "q, source and target are required", http.StatusBadRequest)
		return
	}

	translated, source := h.translator.TranslateDetailed(r.Context(), body.Q, body.Source, body.Target)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"translatedText": translated,
		"source":         string(source),
		"approximate":    source == translate.SourceFallback,
	})
}
