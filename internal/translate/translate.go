// Package translate provides cached lesson-content translation with a
// rule-based offline fallback.
package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/eduplatform/edusync/internal/gateway"
	"github.com/eduplatform/edusync/internal/logging"
	"github.com/eduplatform/edusync/internal/models"
	"github.com/eduplatform/edusync/internal/store"
)

// DefaultTTL is how long a cached translation stays fresh.
const DefaultTTL = 7 * 24 * time.Hour

// Source tells where a translation result came from.
type Source string

const (
	// SourceCache: an unexpired cached translation.
	SourceCache Source = "cache"
	// SourceNetwork: a fresh result from the translation service.
	SourceNetwork Source = "network"
	// SourceFallback: an approximate result from the built-in tables.
	SourceFallback Source = "fallback"
	// SourceNone: the text could not be translated and is returned
	// unchanged.
	SourceNone Source = "none"
)

// Fetcher is the network surface the translator needs.
type Fetcher interface {
	FetchWithFallback(ctx context.Context, path string, opts gateway.Options) *gateway.Response
}

// Translator resolves translations cache-first: an unexpired cached
// entry wins, then the live translation service, then the built-in
// phrase and word tables. Only service results are cached; approximate
// fallback output is recomputed each time so a later live result can
// replace it.
type Translator struct {
	store   store.Store
	fetcher Fetcher
	ttl     time.Duration
}

// New creates a translator. A zero ttl gets DefaultTTL.
func New(st store.Store, fetcher Fetcher, ttl time.Duration) *Translator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Translator{store: st, fetcher: fetcher, ttl: ttl}
}

// Translate returns the best available translation of text, or the
// text unchanged when no translation path produces one.
func (t *Translator) Translate(ctx context.Context, text, source, target string) string {
	result, _ := t.TranslateDetailed(ctx, text, source, target)
	return result
}

// TranslateDetailed is Translate plus the source of the result, so a
// caller can flag approximate fallback output.
func (t *Translator) TranslateDetailed(ctx context.Context, text, source, target string) (string, Source) {
	if text == "" || source == target {
		return text, SourceNone
	}

	if cached, err := t.store.GetTranslation(text, source, target, t.ttl); err == nil && cached != nil {
		return cached.TranslatedText, SourceCache
	}

	if translated, ok := t.fromService(ctx, text, source, target); ok {
		return translated, SourceNetwork
	}

	if translated, ok := applyFallback(text, source, target); ok {
		logging.Debug("serving approximate fallback translation", logging.Fields{
			"source": source,
			"target": target,
		})
		return translated, SourceFallback
	}

	return text, SourceNone
}

// fromService asks the live translation endpoint and caches a
// successful result.
func (t *Translator) fromService(ctx context.Context, text, source, target string) (string, bool) {
	payload, err := json.Marshal(map[string]string{
		"q":      text,
		"source": source,
		"target": target,
	})
	if err != nil {
		return "", false
	}

	resp := t.fetcher.FetchWithFallback(ctx, "/api/translate", gateway.Options{
		Method: http.MethodPost,
		Body:   payload,
	})
	if resp.Offline || resp.StatusCode != http.StatusOK {
		return "", false
	}

	var parsed struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := json.Unmarshal(resp.Body, &parsed); err != nil || parsed.TranslatedText == "" {
		return "", false
	}

	entry := &models.Translation{
		SourceText:     text,
		SourceLang:     source,
		TargetLang:     target,
		TranslatedText: parsed.TranslatedText,
		CreatedAt:      time.Now().Unix(),
	}
	if err := t.store.SaveTranslation(entry); err != nil {
		logging.Warn("failed to cache translation", logging.Fields{"error": err.Error()})
	}

	return parsed.TranslatedText, true
}

// applyFallback runs the built-in tables: whole-phrase lookup first,
// then longest-match phrase substitution, then word-level rules. It
// reports false when nothing matched.
func applyFallback(text, source, target string) (string, bool) {
	key := source + "-" + target
	phrases, hasPhrases := phraseTables[key]
	words, hasWords := wordTables[key]
	if !hasPhrases && !hasWords {
		return "", false
	}

	if translated, ok := phrases[text]; ok {
		return translated, true
	}

	result := text
	for _, phrase := range phrasesByLength(phrases) {
		result = strings.ReplaceAll(result, phrase, phrases[phrase])
	}
	for _, rule := range words {
		result = rule.pattern.ReplaceAllString(result, rule.replacement)
	}

	if result == text {
		return "", false
	}
	return result, true
}

// phrasesByLength returns the phrase keys longest first, so sentences
// are replaced before the shorter phrases they contain.
func phrasesByLength(phrases map[string]string) []string {
	keys := make([]string, 0, len(phrases))
	for k := range phrases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
