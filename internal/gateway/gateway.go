// Package gateway provides the network boundary for the client: live
// HTTP calls with cache fallback for reads and queue fallback for
// writes, so callers never see a transport error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/eduplatform/edusync/internal/errors"
	"github.com/eduplatform/edusync/internal/logging"
	"github.com/eduplatform/edusync/internal/models"
	"github.com/eduplatform/edusync/internal/store"
)

const defaultTimeout = 15 * time.Second

const (
	queuedBody  = `{"message":"Queued for sync when online","offline":true}`
	offlineBody = `{"message":"Offline - please check your connection"}`
)

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource around a fixed token string.
type StaticToken string

func (s StaticToken) Token() (string, error) {
	if s == "" {
		return "", apperrors.New(apperrors.ErrAuthRequired, "no auth token available")
	}
	return string(s), nil
}

// OnlineChecker reports the current connectivity view.
type OnlineChecker interface {
	Online() bool
}

// Queuer records an action for later replay.
type Queuer interface {
	Enqueue(url, method string, body json.RawMessage, headers map[string]string) (*models.PendingAction, error)
}

// Response is the uniform result of FetchWithFallback. Offline marks
// responses synthesized locally rather than received from the server.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	Offline    bool
}

// Options shape a FetchWithFallback call. The zero value is a GET with
// no body.
type Options struct {
	Method  string
	Body    json.RawMessage
	Headers map[string]string
}

// Gateway fronts the e-learning API. Lesson reads that succeed are
// mirrored into the local store so they stay available offline.
type Gateway struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
	store   store.Store
	online  OnlineChecker
	queue   Queuer
}

// New creates a gateway. A nil client gets a default with a 15s
// timeout.
func New(baseURL string, client *http.Client, tokens TokenSource, st store.Store, online OnlineChecker, queue Queuer) *Gateway {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		tokens:  tokens,
		store:   st,
		online:  online,
		queue:   queue,
	}
}

// FetchWithFallback performs the request against the live server when
// online, falling back to local handling when offline or when the
// transport fails mid-call. It never returns a transport error: the
// outcome is always a Response.
//
// Offline handling: lesson reads are served from the store with status
// 200; mutations against lesson endpoints are queued and acknowledged
// with 202; anything else gets 503.
func (g *Gateway) FetchWithFallback(ctx context.Context, path string, opts Options) *Response {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	if g.online.Online() {
		resp, err := g.do(ctx, method, path, opts)
		if err == nil {
			return resp
		}
		logging.Warn("live request failed, falling back to offline handling", logging.Fields{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
	}

	return g.offlineResponse(path, method, opts)
}

// do performs the live call. Lesson reads are cached on success.
func (g *Gateway) do(ctx context.Context, method, path string, opts Options) (*Response, error) {
	var reqBody io.Reader
	if len(opts.Body) > 0 {
		reqBody = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	// Lesson reads are public, so a missing token does not fail the
	// call here; the server decides what requires identity.
	if token, err := g.tokens.Token(); err == nil {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	httpResp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode < 300 && isLessonRead(method, path) {
		g.cacheLessons(path, body)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Header:     httpResp.Header,
	}, nil
}

// offlineResponse synthesizes the local answer for a request that
// could not reach the server.
func (g *Gateway) offlineResponse(path, method string, opts Options) *Response {
	switch {
	case isLessonRead(method, path):
		return g.cachedLessons(path)

	case isLessonMutation(method, path):
		if _, err := g.queue.Enqueue(path, method, opts.Body, opts.Headers); err != nil {
			return offlineStatus(http.StatusServiceUnavailable, offlineBody)
		}
		logging.Info("request queued for replay", logging.Fields{
			"method": method,
			"path":   path,
		})
		return offlineStatus(http.StatusAccepted, queuedBody)

	default:
		return offlineStatus(http.StatusServiceUnavailable, offlineBody)
	}
}

// cachedLessons serves a lesson read from the store.
func (g *Gateway) cachedLessons(path string) *Response {
	parsed, err := url.Parse(path)
	if err != nil {
		return offlineStatus(http.StatusServiceUnavailable, offlineBody)
	}

	if id := singleLessonID(parsed.Path); id != "" {
		lesson, err := g.store.GetLesson(id)
		if err != nil || lesson == nil {
			return offlineStatus(http.StatusServiceUnavailable, offlineBody)
		}
		body, err := json.Marshal(lesson)
		if err != nil {
			return offlineStatus(http.StatusServiceUnavailable, offlineBody)
		}
		return offlineStatus(http.StatusOK, string(body))
	}

	lessons, err := g.store.GetLessons(filterFromQuery(parsed.Query()))
	if err != nil {
		return offlineStatus(http.StatusServiceUnavailable, offlineBody)
	}
	if lessons == nil {
		lessons = []*models.Lesson{}
	}
	body, err := json.Marshal(lessons)
	if err != nil {
		return offlineStatus(http.StatusServiceUnavailable, offlineBody)
	}
	logging.Debug("serving lessons from cache", logging.Fields{"count": len(lessons)})
	return offlineStatus(http.StatusOK, string(body))
}

// cacheLessons mirrors a successful lesson read into the store. Bodies
// that do not parse as lesson payloads are ignored.
func (g *Gateway) cacheLessons(path string, body []byte) {
	parsed, err := url.Parse(path)
	if err != nil {
		return
	}

	var lessons []*models.Lesson
	if singleLessonID(parsed.Path) != "" {
		var lesson models.Lesson
		if err := json.Unmarshal(body, &lesson); err != nil || lesson.ID == "" {
			return
		}
		lessons = []*models.Lesson{&lesson}
	} else {
		if err := json.Unmarshal(body, &lessons); err != nil {
			return
		}
	}

	if len(lessons) == 0 {
		return
	}
	if err := g.store.SaveLessons(lessons); err != nil {
		logging.Error("failed to cache lessons", err, logging.Fields{"count": len(lessons)})
		return
	}
	logging.Debug("cached lessons from live response", logging.Fields{"count": len(lessons)})
}

// Send delivers a queued action to the live server with the bearer
// token attached. Missing credentials and 401/403 responses map to
// AUTH_REQUIRED; any other non-2xx status is an error so the caller
// can retry.
func (g *Gateway) Send(ctx context.Context, action *models.PendingAction) ([]byte, error) {
	token, err := g.tokens.Token()
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if len(action.Body) > 0 {
		reqBody = bytes.NewReader(action.Body)
	}

	req, err := http.NewRequestWithContext(ctx, action.Method, g.baseURL+action.URL, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	for k, v := range action.Headers {
		req.Header.Set(k, v)
	}

	httpResp, err := g.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrNetworkUnreachable, "replay request failed", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrNetworkUnreachable, "replay response unreadable", err)
	}

	switch {
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		return nil, apperrors.New(apperrors.ErrAuthRequired, "server rejected credentials")
	case httpResp.StatusCode >= 300:
		return nil, apperrors.New(apperrors.ErrServerRejected,
			"server returned "+httpResp.Status)
	}

	return body, nil
}

func offlineStatus(code int, body string) *Response {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return &Response{
		StatusCode: code,
		Body:       []byte(body),
		Header:     header,
		Offline:    true,
	}
}

// isLessonRead reports whether the request is a cacheable lesson read.
func isLessonRead(method, path string) bool {
	if method != http.MethodGet {
		return false
	}
	p := strings.SplitN(path, "?", 2)[0]
	return p == "/api/lessons" || strings.HasPrefix(p, "/api/lessons/")
}

// isLessonMutation reports whether the request is a lesson write that
// can be queued for replay.
func isLessonMutation(method, path string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return false
	}
	p := strings.SplitN(path, "?", 2)[0]
	return p == "/api/lessons" || strings.HasPrefix(p, "/api/lessons/")
}

// singleLessonID extracts the id from /api/lessons/{id}; nested paths
// such as /api/lessons/{id}/complete are not single-lesson reads.
func singleLessonID(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/lessons/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

// filterFromQuery maps the lesson list query parameters onto a store
// filter.
func filterFromQuery(q url.Values) models.LessonFilter {
	filter := models.LessonFilter{
		Subject:     q.Get("subject"),
		Category:    q.Get("category"),
		Language:    q.Get("language"),
		ContentType: q.Get("contentType"),
	}
	if level, err := strconv.Atoi(q.Get("classLevel")); err == nil {
		filter.ClassLevel = level
	}
	return filter
}
