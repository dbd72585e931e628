// Package queue manages the durable pending-action queue: mutating
// requests recorded while offline and replayed once connectivity
// returns.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/eduplatform/edusync/internal/errors"
	"github.com/eduplatform/edusync/internal/logging"
	"github.com/eduplatform/edusync/internal/models"
	"github.com/eduplatform/edusync/internal/store"
	"github.com/eduplatform/edusync/internal/uuid"
)

// DefaultMaxRetries is the retry cap applied when none is configured.
const DefaultMaxRetries = 3

// maxPassBackoff caps the exponential delay between replay passes.
const maxPassBackoff = time.Hour

// Sender delivers one pending action to the server. Implemented by the
// network gateway's raw-send path.
type Sender interface {
	Send(ctx context.Context, action *models.PendingAction) ([]byte, error)
}

// OnlineChecker reports current connectivity. Implemented by the
// connectivity monitor.
type OnlineChecker interface {
	Online() bool
}

// ReplayObserver is notified about the fate of replayed actions. The
// progress reconciler consumes confirmations; the desktop event hub
// forwards both to the UI.
type ReplayObserver interface {
	// OnReplayed fires after an action is delivered and cleared.
	OnReplayed(action *models.PendingAction, response []byte)

	// OnExhausted fires when an action is dropped at the retry cap.
	// err carries the REPLAY_EXHAUSTED code wrapping the last failure.
	OnExhausted(action *models.PendingAction, err error)
}

// Manager owns the pending-action queue. Enqueue is called by the
// gateway whenever a mutating call cannot be delivered; ReplayAll is
// triggered by the connectivity monitor and the background scheduler.
type Manager struct {
	store      store.Store
	online     OnlineChecker
	sender     Sender
	maxRetries int           // 0 retries forever
	backoff    time.Duration // base delay between passes; 0 disables

	mu        sync.Mutex
	syncing   bool
	observers []ReplayObserver
}

// Config holds queue tuning knobs.
type Config struct {
	// MaxRetries is the per-action attempt cap before the action is
	// dropped. 0 means retry indefinitely.
	MaxRetries int

	// Backoff is the base delay between replay passes, doubled each
	// pass and capped at one hour. 0 runs passes back to back.
	Backoff time.Duration
}

// NewManager creates a queue manager over the given store.
func NewManager(st store.Store, online OnlineChecker, sender Sender, cfg Config) *Manager {
	return &Manager{
		store:      st,
		online:     online,
		sender:     sender,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
	}
}

// AddObserver registers a replay observer.
func (m *Manager) AddObserver(o ReplayObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Enqueue appends a pending action with a fresh timestamp and zero
// retries. A store failure means the action is lost; that is a
// silent-degradation condition, logged here rather than surfaced.
func (m *Manager) Enqueue(url, method string, body json.RawMessage, headers map[string]string) (*models.PendingAction, error) {
	action := &models.PendingAction{
		ID:        uuid.New(),
		URL:       url,
		Method:    method,
		Body:      body,
		Headers:   headers,
		CreatedAt: time.Now().Unix(),
	}

	if err := m.store.QueuePendingAction(action); err != nil {
		logging.Warn("pending action lost: store unavailable", logging.Fields{
			"url":    url,
			"method": method,
			"error":  err.Error(),
		})
		return nil, err
	}

	logging.Info("queued pending action", logging.Fields{
		"action_id": action.ID,
		"url":       url,
		"method":    method,
	})
	return action, nil
}

// Pending returns the queued actions in creation order.
func (m *Manager) Pending() ([]*models.PendingAction, error) {
	return m.store.GetPendingActions()
}

// Syncing reports whether a replay is currently running.
func (m *Manager) Syncing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncing
}

// ReplayAll drains the queue while online. It is a no-op when a replay
// is already running or the client is offline.
//
// Actions are delivered strictly sequentially in creation order. A
// failed action retries in place on the next pass rather than being
// moved behind younger actions, so dependent writes for one entity
// keep their original order. Passes repeat until the queue drains or a
// pass removes nothing and no retry counter can still advance.
//
// An authentication failure aborts the replay entirely; the remaining
// actions stay queued for the next transition to online.
func (m *Manager) ReplayAll(ctx context.Context) error {
	m.mu.Lock()
	if m.syncing {
		m.mu.Unlock()
		return nil
	}
	m.syncing = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.syncing = false
		m.mu.Unlock()
	}()

	if !m.online.Online() {
		return nil
	}

	logging.Info("replaying pending actions")

	for pass := 0; ; pass++ {
		if pass > 0 {
			if err := m.waitBackoff(ctx, pass); err != nil {
				return err
			}
		}

		actions, err := m.store.GetPendingActions()
		if err != nil {
			return apperrors.Wrap(apperrors.ErrDatabase, "replay aborted: cannot read queue", err)
		}
		if len(actions) == 0 {
			logging.Info("pending action queue drained")
			return nil
		}

		removed, advanced, err := m.runPass(ctx, actions)
		if err != nil {
			return err
		}
		if !removed && !advanced {
			logging.Info("replay pass made no progress, leaving queue for next trigger", logging.Fields{
				"remaining": len(actions),
			})
			return nil
		}
	}
}

// runPass attempts each action once. It reports whether any action was
// removed (delivered or dropped) and whether any retry counter advanced
// toward a configured cap.
func (m *Manager) runPass(ctx context.Context, actions []*models.PendingAction) (removed, advanced bool, err error) {
	for _, action := range actions {
		select {
		case <-ctx.Done():
			return removed, advanced, ctx.Err()
		default:
		}

		// Connectivity can drop mid-pass; leave the rest queued.
		if !m.online.Online() {
			return removed, advanced, nil
		}

		response, sendErr := m.sender.Send(ctx, action)
		if sendErr == nil {
			if clearErr := m.store.ClearPendingAction(action.ID); clearErr != nil {
				logging.Error("failed to clear replayed action", clearErr, logging.Fields{"action_id": action.ID})
			}
			removed = true
			m.notifyReplayed(action, response)
			continue
		}

		if apperrors.Is(sendErr, apperrors.ErrAuthRequired) {
			logging.Warn("replay aborted: authentication required", logging.Fields{
				"action_id": action.ID,
				"remaining": "queued for next online transition",
			})
			return removed, advanced, sendErr
		}

		action.Retries++
		if m.maxRetries > 0 && action.Retries >= m.maxRetries {
			if clearErr := m.store.ClearPendingAction(action.ID); clearErr != nil {
				logging.Error("failed to drop exhausted action", clearErr, logging.Fields{"action_id": action.ID})
			}
			removed = true
			dropErr := apperrors.Wrap(apperrors.ErrReplayExhausted,
				fmt.Sprintf("action dropped after %d attempts", action.Retries), sendErr)
			logging.Warn("pending action dropped at retry cap", logging.Fields{
				"action_id": action.ID,
				"url":       action.URL,
				"attempts":  action.Retries,
				"error":     sendErr.Error(),
			})
			m.notifyExhausted(action, dropErr)
			continue
		}

		if updateErr := m.store.UpdatePendingAction(action); updateErr != nil {
			logging.Error("failed to persist retry counter", updateErr, logging.Fields{"action_id": action.ID})
		}
		if m.maxRetries > 0 {
			advanced = true
		}
		logging.Debug("pending action failed, will retry", logging.Fields{
			"action_id": action.ID,
			"retries":   action.Retries,
			"error":     sendErr.Error(),
		})
	}
	return removed, advanced, nil
}

// waitBackoff sleeps the exponential inter-pass delay: base doubled
// each pass, capped at one hour. A zero base disables the delay.
func (m *Manager) waitBackoff(ctx context.Context, pass int) error {
	if m.backoff <= 0 {
		return nil
	}

	delay := m.backoff
	for i := 1; i < pass && delay < maxPassBackoff; i++ {
		delay *= 2
	}
	if delay > maxPassBackoff {
		delay = maxPassBackoff
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *Manager) notifyReplayed(action *models.PendingAction, response []byte) {
	m.mu.Lock()
	observers := append([]ReplayObserver(nil), m.observers...)
	m.mu.Unlock()
	for _, o := range observers {
		o.OnReplayed(action, response)
	}
}

func (m *Manager) notifyExhausted(action *models.PendingAction, err error) {
	m.mu.Lock()
	observers := append([]ReplayObserver(nil), m.observers...)
	m.mu.Unlock()
	for _, o := range observers {
		o.OnExhausted(action, err)
	}
}
