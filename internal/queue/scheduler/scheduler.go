// Package scheduler provides background replay scheduling for the
// pending-action queue.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/eduplatform/edusync/internal/logging"
)

// replayTimeout bounds a single background replay run.
const replayTimeout = 5 * time.Minute

// Replayer drains the pending-action queue.
type Replayer interface {
	ReplayAll(ctx context.Context) error
	Syncing() bool
}

// OnlineChecker reports the current connectivity view.
type OnlineChecker interface {
	Online() bool
}

// Scheduler periodically replays the pending-action queue while online.
// Replays also fire on demand through TriggerReplay, typically wired to
// the connectivity monitor's online transition.
type Scheduler struct {
	cronEngine *cron.Cron
	replayer   Replayer
	online     OnlineChecker
	cronSpec   string

	mu             sync.RWMutex
	isRunning      bool
	lastReplayTime time.Time
}

// NewScheduler creates a scheduler driving the given replayer on the
// cron spec, e.g. "@every 1m".
func NewScheduler(replayer Replayer, online OnlineChecker, cronSpec string) *Scheduler {
	return &Scheduler{
		cronEngine: cron.New(cron.WithLocation(time.Local)),
		replayer:   replayer,
		online:     online,
		cronSpec:   cronSpec,
	}
}

// Start registers the replay job and starts the cron engine.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.runReplay(context.Background())
	})
	if err != nil {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}

	s.cronEngine.Start()
	logging.Info("replay scheduler started", logging.Fields{"spec": s.cronSpec})
	return nil
}

// Stop stops the cron engine and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	<-s.cronEngine.Stop().Done()
	logging.Info("replay scheduler stopped")
}

// TriggerReplay starts an immediate replay in the background. It
// reports false when a replay is already in progress.
func (s *Scheduler) TriggerReplay(ctx context.Context) bool {
	if s.replayer.Syncing() {
		return false
	}
	go s.runReplay(ctx)
	return true
}

// ReplayNow runs a replay synchronously and returns its error.
func (s *Scheduler) ReplayNow(ctx context.Context) error {
	replayCtx, cancel := context.WithTimeout(ctx, replayTimeout)
	defer cancel()

	if err := s.replayer.ReplayAll(replayCtx); err != nil {
		return err
	}

	s.mu.Lock()
	s.lastReplayTime = time.Now()
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) runReplay(ctx context.Context) {
	if !s.online.Online() {
		logging.Debug("skipping scheduled replay while offline")
		return
	}

	if err := s.ReplayNow(ctx); err != nil {
		logging.Error("scheduled replay failed", err)
	}
}

// Status reports the scheduler state.
type Status struct {
	IsRunning        bool
	ReplayInProgress bool
	LastReplayTime   *time.Time
}

func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		IsRunning:        s.isRunning,
		ReplayInProgress: s.replayer.Syncing(),
	}
	if !s.lastReplayTime.IsZero() {
		t := s.lastReplayTime
		status.LastReplayTime = &t
	}
	return status
}

// IsRunning reports whether the scheduler has been started.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
