// Package main runs the EduSync desktop core: the local HTTP/WebSocket
// control plane on localhost that keeps lessons, progress and
// translations usable without connectivity.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eduplatform/edusync/cmd/desktop/handlers"
	"github.com/eduplatform/edusync/internal/config"
	"github.com/eduplatform/edusync/internal/connectivity"
	"github.com/eduplatform/edusync/internal/gateway"
	"github.com/eduplatform/edusync/internal/logging"
	"github.com/eduplatform/edusync/internal/models"
	"github.com/eduplatform/edusync/internal/progress"
	"github.com/eduplatform/edusync/internal/queue"
	"github.com/eduplatform/edusync/internal/queue/scheduler"
	"github.com/eduplatform/edusync/internal/store"
	"github.com/eduplatform/edusync/internal/translate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.Init(os.Stdout, cfg.LogLevel, cfg.Environment)
	logging.Info("starting edusync desktop core", logging.Fields{
		"environment": cfg.Environment,
		"api":         cfg.APIBaseURL,
	})

	st, storageMode := openStore(cfg.DataDir)

	// The platform layer reports the real signal via POST /api/network;
	// until it does, assume online and let the first failed call fall
	// back.
	monitor := connectivity.NewMonitor(true)

	// Queue and gateway reference each other: the gateway queues
	// offline writes, the queue replays through the gateway. The
	// sender indirection breaks the construction cycle.
	sender := &gatewaySender{}
	queueMgr := queue.NewManager(st, monitor, sender, queue.Config{
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.ReplayBackoff,
	})
	gw := gateway.New(cfg.APIBaseURL, nil, gateway.StaticToken(cfg.AuthToken), st, monitor, queueMgr)
	sender.gateway = gw

	hub := NewWSHub()

	translator := translate.New(st, gw, cfg.TranslationTTL)

	reconciler := progress.New(cfg.StudentID, st, gw, queueMgr)
	reconciler.OnConfirmed(hub.BroadcastProgressConfirmed)
	queueMgr.AddObserver(reconciler)
	queueMgr.AddObserver(&hubObserver{hub: hub})

	replayer := &notifyingReplayer{queue: queueMgr, hub: hub}
	sched := scheduler.NewScheduler(replayer, monitor, cfg.ReplayCronSpec)

	monitor.OnOnline(func() {
		hub.BroadcastNetworkStatus(true)
		sched.TriggerReplay(context.Background())
	})
	monitor.OnOffline(func() {
		hub.BroadcastNetworkStatus(false)
	})

	if err := sched.Start(); err != nil {
		logging.Error("failed to start replay scheduler", err)
		os.Exit(1)
	}
	defer sched.Stop()

	statusHandler := handlers.NewStatusHandler(monitor, queueMgr, storageMode)
	lessonHandler := handlers.NewLessonHandler(gw, reconciler)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", statusHandler.Health)
	mux.HandleFunc("/api/status", statusHandler.Status)
	mux.HandleFunc("/api/network", statusHandler.SetNetwork)
	mux.Handle("/api/lessons", lessonHandler)
	mux.Handle("/api/lessons/", lessonHandler)
	mux.Handle("/api/translate", handlers.NewTranslateHandler(translator))
	mux.Handle("/api/progress", handlers.NewProgressHandler(reconciler))
	mux.Handle("/api/sync/now", handlers.NewSyncHandler(replayer, queueMgr))
	mux.HandleFunc("/ws", HandleWebSocket(hub))

	server := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("control plane listening", logging.Fields{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("http server failed", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logging.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("shutdown failed", err)
	}
}

// openStore opens the durable store, degrading to memory-only when
// local persistence is unavailable.
func openStore(dataDir string) (store.Store, string) {
	db, err := store.Open(dataDir)
	if err != nil {
		logging.Error("local storage unavailable, running memory-only", err, logging.Fields{
			"data_dir": dataDir,
		})
		return store.NewMemoryStore(), "memory"
	}

	migrator := store.NewMigrator(db.DB)
	if err := migrator.Initialize(); err == nil {
		err = migrator.Up()
	} else {
		err = fmt.Errorf("migration init: %w", err)
	}
	if err != nil {
		logging.Error("schema migration failed, running memory-only", err)
		db.Close()
		return store.NewMemoryStore(), "memory"
	}

	logging.Info("local store ready", logging.Fields{"data_dir": dataDir})
	return store.NewRepository(db.DB), "sqlite"
}

// gatewaySender defers the queue's view of the gateway until both are
// constructed.
type gatewaySender struct {
	gateway *gateway.Gateway
}

func (s *gatewaySender) Send(ctx context.Context, action *models.PendingAction) ([]byte, error) {
	return s.gateway.Send(ctx, action)
}

// notifyingReplayer wraps the queue manager so every replay run, cron
// or manual, is bracketed by WebSocket events.
type notifyingReplayer struct {
	queue *queue.Manager
	hub   *WSHub
}

func (n *notifyingReplayer) ReplayAll(ctx context.Context) error {
	pending, _ := n.queue.Pending()
	n.hub.BroadcastReplayStarted(len(pending))

	err := n.queue.ReplayAll(ctx)

	remaining, _ := n.queue.Pending()
	n.hub.BroadcastReplayCompleted(len(remaining), err != nil)
	return err
}

func (n *notifyingReplayer) ReplayNow(ctx context.Context) error {
	return n.ReplayAll(ctx)
}

func (n *notifyingReplayer) Syncing() bool {
	return n.queue.Syncing()
}

// hubObserver forwards per-action replay outcomes to the UI.
type hubObserver struct {
	hub *WSHub
}

func (o *hubObserver) OnReplayed(action *models.PendingAction, response []byte) {}

func (o *hubObserver) OnExhausted(action *models.PendingAction, err error) {
	o.hub.BroadcastReplayActionFailed(action, err.Error())
}
