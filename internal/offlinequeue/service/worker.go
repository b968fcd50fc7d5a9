package service

import (
	"context"
	"log/slog"
	"time"

	"presence/internal/offlinequeue/ports"
)

// Worker drains the queue on an interval and whenever Trigger is called.
// Triggers that arrive while a pass is pending collapse into one.
type Worker struct {
	queue    *Queue
	syncOp   ports.SyncFunc
	interval time.Duration
	logger   *slog.Logger
	trigger  chan struct{}
}

func NewWorker(queue *Queue, syncOp ports.SyncFunc, interval time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		queue:    queue,
		syncOp:   syncOp,
		interval: interval,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests a pass soon, e.g. after connectivity returns. Never blocks.
func (w *Worker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "offline queue worker started", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "offline queue worker stopped")
			return nil
		case <-ticker.C:
		case <-w.trigger:
		}
		w.pass(ctx)
	}
}

func (w *Worker) pass(ctx context.Context) {
	report, err := w.queue.Process(ctx, w.syncOp)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "offline queue pass failed", "error", err)
		}
		return
	}
	if report.Ran && (report.Synced > 0 || report.Failed > 0) {
		w.logger.InfoContext(ctx, "offline queue pass",
			"synced", report.Synced,
			"failed", report.Failed,
			"deferred", report.Deferred,
			"exhausted", report.Exhausted,
		)
	}
}
