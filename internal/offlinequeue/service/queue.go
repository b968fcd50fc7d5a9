// Package service holds the device-side offline queue: a single JSON array
// under one storage key, drained with bounded, backed-off retries.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"presence/internal/offlinequeue/metrics"
	"presence/internal/offlinequeue/models"
	"presence/internal/offlinequeue/ports"
	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/audit"
	"presence/pkg/platform/sentinel"
	"presence/pkg/requestcontext"
)

const DefaultQueueKey = "presence/offline_checkin_queue"

// BackoffFunc returns the delay before retry number retry (1-based).
type BackoffFunc func(retry int) time.Duration

// ExponentialBackoff starts at 2s, doubles up to 5m and jitters by ±50%.
func ExponentialBackoff(retry int) time.Duration {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(2*time.Second),
		backoff.WithMultiplier(2),
		backoff.WithMaxInterval(5*time.Minute),
		backoff.WithRandomizationFactor(0.5),
		backoff.WithMaxElapsedTime(0),
	)
	d := b.NextBackOff()
	for i := 1; i < retry; i++ {
		d = b.NextBackOff()
	}
	return d
}

type Queue struct {
	storage        ports.Storage
	key            string
	backoff        BackoffFunc
	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	metrics        *metrics.Metrics

	mu       sync.Mutex // serializes read-modify-write of the stored array
	inFlight atomic.Bool
}

type Option func(*Queue)

func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(q *Queue) {
		q.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(q *Queue) {
		q.metrics = m
	}
}

func WithKey(key string) Option {
	return func(q *Queue) {
		if key != "" {
			q.key = key
		}
	}
}

func WithBackoff(fn BackoffFunc) Option {
	return func(q *Queue) {
		if fn != nil {
			q.backoff = fn
		}
	}
}

func New(storage ports.Storage, opts ...Option) (*Queue, error) {
	if storage == nil {
		return nil, errors.New("queue storage is required")
	}
	q := &Queue{
		storage: storage,
		key:     DefaultQueueKey,
		backoff: ExponentialBackoff,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Enqueue stores a new item with no retries.
func (q *Queue) Enqueue(ctx context.Context, in models.NewCheckin) (*models.QueuedCheckin, error) {
	item := models.QueuedCheckin{
		ID:             uuid.NewString(),
		UserID:         in.UserID,
		EventID:        in.EventID,
		Method:         in.Method,
		OccurredAt:     in.OccurredAt,
		Ticket:         in.Ticket,
		DistanceMeters: in.DistanceMeters,
		Device:         in.Device,
		QueuedAt:       requestcontext.Now(ctx),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	items, err := q.load(ctx)
	if err != nil {
		return nil, err
	}
	items = append(items, item)
	if err := q.save(ctx, items); err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns the queue in insertion order.
func (q *Queue) List(ctx context.Context) ([]models.QueuedCheckin, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx)
}

// Remove drops the item with itemID. Unknown ids are ignored.
func (q *Queue) Remove(ctx context.Context, itemID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	items, err := q.load(ctx)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, it := range items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	return q.save(ctx, kept)
}

// Update applies fn to the item with itemID. It reports false when no such
// item exists. fn must not change the item's ID.
func (q *Queue) Update(ctx context.Context, itemID string, fn func(*models.QueuedCheckin)) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items, err := q.load(ctx)
	if err != nil {
		return false, err
	}
	for i := range items {
		if items[i].ID == itemID {
			fn(&items[i])
			items[i].ID = itemID
			return true, q.save(ctx, items)
		}
	}
	return false, nil
}

// Clear empties the queue, exhausted items included.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.storage.Remove(ctx, q.key); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	q.metrics.SetDepth(0)
	return nil
}

// Process makes one pass over the queue in insertion order. A pass already
// in flight turns this call into a no-op with Report.Ran false.
//
// Exhausted items are skipped untouched, as are failed items whose backoff
// has not elapsed. A rejection the server will repeat on every try (a bad or
// missing ticket, a refused or malformed item) exhausts the item at once. A sync call that has started is never cancelled;
// cancellation of ctx is observed only between items.
func (q *Queue) Process(ctx context.Context, syncOp ports.SyncFunc) (models.Report, error) {
	if !q.inFlight.CompareAndSwap(false, true) {
		return models.Report{}, nil
	}
	defer q.inFlight.Store(false)

	report := models.Report{Ran: true}
	q.metrics.IncrementPasses()

	items, err := q.List(ctx)
	if err != nil {
		return report, err
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		now := requestcontext.Now(ctx)
		if item.Exhausted() {
			report.Exhausted++
			continue
		}
		if !item.Due(now) {
			report.Deferred++
			continue
		}

		syncErr := syncOp(context.WithoutCancel(ctx), item)
		if syncErr == nil {
			if err := q.Remove(ctx, item.ID); err != nil {
				return report, err
			}
			report.Synced++
			q.metrics.ObserveSync("synced")
			q.logAudit(ctx, audit.EventOfflineSynced, item, "")
			continue
		}

		report.Failed++
		terminal := isTerminal(syncErr)
		updated, err := q.recordFailure(ctx, item.ID, syncErr, now, terminal)
		if err != nil {
			return report, err
		}
		q.logger.WarnContext(ctx, "offline sync failed",
			"item_id", item.ID,
			"retry_count", updated.RetryCount,
			"transient", errors.Is(syncErr, sentinel.ErrUnavailable),
			"terminal", terminal,
			"error", syncErr,
		)
		if updated.Exhausted() {
			q.metrics.ObserveSync("exhausted")
			q.logAudit(ctx, audit.EventOfflineExhausted, updated, updated.LastError)
		} else {
			q.metrics.ObserveSync("failed")
		}
	}
	return report, nil
}

// InFlight reports whether a Process pass is running.
func (q *Queue) InFlight() bool {
	return q.inFlight.Load()
}

// isTerminal reports whether the server rejected the item for good.
func isTerminal(err error) bool {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return false
	}
	code, ok := dErrors.CodeOf(err)
	if !ok {
		return false
	}
	switch code {
	case dErrors.CodeUnauthorized, dErrors.CodeForbidden, dErrors.CodeValidation, dErrors.CodeNotFound:
		return true
	}
	return false
}

func (q *Queue) recordFailure(ctx context.Context, itemID string, syncErr error, now time.Time, terminal bool) (models.QueuedCheckin, error) {
	var updated models.QueuedCheckin
	_, err := q.Update(ctx, itemID, func(it *models.QueuedCheckin) {
		it.RetryCount++
		if terminal {
			it.RetryCount = max(it.RetryCount, models.MaxRetries)
		}
		it.LastError = syncErr.Error()
		if it.Exhausted() {
			it.NextAttemptAt = time.Time{}
		} else {
			it.NextAttemptAt = now.Add(q.backoff(it.RetryCount))
		}
		updated = *it
	})
	return updated, err
}

func (q *Queue) load(ctx context.Context) ([]models.QueuedCheckin, error) {
	raw, err := q.storage.Get(ctx, q.key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return []models.QueuedCheckin{}, nil
		}
		return nil, fmt.Errorf("load queue: %w", err)
	}
	var items []models.QueuedCheckin
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		// Keep the unreadable bytes for inspection and start over.
		q.logger.ErrorContext(ctx, "offline queue is corrupt, moving aside", "key", q.key, "error", err)
		if setErr := q.storage.Set(ctx, q.key+".corrupt", raw); setErr != nil {
			return nil, fmt.Errorf("preserve corrupt queue: %w", setErr)
		}
		if rmErr := q.storage.Remove(ctx, q.key); rmErr != nil {
			return nil, fmt.Errorf("reset corrupt queue: %w", rmErr)
		}
		return []models.QueuedCheckin{}, nil
	}
	if items == nil {
		items = []models.QueuedCheckin{}
	}
	return items, nil
}

func (q *Queue) save(ctx context.Context, items []models.QueuedCheckin) error {
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if err := q.storage.Set(ctx, q.key, string(b)); err != nil {
		return fmt.Errorf("save queue: %w", err)
	}
	q.metrics.SetDepth(len(items))
	return nil
}

func (q *Queue) logAudit(ctx context.Context, action audit.AuditEvent, item models.QueuedCheckin, reason string) {
	audit.LogAudit(ctx, q.logger, q.auditPublisher, action, audit.Event{
		UserID:  item.UserID,
		EventID: item.EventID,
		Subject: item.ID,
		Method:  item.Method,
		Reason:  reason,
	}, "item_id", item.ID, "retry_count", item.RetryCount)
}
