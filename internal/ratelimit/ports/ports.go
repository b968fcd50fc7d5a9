// Package ports defines the storage and audit interfaces the gate depends on.
package ports

import (
	"context"
	"time"

	"presence/internal/ratelimit/threshold"
	"presence/pkg/platform/audit"
)

// AuditPublisher emits audit events for security-relevant operations.
type AuditPublisher = audit.Emitter

// AttemptStore persists per-subject attempt and failure state.
// Implementations may drop entries older than retain.
type AttemptStore interface {
	// LoadAttempts returns the recorded attempts in ascending order.
	LoadAttempts(ctx context.Context, key string) (threshold.State, error)

	// AdmitAttempt evaluates the window and records the attempt when it is
	// allowed, as one atomic step per key (see threshold.Admit). Concurrent
	// callers never admit more than cfg.MaxAttempts inside one window.
	AdmitAttempt(ctx context.Context, key string, at time.Time, cfg threshold.Config) (threshold.Admission, error)

	// LoadFailures returns the current failure streak (zero value if none).
	LoadFailures(ctx context.Context, key string) (threshold.FailureState, error)

	// RecordFailure extends the streak and returns the updated state.
	RecordFailure(ctx context.Context, key string, at time.Time, retain time.Duration) (threshold.FailureState, error)

	// ClearFailures ends the streak.
	ClearFailures(ctx context.Context, key string) error
}
