// Package service is the check-in abuse gate: cooldown after repeated
// failures, then a sliding-window attempt limit, per (user, event, method).
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"presence/internal/ratelimit/metrics"
	"presence/internal/ratelimit/models"
	"presence/internal/ratelimit/ports"
	"presence/internal/ratelimit/threshold"
	"presence/internal/verification"
	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/audit"
	"presence/pkg/requestcontext"
)

// Config tunes the gate.
type Config struct {
	Window   threshold.Config
	Cooldown threshold.CooldownConfig
}

// DefaultConfig allows five attempts per five minutes and cools down for five
// minutes after three consecutive failures.
func DefaultConfig() Config {
	return Config{
		Window:   threshold.Config{MaxAttempts: 5, Window: 5 * time.Minute},
		Cooldown: threshold.DefaultCooldownConfig(),
	}
}

type Service struct {
	store          ports.AttemptStore
	config         Config
	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store ports.AttemptStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("attempt store is required")
	}
	svc := &Service{
		store:  store,
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.config.Window.MaxAttempts <= 0 {
		return nil, errors.New("max attempts must be positive")
	}
	return svc, nil
}

// Check decides whether subject may attempt a check-in now. An allowed check
// consumes one attempt; denied checks are not recorded. The window decision
// and the write happen atomically in the store, so concurrent checks for one
// subject never admit more than MaxAttempts.
func (s *Service) Check(ctx context.Context, subject models.Subject) (*models.Decision, error) {
	key := subject.Key()
	now := requestcontext.Now(ctx)

	failures, err := s.store.LoadFailures(ctx, key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load failure streak")
	}
	if cd := threshold.Cooldown(failures, s.config.Cooldown, now); cd.Active {
		s.metrics.ObserveCheck(subject.Method, string(verification.ReasonCooldown))
		s.logAudit(ctx, audit.EventRateLimitExceeded, subject, verification.ReasonCooldown,
			"retry_at", cd.Until,
			"failures", failures.ConsecutiveFailures,
		)
		return models.Deny(verification.ReasonCooldown, cd.Until), nil
	}

	adm, err := s.store.AdmitAttempt(ctx, key, now, s.config.Window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record attempt")
	}
	if !adm.Allow {
		s.metrics.ObserveCheck(subject.Method, string(verification.ReasonRateLimited))
		s.logAudit(ctx, audit.EventRateLimitExceeded, subject, verification.ReasonRateLimited,
			"max_attempts", s.config.Window.MaxAttempts,
		)
		return models.Deny(verification.ReasonRateLimited, adm.RetryAt), nil
	}
	s.metrics.ObserveCheck(subject.Method, "allowed")
	return models.Allow(adm.Remaining), nil
}

// RecordFailure registers a failed verification for subject.
func (s *Service) RecordFailure(ctx context.Context, subject models.Subject) error {
	now := requestcontext.Now(ctx)
	// Keep the streak long enough to outlive the cooldown it may trigger.
	retain := s.config.Cooldown.Duration + s.config.Window.Window
	state, err := s.store.RecordFailure(ctx, subject.Key(), now, retain)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record failure")
	}
	s.metrics.IncrementFailures()
	if state.ConsecutiveFailures == s.config.Cooldown.FailureThreshold {
		s.metrics.IncrementCooldowns()
		s.logAudit(ctx, audit.EventCooldownTriggered, subject, verification.ReasonCooldown,
			"failures", state.ConsecutiveFailures,
			"retry_at", now.Add(s.config.Cooldown.Duration),
		)
	}
	return nil
}

// RecordSuccess ends the subject's failure streak.
func (s *Service) RecordSuccess(ctx context.Context, subject models.Subject) error {
	if err := s.store.ClearFailures(ctx, subject.Key()); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to clear failures")
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, action audit.AuditEvent, subject models.Subject, reason verification.Reason, attrs ...any) {
	audit.LogAudit(ctx, s.logger, s.auditPublisher, action, audit.Event{
		UserID:  subject.UserID,
		EventID: subject.EventID,
		Method:  subject.Method,
		Reason:  string(reason),
	}, append(attrs, "method", subject.Method)...)
}
