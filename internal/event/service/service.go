// Package service manages the event directory: venue geometry, the rotating
// code context and the counters behind the ejection-risk signal.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"presence/internal/event/models"
	"presence/internal/event/ports"
	"presence/internal/ratelimit/threshold"
	"presence/internal/verification"
	"presence/internal/verification/rotatingcode"
	id "presence/pkg/domain"
	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/sentinel"
)

type Service struct {
	store        ports.Store
	masterSecret []byte
	riskRatio    float64
	logger       *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMasterSecret enables per-event code secret derivation.
func WithMasterSecret(secret []byte) Option {
	return func(s *Service) {
		s.masterSecret = secret
	}
}

func WithRiskRatio(ratio float64) Option {
	return func(s *Service) {
		if ratio > 0 {
			s.riskRatio = ratio
		}
	}
}

func New(store ports.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("event store is required")
	}
	svc := &Service{
		store:     store,
		riskRatio: threshold.DefaultEjectionRiskRatio,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func (s *Service) Create(ctx context.Context, req models.CreateRequest) (*models.Event, error) {
	if req.OrganizerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "organizer is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if err := req.Center.Validate(); err != nil {
		return nil, verification.AsDomainError(err)
	}
	if req.RadiusMeters < 0 {
		return nil, verification.AsDomainError(verification.Fail(verification.ReasonInvalidRadius, "radius must not be negative"))
	}
	if !req.EndsAt.IsZero() && req.EndsAt.Before(req.StartsAt) {
		return nil, verification.AsDomainError(verification.Fail(verification.ReasonInvalidRange, "event ends before it starts"))
	}

	event := &models.Event{
		ID:              id.EventID(uuid.New()),
		OrganizerID:     req.OrganizerID,
		Name:            strings.TrimSpace(req.Name),
		Center:          req.Center,
		RadiusMeters:    req.RadiusMeters,
		CodeSecret:      req.CodeSecret,
		CodeStepSeconds: req.CodeStepSeconds,
		CodeDigits:      req.CodeDigits,
		StartsAt:        req.StartsAt,
		EndsAt:          req.EndsAt,
	}
	if event.CodeStepSeconds == 0 {
		event.CodeStepSeconds = rotatingcode.DefaultStepSeconds
	}
	if event.CodeDigits == 0 {
		event.CodeDigits = rotatingcode.DefaultDigits
	}

	if event.CodeSecret == "" {
		if len(s.masterSecret) == 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "code_secret is required")
		}
		secret, err := rotatingcode.DeriveEventSecret(s.masterSecret, event.ID.String())
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive code secret")
		}
		event.CodeSecret = secret
	}
	if _, _, err := rotatingcode.Current(event.CodeSecret, event.StartsAt, event.CodeOptions()); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid code settings")
	}

	if err := s.store.Save(ctx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save event")
	}
	s.logger.InfoContext(ctx, "event created",
		"event_id", event.ID.String(),
		"organizer_id", event.OrganizerID.String(),
		"radius_meters", event.RadiusMeters,
	)
	return event, nil
}

func (s *Service) Get(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	event, err := s.store.Get(ctx, eventID)
	if err != nil {
		return nil, translate(err, "failed to load event")
	}
	return event, nil
}

// Authorize loads the event and requires actor to be its organizer.
func (s *Service) Authorize(ctx context.Context, eventID id.EventID, actor id.UserID) (*models.Event, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOrganizer(actor) {
		s.logger.WarnContext(ctx, "organizer action refused",
			"event_id", eventID.String(),
			"user_id", actor.String(),
		)
		return nil, dErrors.New(dErrors.CodeForbidden, "only the event organizer may do this")
	}
	return event, nil
}

func (s *Service) RecordParticipant(ctx context.Context, eventID id.EventID) error {
	if err := s.store.RecordParticipant(ctx, eventID); err != nil {
		return translate(err, "failed to record participant")
	}
	return nil
}

// RecordEjection counts one ejection. Only the organizer ejects.
func (s *Service) RecordEjection(ctx context.Context, eventID id.EventID, actor id.UserID) error {
	if _, err := s.Authorize(ctx, eventID, actor); err != nil {
		return err
	}
	if err := s.store.RecordEjection(ctx, eventID); err != nil {
		return translate(err, "failed to record ejection")
	}
	return nil
}

// Risk computes the informational ejection-rate signal for an event.
func (s *Service) Risk(ctx context.Context, eventID id.EventID) (threshold.Risk, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return threshold.Risk{}, err
	}
	risk := threshold.EjectionRisk(event.Ejections, event.Participants, s.riskRatio)
	if risk.HighRisk {
		s.logger.WarnContext(ctx, "event ejection rate is high",
			"event_id", eventID.String(),
			"rate", risk.Rate,
			"ejections", event.Ejections,
		)
	}
	return risk, nil
}

func translate(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "event not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
