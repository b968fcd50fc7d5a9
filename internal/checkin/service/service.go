// Package service runs one check-in attempt end to end: gate, verify, commit
// to the ledger, or park the attempt in the offline queue when the ledger is
// unreachable.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"presence/internal/checkin/metrics"
	"presence/internal/checkin/models"
	"presence/internal/checkin/ports"
	eventmodels "presence/internal/event/models"
	ledgermodels "presence/internal/ledger/models"
	offlinemodels "presence/internal/offlinequeue/models"
	ratemodels "presence/internal/ratelimit/models"
	"presence/internal/verification"
	"presence/internal/verification/geofence"
	"presence/internal/verification/rotatingcode"
	"presence/internal/verification/scantoken"
	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/audit"
	"presence/pkg/platform/circuit"
	"presence/pkg/platform/sentinel"
	"presence/pkg/requestcontext"
)

const tracerName = "presence/internal/checkin"

// Config tunes the verifiers.
type Config struct {
	CodeTolerance int
	ClockSkew     time.Duration
}

func DefaultConfig() Config {
	return Config{
		CodeTolerance: rotatingcode.DefaultTolerance,
		ClockSkew:     scantoken.DefaultClockSkew,
	}
}

type Service struct {
	gate    ports.Gate
	events  ports.EventDirectory
	ledger  ports.RemoteLedger
	queue   ports.OfflineQueue
	tickets ports.TicketSource
	tokens  ports.TokenDecoder
	breaker *circuit.Breaker
	counter ports.ParticipantRecorder

	config         Config
	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
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

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithOfflineQueue enables the offline fallback. Without it an unreachable
// ledger is reported as an unavailable error.
func WithOfflineQueue(q ports.OfflineQueue) Option {
	return func(s *Service) {
		s.queue = q
	}
}

func WithTickets(t ports.TicketSource) Option {
	return func(s *Service) {
		s.tickets = t
	}
}

// WithTokenDecoder enables the scan-token method.
func WithTokenDecoder(d ports.TokenDecoder) Option {
	return func(s *Service) {
		s.tokens = d
	}
}

// WithParticipantCounter counts every succeeded check-in towards the event's
// participants, which feeds the ejection-rate signal.
func WithParticipantCounter(p ports.ParticipantRecorder) Option {
	return func(s *Service) {
		s.counter = p
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(gate ports.Gate, events ports.EventDirectory, ledger ports.RemoteLedger, opts ...Option) (*Service, error) {
	if gate == nil {
		return nil, errors.New("gate is required")
	}
	if events == nil {
		return nil, errors.New("event directory is required")
	}
	if ledger == nil {
		return nil, errors.New("ledger is required")
	}
	svc := &Service{
		gate:   gate,
		events: events,
		ledger: ledger,
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.breaker == nil {
		svc.breaker = circuit.New("ledger")
	}
	if svc.tracer == nil {
		svc.tracer = otel.Tracer(tracerName)
	}
	return svc, nil
}

// CheckIn drives one attempt to a terminal state. Verification failures and
// gate denials are outcomes; errors are reserved for bad requests and
// infrastructure failures.
func (s *Service) CheckIn(ctx context.Context, req models.Request) (*models.Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "checkin.CheckIn", trace.WithAttributes(
		attribute.String("user_id", req.UserID.String()),
		attribute.String("event_id", req.EventID.String()),
		attribute.String("method", string(req.Method)),
	))
	defer span.End()
	start := time.Now()

	outcome, err := s.run(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("state", string(outcome.State)))
	if outcome.Reason != "" {
		span.SetAttributes(attribute.String("reason", string(outcome.Reason)))
	}
	s.metrics.ObserveOutcome(string(req.Method), string(outcome.State), string(outcome.Reason), time.Since(start).Seconds())
	return outcome, nil
}

func (s *Service) run(ctx context.Context, req models.Request) (*models.Outcome, error) {
	if req.UserID.IsNil() || req.EventID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user_id and event_id are required")
	}
	if _, err := models.ParseMethod(string(req.Method)); err != nil {
		return nil, err
	}

	attempt := models.NewAttempt()
	if err := attempt.Transition(models.StateAwaitingMethod); err != nil {
		return nil, err
	}

	event, err := s.events.Get(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if err := attempt.Transition(models.StateVerifying); err != nil {
		return nil, err
	}

	sc, err := s.screen(ctx, event, req)
	if err != nil {
		return nil, err
	}
	if sc.refusal != "" {
		out := &models.Outcome{
			Method:         req.Method,
			Reason:         sc.refusal,
			Remaining:      sc.decision.Remaining,
			RetryAt:        sc.decision.RetryAt,
			DistanceMeters: sc.distance,
		}
		return s.finish(ctx, attempt, req, out, models.StateFailed)
	}
	distance, decision := sc.distance, sc.decision

	now := requestcontext.Now(ctx)
	payload := ledgermodels.CheckInPayload{
		Method:         string(req.Method),
		OccurredAtMs:   now.UnixMilli(),
		DistanceMeters: distance,
		Device:         deviceSummary(requestcontext.UserAgent(ctx)),
	}
	out := &models.Outcome{Method: req.Method, DistanceMeters: distance, Remaining: decision.Remaining}

	entry, err := s.commit(ctx, req, payload)
	switch {
	case err == nil:
		out.Entry = entry
		if s.counter != nil {
			if cerr := s.counter.RecordParticipant(ctx, req.EventID); cerr != nil {
				s.logger.WarnContext(ctx, "failed to count participant", "event_id", req.EventID.String(), "error", cerr)
			}
		}
		return s.finish(ctx, attempt, req, out, models.StateSucceeded)
	case errors.Is(err, sentinel.ErrUnavailable):
		item, qerr := s.enqueue(ctx, req, payload, now)
		if qerr != nil {
			return nil, qerr
		}
		out.QueueItemID = item.ID
		return s.finish(ctx, attempt, req, out, models.StateQueuedOffline)
	default:
		reason, ok := verification.ReasonOf(err)
		if !ok {
			return nil, err
		}
		out.Reason = reason
		return s.finish(ctx, attempt, req, out, models.StateFailed)
	}
}

// Attest re-checks presence evidence on behalf of a caller that does not go
// through CheckIn, such as a device's remote append or an offline ticket
// grant. It consults the gate and the method's verifier exactly as CheckIn
// does but commits nothing. A refusal is a coded error naming the reason.
func (s *Service) Attest(ctx context.Context, req models.Request) (float64, error) {
	ctx, span := s.tracer.Start(ctx, "checkin.Attest", trace.WithAttributes(
		attribute.String("user_id", req.UserID.String()),
		attribute.String("event_id", req.EventID.String()),
		attribute.String("method", string(req.Method)),
	))
	defer span.End()

	if req.UserID.IsNil() || req.EventID.IsNil() {
		return 0, dErrors.New(dErrors.CodeValidation, "user_id and event_id are required")
	}
	if _, err := models.ParseMethod(string(req.Method)); err != nil {
		return 0, err
	}
	event, err := s.events.Get(ctx, req.EventID)
	if err != nil {
		return 0, err
	}
	sc, err := s.screen(ctx, event, req)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if sc.refusal != "" {
		span.SetAttributes(attribute.String("reason", string(sc.refusal)))
		audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventAttestationRefused, audit.Event{
			UserID:   req.UserID,
			EventID:  req.EventID,
			Method:   string(req.Method),
			Decision: "refused",
			Reason:   string(sc.refusal),
		})
		return sc.distance, verification.AsDomainError(verification.Fail(sc.refusal, ""))
	}
	return sc.distance, nil
}

// screening is the gate and verifier verdict for one attempt. A non-empty
// refusal means the attempt failed for that reason.
type screening struct {
	decision *ratemodels.Decision
	distance float64
	refusal  verification.Reason
}

// screen consults the gate, then runs the verifier. Failed verifications are
// registered with the gate; errors are reserved for infrastructure failures.
func (s *Service) screen(ctx context.Context, event *eventmodels.Event, req models.Request) (screening, error) {
	subject := ratemodels.Subject{UserID: req.UserID, EventID: req.EventID, Method: string(req.Method)}
	decision, err := s.gate.Check(ctx, subject)
	if err != nil {
		return screening{}, err
	}
	if !decision.Allowed {
		return screening{decision: decision, refusal: decision.Reason}, nil
	}

	distance, err := s.verify(ctx, event, req)
	if err != nil {
		reason, ok := verification.ReasonOf(err)
		if !ok {
			return screening{}, err
		}
		if ferr := s.gate.RecordFailure(ctx, subject); ferr != nil {
			return screening{}, ferr
		}
		return screening{decision: decision, distance: distance, refusal: reason}, nil
	}
	if err := s.gate.RecordSuccess(ctx, subject); err != nil {
		return screening{}, err
	}
	return screening{decision: decision, distance: distance}, nil
}

// verify dispatches to the method's verifier and returns the measured
// distance for geo check-ins.
func (s *Service) verify(ctx context.Context, event *eventmodels.Event, req models.Request) (float64, error) {
	now := requestcontext.Now(ctx)
	switch req.Method {
	case models.MethodGeo:
		if req.Evidence.Location == nil {
			return 0, verification.Fail(verification.ReasonInvalidCoordinates, "location is required")
		}
		res, err := geofence.WithinRadius(event.Center, *req.Evidence.Location, event.RadiusMeters)
		if err != nil {
			return 0, err
		}
		if !res.Inside {
			return res.DistanceMeters, verification.Fail(verification.ReasonOutsideGeofence,
				fmt.Sprintf("%.0fm from center, radius %.0fm", res.DistanceMeters, event.RadiusMeters))
		}
		return res.DistanceMeters, nil

	case models.MethodCode:
		if !rotatingcode.Validate(event.CodeSecret, req.Evidence.Code, now, event.CodeOptions(), s.config.CodeTolerance) {
			return 0, verification.Fail(verification.ReasonInvalidCode, "")
		}
		return 0, nil

	case models.MethodToken:
		if s.tokens == nil {
			return 0, dErrors.New(dErrors.CodeValidation, "scan tokens are not supported here")
		}
		tok, err := s.tokens.Decode(req.Evidence.Token)
		if err != nil {
			return 0, err
		}
		return 0, scantoken.ValidateFor(tok, event.ID.String(), now, s.config.ClockSkew)
	}
	return 0, dErrors.New(dErrors.CodeValidation, "unsupported method")
}

// commit appends on top of the ledger head. An open breaker short-circuits
// to sentinel.ErrUnavailable so the attempt is queued without a network call.
func (s *Service) commit(ctx context.Context, req models.Request, payload ledgermodels.Payload) (*ledgermodels.Entry, error) {
	if !s.breaker.Allow() {
		return nil, fmt.Errorf("ledger circuit open: %w", sentinel.ErrUnavailable)
	}

	entry, err := s.appendOnHead(ctx, req, payload)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			if _, change := s.breaker.RecordFailure(); change.Opened {
				s.metrics.ObserveBreaker(string(circuit.StateOpen))
				s.logger.WarnContext(ctx, "ledger circuit opened", "breaker", s.breaker.Name())
			}
		}
		return nil, err
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.metrics.ObserveBreaker(string(circuit.StateClosed))
		s.logger.InfoContext(ctx, "ledger circuit closed", "breaker", s.breaker.Name())
	}
	return entry, nil
}

func (s *Service) appendOnHead(ctx context.Context, req models.Request, payload ledgermodels.Payload) (*ledgermodels.Entry, error) {
	head, err := s.ledger.Head(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	appendReq := ledgermodels.AppendRequest{UserID: req.UserID, EventID: req.EventID, Payload: payload}
	if head != nil {
		appendReq.PreviousHash = head.Hash
	}
	return s.ledger.Append(ctx, appendReq, req.Evidence)
}

func (s *Service) enqueue(ctx context.Context, req models.Request, payload ledgermodels.CheckInPayload, now time.Time) (*offlinemodels.QueuedCheckin, error) {
	if s.queue == nil {
		return nil, dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeUnavailable, "ledger is unavailable")
	}
	in := offlinemodels.NewCheckin{
		UserID:         req.UserID,
		EventID:        req.EventID,
		Method:         string(req.Method),
		OccurredAt:     now,
		DistanceMeters: payload.DistanceMeters,
		Device:         payload.Device,
	}
	if s.tickets != nil {
		ticket, err := s.tickets.Get(ctx, req.EventID)
		switch {
		case err == nil:
			in.Ticket = ticket.Ticket
		case errors.Is(err, sentinel.ErrNotFound):
			s.logger.WarnContext(ctx, "queuing check-in without an offline ticket", "event_id", req.EventID.String())
		default:
			return nil, err
		}
	}
	item, err := s.queue.Enqueue(ctx, in)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to queue check-in")
	}
	return item, nil
}

func (s *Service) finish(ctx context.Context, attempt *models.Attempt, req models.Request, out *models.Outcome, state models.State) (*models.Outcome, error) {
	if err := attempt.Transition(state); err != nil {
		return nil, err
	}
	out.State = state
	out.History = attempt.History()

	action := audit.EventCheckInFailed
	attrs := []any{"method", string(req.Method), "state", string(state)}
	switch state {
	case models.StateSucceeded:
		action = audit.EventCheckInSucceeded
		attrs = append(attrs, "sequence", out.Entry.Sequence)
	case models.StateQueuedOffline:
		action = audit.EventCheckInQueued
		attrs = append(attrs, "queue_item_id", out.QueueItemID)
	}
	audit.LogAudit(ctx, s.logger, s.auditPublisher, action, audit.Event{
		UserID:   req.UserID,
		EventID:  req.EventID,
		Method:   string(req.Method),
		Decision: string(state),
		Reason:   string(out.Reason),
		Device:   deviceSummary(requestcontext.UserAgent(ctx)),
	}, attrs...)
	return out, nil
}
