// Package publisher emits audit events to a store, optionally through an
// async buffer, and fans them out to external sinks.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	id "presence/pkg/domain"
	audit "presence/pkg/platform/audit"
)

// ErrBufferFull is returned when the async buffer cannot accept more events.
var ErrBufferFull = errors.New("audit buffer full")

type Publisher struct {
	store  audit.Store
	sinks  []audit.Sink
	logger *slog.Logger

	buffer chan audit.Event
	wg     sync.WaitGroup
	once   sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches Emit to non-blocking mode with a bounded buffer.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = make(chan audit.Event, size)
		}
	}
}

// WithSink adds an external sink. Sink failures are logged, never returned.
func WithSink(sink audit.Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher builds a publisher over store. A nil store forwards events to
// the sinks only.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an event. In async mode it enqueues and returns immediately.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.buffer == nil {
		return p.write(ctx, event)
	}

	select {
	case p.buffer <- event:
		return nil
	default:
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if p.logger != nil {
		p.logger.WarnContext(ctx, "audit buffer full, dropping event", "action", event.Action)
	}
	return ErrBufferFull
}

// List returns the events recorded for a user.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	if p.store == nil {
		return nil, nil
	}
	return p.store.ListByUser(ctx, userID)
}

// Close drains the async buffer. Safe to call more than once.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.write(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to persist audit event", "action", event.Action, "error", err)
		}
	}
}

func (p *Publisher) write(ctx context.Context, event audit.Event) error {
	if p.store != nil {
		if err := p.store.Append(ctx, event); err != nil {
			return err
		}
	}
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, event); err != nil && p.logger != nil {
			p.logger.WarnContext(ctx, "audit sink publish failed", "action", event.Action, "error", err)
		}
	}
	return nil
}
