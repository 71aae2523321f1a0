// Package publisher fronts an audit.Store with optional asynchronous buffering.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	id "edugrant/pkg/domain"
	audit "edugrant/pkg/platform/audit"
)

// ErrBufferFull is returned by Emit in async mode when the buffer cannot accept
// another event.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time

	buffer    chan audit.Event
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer makes Emit enqueue events for a background writer.
// Close drains the buffer.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = make(chan audit.Event, size)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithClock sets the source used to stamp events that arrive without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit fills in ID, timestamp and category when missing, then persists the event
// (sync mode) or enqueues it (async mode).
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.buffer <- event:
		return nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrBufferFull
}

// List returns the events recorded about subject.
func (p *Publisher) List(ctx context.Context, subject id.Identity) ([]audit.Event, error) {
	return p.store.ListBySubject(ctx, subject)
}

// ListAll returns the full trail.
func (p *Publisher) ListAll(ctx context.Context) ([]audit.Event, error) {
	return p.store.ListAll(ctx)
}

// Close stops the background writer after draining buffered events.
// It is a no-op in sync mode and safe to call more than once.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to persist audit event",
				"action", event.Action,
				"event_id", event.ID,
				"error", err,
			)
		}
	}
}
