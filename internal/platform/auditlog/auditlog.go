// Package auditlog records audit-worthy ledger actions to the structured log and
// the audit publisher.
package auditlog

import (
	"context"
	"log/slog"

	audit "edugrant/pkg/platform/audit"
	"edugrant/pkg/platform/tx"
	"edugrant/pkg/requestcontext"
)

// Publisher is the subset of the audit publisher the emitter needs.
type Publisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Emitter is safe to use with nil logger and/or publisher.
type Emitter struct {
	logger    *slog.Logger
	publisher Publisher
}

func New(logger *slog.Logger, publisher Publisher) *Emitter {
	return &Emitter{logger: logger, publisher: publisher}
}

// Record logs and publishes event once the enclosing transaction commits.
// Events recorded inside a transaction that rolls back are dropped; outside a
// transaction the event is recorded immediately.
func (e *Emitter) Record(ctx context.Context, event audit.Event) {
	if e == nil {
		return
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	tx.AfterCommit(ctx, func() {
		e.record(ctx, event)
	})
}

func (e *Emitter) record(ctx context.Context, event audit.Event) {
	if e.logger != nil {
		args := []any{
			"actor", event.ActorID,
			"subject", event.Subject,
		}
		if event.ScholarshipID != nil {
			args = append(args, "scholarship_id", *event.ScholarshipID)
		}
		if event.Amount != 0 {
			args = append(args, "amount", event.Amount)
		}
		if event.Reason != "" {
			args = append(args, "reason", event.Reason)
		}
		if event.RequestID != "" {
			args = append(args, "request_id", event.RequestID)
		}
		args = append(args, "event", event.Action, "log_type", "audit")
		e.logger.InfoContext(ctx, event.Action, args...)
	}

	if e.publisher == nil {
		return
	}
	if err := e.publisher.Emit(ctx, event); err != nil && e.logger != nil {
		e.logger.WarnContext(ctx, "failed to emit audit event", "event", event.Action, "error", err)
	}
}
