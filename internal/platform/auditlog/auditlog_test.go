package auditlog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "edugrant/pkg/platform/audit"
	"edugrant/pkg/platform/audit/publisher"
	"edugrant/pkg/platform/audit/store/memory"
	"edugrant/pkg/platform/tx"
	"edugrant/pkg/requestcontext"
)

func TestEmitter_Record(t *testing.T) {
	ctx := requestcontext.WithRequestID(context.Background(), "req-42")

	t.Run("outside a transaction records immediately", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		e := New(nil, publisher.NewPublisher(store))

		e.Record(ctx, audit.Event{Subject: "0xalice", Action: string(audit.EventStudentRegistered)})

		events, err := store.ListBySubject(ctx, "0xalice")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "req-42", events[0].RequestID)
	})

	t.Run("rolled back transaction drops the event", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		e := New(nil, publisher.NewPublisher(store))
		coord := tx.NewCoordinator()

		err := coord.RunInTx(ctx, func(ctx context.Context) error {
			e.Record(ctx, audit.Event{Subject: "0xalice", Action: string(audit.EventScholarshipDisbursed)})
			return errors.New("custody rejected")
		})
		require.Error(t, err)

		events, err := store.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("nil emitter is a no-op", func(t *testing.T) {
		var e *Emitter
		assert.NotPanics(t, func() {
			e.Record(ctx, audit.Event{Action: string(audit.EventVerifierAdded)})
		})
	})
}
