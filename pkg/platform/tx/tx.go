// Package tx provides the ledger's single serialization boundary.
//
// Every mutating operation runs inside Coordinator.RunInTx, which holds the
// exclusive lock for the whole operation. Stores register compensating actions
// with OnRollback after each mutation; if the operation fails, the compensations
// run in reverse order before the lock is released, so a failed operation leaves
// state exactly as it found it. Read-only queries run inside View under the shared
// lock and therefore never observe a half-applied operation.
//
// The running transaction travels in the context. Nested RunInTx/View calls join
// the outer transaction instead of locking again; they share its fate.
package tx

import (
	"context"
	"sync"

	dErrors "edugrant/pkg/domain-errors"
)

type ctxKey struct{}

var txKey = ctxKey{}

// Tx is the state of a running transaction.
type Tx struct {
	readOnly    bool
	undo        []func()
	afterCommit []func()
}

// WithTx stores a transaction in context for downstream store usage.
func WithTx(ctx context.Context, t *Tx) context.Context {
	if t == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, t)
}

// From extracts the running transaction from context if present.
func From(ctx context.Context) (*Tx, bool) {
	t, ok := ctx.Value(txKey).(*Tx)
	return t, ok
}

// OnRollback registers undo to run if the enclosing transaction fails.
// Outside a writable transaction the mutation simply stands.
func OnRollback(ctx context.Context, undo func()) {
	if t, ok := From(ctx); ok && !t.readOnly {
		t.undo = append(t.undo, undo)
	}
}

// AfterCommit defers fn until the enclosing transaction commits and its lock is
// released. Outside a transaction fn runs immediately. Hooks of a failed
// transaction are discarded.
func AfterCommit(ctx context.Context, fn func()) {
	if t, ok := From(ctx); ok && !t.readOnly {
		t.afterCommit = append(t.afterCommit, fn)
		return
	}
	fn()
}

func (t *Tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.afterCommit = nil
}

// Coordinator serializes mutating operations across every ledger component.
type Coordinator struct {
	mu sync.RWMutex
}

func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// RunInTx runs fn as one indivisible mutating transaction.
//
// The coordinator imposes no deadline of its own. Waiting for the lock cannot
// be interrupted; a context the caller cancelled before or during that wait
// aborts the transaction before fn runs.
func (c *Coordinator) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if t, ok := From(ctx); ok {
		if t.readOnly {
			return dErrors.New(dErrors.CodeInternal, "mutation attempted inside read-only transaction")
		}
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	c.mu.Lock()
	t := &Tx{}
	committed := false
	defer func() {
		if r := recover(); r != nil {
			t.rollback()
			c.mu.Unlock()
			panic(r)
		}
		if !committed {
			t.rollback()
		}
		c.mu.Unlock()
		if committed {
			for _, hook := range t.afterCommit {
				hook()
			}
		}
	}()

	// the caller may have given up while waiting for the lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if err := fn(WithTx(ctx, t)); err != nil {
		return err
	}
	committed = true
	return nil
}

// View runs fn under the shared lock. Queries inside see a consistent snapshot.
func (c *Coordinator) View(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fn(WithTx(ctx, &Tx{readOnly: true}))
}

