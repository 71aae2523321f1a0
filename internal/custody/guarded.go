package custody

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"edugrant/internal/platform/metrics"
	id "edugrant/pkg/domain"
	"edugrant/pkg/platform/circuit"
	"edugrant/pkg/platform/clock"
	"edugrant/pkg/platform/sentinel"
)

const defaultCooldown = 30 * time.Second

// Guarded wraps a Custody with a circuit breaker. While the circuit is open and
// the cooldown has not elapsed, calls fail with sentinel.ErrUnavailable without
// reaching the backend. After the cooldown calls are let through as probes; the
// circuit closes once enough of them succeed.
//
// Rejections (insufficient funds, invalid amount) prove the backend is up and
// count as successes.
type Guarded struct {
	next     Custody
	breaker  *circuit.Breaker
	cooldown time.Duration
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	openedAt time.Time
}

type GuardOption func(*Guarded)

func WithBreaker(b *circuit.Breaker) GuardOption {
	return func(g *Guarded) {
		g.breaker = b
	}
}

func WithCooldown(d time.Duration) GuardOption {
	return func(g *Guarded) {
		if d > 0 {
			g.cooldown = d
		}
	}
}

func WithClock(c clock.Clock) GuardOption {
	return func(g *Guarded) {
		g.clock = c
	}
}

func WithLogger(logger *slog.Logger) GuardOption {
	return func(g *Guarded) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) GuardOption {
	return func(g *Guarded) {
		g.metrics = m
	}
}

func NewGuarded(next Custody, opts ...GuardOption) *Guarded {
	g := &Guarded{
		next:     next,
		cooldown: defaultCooldown,
		clock:    clock.System{},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.breaker == nil {
		g.breaker = circuit.New("custody")
	}
	return g
}

func (g *Guarded) Deposit(ctx context.Context, from id.Identity, amount id.Amount) (Receipt, error) {
	return guard(ctx, g, "deposit", func() (Receipt, error) {
		return g.next.Deposit(ctx, from, amount)
	})
}

func (g *Guarded) Transfer(ctx context.Context, to id.Identity, amount id.Amount) (Receipt, error) {
	return guard(ctx, g, "transfer", func() (Receipt, error) {
		return g.next.Transfer(ctx, to, amount)
	})
}

func (g *Guarded) Balance(ctx context.Context) (id.Amount, error) {
	return guard(ctx, g, "balance", func() (id.Amount, error) {
		return g.next.Balance(ctx)
	})
}

// State exposes the breaker position for health reporting.
func (g *Guarded) State() circuit.State {
	return g.breaker.State()
}

func guard[T any](ctx context.Context, g *Guarded, op string, call func() (T, error)) (T, error) {
	var zero T
	if g.rejectFast() {
		return zero, fmt.Errorf("custody %s: circuit %s open: %w", op, g.breaker.Name(), sentinel.ErrUnavailable)
	}

	result, err := call()
	if err == nil || IsRejection(err) {
		_, change := g.breaker.RecordSuccess()
		g.report(ctx, change)
		return result, err
	}

	_, change := g.breaker.RecordFailure()
	if g.breaker.IsOpen() {
		// A failed probe restarts the cooldown.
		g.mu.Lock()
		g.openedAt = g.clock.Now()
		g.mu.Unlock()
	}
	g.report(ctx, change)
	return zero, err
}

func (g *Guarded) rejectFast() bool {
	if !g.breaker.IsOpen() {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.clock.Now().Sub(g.openedAt) < g.cooldown
}

func (g *Guarded) report(ctx context.Context, change circuit.StateChange) {
	switch {
	case change.Opened:
		g.metrics.SetCustodyCircuit(true)
		if g.logger != nil {
			g.logger.WarnContext(ctx, "custody circuit opened", "breaker", g.breaker.Name(), "cooldown", g.cooldown)
		}
	case change.Closed:
		g.metrics.SetCustodyCircuit(false)
		if g.logger != nil {
			g.logger.InfoContext(ctx, "custody circuit closed", "breaker", g.breaker.Name())
		}
	}
}
