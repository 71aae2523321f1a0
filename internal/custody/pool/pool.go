// Package pool is the in-memory reference custody: a single balance that
// deposits credit and transfers debit.
package pool

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"edugrant/internal/custody"
	id "edugrant/pkg/domain"
	"edugrant/pkg/platform/clock"
	"edugrant/pkg/platform/tx"
)

// Totals are cumulative flows through the pool. Disbursed never exceeds Deposited.
type Totals struct {
	Deposited id.Amount
	Disbursed id.Amount
}

type Pool struct {
	mu       sync.Mutex
	clock    clock.Clock
	balance  id.Amount
	totals   Totals
	receipts []custody.Receipt
}

type Option func(*Pool)

func WithClock(c clock.Clock) Option {
	return func(p *Pool) {
		p.clock = c
	}
}

func New(opts ...Option) *Pool {
	p := &Pool{clock: clock.System{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pool) Deposit(ctx context.Context, from id.Identity, amount id.Amount) (custody.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !amount.IsPositive() || amount > math.MaxInt64-p.totals.Deposited {
		return custody.Receipt{}, fmt.Errorf("deposit %s: %w", amount, custody.ErrInvalidAmount)
	}
	p.balance += amount
	p.totals.Deposited += amount
	return p.record(ctx, custody.KindDeposit, from, amount), nil
}

func (p *Pool) Transfer(ctx context.Context, to id.Identity, amount id.Amount) (custody.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !amount.IsPositive() {
		return custody.Receipt{}, fmt.Errorf("transfer %s: %w", amount, custody.ErrInvalidAmount)
	}
	if amount > p.balance {
		return custody.Receipt{}, fmt.Errorf("transfer %s with balance %s: %w", amount, p.balance, custody.ErrInsufficientFunds)
	}
	p.balance -= amount
	p.totals.Disbursed += amount
	return p.record(ctx, custody.KindTransfer, to, amount), nil
}

// record appends a receipt and registers the reversal of the movement with the
// enclosing transaction. Callers hold p.mu.
func (p *Pool) record(ctx context.Context, kind custody.Kind, party id.Identity, amount id.Amount) custody.Receipt {
	r := custody.Receipt{
		ID:     uuid.New(),
		Kind:   kind,
		Party:  party,
		Amount: amount,
		At:     p.clock.Now(),
	}
	p.receipts = append(p.receipts, r)
	tx.OnRollback(ctx, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		switch kind {
		case custody.KindDeposit:
			p.balance -= amount
			p.totals.Deposited -= amount
		case custody.KindTransfer:
			p.balance += amount
			p.totals.Disbursed -= amount
		}
		p.receipts = p.receipts[:len(p.receipts)-1]
	})
	return r
}

func (p *Pool) Balance(_ context.Context) (id.Amount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, nil
}

func (p *Pool) Totals() Totals {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totals
}

// Receipts returns every movement in the order it happened.
func (p *Pool) Receipts() []custody.Receipt {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]custody.Receipt, len(p.receipts))
	copy(out, p.receipts)
	return out
}
