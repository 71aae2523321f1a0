// Package custody defines the port through which the ledger moves pooled
// assets. The core never holds assets itself; it asks a Custody implementation
// to credit deposits and pay recipients.
package custody

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	id "edugrant/pkg/domain"
)

//go:generate mockgen -source=custody.go -destination=mocks/mocks.go -package=mocks Custody

type Kind string

const (
	KindDeposit  Kind = "deposit"
	KindTransfer Kind = "transfer"
)

// Receipt acknowledges a completed asset movement.
type Receipt struct {
	ID     uuid.UUID   `json:"id"`
	Kind   Kind        `json:"kind"`
	Party  id.Identity `json:"party"`
	Amount id.Amount   `json:"amount"`
	At     time.Time   `json:"at"`
}

// Custody moves assets in and out of the fund pool.
type Custody interface {
	// Deposit credits amount from the given party to the pool.
	Deposit(ctx context.Context, from id.Identity, amount id.Amount) (Receipt, error)
	// Transfer debits amount from the pool to the recipient. It must fail
	// without side effects when the pool cannot cover the amount.
	Transfer(ctx context.Context, to id.Identity, amount id.Amount) (Receipt, error)
	Balance(ctx context.Context) (id.Amount, error)
}

var (
	// ErrInsufficientFunds is returned when a transfer would overdraw the pool.
	ErrInsufficientFunds = errors.New("insufficient funds in pool")
	// ErrInvalidAmount is returned for non-positive or overflowing amounts.
	ErrInvalidAmount = errors.New("invalid amount")
)

// IsRejection reports whether err is an authoritative refusal by the custody
// backend rather than an outage.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrInvalidAmount)
}
