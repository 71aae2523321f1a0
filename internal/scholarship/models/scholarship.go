package models

import (
	"fmt"
	"strings"
	"time"

	id "edugrant/pkg/domain"
	"edugrant/pkg/platform/sentinel"
)

// Status is derived from a scholarship's fields and the current time. It is
// never stored.
type Status string

const (
	StatusOpen    Status = "open"
	StatusFull    Status = "full"
	StatusExpired Status = "expired"
)

// Scholarship is a funded award with a fixed per-recipient amount, a deadline
// and a recipient cap. CurrentRecipients never exceeds MaxRecipients, and Active
// is false exactly when the cap has been reached.
type Scholarship struct {
	ID                 id.ScholarshipID `json:"id"`
	Name               string           `json:"name"`
	AmountPerRecipient id.Amount        `json:"amount_per_recipient"`
	Deadline           time.Time        `json:"deadline"`
	MaxRecipients      int              `json:"max_recipients"`
	CurrentRecipients  int              `json:"current_recipients"`
	Active             bool             `json:"active"`
	CreatedAt          time.Time        `json:"created_at"`
}

// CreateCommand carries the administrator-supplied scholarship terms.
type CreateCommand struct {
	Name               string    `validate:"required,max=256"`
	AmountPerRecipient int64     `validate:"gt=0"`
	Deadline           time.Time `validate:"required"`
	MaxRecipients      int       `validate:"min=1"`
}

func (c *CreateCommand) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
}

func NewScholarship(cmd CreateCommand, now time.Time) *Scholarship {
	return &Scholarship{
		Name:               cmd.Name,
		AmountPerRecipient: id.Amount(cmd.AmountPerRecipient),
		Deadline:           cmd.Deadline,
		MaxRecipients:      cmd.MaxRecipients,
		Active:             true,
		CreatedAt:          now,
	}
}

// Status reports how the scholarship looks at now. Capacity takes precedence
// over the deadline.
func (s *Scholarship) Status(now time.Time) Status {
	if s.CurrentRecipients >= s.MaxRecipients {
		return StatusFull
	}
	if !now.Before(s.Deadline) {
		return StatusExpired
	}
	return StatusOpen
}

func (s *Scholarship) IsOpen(now time.Time) bool {
	return s.Status(now) == StatusOpen
}

// RemainingSlots is the number of recipients still accepted.
func (s *Scholarship) RemainingSlots() int {
	if s.CurrentRecipients >= s.MaxRecipients {
		return 0
	}
	return s.MaxRecipients - s.CurrentRecipients
}

// CanReserve checks that one more recipient may be admitted at now.
func (s *Scholarship) CanReserve(now time.Time) error {
	switch s.Status(now) {
	case StatusFull:
		return fmt.Errorf("scholarship %s: %w", s.ID, sentinel.ErrExhausted)
	case StatusExpired:
		return fmt.Errorf("scholarship %s: %w", s.ID, sentinel.ErrExpired)
	}
	return nil
}

// ApplyReservation admits one recipient and deactivates the scholarship when
// the cap is reached. It reports whether this reservation filled it.
func (s *Scholarship) ApplyReservation() bool {
	s.CurrentRecipients++
	if s.CurrentRecipients >= s.MaxRecipients {
		s.Active = false
		return true
	}
	return false
}

// AsOf returns a copy whose Active flag also reflects the deadline at now.
// The stored record only deactivates at capacity.
func (s *Scholarship) AsOf(now time.Time) *Scholarship {
	c := s.Clone()
	if c != nil {
		c.Active = c.IsOpen(now)
	}
	return c
}

func (s *Scholarship) Clone() *Scholarship {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
