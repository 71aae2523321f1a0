package store

import (
	"context"
	"sync"

	"edugrant/internal/disbursement/models"
	id "edugrant/pkg/domain"
	"edugrant/pkg/platform/tx"
)

// InMemory is an append-only disbursement history.
type InMemory struct {
	mu      sync.RWMutex
	history []models.Disbursement
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(ctx context.Context, d models.Disbursement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, d)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.history = s.history[:len(s.history)-1]
	})
	return nil
}

func (s *InMemory) List(_ context.Context) []models.Disbursement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Disbursement, len(s.history))
	copy(out, s.history)
	return out
}

func (s *InMemory) ListByStudent(_ context.Context, student id.Identity) []models.Disbursement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Disbursement
	for _, d := range s.history {
		if d.Student == student {
			out = append(out, d)
		}
	}
	return out
}
