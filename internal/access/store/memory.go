package store

import (
	"context"
	"fmt"
	"sync"

	"edugrant/internal/access/models"
	id "edugrant/pkg/domain"
	"edugrant/pkg/platform/sentinel"
	"edugrant/pkg/platform/tx"
)

// InMemory holds the verifier set, preserving insertion order.
type InMemory struct {
	mu        sync.RWMutex
	verifiers map[id.Identity]models.Verifier
	order     []id.Identity
}

func NewInMemory() *InMemory {
	return &InMemory{verifiers: make(map[id.Identity]models.Verifier)}
}

// Add inserts v. Returns sentinel.ErrAlreadyExists when the identity is already a verifier.
func (s *InMemory) Add(ctx context.Context, v models.Verifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.verifiers[v.Identity]; ok {
		return fmt.Errorf("verifier %s: %w", v.Identity, sentinel.ErrAlreadyExists)
	}
	s.verifiers[v.Identity] = v
	s.order = append(s.order, v.Identity)
	tx.OnRollback(ctx, func() { s.remove(v.Identity) })
	return nil
}

func (s *InMemory) remove(identity id.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.verifiers, identity)
	for i, existing := range s.order {
		if existing == identity {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *InMemory) Exists(_ context.Context, identity id.Identity) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.verifiers[identity]
	return ok
}

// List returns verifiers in the order they were added.
func (s *InMemory) List(_ context.Context) []models.Verifier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Verifier, 0, len(s.order))
	for _, identity := range s.order {
		out = append(out, s.verifiers[identity])
	}
	return out
}
