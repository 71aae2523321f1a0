package store

import (
	"context"
	"fmt"
	"sync"

	"edugrant/internal/scholarship/models"
	id "edugrant/pkg/domain"
	"edugrant/pkg/platform/sentinel"
	"edugrant/pkg/platform/tx"
)

// InMemory keeps scholarships in creation order; a scholarship's id is its index.
type InMemory struct {
	mu           sync.RWMutex
	scholarships []*models.Scholarship
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

// Create assigns the next sequential id and stores a copy of scholarship.
func (s *InMemory) Create(ctx context.Context, scholarship *models.Scholarship) (id.ScholarshipID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := scholarship.Clone()
	stored.ID = id.ScholarshipID(len(s.scholarships))
	s.scholarships = append(s.scholarships, stored)
	scholarship.ID = stored.ID

	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.scholarships = s.scholarships[:len(s.scholarships)-1]
	})
	return stored.ID, nil
}

func (s *InMemory) FindByID(_ context.Context, scholarshipID id.ScholarshipID) (*models.Scholarship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found, err := s.lookup(scholarshipID)
	if err != nil {
		return nil, err
	}
	return found.Clone(), nil
}

func (s *InMemory) lookup(scholarshipID id.ScholarshipID) (*models.Scholarship, error) {
	if uint64(scholarshipID) >= uint64(len(s.scholarships)) {
		return nil, fmt.Errorf("scholarship %s: %w", scholarshipID, sentinel.ErrNotFound)
	}
	return s.scholarships[scholarshipID], nil
}

// Execute validates and mutates one scholarship atomically. Recipient count and
// active flag are restored together if the enclosing transaction rolls back.
func (s *InMemory) Execute(ctx context.Context, scholarshipID id.ScholarshipID, validate func(*models.Scholarship) error, mutate func(*models.Scholarship)) (*models.Scholarship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found, err := s.lookup(scholarshipID)
	if err != nil {
		return nil, err
	}
	if err := validate(found); err != nil {
		return found.Clone(), err
	}
	before := found.Clone()
	mutate(found)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.scholarships[scholarshipID] = before
	})
	return found.Clone(), nil
}

// List returns every scholarship in ascending id order.
func (s *InMemory) List(_ context.Context) []*models.Scholarship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Scholarship, len(s.scholarships))
	for i, sch := range s.scholarships {
		out[i] = sch.Clone()
	}
	return out
}
