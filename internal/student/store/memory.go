package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"edugrant/internal/student/models"
	id "edugrant/pkg/domain"
	"edugrant/pkg/platform/sentinel"
	"edugrant/pkg/platform/tx"
)

// InMemory stores student records keyed by identity. Every returned record is a
// copy; mutation goes through Execute.
type InMemory struct {
	mu       sync.RWMutex
	students map[id.Identity]*models.Student
	nextSeq  uint64
}

func NewInMemory() *InMemory {
	return &InMemory{students: make(map[id.Identity]*models.Student)}
}

// Create inserts a new record and assigns its registration sequence.
// Returns sentinel.ErrAlreadyExists if the identity is taken; the existing record is untouched.
func (s *InMemory) Create(ctx context.Context, student *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[student.Identity]; ok {
		return fmt.Errorf("student %s: %w", student.Identity, sentinel.ErrAlreadyExists)
	}
	stored := student.Clone()
	stored.Sequence = s.nextSeq
	s.nextSeq++
	s.students[stored.Identity] = stored
	student.Sequence = stored.Sequence

	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.students, stored.Identity)
		s.nextSeq--
	})
	return nil
}

func (s *InMemory) FindByIdentity(_ context.Context, identity id.Identity) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	student, ok := s.students[identity]
	if !ok {
		return nil, fmt.Errorf("student %s: %w", identity, sentinel.ErrNotFound)
	}
	return student.Clone(), nil
}

// Execute runs validate then mutate against the stored record while holding the
// store lock. If validate fails nothing changes and the error is returned as is.
// The pre-mutation record is restored if the enclosing transaction rolls back.
func (s *InMemory) Execute(ctx context.Context, identity id.Identity, validate func(*models.Student) error, mutate func(*models.Student)) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	student, ok := s.students[identity]
	if !ok {
		return nil, fmt.Errorf("student %s: %w", identity, sentinel.ErrNotFound)
	}
	if err := validate(student); err != nil {
		return student.Clone(), err
	}
	before := student.Clone()
	mutate(student)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.students[identity] = before
	})
	return student.Clone(), nil
}

// ListUnverified returns unverified students in registration order.
func (s *InMemory) ListUnverified(_ context.Context) []*models.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Student, 0)
	for _, student := range s.students {
		if !student.Verified {
			out = append(out, student.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

func (s *InMemory) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.students)
}
