package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"edugrant/internal/platform/metrics"
	"edugrant/internal/student/store"
	id "edugrant/pkg/domain"
	dErrors "edugrant/pkg/domain-errors"
	audit "edugrant/pkg/platform/audit"
	"edugrant/pkg/platform/audit/publisher"
	auditmemory "edugrant/pkg/platform/audit/store/memory"
	"edugrant/pkg/platform/clock"
)

type stubVerifiers map[id.Identity]bool

func (v stubVerifiers) IsVerifier(_ context.Context, identity id.Identity) bool {
	return v[identity]
}

const (
	alice    = id.Identity("0xalice")
	bob      = id.Identity("0xbob")
	verifier = id.Identity("0xverifier")
)

type StudentServiceSuite struct {
	suite.Suite
	ctx        context.Context
	clock      *clock.Fake
	store      *store.InMemory
	auditStore *auditmemory.InMemoryStore
	metrics    *metrics.Metrics
	service    *Service
}

func TestStudentServiceSuite(t *testing.T) {
	suite.Run(t, new(StudentServiceSuite))
}

func (s *StudentServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clock.NewFake(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	s.store = store.NewInMemory()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	svc, err := New(s.store, stubVerifiers{verifier: true},
		WithClock(s.clock),
		WithMetrics(s.metrics),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *StudentServiceSuite) events(subject id.Identity) []string {
	events, err := s.auditStore.ListBySubject(s.ctx, subject)
	s.Require().NoError(err)
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func (s *StudentServiceSuite) register(identity id.Identity, name string) {
	_, err := s.service.RegisterStudent(s.ctx, identity, name, "U-"+name)
	s.Require().NoError(err)
}

func (s *StudentServiceSuite) TestNew() {
	_, err := New(nil, stubVerifiers{})
	s.Error(err)
	_, err = New(store.NewInMemory(), nil)
	s.Error(err)
}

func (s *StudentServiceSuite) TestRegisterStudent() {
	s.Run("creates unverified record without documents", func() {
		student, err := s.service.RegisterStudent(s.ctx, alice, "  Alice ", " U-1 ")
		s.Require().NoError(err)
		s.Equal("Alice", student.DisplayName)
		s.Equal("U-1", student.UniversityID)
		s.False(student.Verified)
		s.Nil(student.DocumentsReference)
		s.Equal(s.clock.Now(), student.RegisteredAt)
		s.Equal([]string{string(audit.EventStudentRegistered)}, s.events(alice))
	})

	s.Run("second registration fails and keeps the first record", func() {
		_, err := s.service.RegisterStudent(s.ctx, alice, "Mallory", "U-666")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyRegistered))

		student, err := s.service.GetStudent(s.ctx, alice)
		s.Require().NoError(err)
		s.Equal("Alice", student.DisplayName)
		s.Equal("U-1", student.UniversityID)
		s.Len(s.events(alice), 1)
	})

	s.Run("blank fields are invalid input", func() {
		_, err := s.service.RegisterStudent(s.ctx, bob, "   ", "U-2")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.service.RegisterStudent(s.ctx, bob, "Bob", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.service.GetStudent(s.ctx, bob)
		s.True(dErrors.HasCode(err, dErrors.CodeNotRegistered))
	})

	s.Run("invalid caller identity is rejected", func() {
		_, err := s.service.RegisterStudent(s.ctx, "", "Bob", "U-2")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Equal(1.0, testutil.ToFloat64(s.metrics.StudentsRegistered))
}

func (s *StudentServiceSuite) TestSubmitDocuments() {
	s.Run("unregistered caller", func() {
		_, err := s.service.SubmitDocuments(s.ctx, alice, "QmDoc")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotRegistered))
	})

	s.register(alice, "Alice")

	s.Run("empty reference", func() {
		_, err := s.service.SubmitDocuments(s.ctx, alice, "  ")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("single reference may not contain the bundle separator", func() {
		_, err := s.service.SubmitDocuments(s.ctx, alice, "QmA,QmB")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		student, err := s.service.GetStudent(s.ctx, alice)
		s.Require().NoError(err)
		s.False(student.HasDocuments())
	})

	s.Run("last write wins and verification is untouched", func() {
		_, err := s.service.VerifyStudent(s.ctx, verifier, alice)
		s.Require().NoError(err)

		_, err = s.service.SubmitDocuments(s.ctx, alice, "QmFirst")
		s.Require().NoError(err)
		student, err := s.service.SubmitDocuments(s.ctx, alice, "QmSecond")
		s.Require().NoError(err)
		s.Equal("QmSecond", *student.DocumentsReference)
		s.True(student.Verified)
	})

	s.Equal(2.0, testutil.ToFloat64(s.metrics.DocumentsSubmitted))
}

func (s *StudentServiceSuite) TestSubmitDocumentBundle() {
	s.register(alice, "Alice")

	s.Run("dedupes and joins in order", func() {
		student, err := s.service.SubmitDocumentBundle(s.ctx, alice, []string{" QmA ", "QmB", "QmA", ""})
		s.Require().NoError(err)
		s.Equal("QmA,QmB", *student.DocumentsReference)
		s.Equal([]string{"QmA", "QmB"}, student.DocumentReferences())
	})

	s.Run("entry containing the separator is invalid", func() {
		_, err := s.service.SubmitDocumentBundle(s.ctx, alice, []string{"QmC", "QmD,QmE"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		student, err := s.service.GetStudent(s.ctx, alice)
		s.Require().NoError(err)
		s.Equal([]string{"QmA", "QmB"}, student.DocumentReferences())
	})

	s.Run("all blank is invalid", func() {
		_, err := s.service.SubmitDocumentBundle(s.ctx, alice, []string{" ", ""})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		student, err := s.service.GetStudent(s.ctx, alice)
		s.Require().NoError(err)
		s.Equal("QmA,QmB", *student.DocumentsReference)
	})
}

func (s *StudentServiceSuite) TestVerifyStudent() {
	s.register(alice, "Alice")

	s.Run("non-verifier is unauthorized", func() {
		_, err := s.service.VerifyStudent(s.ctx, bob, alice)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		student, err := s.service.GetStudent(s.ctx, alice)
		s.Require().NoError(err)
		s.False(student.Verified)
		s.Contains(s.events(alice), string(audit.EventAccessDenied))
	})

	s.Run("unknown student", func() {
		_, err := s.service.VerifyStudent(s.ctx, verifier, bob)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotRegistered))
	})

	s.Run("verifier verifies once", func() {
		verifiedAt := s.clock.Now()
		student, err := s.service.VerifyStudent(s.ctx, verifier, alice)
		s.Require().NoError(err)
		s.True(student.Verified)
		s.Require().NotNil(student.VerifiedAt)
		s.Equal(verifiedAt, *student.VerifiedAt)

		s.clock.Advance(time.Hour)
		again, err := s.service.VerifyStudent(s.ctx, verifier, alice)
		s.Require().NoError(err)
		s.True(again.Verified)
		s.Equal(verifiedAt, *again.VerifiedAt)
	})

	s.Equal(1.0, testutil.ToFloat64(s.metrics.StudentsVerified))
	verifiedEvents := 0
	for _, action := range s.events(alice) {
		if action == string(audit.EventStudentVerified) {
			verifiedEvents++
		}
	}
	s.Equal(1, verifiedEvents)
}

func (s *StudentServiceSuite) TestListUnverified() {
	s.register(bob, "Bob")
	s.register(alice, "Alice")
	s.register("0xcarol", "Carol")

	_, err := s.service.VerifyStudent(s.ctx, verifier, alice)
	s.Require().NoError(err)

	queue, err := s.service.ListUnverified(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(queue, 2)
	s.Equal(bob, queue[0].Identity)
	s.Equal(id.Identity("0xcarol"), queue[1].Identity)
}
