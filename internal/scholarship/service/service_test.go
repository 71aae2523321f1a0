package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"edugrant/internal/platform/metrics"
	"edugrant/internal/scholarship/models"
	"edugrant/internal/scholarship/store"
	id "edugrant/pkg/domain"
	dErrors "edugrant/pkg/domain-errors"
	audit "edugrant/pkg/platform/audit"
	"edugrant/pkg/platform/audit/publisher"
	auditmemory "edugrant/pkg/platform/audit/store/memory"
	"edugrant/pkg/platform/clock"
	"edugrant/pkg/platform/tx"
)

const admin = id.Identity("0xadmin")

type stubAdmins struct{}

func (stubAdmins) IsAdministrator(_ context.Context, identity id.Identity) bool {
	return identity == admin
}

type ScholarshipServiceSuite struct {
	suite.Suite
	ctx        context.Context
	clock      *clock.Fake
	coord      *tx.Coordinator
	store      *store.InMemory
	auditStore *auditmemory.InMemoryStore
	metrics    *metrics.Metrics
	service    *Service
}

func TestScholarshipServiceSuite(t *testing.T) {
	suite.Run(t, new(ScholarshipServiceSuite))
}

func (s *ScholarshipServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clock.NewFake(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	s.coord = tx.NewCoordinator()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.store = store.NewInMemory()
	svc, err := New(s.store, stubAdmins{},
		WithTx(s.coord),
		WithClock(s.clock),
		WithMetrics(s.metrics),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ScholarshipServiceSuite) create(name string, amount id.Amount, in time.Duration, maxRecipients int) id.ScholarshipID {
	sid, err := s.service.CreateScholarship(s.ctx, admin, name, amount, s.clock.Now().Add(in), maxRecipients)
	s.Require().NoError(err)
	return sid
}

func (s *ScholarshipServiceSuite) actions() []string {
	events, err := s.auditStore.ListAll(s.ctx)
	s.Require().NoError(err)
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func (s *ScholarshipServiceSuite) TestCreateScholarship() {
	s.Run("administrator creates with sequential ids", func() {
		s.Equal(id.ScholarshipID(0), s.create("Grant A", 500, 24*time.Hour, 2))
		s.Equal(id.ScholarshipID(1), s.create("Grant B", 100, 24*time.Hour, 1))

		sch, err := s.service.GetScholarship(s.ctx, 0)
		s.Require().NoError(err)
		s.Equal("Grant A", sch.Name)
		s.Equal(id.Amount(500), sch.AmountPerRecipient)
		s.Equal(0, sch.CurrentRecipients)
		s.True(sch.Active)
		s.Equal(2.0, testutil.ToFloat64(s.metrics.ScholarshipsCreated))
	})

	s.Run("non-administrator is unauthorized", func() {
		_, err := s.service.CreateScholarship(s.ctx, "0xalice", "Grant C", 100, s.clock.Now().Add(time.Hour), 1)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Contains(s.actions(), string(audit.EventAccessDenied))
	})

	invalid := []struct {
		name     string
		title    string
		amount   id.Amount
		deadline time.Duration
		max      int
	}{
		{"deadline now", "X", 100, 0, 1},
		{"deadline in the past", "X", 100, -time.Hour, 1},
		{"zero amount", "X", 0, time.Hour, 1},
		{"negative amount", "X", -5, time.Hour, 1},
		{"zero recipients", "X", 100, time.Hour, 0},
		{"blank name", "  ", 100, time.Hour, 1},
	}
	for _, tt := range invalid {
		s.Run(tt.name, func() {
			_, err := s.service.CreateScholarship(s.ctx, admin, tt.title, tt.amount, s.clock.Now().Add(tt.deadline), tt.max)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), "got %v", err)
		})
	}

	all, err := s.service.ListScholarships(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *ScholarshipServiceSuite) TestGetUnknown() {
	_, err := s.service.GetScholarship(s.ctx, 42)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ScholarshipServiceSuite) TestReserveSlot() {
	sid := s.create("Grant A", 500, 24*time.Hour, 2)

	s.Run("reserves until capacity", func() {
		first, err := s.service.ReserveSlot(s.ctx, sid)
		s.Require().NoError(err)
		s.Equal(1, first.CurrentRecipients)
		s.True(first.Active)

		second, err := s.service.ReserveSlot(s.ctx, sid)
		s.Require().NoError(err)
		s.Equal(2, second.CurrentRecipients)
		s.False(second.Active)
		s.Equal(models.StatusFull, second.Status(s.clock.Now()))
		s.Contains(s.actions(), string(audit.EventScholarshipFilled))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ScholarshipsFilled))
	})

	s.Run("full scholarship is closed", func() {
		_, err := s.service.ReserveSlot(s.ctx, sid)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeScholarshipClosed))
	})

	s.Run("unknown id is not found", func() {
		_, err := s.service.ReserveSlot(s.ctx, 99)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ScholarshipServiceSuite) TestDeadline() {
	sid := s.create("Grant A", 500, time.Hour, 5)

	s.clock.Advance(59 * time.Minute)
	_, err := s.service.ReserveSlot(s.ctx, sid)
	s.Require().NoError(err)

	s.clock.Advance(time.Minute)
	_, err = s.service.ReserveSlot(s.ctx, sid)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeScholarshipClosed))

	sch, err := s.service.GetScholarship(s.ctx, sid)
	s.Require().NoError(err)
	s.Equal(1, sch.CurrentRecipients)
	s.False(sch.Active, "reads report an expired scholarship as inactive")
	s.Equal(models.StatusExpired, sch.Status(s.clock.Now()))

	all, err := s.service.ListScholarships(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.False(all[0].Active)

	// the stored record is untouched; only capacity deactivates it
	stored, err := s.store.FindByID(s.ctx, sid)
	s.Require().NoError(err)
	s.True(stored.Active)

	active, err := s.service.ListActiveScholarships(s.ctx)
	s.Require().NoError(err)
	s.Empty(active)
}

func (s *ScholarshipServiceSuite) TestListActiveScholarships() {
	open := s.create("Open", 100, 24*time.Hour, 3)
	full := s.create("Full", 100, 24*time.Hour, 1)
	short := s.create("Short", 100, time.Minute, 3)
	later := s.create("Later", 100, 48*time.Hour, 2)

	_, err := s.service.ReserveSlot(s.ctx, full)
	s.Require().NoError(err)
	s.clock.Advance(2 * time.Minute)

	active, err := s.service.ListActiveScholarships(s.ctx)
	s.Require().NoError(err)
	ids := make([]id.ScholarshipID, 0, len(active))
	for _, sch := range active {
		ids = append(ids, sch.ID)
	}
	s.Equal([]id.ScholarshipID{open, later}, ids)
	s.NotContains(ids, short)
}

func (s *ScholarshipServiceSuite) TestReservationRollsBackWithOuterTx() {
	sid := s.create("Grant A", 500, time.Hour, 1)

	err := s.coord.RunInTx(s.ctx, func(ctx context.Context) error {
		reserved, err := s.service.ReserveSlot(ctx, sid)
		s.Require().NoError(err)
		s.False(reserved.Active)
		return errors.New("custody rejected")
	})
	s.Require().Error(err)

	sch, err := s.service.GetScholarship(s.ctx, sid)
	s.Require().NoError(err)
	s.Equal(0, sch.CurrentRecipients)
	s.True(sch.Active)
	s.NotContains(s.actions(), string(audit.EventScholarshipFilled))
	s.Equal(0.0, testutil.ToFloat64(s.metrics.ScholarshipsFilled))
}
