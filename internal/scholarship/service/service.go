// Package service implements the scholarship registry: creation by the
// administrator, listing, and the capacity reservation that the disbursement
// engine performs inside its transaction.
package service

import (
	"context"
	"errors"
	"time"

	"edugrant/internal/platform/auditlog"
	"edugrant/internal/platform/metrics"
	"edugrant/internal/scholarship/models"
	id "edugrant/pkg/domain"
	dErrors "edugrant/pkg/domain-errors"
	audit "edugrant/pkg/platform/audit"
	"edugrant/pkg/platform/clock"
	"edugrant/pkg/platform/sentinel"
	"edugrant/pkg/platform/tx"
	"edugrant/pkg/platform/validation"
)

type ScholarshipStore interface {
	Create(ctx context.Context, scholarship *models.Scholarship) (id.ScholarshipID, error)
	FindByID(ctx context.Context, scholarshipID id.ScholarshipID) (*models.Scholarship, error)
	Execute(ctx context.Context, scholarshipID id.ScholarshipID, validate func(*models.Scholarship) error, mutate func(*models.Scholarship)) (*models.Scholarship, error)
	List(ctx context.Context) []*models.Scholarship
}

type AdminChecker interface {
	IsAdministrator(ctx context.Context, identity id.Identity) bool
}

type Service struct {
	scholarships ScholarshipStore
	admins       AdminChecker
	tx           StoreTx
	clock        clock.Clock
	audit        *auditlog.Emitter
	metrics      *metrics.Metrics
}

func New(scholarships ScholarshipStore, admins AdminChecker, opts ...Option) (*Service, error) {
	if scholarships == nil {
		return nil, errors.New("scholarship store is required")
	}
	if admins == nil {
		return nil, errors.New("admin checker is required")
	}
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.applyDefaults()
	return &Service{
		scholarships: scholarships,
		admins:       admins,
		tx:           cfg.tx,
		clock:        cfg.clock,
		audit:        auditlog.New(cfg.logger, cfg.auditPublisher),
		metrics:      cfg.metrics,
	}, nil
}

// CreateScholarship registers a new scholarship and returns its id.
// The deadline must lie strictly in the future.
func (s *Service) CreateScholarship(ctx context.Context, caller id.Identity, name string, amountPerRecipient id.Amount, deadline time.Time, maxRecipients int) (id.ScholarshipID, error) {
	caller = caller.Normalize()
	if !s.admins.IsAdministrator(ctx, caller) {
		s.audit.Record(ctx, audit.Event{
			Action:  string(audit.EventAccessDenied),
			ActorID: caller,
			Subject: caller,
			Reason:  "create_scholarship",
		})
		return 0, dErrors.New(dErrors.CodeUnauthorized, "only the administrator can create scholarships")
	}
	cmd := models.CreateCommand{
		Name:               name,
		AmountPerRecipient: int64(amountPerRecipient),
		Deadline:           deadline,
		MaxRecipients:      maxRecipients,
	}
	cmd.Normalize()
	if err := validation.Struct(cmd); err != nil {
		return 0, err
	}

	var created id.ScholarshipID
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := s.clock.Now()
		if !deadline.After(now) {
			return dErrors.New(dErrors.CodeInvalidInput, "deadline must be in the future")
		}
		scholarship := models.NewScholarship(cmd, now)
		sid, err := s.scholarships.Create(ctx, scholarship)
		if err != nil {
			return wrapScholarshipErr(err)
		}
		s.audit.Record(ctx, audit.Event{
			Action:        string(audit.EventScholarshipCreated),
			ActorID:       caller,
			Subject:       caller,
			ScholarshipID: &sid,
			Amount:        scholarship.AmountPerRecipient,
		})
		created = sid
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.metrics.IncrementScholarshipsCreated()
	return created, nil
}

func (s *Service) GetScholarship(ctx context.Context, scholarshipID id.ScholarshipID) (*models.Scholarship, error) {
	var found *models.Scholarship
	err := s.tx.View(ctx, func(ctx context.Context) error {
		sch, err := s.scholarships.FindByID(ctx, scholarshipID)
		if err != nil {
			return wrapScholarshipErr(err)
		}
		found = sch.AsOf(s.clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ListActiveScholarships returns scholarships accepting applications right now,
// in ascending id order.
func (s *Service) ListActiveScholarships(ctx context.Context) ([]*models.Scholarship, error) {
	var active []*models.Scholarship
	err := s.tx.View(ctx, func(ctx context.Context) error {
		now := s.clock.Now()
		for _, sch := range s.scholarships.List(ctx) {
			if sch.IsOpen(now) {
				active = append(active, sch.AsOf(now))
			}
		}
		return nil
	})
	return active, err
}

// ListScholarships returns every scholarship, closed ones included.
func (s *Service) ListScholarships(ctx context.Context) ([]*models.Scholarship, error) {
	var all []*models.Scholarship
	err := s.tx.View(ctx, func(ctx context.Context) error {
		now := s.clock.Now()
		for _, sch := range s.scholarships.List(ctx) {
			all = append(all, sch.AsOf(now))
		}
		return nil
	})
	return all, err
}

// ReserveSlot admits one recipient if the scholarship is active, before its
// deadline and below capacity. Called inside the applicant's transaction, the
// reservation is undone if anything later in that transaction fails.
func (s *Service) ReserveSlot(ctx context.Context, scholarshipID id.ScholarshipID) (*models.Scholarship, error) {
	var reserved *models.Scholarship
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := s.clock.Now()
		filled := false
		sch, err := s.scholarships.Execute(ctx, scholarshipID,
			func(sch *models.Scholarship) error {
				return sch.CanReserve(now)
			},
			func(sch *models.Scholarship) {
				filled = sch.ApplyReservation()
			},
		)
		if err != nil {
			return wrapScholarshipErr(err)
		}
		if filled {
			s.audit.Record(ctx, audit.Event{
				Action:        string(audit.EventScholarshipFilled),
				ScholarshipID: &sch.ID,
			})
			tx.AfterCommit(ctx, s.metrics.IncrementScholarshipsFilled)
		}
		reserved = sch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reserved, nil
}

func wrapScholarshipErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "scholarship not found")
	case errors.Is(err, sentinel.ErrExhausted):
		return dErrors.Wrap(err, dErrors.CodeScholarshipClosed, "scholarship has reached capacity")
	case errors.Is(err, sentinel.ErrExpired):
		return dErrors.Wrap(err, dErrors.CodeScholarshipClosed, "scholarship deadline has passed")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "scholarship store failure")
}
