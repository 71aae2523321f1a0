// Package service implements the disbursement engine. It composes the student
// registry, the scholarship registry and custody into the apply operation,
// which either completes in full (slot reserved and funds transferred) or
// leaves no trace apart from a rejection audit event.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"edugrant/internal/custody"
	"edugrant/internal/disbursement/models"
	"edugrant/internal/platform/auditlog"
	"edugrant/internal/platform/metrics"
	scholarshipmodels "edugrant/internal/scholarship/models"
	studentmodels "edugrant/internal/student/models"
	id "edugrant/pkg/domain"
	dErrors "edugrant/pkg/domain-errors"
	audit "edugrant/pkg/platform/audit"
	"edugrant/pkg/platform/clock"
)

type StudentReader interface {
	GetStudent(ctx context.Context, identity id.Identity) (*studentmodels.Student, error)
}

type ScholarshipReserver interface {
	GetScholarship(ctx context.Context, scholarshipID id.ScholarshipID) (*scholarshipmodels.Scholarship, error)
	ReserveSlot(ctx context.Context, scholarshipID id.ScholarshipID) (*scholarshipmodels.Scholarship, error)
}

type AdminChecker interface {
	IsAdministrator(ctx context.Context, identity id.Identity) bool
}

type HistoryStore interface {
	Append(ctx context.Context, d models.Disbursement) error
	List(ctx context.Context) []models.Disbursement
	ListByStudent(ctx context.Context, student id.Identity) []models.Disbursement
}

// resultDisbursed labels successful applications in metrics.
const resultDisbursed = "disbursed"

type Service struct {
	students     StudentReader
	scholarships ScholarshipReserver
	admins       AdminChecker
	custody      custody.Custody
	history      HistoryStore
	tx           StoreTx
	clock        clock.Clock
	audit        *auditlog.Emitter
	metrics      *metrics.Metrics
}

func New(students StudentReader, scholarships ScholarshipReserver, admins AdminChecker, assets custody.Custody, history HistoryStore, opts ...Option) (*Service, error) {
	switch {
	case students == nil:
		return nil, errors.New("student reader is required")
	case scholarships == nil:
		return nil, errors.New("scholarship reserver is required")
	case admins == nil:
		return nil, errors.New("admin checker is required")
	case assets == nil:
		return nil, errors.New("custody is required")
	case history == nil:
		return nil, errors.New("history store is required")
	}
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.applyDefaults()
	return &Service{
		students:     students,
		scholarships: scholarships,
		admins:       admins,
		custody:      assets,
		history:      history,
		tx:           cfg.tx,
		clock:        cfg.clock,
		audit:        auditlog.New(cfg.logger, cfg.auditPublisher),
		metrics:      cfg.metrics,
	}, nil
}

// ApplyForScholarship pays the caller one share of the scholarship.
//
// Checks run in order: registered, verified, scholarship exists, slot available,
// transfer succeeds. Any failure rolls back the whole operation.
func (s *Service) ApplyForScholarship(ctx context.Context, caller id.Identity, scholarshipID id.ScholarshipID) (*models.Disbursement, error) {
	caller = caller.Normalize()
	start := time.Now()
	defer s.metrics.ObserveApply(start)

	var disbursement *models.Disbursement
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		student, err := s.students.GetStudent(ctx, caller)
		if err != nil {
			return err
		}
		if !student.Verified {
			return dErrors.New(dErrors.CodeNotVerified, "student is not verified")
		}
		if _, err := s.scholarships.GetScholarship(ctx, scholarshipID); err != nil {
			return err
		}
		sch, err := s.scholarships.ReserveSlot(ctx, scholarshipID)
		if err != nil {
			return err
		}
		receipt, err := s.custody.Transfer(ctx, caller, sch.AmountPerRecipient)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeCustodyFailure, "custody transfer failed")
		}

		d := models.Disbursement{
			ID:            uuid.New(),
			Student:       caller,
			ScholarshipID: scholarshipID,
			Amount:        receipt.Amount,
			Receipt:       receipt,
			At:            s.clock.Now(),
		}
		if err := s.history.Append(ctx, d); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record disbursement")
		}
		s.audit.Record(ctx, audit.Event{
			Action:        string(audit.EventScholarshipDisbursed),
			ActorID:       caller,
			Subject:       caller,
			ScholarshipID: &scholarshipID,
			Amount:        d.Amount,
		})
		disbursement = &d
		return nil
	})
	if err != nil {
		code := dErrors.CodeOf(err)
		s.metrics.RecordApplication(string(code))
		s.audit.Record(ctx, audit.Event{
			Action:        string(audit.EventApplicationRejected),
			ActorID:       caller,
			Subject:       caller,
			ScholarshipID: &scholarshipID,
			Reason:        string(code),
		})
		return nil, err
	}
	s.metrics.RecordApplication(resultDisbursed)
	s.metrics.AddDisbursed(int64(disbursement.Amount))
	return disbursement, nil
}

// DepositFunds credits the fund pool. Only the administrator may deposit.
func (s *Service) DepositFunds(ctx context.Context, caller id.Identity, amount id.Amount) (custody.Receipt, error) {
	caller = caller.Normalize()
	if !s.admins.IsAdministrator(ctx, caller) {
		s.audit.Record(ctx, audit.Event{
			Action:  string(audit.EventAccessDenied),
			ActorID: caller,
			Subject: caller,
			Reason:  "deposit_funds",
		})
		return custody.Receipt{}, dErrors.New(dErrors.CodeUnauthorized, "only the administrator can deposit funds")
	}
	if !amount.IsPositive() {
		return custody.Receipt{}, dErrors.New(dErrors.CodeInvalidInput, "deposit amount must be positive")
	}

	var receipt custody.Receipt
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		r, err := s.custody.Deposit(ctx, caller, amount)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeCustodyFailure, "custody deposit failed")
		}
		s.audit.Record(ctx, audit.Event{
			Action:  string(audit.EventFundsDeposited),
			ActorID: caller,
			Subject: caller,
			Amount:  amount,
		})
		receipt = r
		return nil
	})
	if err != nil {
		return custody.Receipt{}, err
	}
	s.metrics.AddDeposited(int64(amount))
	return receipt, nil
}

func (s *Service) FundBalance(ctx context.Context) (id.Amount, error) {
	var balance id.Amount
	err := s.tx.View(ctx, func(ctx context.Context) error {
		b, err := s.custody.Balance(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeCustodyFailure, "custody balance unavailable")
		}
		balance = b
		return nil
	})
	return balance, err
}

// ListDisbursements returns successful payouts in the order they happened.
func (s *Service) ListDisbursements(ctx context.Context) ([]models.Disbursement, error) {
	var out []models.Disbursement
	err := s.tx.View(ctx, func(ctx context.Context) error {
		out = s.history.List(ctx)
		return nil
	})
	return out, err
}

func (s *Service) ListDisbursementsFor(ctx context.Context, student id.Identity) ([]models.Disbursement, error) {
	var out []models.Disbursement
	err := s.tx.View(ctx, func(ctx context.Context) error {
		out = s.history.ListByStudent(ctx, student.Normalize())
		return nil
	})
	return out, err
}
