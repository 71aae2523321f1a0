package service

import (
	"context"
	"errors"

	"edugrant/internal/platform/auditlog"
	"edugrant/internal/platform/metrics"
	"edugrant/internal/student/models"
	id "edugrant/pkg/domain"
	dErrors "edugrant/pkg/domain-errors"
	audit "edugrant/pkg/platform/audit"
	"edugrant/pkg/platform/clock"
	"edugrant/pkg/platform/sentinel"
	"edugrant/pkg/platform/validation"
)

type StudentStore interface {
	Create(ctx context.Context, student *models.Student) error
	FindByIdentity(ctx context.Context, identity id.Identity) (*models.Student, error)
	Execute(ctx context.Context, identity id.Identity, validate func(*models.Student) error, mutate func(*models.Student)) (*models.Student, error)
	ListUnverified(ctx context.Context) []*models.Student
}

// VerifierChecker answers whether an identity holds the verifier role.
type VerifierChecker interface {
	IsVerifier(ctx context.Context, identity id.Identity) bool
}

// Service is the student registry.
type Service struct {
	students  StudentStore
	verifiers VerifierChecker
	tx        StoreTx
	clock     clock.Clock
	audit     *auditlog.Emitter
	metrics   *metrics.Metrics
}

func New(students StudentStore, verifiers VerifierChecker, opts ...Option) (*Service, error) {
	if students == nil {
		return nil, errors.New("student store is required")
	}
	if verifiers == nil {
		return nil, errors.New("verifier checker is required")
	}
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.applyDefaults()
	return &Service{
		students:  students,
		verifiers: verifiers,
		tx:        cfg.tx,
		clock:     cfg.clock,
		audit:     auditlog.New(cfg.logger, cfg.auditPublisher),
		metrics:   cfg.metrics,
	}, nil
}

// RegisterStudent creates the caller's record, unverified and without documents.
func (s *Service) RegisterStudent(ctx context.Context, caller id.Identity, displayName, universityID string) (*models.Student, error) {
	caller, err := id.ParseIdentity(string(caller))
	if err != nil {
		return nil, err
	}
	cmd := models.RegisterCommand{DisplayName: displayName, UniversityID: universityID}
	cmd.Normalize()
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}

	var registered *models.Student
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		student := models.NewStudent(caller, cmd, s.clock.Now())
		if err := s.students.Create(ctx, student); err != nil {
			return wrapStudentErr(err)
		}
		s.audit.Record(ctx, audit.Event{
			Action:  string(audit.EventStudentRegistered),
			ActorID: caller,
			Subject: caller,
		})
		registered = student
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementStudentsRegistered()
	return registered, nil
}

// SubmitDocuments stores an opaque reference to the caller's off-ledger documents,
// replacing any earlier one.
func (s *Service) SubmitDocuments(ctx context.Context, caller id.Identity, reference string) (*models.Student, error) {
	cmd := models.DocumentsCommand{Reference: reference}
	cmd.Normalize()
	return s.submitDocuments(ctx, caller.Normalize(), cmd.Reference, func() error {
		return validation.Struct(cmd)
	})
}

// SubmitDocumentBundle stores several references as one. Blank and repeated
// references are dropped; the remaining order is kept.
func (s *Service) SubmitDocumentBundle(ctx context.Context, caller id.Identity, references []string) (*models.Student, error) {
	cmd := models.BundleCommand{References: references}
	cmd.Normalize()
	return s.submitDocuments(ctx, caller.Normalize(), cmd.Reference(), func() error {
		return validation.Struct(cmd)
	})
}

// submitDocuments validates inside the store callback so an unregistered
// caller is reported before bad input.
func (s *Service) submitDocuments(ctx context.Context, caller id.Identity, reference string, validate func() error) (*models.Student, error) {
	var updated *models.Student
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		student, err := s.students.Execute(ctx, caller,
			func(*models.Student) error {
				return validate()
			},
			func(st *models.Student) {
				st.ApplyDocuments(reference)
			},
		)
		if err != nil {
			return wrapStudentErr(err)
		}
		s.audit.Record(ctx, audit.Event{
			Action:  string(audit.EventDocumentsSubmitted),
			ActorID: caller,
			Subject: caller,
		})
		updated = student
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementDocumentsSubmitted()
	return updated, nil
}

// VerifyStudent marks a registered student verified. Verifying twice is a no-op.
func (s *Service) VerifyStudent(ctx context.Context, caller, identity id.Identity) (*models.Student, error) {
	caller, identity = caller.Normalize(), identity.Normalize()
	var (
		verified *models.Student
		changed  bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if !s.verifiers.IsVerifier(ctx, caller) {
			return dErrors.New(dErrors.CodeUnauthorized, "only verifiers can verify students")
		}
		now := s.clock.Now()
		student, err := s.students.Execute(ctx, identity,
			func(*models.Student) error { return nil },
			func(st *models.Student) {
				changed = st.ApplyVerification(now)
			},
		)
		if err != nil {
			return wrapStudentErr(err)
		}
		if changed {
			s.audit.Record(ctx, audit.Event{
				Action:  string(audit.EventStudentVerified),
				ActorID: caller,
				Subject: identity,
			})
		}
		verified = student
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.audit.Record(ctx, audit.Event{
				Action:  string(audit.EventAccessDenied),
				ActorID: caller,
				Subject: identity,
				Reason:  "verify_student",
			})
		}
		return nil, err
	}
	if changed {
		s.metrics.IncrementStudentsVerified()
	}
	return verified, nil
}

// GetStudent returns a copy of the record, or not_registered.
func (s *Service) GetStudent(ctx context.Context, identity id.Identity) (*models.Student, error) {
	var student *models.Student
	err := s.tx.View(ctx, func(ctx context.Context) error {
		found, err := s.students.FindByIdentity(ctx, identity.Normalize())
		if err != nil {
			return wrapStudentErr(err)
		}
		student = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return student, nil
}

// ListUnverified returns the verification queue in registration order.
func (s *Service) ListUnverified(ctx context.Context) ([]*models.Student, error) {
	var queue []*models.Student
	err := s.tx.View(ctx, func(ctx context.Context) error {
		queue = s.students.ListUnverified(ctx)
		return nil
	})
	return queue, err
}

func wrapStudentErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotRegistered, "student is not registered")
	case errors.Is(err, sentinel.ErrAlreadyExists):
		return dErrors.New(dErrors.CodeAlreadyRegistered, "student is already registered")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "student store failure")
}
