// Package service implements the access control manager: one immutable
// administrator and an additive set of verifiers.
package service

import (
	"context"
	"errors"

	"edugrant/internal/access/models"
	"edugrant/internal/platform/auditlog"
	"edugrant/internal/platform/metrics"
	id "edugrant/pkg/domain"
	dErrors "edugrant/pkg/domain-errors"
	audit "edugrant/pkg/platform/audit"
	"edugrant/pkg/platform/clock"
	"edugrant/pkg/platform/sentinel"
)

type VerifierStore interface {
	Add(ctx context.Context, v models.Verifier) error
	Exists(ctx context.Context, identity id.Identity) bool
	List(ctx context.Context) []models.Verifier
}

type Service struct {
	admin     id.Identity
	verifiers VerifierStore
	tx        StoreTx
	clock     clock.Clock
	audit     *auditlog.Emitter
	metrics   *metrics.Metrics
}

// New constructs the access control manager. The administrator is fixed for
// the lifetime of the service.
func New(admin id.Identity, verifiers VerifierStore, opts ...Option) (*Service, error) {
	admin, err := id.ParseIdentity(string(admin))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "administrator identity is invalid")
	}
	if verifiers == nil {
		return nil, errors.New("verifier store is required")
	}
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.defaults()
	return &Service{
		admin:     admin,
		verifiers: verifiers,
		tx:        cfg.tx,
		clock:     cfg.clock,
		audit:     auditlog.New(cfg.logger, cfg.auditPublisher),
		metrics:   cfg.metrics,
	}, nil
}

func (s *Service) Administrator() id.Identity {
	return s.admin
}

func (s *Service) IsAdministrator(_ context.Context, identity id.Identity) bool {
	return identity.Normalize() == s.admin
}

func (s *Service) IsVerifier(ctx context.Context, identity id.Identity) bool {
	var ok bool
	_ = s.tx.View(ctx, func(ctx context.Context) error {
		ok = s.verifiers.Exists(ctx, identity.Normalize())
		return nil
	})
	return ok
}

// AddVerifier grants the verifier role. Only the administrator may call it.
// Re-adding an existing verifier succeeds without recording anything.
func (s *Service) AddVerifier(ctx context.Context, caller, identity id.Identity) error {
	caller = caller.Normalize()
	if !s.IsAdministrator(ctx, caller) {
		s.recordDenied(ctx, caller, "add_verifier")
		return dErrors.New(dErrors.CodeUnauthorized, "only the administrator can add verifiers")
	}
	identity, err := id.ParseIdentity(string(identity))
	if err != nil {
		return err
	}

	added := false
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		v := models.Verifier{Identity: identity, AddedBy: caller, AddedAt: s.clock.Now()}
		if err := s.verifiers.Add(ctx, v); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyExists) {
				return nil
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add verifier")
		}
		s.audit.Record(ctx, audit.Event{
			Action:  string(audit.EventVerifierAdded),
			ActorID: caller,
			Subject: identity,
		})
		added = true
		return nil
	})
	if err != nil {
		return err
	}
	if added {
		s.metrics.IncrementVerifiersAdded()
	}
	return nil
}

// ListVerifiers returns verifier identities in the order they were granted.
func (s *Service) ListVerifiers(ctx context.Context) ([]id.Identity, error) {
	var out []id.Identity
	err := s.tx.View(ctx, func(ctx context.Context) error {
		for _, v := range s.verifiers.List(ctx) {
			out = append(out, v.Identity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) recordDenied(ctx context.Context, caller id.Identity, operation string) {
	s.audit.Record(ctx, audit.Event{
		Action:  string(audit.EventAccessDenied),
		ActorID: caller,
		Subject: caller,
		Reason:  operation,
	})
}
