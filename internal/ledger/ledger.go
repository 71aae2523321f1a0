// Package ledger wires the access control manager, the student and scholarship
// registries, custody and the disbursement engine around one transaction
// coordinator, and exposes their operations as a single object.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	accessservice "edugrant/internal/access/service"
	accessstore "edugrant/internal/access/store"
	"edugrant/internal/custody"
	"edugrant/internal/custody/pool"
	disbursementmodels "edugrant/internal/disbursement/models"
	disbursementservice "edugrant/internal/disbursement/service"
	disbursementstore "edugrant/internal/disbursement/store"
	"edugrant/internal/platform/metrics"
	scholarshipmodels "edugrant/internal/scholarship/models"
	scholarshipservice "edugrant/internal/scholarship/service"
	scholarshipstore "edugrant/internal/scholarship/store"
	studentmodels "edugrant/internal/student/models"
	studentservice "edugrant/internal/student/service"
	studentstore "edugrant/internal/student/store"
	id "edugrant/pkg/domain"
	audit "edugrant/pkg/platform/audit"
	"edugrant/pkg/platform/circuit"
	"edugrant/pkg/platform/clock"
	"edugrant/pkg/platform/tx"
	"edugrant/pkg/requestcontext"
)

// Config holds the fixed parameters of a ledger instance.
type Config struct {
	Administrator    id.Identity
	InitialVerifiers []id.Identity
	OpeningBalance   id.Amount
	Breaker          BreakerConfig
}

type BreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	Cooldown         time.Duration
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type options struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher AuditPublisher
	clock     clock.Clock
	custody   custody.Custody
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithCustody replaces the in-memory pool with another custody backend.
func WithCustody(c custody.Custody) Option {
	return func(o *options) { o.custody = c }
}

type Ledger struct {
	coord         *tx.Coordinator
	access        *accessservice.Service
	students      *studentservice.Service
	scholarships  *scholarshipservice.Service
	disbursements *disbursementservice.Service
	custody       *custody.Guarded
	pool          *pool.Pool
}

// New builds a ledger, grants the initial verifiers and funds the pool with the
// opening balance on the administrator's behalf.
func New(ctx context.Context, cfg Config, opts ...Option) (*Ledger, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = clock.NewMonotonic(clock.System{})
	}

	coord := tx.NewCoordinator()

	l := &Ledger{coord: coord}
	backend := o.custody
	if backend == nil {
		l.pool = pool.New(pool.WithClock(o.clock))
		backend = l.pool
	}
	l.custody = custody.NewGuarded(backend,
		custody.WithBreaker(circuit.New("custody",
			circuit.WithFailureThreshold(cfg.Breaker.FailureThreshold),
			circuit.WithSuccessThreshold(cfg.Breaker.SuccessThreshold),
		)),
		custody.WithCooldown(cfg.Breaker.Cooldown),
		custody.WithClock(o.clock),
		custody.WithLogger(o.logger),
		custody.WithMetrics(o.metrics),
	)

	var err error
	l.access, err = accessservice.New(cfg.Administrator, accessstore.NewInMemory(),
		accessservice.WithTx(coord),
		accessservice.WithClock(o.clock),
		accessservice.WithLogger(o.logger),
		accessservice.WithMetrics(o.metrics),
		accessservice.WithAuditPublisher(o.publisher),
	)
	if err != nil {
		return nil, fmt.Errorf("access control: %w", err)
	}
	l.students, err = studentservice.New(studentstore.NewInMemory(), l.access,
		studentservice.WithTx(coord),
		studentservice.WithClock(o.clock),
		studentservice.WithLogger(o.logger),
		studentservice.WithMetrics(o.metrics),
		studentservice.WithAuditPublisher(o.publisher),
	)
	if err != nil {
		return nil, fmt.Errorf("student registry: %w", err)
	}
	l.scholarships, err = scholarshipservice.New(scholarshipstore.NewInMemory(), l.access,
		scholarshipservice.WithTx(coord),
		scholarshipservice.WithClock(o.clock),
		scholarshipservice.WithLogger(o.logger),
		scholarshipservice.WithMetrics(o.metrics),
		scholarshipservice.WithAuditPublisher(o.publisher),
	)
	if err != nil {
		return nil, fmt.Errorf("scholarship registry: %w", err)
	}
	l.disbursements, err = disbursementservice.New(l.students, l.scholarships, l.access, l.custody, disbursementstore.NewInMemory(),
		disbursementservice.WithTx(coord),
		disbursementservice.WithClock(o.clock),
		disbursementservice.WithLogger(o.logger),
		disbursementservice.WithMetrics(o.metrics),
		disbursementservice.WithAuditPublisher(o.publisher),
	)
	if err != nil {
		return nil, fmt.Errorf("disbursement engine: %w", err)
	}

	// Seeding events share one correlation id.
	ctx = requestcontext.EnsureRequestID(ctx)
	admin := l.access.Administrator()
	for _, v := range cfg.InitialVerifiers {
		if err := l.access.AddVerifier(ctx, admin, v); err != nil {
			return nil, fmt.Errorf("seed verifier %s: %w", v, err)
		}
	}
	if cfg.OpeningBalance > 0 {
		if _, err := l.disbursements.DepositFunds(ctx, admin, cfg.OpeningBalance); err != nil {
			return nil, fmt.Errorf("opening balance: %w", err)
		}
	}
	return l, nil
}

// Access control

func (l *Ledger) Administrator() id.Identity { return l.access.Administrator() }

func (l *Ledger) AddVerifier(ctx context.Context, caller, identity id.Identity) error {
	return l.access.AddVerifier(ctx, caller, identity)
}

func (l *Ledger) IsVerifier(ctx context.Context, identity id.Identity) bool {
	return l.access.IsVerifier(ctx, identity)
}

func (l *Ledger) IsAdministrator(ctx context.Context, identity id.Identity) bool {
	return l.access.IsAdministrator(ctx, identity)
}

func (l *Ledger) ListVerifiers(ctx context.Context) ([]id.Identity, error) {
	return l.access.ListVerifiers(ctx)
}

// Student registry

func (l *Ledger) RegisterStudent(ctx context.Context, caller id.Identity, displayName, universityID string) (*studentmodels.Student, error) {
	return l.students.RegisterStudent(ctx, caller, displayName, universityID)
}

func (l *Ledger) SubmitDocuments(ctx context.Context, caller id.Identity, reference string) (*studentmodels.Student, error) {
	return l.students.SubmitDocuments(ctx, caller, reference)
}

func (l *Ledger) SubmitDocumentBundle(ctx context.Context, caller id.Identity, references []string) (*studentmodels.Student, error) {
	return l.students.SubmitDocumentBundle(ctx, caller, references)
}

func (l *Ledger) VerifyStudent(ctx context.Context, caller, student id.Identity) (*studentmodels.Student, error) {
	return l.students.VerifyStudent(ctx, caller, student)
}

func (l *Ledger) GetStudent(ctx context.Context, identity id.Identity) (*studentmodels.Student, error) {
	return l.students.GetStudent(ctx, identity)
}

func (l *Ledger) ListUnverified(ctx context.Context) ([]*studentmodels.Student, error) {
	return l.students.ListUnverified(ctx)
}

// Scholarship registry

func (l *Ledger) CreateScholarship(ctx context.Context, caller id.Identity, name string, amountPerRecipient id.Amount, deadline time.Time, maxRecipients int) (id.ScholarshipID, error) {
	return l.scholarships.CreateScholarship(ctx, caller, name, amountPerRecipient, deadline, maxRecipients)
}

func (l *Ledger) GetScholarship(ctx context.Context, scholarshipID id.ScholarshipID) (*scholarshipmodels.Scholarship, error) {
	return l.scholarships.GetScholarship(ctx, scholarshipID)
}

func (l *Ledger) ListActiveScholarships(ctx context.Context) ([]*scholarshipmodels.Scholarship, error) {
	return l.scholarships.ListActiveScholarships(ctx)
}

func (l *Ledger) ListScholarships(ctx context.Context) ([]*scholarshipmodels.Scholarship, error) {
	return l.scholarships.ListScholarships(ctx)
}

// Disbursement engine

func (l *Ledger) ApplyForScholarship(ctx context.Context, caller id.Identity, scholarshipID id.ScholarshipID) (*disbursementmodels.Disbursement, error) {
	return l.disbursements.ApplyForScholarship(ctx, caller, scholarshipID)
}

func (l *Ledger) DepositFunds(ctx context.Context, caller id.Identity, amount id.Amount) (custody.Receipt, error) {
	return l.disbursements.DepositFunds(ctx, caller, amount)
}

func (l *Ledger) FundBalance(ctx context.Context) (id.Amount, error) {
	return l.disbursements.FundBalance(ctx)
}

func (l *Ledger) ListDisbursements(ctx context.Context) ([]disbursementmodels.Disbursement, error) {
	return l.disbursements.ListDisbursements(ctx)
}

func (l *Ledger) ListDisbursementsFor(ctx context.Context, student id.Identity) ([]disbursementmodels.Disbursement, error) {
	return l.disbursements.ListDisbursementsFor(ctx, student)
}

// ErrCustodyUnavailable is reported by Check while the custody circuit is open.
var ErrCustodyUnavailable = errors.New("custody circuit open")

// Check reports whether the ledger can currently serve disbursements.
func (l *Ledger) Check(_ context.Context) error {
	if l.custody.State() == circuit.StateOpen {
		return ErrCustodyUnavailable
	}
	return nil
}

// PoolTotals returns cumulative deposits and disbursements of the built-in
// pool. ok is false when an external custody backend is in use.
func (l *Ledger) PoolTotals() (totals pool.Totals, ok bool) {
	if l.pool == nil {
		return pool.Totals{}, false
	}
	return l.pool.Totals(), true
}
