package audit

import (
	"context"
	"time"

	id "edugrant/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with financial or eligibility significance:
	// registrations, verifications, deposits and disbursements.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers role changes and rejected privileged calls.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Category  EventCategory
	Timestamp time.Time
	// ActorID is the caller that performed the action.
	ActorID id.Identity
	// Subject is the identity the action was about (student, verifier). Events are
	// listed per subject.
	Subject       id.Identity
	Action        string
	ScholarshipID *id.ScholarshipID
	Amount        id.Amount
	Reason        string
	RequestID     string
}

// Store persists audit events. Implementations are append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject id.Identity) ([]Event, error)
	ListAll(ctx context.Context) ([]Event, error)
}

type AuditEvent string

const (
	// Access control events
	EventVerifierAdded AuditEvent = "verifier_added"
	EventAccessDenied  AuditEvent = "access_denied"

	// Student events
	EventStudentRegistered  AuditEvent = "student_registered"
	EventDocumentsSubmitted AuditEvent = "documents_submitted"
	EventStudentVerified    AuditEvent = "student_verified"

	// Scholarship events
	EventScholarshipCreated AuditEvent = "scholarship_created"
	EventScholarshipFilled  AuditEvent = "scholarship_filled"

	// Fund events
	EventFundsDeposited       AuditEvent = "funds_deposited"
	EventScholarshipDisbursed AuditEvent = "scholarship_disbursed"
	EventApplicationRejected  AuditEvent = "application_rejected"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventStudentRegistered:    CategoryCompliance,
	EventStudentVerified:      CategoryCompliance,
	EventFundsDeposited:       CategoryCompliance,
	EventScholarshipDisbursed: CategoryCompliance,

	EventVerifierAdded: CategorySecurity,
	EventAccessDenied:  CategorySecurity,

	EventDocumentsSubmitted:  CategoryOperations,
	EventScholarshipCreated:  CategoryOperations,
	EventScholarshipFilled:   CategoryOperations,
	EventApplicationRejected: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
