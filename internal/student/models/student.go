package models

import (
	"strings"
	"time"

	id "edugrant/pkg/domain"
	strs "edugrant/pkg/platform/strings"
)

// ReferenceSeparator joins the references of a multi-document submission.
const ReferenceSeparator = ","

// Student is the registry record keyed by the caller's identity.
// Verification is monotonic: once Verified is true it stays true.
type Student struct {
	Identity           id.Identity `json:"identity"`
	DisplayName        string      `json:"display_name"`
	UniversityID       string      `json:"university_id"`
	DocumentsReference *string     `json:"documents_reference,omitempty"`
	Verified           bool        `json:"verified"`
	RegisteredAt       time.Time   `json:"registered_at"`
	VerifiedAt         *time.Time  `json:"verified_at,omitempty"`
	// Sequence orders students by registration; used for the verification queue.
	Sequence uint64 `json:"sequence"`
}

// RegisterCommand carries the caller-supplied registration fields.
type RegisterCommand struct {
	DisplayName  string `validate:"required,max=128"`
	UniversityID string `validate:"required,max=128"`
}

func (c *RegisterCommand) Normalize() {
	c.DisplayName = strings.TrimSpace(c.DisplayName)
	c.UniversityID = strings.TrimSpace(c.UniversityID)
}

// DocumentsCommand carries an opaque reference to off-ledger documents.
// ReferenceSeparator is reserved for bundles, so a single reference may not
// contain it.
type DocumentsCommand struct {
	Reference string `validate:"required,max=4096,excludesall=0x2C"`
}

func (c *DocumentsCommand) Normalize() {
	c.Reference = strings.TrimSpace(c.Reference)
}

// BundleCommand carries the references of a multi-document submission.
type BundleCommand struct {
	References []string `validate:"required,min=1,max=64,dive,max=4096,excludesall=0x2C"`
}

// Normalize trims the references and drops blanks and repeats, keeping order.
func (c *BundleCommand) Normalize() {
	c.References = strs.DedupeAndTrim(c.References)
}

// Reference is the stored form of the bundle.
func (c BundleCommand) Reference() string {
	return strings.Join(c.References, ReferenceSeparator)
}

func NewStudent(identity id.Identity, cmd RegisterCommand, now time.Time) *Student {
	return &Student{
		Identity:     identity,
		DisplayName:  cmd.DisplayName,
		UniversityID: cmd.UniversityID,
		RegisteredAt: now,
	}
}

// HasDocuments reports whether a document reference has been submitted.
func (s *Student) HasDocuments() bool {
	return s.DocumentsReference != nil
}

// DocumentReferences splits the stored reference into its individual documents.
// A single reference yields one entry since it cannot contain the separator.
func (s *Student) DocumentReferences() []string {
	if s.DocumentsReference == nil {
		return []string{}
	}
	return strs.SplitAndTrim(*s.DocumentsReference, ReferenceSeparator)
}

// ApplyDocuments replaces any previous reference. Verification is untouched.
func (s *Student) ApplyDocuments(reference string) {
	s.DocumentsReference = &reference
}

// ApplyVerification marks the student verified and reports whether the record changed.
func (s *Student) ApplyVerification(now time.Time) bool {
	if s.Verified {
		return false
	}
	s.Verified = true
	s.VerifiedAt = &now
	return true
}

// Clone returns a deep copy so callers never alias store state.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}
	c := *s
	if s.DocumentsReference != nil {
		ref := *s.DocumentsReference
		c.DocumentsReference = &ref
	}
	if s.VerifiedAt != nil {
		at := *s.VerifiedAt
		c.VerifiedAt = &at
	}
	return &c
}
