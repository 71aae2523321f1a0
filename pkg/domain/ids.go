package domain

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	dErrors "edugrant/pkg/domain-errors"
)

// maxIdentityLength bounds identities accepted at trust boundaries. Wallet
// addresses and account handles fit comfortably.
const maxIdentityLength = 128

// Identity is an opaque, unforgeable caller reference handed to the core by the
// signing/transport layer. It keys student records and role membership.
type Identity string

// ParseIdentity validates an identity at a trust boundary.
// Surrounding whitespace is trimmed; empty, oversized, non-UTF-8 values and values
// containing control, space or invisible format characters are rejected.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	if len(s) > maxIdentityLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity exceeds maximum length")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity must be valid UTF-8")
	}
	for _, r := range s {
		if unicode.IsControl(r) || unicode.IsSpace(r) || unicode.Is(unicode.Cf, r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "identity contains invalid characters")
		}
	}
	return Identity(s), nil
}

func (i Identity) String() string {
	return string(i)
}

// Normalize applies the trimming ParseIdentity performs without validating.
// Lookups use it so a caller reaches the record its own registration created.
func (i Identity) Normalize() Identity {
	return Identity(strings.TrimSpace(string(i)))
}

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool {
	return i == ""
}

// ScholarshipID is assigned sequentially from 0 in creation order and never reused.
type ScholarshipID uint64

// ParseScholarshipID parses a decimal scholarship id.
func ParseScholarshipID(s string) (ScholarshipID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "scholarship id is required")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, "scholarship id must be a non-negative integer")
	}
	return ScholarshipID(v), nil
}

func (id ScholarshipID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Amount counts units of the custody asset in its smallest denomination.
type Amount int64

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a > 0
}

func (a Amount) String() string {
	return strconv.FormatInt(int64(a), 10)
}
