package models

import (
	"time"

	id "edugrant/pkg/domain"
)

// Verifier is an identity authorized to mark students as verified.
// Membership is additive: there is no removal operation.
type Verifier struct {
	Identity id.Identity `json:"identity"`
	AddedBy  id.Identity `json:"added_by"`
	AddedAt  time.Time   `json:"added_at"`
}
