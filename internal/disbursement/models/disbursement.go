package models

import (
	"time"

	"github.com/google/uuid"

	"edugrant/internal/custody"
	id "edugrant/pkg/domain"
)

// Disbursement records one successful scholarship payout.
type Disbursement struct {
	ID            uuid.UUID        `json:"id"`
	Student       id.Identity      `json:"student"`
	ScholarshipID id.ScholarshipID `json:"scholarship_id"`
	Amount        id.Amount        `json:"amount"`
	Receipt       custody.Receipt  `json:"receipt"`
	At            time.Time        `json:"at"`
}
