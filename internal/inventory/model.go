package inventory

import (
	"time"

	"github.com/google/uuid"
)

// MovementType enumerates stock movement directions.
type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

// StockMovement records one quantity change against a product at a branch.
type StockMovement struct {
	ID            int64        `json:"id"`
	CompanyID     int64        `json:"company_id"`
	BranchID      int64        `json:"branch_id"`
	ProductID     uuid.UUID    `json:"product_id"`
	MovementNo    string       `json:"movement_no"`
	MovementType  MovementType `json:"movement_type"`
	Quantity      float64      `json:"quantity"`
	ReferenceType string       `json:"reference_type"`
	ReferenceID   uuid.UUID    `json:"reference_id"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Candidate is a finalized sale or purchase item with no movement row yet.
type Candidate struct {
	CompanyID     int64
	BranchID      int64
	ProductID     uuid.UUID
	MovementType  MovementType
	Quantity      float64
	ReferenceType string
	ReferenceID   uuid.UUID
}

// BackfillReport summarises one backfill run.
type BackfillReport struct {
	CompanyID int64 `json:"company_id"`
	Inserted  int   `json:"inserted"`
	Skipped   int   `json:"skipped"`
}
