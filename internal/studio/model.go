package studio

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrProductionNotFound indicates a missing production.
	ErrProductionNotFound = errors.New("studio: production not found")
	// ErrStageNotFound indicates a missing production stage.
	ErrStageNotFound = errors.New("studio: stage not found")
	// ErrStageCompleted indicates the stage was already completed.
	ErrStageCompleted = errors.New("studio: stage already completed")
	// ErrStageUnassigned indicates the stage has no worker to accrue for.
	ErrStageUnassigned = errors.New("studio: stage has no assigned worker")
	// ErrNothingToPay indicates the worker has no unpaid entries.
	ErrNothingToPay = errors.New("studio: no unpaid entries for worker")
)

// StageStatus enumerates production stage states.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageCompleted  StageStatus = "completed"
)

// Production is one studio production order.
type Production struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	BranchID  *int64    `json:"branch_id,omitempty"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Stage is one piece-rate work step within a production.
type Stage struct {
	ID           int64       `json:"id"`
	ProductionID int64       `json:"production_id"`
	StageType    string      `json:"stage_type"`
	WorkerID     *uuid.UUID  `json:"worker_id,omitempty"`
	PieceRate    float64     `json:"piece_rate"`
	Quantity     float64     `json:"quantity"`
	Status       StageStatus `json:"status"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Accrual is the unpaid worker ledger row a completed stage produces.
type Accrual struct {
	ID         int64     `json:"id"`
	CompanyID  int64     `json:"company_id"`
	WorkerID   uuid.UUID `json:"worker_id"`
	StageID    int64     `json:"stage_id"`
	DocumentNo string    `json:"document_no"`
	Amount     float64   `json:"amount"`
}

// PaymentInput pays out a worker's unpaid entries.
type PaymentInput struct {
	CompanyID        int64
	WorkerID         uuid.UUID
	PaymentReference string
}

// PaymentResult summarises one worker payout.
type PaymentResult struct {
	WorkerID    uuid.UUID `json:"worker_id"`
	EntriesPaid int       `json:"entries_paid"`
	TotalAmount float64   `json:"total_amount"`
}
