package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskVerifyLedger runs the ledger integrity checks for one company.
	TaskVerifyLedger = "verify:ledger"
	// TaskInventoryBackfill fills in missing stock movements for one company.
	TaskInventoryBackfill = "inventory:backfill"
)

// VerifyLedgerPayload selects the company and checks to run.
type VerifyLedgerPayload struct {
	CompanyID int64    `json:"company_id"`
	Checks    []string `json:"checks,omitempty"`
}

// NewVerifyLedgerTask constructs an Asynq task.
func NewVerifyLedgerTask(payload VerifyLedgerPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVerifyLedger, data), nil
}

// InventoryBackfillPayload selects the company to backfill.
type InventoryBackfillPayload struct {
	CompanyID int64 `json:"company_id"`
}

// NewInventoryBackfillTask constructs an Asynq task.
func NewInventoryBackfillTask(payload InventoryBackfillPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryBackfill, data), nil
}
