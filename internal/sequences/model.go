package sequences

import "time"

// DocumentType enumerates the numbered document families.
type DocumentType string

const (
	DocJournalEntry  DocumentType = "journal_entry"
	DocCreditNote    DocumentType = "credit_note"
	DocRefund        DocumentType = "refund"
	DocWorkerJob     DocumentType = "worker_job"
	DocStockMovement DocumentType = "stock_movement"
)

// Sequence is one per-company (optionally per-branch) counter row.
type Sequence struct {
	ID            int64
	CompanyID     int64
	BranchID      *int64
	DocumentType  DocumentType
	Prefix        string
	CurrentNumber int64
	Padding       int
	UpdatedAt     time.Time
}
