package returns

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSaleNotFound indicates the referenced sale does not exist.
	ErrSaleNotFound = errors.New("returns: sale not found")
	// ErrSaleNotCancelled indicates the sale is not in a returnable state.
	ErrSaleNotCancelled = errors.New("returns: sale is not cancelled")
	// ErrCreditNoteExists indicates the sale already has a credit note.
	ErrCreditNoteExists = errors.New("returns: credit note already exists for sale")
	// ErrCreditNoteMissing indicates a refund was requested before the credit note.
	ErrCreditNoteMissing = errors.New("returns: no credit note exists for sale")
	// ErrRefundExists indicates the sale already has a refund.
	ErrRefundExists = errors.New("returns: refund already exists for sale")
	// ErrRefundMissing indicates no refund exists for the sale.
	ErrRefundMissing = errors.New("returns: no refund exists for sale")
	// ErrInvalidAmount indicates a non-positive return amount.
	ErrInvalidAmount = errors.New("returns: amount must be positive")
)

// CreditNote reverses the revenue side of a cancelled sale.
type CreditNote struct {
	ID             int64     `json:"id"`
	CompanyID      int64     `json:"company_id"`
	BranchID       *int64    `json:"branch_id,omitempty"`
	SaleID         uuid.UUID `json:"sale_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	NoteNo         string    `json:"note_no"`
	Amount         float64   `json:"amount"`
	Reason         string    `json:"reason"`
	JournalEntryID int64     `json:"journal_entry_id"`
	CreatedBy      int64     `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// Refund pays a credited amount back to the customer.
type Refund struct {
	ID             int64     `json:"id"`
	CompanyID      int64     `json:"company_id"`
	BranchID       *int64    `json:"branch_id,omitempty"`
	SaleID         uuid.UUID `json:"sale_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	RefundNo       string    `json:"refund_no"`
	Amount         float64   `json:"amount"`
	Method         string    `json:"method"`
	JournalEntryID int64     `json:"journal_entry_id"`
	CreatedBy      int64     `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreditNoteInput describes a credit note to create.
type CreditNoteInput struct {
	CompanyID  int64
	BranchID   *int64
	SaleID     uuid.UUID
	CustomerID uuid.UUID
	Amount     float64
	Reason     string
	ActorID    int64
}

// RefundInput describes a refund to create.
type RefundInput struct {
	CompanyID  int64
	BranchID   *int64
	SaleID     uuid.UUID
	CustomerID uuid.UUID
	Amount     float64
	Method     string
	ActorID    int64
}
