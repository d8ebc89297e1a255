package ledger

import (
	"time"

	"github.com/google/uuid"
)

// EntityType scopes a ledger to one kind of counterparty.
type EntityType string

const (
	EntityCustomer EntityType = "customer"
	EntitySupplier EntityType = "supplier"
	EntityUser     EntityType = "user"
	EntityWorker   EntityType = "worker"
)

// Valid reports whether the entity type is known.
func (t EntityType) Valid() bool {
	switch t {
	case EntityCustomer, EntitySupplier, EntityUser, EntityWorker:
		return true
	}
	return false
}

// Source is the typed origin of a ledger entry. Classification keys off this
// field only; descriptions are free text and never inspected.
type Source string

const (
	SourceSale       Source = "sale"
	SourcePayment    Source = "payment"
	SourceDiscount   Source = "discount"
	SourceCreditNote Source = "credit_note"
	SourceRefund     Source = "refund"
	SourcePurchase   Source = "purchase"
	SourceExpense    Source = "expense"
	SourceSalary     Source = "salary"
	SourceCommission Source = "commission"
	SourceBonus      Source = "bonus"
)

// sourcesFor lists the entry sources each entity type's statement includes.
func sourcesFor(entityType EntityType) []Source {
	switch entityType {
	case EntityCustomer:
		return []Source{SourceSale, SourcePayment, SourceDiscount, SourceCreditNote, SourceRefund}
	case EntitySupplier:
		return []Source{SourcePurchase, SourcePayment}
	case EntityUser:
		return []Source{SourceExpense, SourcePayment, SourceSalary, SourceCommission, SourceBonus}
	default:
		return nil
	}
}

// Master is the per-entity ledger header carrying the stored opening balance.
type Master struct {
	ID             int64      `json:"id"`
	CompanyID      int64      `json:"company_id"`
	EntityType     EntityType `json:"entity_type"`
	EntityID       uuid.UUID  `json:"entity_id"`
	OpeningBalance float64    `json:"opening_balance"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Entry is one row in an entity ledger. BalanceAfter is the running balance
// at the moment the row was appended.
type Entry struct {
	ID           int64     `json:"id"`
	LedgerID     int64     `json:"ledger_id"`
	Source       Source    `json:"source"`
	ReferenceID  uuid.UUID `json:"reference_id"`
	ReferenceNo  string    `json:"reference_no"`
	EntryDate    time.Time `json:"entry_date"`
	Debit        float64   `json:"debit"`
	Credit       float64   `json:"credit"`
	BalanceAfter float64   `json:"balance_after"`
	Remarks      string    `json:"remarks"`
	CreatedAt    time.Time `json:"created_at"`
}

// WorkerEntry is a piece-rate accrual or payment for a studio worker.
type WorkerEntry struct {
	ID                int64      `json:"id"`
	CompanyID         int64      `json:"company_id"`
	WorkerID          uuid.UUID  `json:"worker_id"`
	DocumentNo        string     `json:"document_no"`
	Description       string     `json:"description"`
	Amount            float64    `json:"amount"`
	Status            string     `json:"status"`
	ProductionStageID *int64     `json:"production_stage_id,omitempty"`
	PaymentReference  *string    `json:"payment_reference,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

const (
	WorkerEntryUnpaid = "unpaid"
	WorkerEntryPaid   = "paid"
)

// Transaction is one statement row with its running balance.
type Transaction struct {
	EntryDate   time.Time `json:"entry_date"`
	Source      Source    `json:"source"`
	ReferenceNo string    `json:"reference_no"`
	Remarks     string    `json:"remarks"`
	Debit       float64   `json:"debit"`
	Credit      float64   `json:"credit"`
	Balance     float64   `json:"balance"`
}

// Invoice is an open sale with a positive pending amount.
type Invoice struct {
	ReferenceID uuid.UUID `json:"reference_id"`
	ReferenceNo string    `json:"reference_no"`
	EntryDate   time.Time `json:"entry_date"`
	Amount      float64   `json:"amount"`
	Pending     float64   `json:"pending"`
}

// InvoicesSummary aggregates the open invoices of a statement.
type InvoicesSummary struct {
	Count        int     `json:"count"`
	TotalAmount  float64 `json:"total_amount"`
	TotalPending float64 `json:"total_pending"`
}

// Statement is the computed view of one entity ledger over a date window.
type Statement struct {
	OpeningBalance  float64         `json:"opening_balance"`
	TotalDebit      float64         `json:"total_debit"`
	TotalCredit     float64         `json:"total_credit"`
	ClosingBalance  float64         `json:"closing_balance"`
	Transactions    []Transaction   `json:"transactions"`
	Invoices        []Invoice       `json:"invoices"`
	InvoicesSummary InvoicesSummary `json:"invoices_summary"`
}

// StatementQuery selects the entity and window to fold.
type StatementQuery struct {
	CompanyID  int64
	EntityType EntityType
	EntityID   uuid.UUID
	FromDate   *time.Time
	ToDate     *time.Time
}

// AppendInput describes one ledger entry to append.
type AppendInput struct {
	CompanyID   int64
	EntityType  EntityType
	EntityID    uuid.UUID
	Source      Source
	ReferenceID uuid.UUID
	ReferenceNo string
	EntryDate   time.Time
	Debit       float64
	Credit      float64
	Remarks     string
}
