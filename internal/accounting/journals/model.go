package journals

import (
	"time"

	"github.com/google/uuid"
)

// EntryKind classifies a journal entry at write time. Ledger views bucket
// strictly on this field; descriptions are display-only text.
type EntryKind string

const (
	KindSale       EntryKind = "sale"
	KindPayment    EntryKind = "payment"
	KindPurchase   EntryKind = "purchase"
	KindExpense    EntryKind = "expense"
	KindDiscount   EntryKind = "discount"
	KindCommission EntryKind = "commission"
	KindSalary     EntryKind = "salary"
	KindCreditNote EntryKind = "credit_note"
	KindRefund     EntryKind = "refund"
	KindManual     EntryKind = "manual"
)

// Valid reports whether the kind is a known classification.
func (k EntryKind) Valid() bool {
	switch k {
	case KindSale, KindPayment, KindPurchase, KindExpense, KindDiscount,
		KindCommission, KindSalary, KindCreditNote, KindRefund, KindManual:
		return true
	}
	return false
}

// JournalEntry captures posting metadata. Entries are append-only: the only
// way to undo one is an explicit reversal entry.
type JournalEntry struct {
	ID          int64
	CompanyID   int64
	BranchID    *int64
	EntryNo     string
	EntryDate   time.Time
	Description string
	Kind        EntryKind
	ReferenceID uuid.UUID
	PaymentID   *uuid.UUID
	TotalDebit  float64
	TotalCredit float64
	Posted      bool
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Lines       []JournalLine
}

// JournalLine stores debit or credit amount for an account. Exactly one of
// the two sides is nonzero on a well-formed line.
type JournalLine struct {
	ID             int64
	JournalEntryID int64
	AccountID      int64
	Debit          float64
	Credit         float64
	Description    string
	CreatedAt      time.Time
}
