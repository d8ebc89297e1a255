package journals

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/loomworks-erp/loomworks-erp/internal/accounting/shared"
)

// BalanceTolerance absorbs float rounding when comparing debit and credit totals.
const BalanceTolerance = 0.01

// PostingLineInput describes a journal line for a posting request.
type PostingLineInput struct {
	AccountID   int64
	Debit       float64
	Credit      float64
	Description string
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	CompanyID   int64
	BranchID    *int64
	EntryDate   time.Time
	Description string
	Kind        EntryKind
	ReferenceID uuid.UUID
	PaymentID   *uuid.UUID
	CreatedBy   int64
	Lines       []PostingLineInput
}

// Validate ensures posting input meets the double-entry criteria before any
// row is written.
func (in PostingInput) Validate() error {
	if in.CompanyID <= 0 {
		return errors.New("accounting: company required")
	}
	if in.EntryDate.IsZero() {
		return errors.New("accounting: entry date required")
	}
	if !in.Kind.Valid() {
		return fmt.Errorf("accounting: unknown entry kind %q", in.Kind)
	}
	if in.ReferenceID == uuid.Nil {
		return errors.New("accounting: reference id required")
	}
	if len(in.Lines) < 2 {
		return shared.ErrTooFewLines
	}
	var debit, credit float64
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("accounting: line %d missing account", idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("accounting: line %d negative amount", idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("accounting: line %d: %w", idx, shared.ErrBothSides)
		}
		debit += line.Debit
		credit += line.Credit
	}
	if math.Abs(debit-credit) > BalanceTolerance {
		return fmt.Errorf("%w: debit %.2f, credit %.2f", shared.ErrUnbalanced, debit, credit)
	}
	return nil
}

// TotalDebit sums the debit side of the candidate lines.
func (in PostingInput) TotalDebit() float64 {
	var sum float64
	for _, line := range in.Lines {
		sum += line.Debit
	}
	return sum
}

// TotalCredit sums the credit side of the candidate lines.
func (in PostingInput) TotalCredit() float64 {
	var sum float64
	for _, line := range in.Lines {
		sum += line.Credit
	}
	return sum
}

// ValidateReceivableRules enforces the sign conventions on the receivable
// account: sales debit it, payments and discounts credit it, commissions
// never touch it.
func (in PostingInput) ValidateReceivableRules(receivableAccountID int64) error {
	if receivableAccountID == 0 {
		return nil
	}
	for idx, line := range in.Lines {
		if line.AccountID != receivableAccountID {
			continue
		}
		switch in.Kind {
		case KindSale:
			if line.Credit > 0 {
				return fmt.Errorf("accounting: line %d: sale must debit receivable: %w", idx, shared.ErrReceivableRule)
			}
		case KindPayment, KindDiscount:
			if line.Debit > 0 {
				return fmt.Errorf("accounting: line %d: %s must credit receivable: %w", idx, in.Kind, shared.ErrReceivableRule)
			}
		case KindCommission:
			return fmt.Errorf("accounting: line %d: commission cannot touch receivable: %w", idx, shared.ErrReceivableRule)
		}
	}
	return nil
}

// ReverseInput wraps parameters for reversal.
type ReverseInput struct {
	EntryID int64
	ActorID int64
	Memo    string
}

// ListFilter narrows journal listings.
type ListFilter struct {
	CompanyID int64
	BranchID  *int64
	FromDate  *time.Time
	ToDate    *time.Time
	Kind      EntryKind
	Limit     int
}
