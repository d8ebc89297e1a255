package verify

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LineFact is one suspicious journal line.
type LineFact struct {
	EntryID   int64
	EntryNo   string
	Kind      string
	AccountID int64
	Debit     float64
	Credit    float64
}

// DuplicateFact is one reused entry number.
type DuplicateFact struct {
	EntryNo string
	Count   int
}

// ARTotals carries the aggregates the reconciliation check compares.
type ARTotals struct {
	Sales     float64
	Payments  float64
	Discounts float64
	Actual    float64
}

// Repository provides the read-only queries behind each check.
type Repository interface {
	BothSidedLines(ctx context.Context, companyID int64) ([]LineFact, error)
	ARViolations(ctx context.Context, companyID, arAccountID int64) ([]LineFact, error)
	UnlinkedPayments(ctx context.Context, companyID int64) ([]uuid.UUID, error)
	DuplicateEntryNumbers(ctx context.Context, companyID int64) ([]DuplicateFact, error)
	ARTotals(ctx context.Context, companyID, arAccountID int64) (ARTotals, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) BothSidedLines(ctx context.Context, companyID int64) ([]LineFact, error) {
	rows, err := r.db.Query(ctx, `SELECT e.id, e.entry_no, e.kind, l.account_id, l.debit, l.credit
FROM journal_entry_lines l
JOIN journal_entries e ON e.id = l.journal_entry_id
WHERE e.company_id=$1 AND l.debit > 0 AND l.credit > 0
ORDER BY e.id`, companyID)
	if err != nil {
		return nil, err
	}
	return scanLineFacts(rows)
}

// ARViolations returns lines on the receivable account breaking the sign
// rules: sales crediting it, payments or discounts debiting it, and any
// commission line touching it at all.
func (r *repository) ARViolations(ctx context.Context, companyID, arAccountID int64) ([]LineFact, error) {
	rows, err := r.db.Query(ctx, `SELECT e.id, e.entry_no, e.kind, l.account_id, l.debit, l.credit
FROM journal_entry_lines l
JOIN journal_entries e ON e.id = l.journal_entry_id
WHERE e.company_id=$1 AND l.account_id=$2 AND (
  (e.kind = 'sale' AND l.credit > 0)
  OR (e.kind IN ('payment','discount') AND l.debit > 0)
  OR e.kind = 'commission'
)
ORDER BY e.id`, companyID, arAccountID)
	if err != nil {
		return nil, err
	}
	return scanLineFacts(rows)
}

func (r *repository) UnlinkedPayments(ctx context.Context, companyID int64) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT p.id FROM payments p
WHERE p.company_id=$1 AND NOT EXISTS (
  SELECT 1 FROM journal_entries e WHERE e.payment_id = p.id
)
ORDER BY p.created_at`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repository) DuplicateEntryNumbers(ctx context.Context, companyID int64) ([]DuplicateFact, error) {
	rows, err := r.db.Query(ctx, `SELECT entry_no, COUNT(*) FROM journal_entries
WHERE company_id=$1 GROUP BY entry_no HAVING COUNT(*) > 1 ORDER BY entry_no`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var dups []DuplicateFact
	for rows.Next() {
		var d DuplicateFact
		if err := rows.Scan(&d.EntryNo, &d.Count); err != nil {
			return nil, err
		}
		dups = append(dups, d)
	}
	return dups, rows.Err()
}

func (r *repository) ARTotals(ctx context.Context, companyID, arAccountID int64) (ARTotals, error) {
	var t ARTotals
	err := r.db.QueryRow(ctx, `SELECT
  COALESCE(SUM(CASE WHEN e.kind = 'sale' THEN l.debit ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN e.kind = 'payment' THEN l.credit ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN e.kind = 'discount' THEN l.credit ELSE 0 END), 0),
  COALESCE(SUM(l.debit - l.credit), 0)
FROM journal_entry_lines l
JOIN journal_entries e ON e.id = l.journal_entry_id
WHERE e.company_id=$1 AND l.account_id=$2`, companyID, arAccountID).
		Scan(&t.Sales, &t.Payments, &t.Discounts, &t.Actual)
	return t, err
}

type rowsScanner interface {
	Next() bool
	Scan(dest ...any) error
	Close()
	Err() error
}

func scanLineFacts(rows rowsScanner) ([]LineFact, error) {
	defer rows.Close()
	var facts []LineFact
	for rows.Next() {
		var f LineFact
		if err := rows.Scan(&f.EntryID, &f.EntryNo, &f.Kind, &f.AccountID, &f.Debit, &f.Credit); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}
