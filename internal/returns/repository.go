package returns

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loomworks-erp/loomworks-erp/internal/accounting/journals"
	"github.com/loomworks-erp/loomworks-erp/internal/ledger"
	"github.com/loomworks-erp/loomworks-erp/internal/sequences"
)

// Repository encapsulates DB operations for credit notes and refunds.
type Repository interface {
	SaleStatus(ctx context.Context, saleID uuid.UUID) (string, error)
	GetCreditNoteBySale(ctx context.Context, saleID uuid.UUID) (CreditNote, error)
	GetRefundBySale(ctx context.Context, saleID uuid.UUID) (Refund, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository groups the writes of one return flow, so the journal entry,
// the note or refund row and the ledger entry commit or roll back together.
type TxRepository interface {
	MintNumber(ctx context.Context, companyID int64, branchID *int64, docType sequences.DocumentType) (string, error)
	PostJournal(ctx context.Context, in journals.PostingInput, receivableAccountID int64) (journals.JournalEntry, error)
	InsertCreditNote(ctx context.Context, note CreditNote) (CreditNote, error)
	InsertRefund(ctx context.Context, refund Refund) (Refund, error)
	AppendLedger(ctx context.Context, in ledger.AppendInput) (ledger.Entry, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) SaleStatus(ctx context.Context, saleID uuid.UUID) (string, error) {
	var status string
	err := r.db.QueryRow(ctx, `SELECT status FROM sales WHERE id=$1`, saleID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrSaleNotFound
		}
		return "", err
	}
	return status, nil
}

const creditNoteColumns = `id, company_id, branch_id, sale_id, customer_id, note_no, amount, reason, journal_entry_id, created_by, created_at`

func (r *repository) GetCreditNoteBySale(ctx context.Context, saleID uuid.UUID) (CreditNote, error) {
	var n CreditNote
	err := r.db.QueryRow(ctx, `SELECT `+creditNoteColumns+` FROM credit_notes WHERE sale_id=$1`, saleID).
		Scan(&n.ID, &n.CompanyID, &n.BranchID, &n.SaleID, &n.CustomerID, &n.NoteNo, &n.Amount, &n.Reason,
			&n.JournalEntryID, &n.CreatedBy, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CreditNote{}, ErrCreditNoteMissing
		}
		return CreditNote{}, err
	}
	return n, nil
}

const refundColumns = `id, company_id, branch_id, sale_id, customer_id, refund_no, amount, method, journal_entry_id, created_by, created_at`

func (r *repository) GetRefundBySale(ctx context.Context, saleID uuid.UUID) (Refund, error) {
	var f Refund
	err := r.db.QueryRow(ctx, `SELECT `+refundColumns+` FROM refunds WHERE sale_id=$1`, saleID).
		Scan(&f.ID, &f.CompanyID, &f.BranchID, &f.SaleID, &f.CustomerID, &f.RefundNo, &f.Amount, &f.Method,
			&f.JournalEntryID, &f.CreatedBy, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Refund{}, ErrRefundMissing
		}
		return Refund{}, err
	}
	return f, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

// MintNumber advances the document sequence inside the return transaction,
// so a rolled-back attempt does not burn a number.
func (r *txRepository) MintNumber(ctx context.Context, companyID int64, branchID *int64, docType sequences.DocumentType) (string, error) {
	return sequences.NextInTx(ctx, r.tx, companyID, branchID, docType)
}

func (r *txRepository) PostJournal(ctx context.Context, in journals.PostingInput, receivableAccountID int64) (journals.JournalEntry, error) {
	return journals.PostInTx(ctx, r.tx, in, receivableAccountID)
}

func (r *txRepository) AppendLedger(ctx context.Context, in ledger.AppendInput) (ledger.Entry, error) {
	return ledger.AppendInTx(ctx, r.tx, in)
}

// InsertCreditNote relies on the unique sale_id constraint to make the
// state machine forward-only under concurrent requests.
func (r *txRepository) InsertCreditNote(ctx context.Context, note CreditNote) (CreditNote, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO credit_notes (company_id, branch_id, sale_id, customer_id, note_no, amount, reason, journal_entry_id, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at`,
		note.CompanyID, note.BranchID, note.SaleID, note.CustomerID, note.NoteNo,
		toNumeric(note.Amount), note.Reason, note.JournalEntryID, nullInt(note.CreatedBy))
	if err := row.Scan(&note.ID, &note.CreatedAt); err != nil {
		if isUniqueViolation(err, "uq_credit_notes_sale") {
			return CreditNote{}, ErrCreditNoteExists
		}
		return CreditNote{}, err
	}
	return note, nil
}

func (r *txRepository) InsertRefund(ctx context.Context, refund Refund) (Refund, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO refunds (company_id, branch_id, sale_id, customer_id, refund_no, amount, method, journal_entry_id, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at`,
		refund.CompanyID, refund.BranchID, refund.SaleID, refund.CustomerID, refund.RefundNo,
		toNumeric(refund.Amount), refund.Method, refund.JournalEntryID, nullInt(refund.CreatedBy))
	if err := row.Scan(&refund.ID, &refund.CreatedAt); err != nil {
		if isUniqueViolation(err, "uq_refunds_sale") {
			return Refund{}, ErrRefundExists
		}
		return Refund{}, err
	}
	return refund, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
