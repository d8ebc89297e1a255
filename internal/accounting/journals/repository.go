package journals

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loomworks-erp/loomworks-erp/internal/accounting/shared"
	"github.com/loomworks-erp/loomworks-erp/internal/sequences"
)

// Repository encapsulates DB operations for journals.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]JournalEntry, error)
	GetWithLines(ctx context.Context, entryID int64) (JournalEntry, []JournalLine, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a posting transaction.
type TxRepository interface {
	MintEntryNumber(ctx context.Context, companyID int64, branchID *int64) (string, error)
	InsertJournalEntry(ctx context.Context, in PostingInput, entryNo string) (JournalEntry, error)
	InsertJournalLines(ctx context.Context, entryID int64, lines []PostingLineInput) error
	LinkSource(ctx context.Context, in PostingInput, entryID int64) error
	GetJournalWithLines(ctx context.Context, entryID int64) (JournalEntry, []JournalLine, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, company_id, branch_id, entry_no, entry_date, description, kind, reference_id, payment_id, total_debit, total_credit, posted, created_by, created_at, updated_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.CompanyID, &e.BranchID, &e.EntryNo, &e.EntryDate, &e.Description, &e.Kind,
		&e.ReferenceID, &e.PaymentID, &e.TotalDebit, &e.TotalCredit, &e.Posted, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE company_id=$1`
	args := []any{filter.CompanyID}
	if filter.BranchID != nil {
		args = append(args, *filter.BranchID)
		query += fmt.Sprintf(" AND branch_id=$%d", len(args))
	}
	if filter.FromDate != nil {
		args = append(args, *filter.FromDate)
		query += fmt.Sprintf(" AND entry_date >= $%d", len(args))
	}
	if filter.ToDate != nil {
		args = append(args, *filter.ToDate)
		query += fmt.Sprintf(" AND entry_date <= $%d", len(args))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		query += fmt.Sprintf(" AND kind=$%d", len(args))
	}
	query += " ORDER BY entry_date DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) GetWithLines(ctx context.Context, entryID int64) (JournalEntry, []JournalLine, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, nil, shared.ErrJournalNotFound
		}
		return JournalEntry{}, nil, err
	}
	lines, err := queryLines(ctx, r.db, entryID)
	if err != nil {
		return JournalEntry{}, nil, err
	}
	return entry, lines, nil
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

// MintEntryNumber advances the journal-entry sequence inside the posting
// transaction, so the counter moves only when the entry commits.
func (r *txRepository) MintEntryNumber(ctx context.Context, companyID int64, branchID *int64) (string, error) {
	return sequences.NextInTx(ctx, r.tx, companyID, branchID, sequences.DocJournalEntry)
}

func (r *txRepository) InsertJournalEntry(ctx context.Context, in PostingInput, entryNo string) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (company_id, branch_id, entry_no, entry_date, description, kind, reference_id, payment_id, total_debit, total_credit, posted, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,TRUE,$11) RETURNING id, posted, created_at, updated_at`,
		in.CompanyID, in.BranchID, entryNo, in.EntryDate, in.Description, in.Kind, in.ReferenceID, in.PaymentID,
		toNumeric(in.TotalDebit()), toNumeric(in.TotalCredit()), nullInt(in.CreatedBy))
	entry := JournalEntry{
		CompanyID:   in.CompanyID,
		BranchID:    in.BranchID,
		EntryNo:     entryNo,
		EntryDate:   in.EntryDate,
		Description: in.Description,
		Kind:        in.Kind,
		ReferenceID: in.ReferenceID,
		PaymentID:   in.PaymentID,
		TotalDebit:  in.TotalDebit(),
		TotalCredit: in.TotalCredit(),
		CreatedBy:   in.CreatedBy,
	}
	if err := row.Scan(&entry.ID, &entry.Posted, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertJournalLines(ctx context.Context, entryID int64, lines []PostingLineInput) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_entry_lines (journal_entry_id, account_id, debit, credit, description)
VALUES ($1,$2,$3,$4,$5)`, entryID, line.AccountID, toNumeric(line.Debit), toNumeric(line.Credit), line.Description); err != nil {
			return err
		}
	}
	return nil
}

// LinkSource records the (kind, reference) pair behind an entry. The unique
// constraint makes a retried posting surface ErrSourceConflict instead of a
// duplicate entry.
func (r *txRepository) LinkSource(ctx context.Context, in PostingInput, entryID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO journal_source_links (company_id, kind, reference_id, journal_entry_id) VALUES ($1,$2,$3,$4)`,
		in.CompanyID, in.Kind, in.ReferenceID, entryID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_journal_source_links" {
			return shared.ErrSourceConflict
		}
		return err
	}
	return nil
}

func (r *txRepository) GetJournalWithLines(ctx context.Context, entryID int64) (JournalEntry, []JournalLine, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, nil, shared.ErrJournalNotFound
		}
		return JournalEntry{}, nil, err
	}
	lines, err := queryLines(ctx, r.tx, entryID)
	if err != nil {
		return JournalEntry{}, nil, err
	}
	return entry, lines, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q querier, entryID int64) ([]JournalLine, error) {
	rows, err := q.Query(ctx, `SELECT id, journal_entry_id, account_id, debit, credit, description, created_at
FROM journal_entry_lines WHERE journal_entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.JournalEntryID, &line.AccountID, &line.Debit, &line.Credit, &line.Description, &line.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// Helpers
func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
