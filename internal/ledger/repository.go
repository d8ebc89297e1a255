package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository encapsulates DB operations for ledgers.
type Repository interface {
	EnsureMaster(ctx context.Context, companyID int64, entityType EntityType, entityID uuid.UUID) (Master, error)
	LastBalanceBefore(ctx context.Context, ledgerID int64, before time.Time) (float64, bool, error)
	EntriesBetween(ctx context.Context, ledgerID int64, from, to *time.Time, sources []Source) ([]Entry, error)
	WorkerEntries(ctx context.Context, companyID int64, workerID uuid.UUID, from, to *time.Time) ([]WorkerEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within an append transaction.
type TxRepository interface {
	EnsureMasterForUpdate(ctx context.Context, companyID int64, entityType EntityType, entityID uuid.UUID) (Master, error)
	LatestBalance(ctx context.Context, ledgerID int64) (float64, bool, error)
	InsertEntry(ctx context.Context, ledgerID int64, in AppendInput, balanceAfter float64) (Entry, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const masterColumns = `id, company_id, entity_type, entity_id, opening_balance, created_at`

func scanMaster(row pgx.Row) (Master, error) {
	var m Master
	err := row.Scan(&m.ID, &m.CompanyID, &m.EntityType, &m.EntityID, &m.OpeningBalance, &m.CreatedAt)
	return m, err
}

func (r *repository) EnsureMaster(ctx context.Context, companyID int64, entityType EntityType, entityID uuid.UUID) (Master, error) {
	if _, err := r.db.Exec(ctx, `INSERT INTO ledger_master (company_id, entity_type, entity_id, opening_balance)
VALUES ($1,$2,$3,0) ON CONFLICT (company_id, entity_type, entity_id) DO NOTHING`, companyID, entityType, entityID); err != nil {
		return Master{}, err
	}
	return scanMaster(r.db.QueryRow(ctx, `SELECT `+masterColumns+` FROM ledger_master
WHERE company_id=$1 AND entity_type=$2 AND entity_id=$3`, companyID, entityType, entityID))
}

func (r *repository) LastBalanceBefore(ctx context.Context, ledgerID int64, before time.Time) (float64, bool, error) {
	var balance float64
	err := r.db.QueryRow(ctx, `SELECT balance_after FROM ledger_entries
WHERE ledger_id=$1 AND entry_date < $2 ORDER BY entry_date DESC, id DESC LIMIT 1`, ledgerID, before).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return balance, true, nil
}

const entryColumns = `id, ledger_id, source, reference_id, reference_no, entry_date, debit, credit, balance_after, remarks, created_at`

func scanLedgerEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.LedgerID, &e.Source, &e.ReferenceID, &e.ReferenceNo, &e.EntryDate,
		&e.Debit, &e.Credit, &e.BalanceAfter, &e.Remarks, &e.CreatedAt)
	return e, err
}

// EntriesBetween returns entries ordered by entry date then id ascending, so
// the statement fold is deterministic for same-day rows.
func (r *repository) EntriesBetween(ctx context.Context, ledgerID int64, from, to *time.Time, sources []Source) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE ledger_id=$1`
	args := []any{ledgerID}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND entry_date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND entry_date <= $%d", len(args))
	}
	if len(sources) > 0 {
		names := make([]string, 0, len(sources))
		for _, s := range sources {
			names = append(names, string(s))
		}
		args = append(args, names)
		query += fmt.Sprintf(" AND source = ANY($%d)", len(args))
	}
	query += " ORDER BY entry_date ASC, id ASC"
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) WorkerEntries(ctx context.Context, companyID int64, workerID uuid.UUID, from, to *time.Time) ([]WorkerEntry, error) {
	query := `SELECT id, company_id, worker_id, document_no, description, amount, status, production_stage_id, payment_reference, paid_at, created_at
FROM worker_ledger_entries WHERE company_id=$1 AND worker_id=$2`
	args := []any{companyID, workerID}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query += " ORDER BY created_at ASC, id ASC"
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []WorkerEntry
	for rows.Next() {
		var e WorkerEntry
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.WorkerID, &e.DocumentNo, &e.Description, &e.Amount,
			&e.Status, &e.ProductionStageID, &e.PaymentReference, &e.PaidAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
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

// EnsureMasterForUpdate resolves or creates the ledger row and locks it, so
// concurrent appends to the same entity serialise on the master row.
func (r *txRepository) EnsureMasterForUpdate(ctx context.Context, companyID int64, entityType EntityType, entityID uuid.UUID) (Master, error) {
	if _, err := r.tx.Exec(ctx, `INSERT INTO ledger_master (company_id, entity_type, entity_id, opening_balance)
VALUES ($1,$2,$3,0) ON CONFLICT (company_id, entity_type, entity_id) DO NOTHING`, companyID, entityType, entityID); err != nil {
		return Master{}, err
	}
	return scanMaster(r.tx.QueryRow(ctx, `SELECT `+masterColumns+` FROM ledger_master
WHERE company_id=$1 AND entity_type=$2 AND entity_id=$3 FOR UPDATE`, companyID, entityType, entityID))
}

func (r *txRepository) LatestBalance(ctx context.Context, ledgerID int64) (float64, bool, error) {
	var balance float64
	err := r.tx.QueryRow(ctx, `SELECT balance_after FROM ledger_entries
WHERE ledger_id=$1 ORDER BY entry_date DESC, id DESC LIMIT 1`, ledgerID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return balance, true, nil
}

func (r *txRepository) InsertEntry(ctx context.Context, ledgerID int64, in AppendInput, balanceAfter float64) (Entry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO ledger_entries (ledger_id, source, reference_id, reference_no, entry_date, debit, credit, balance_after, remarks)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at`,
		ledgerID, in.Source, in.ReferenceID, in.ReferenceNo, in.EntryDate,
		toNumeric(in.Debit), toNumeric(in.Credit), toNumeric(balanceAfter), in.Remarks)
	entry := Entry{
		LedgerID:     ledgerID,
		Source:       in.Source,
		ReferenceID:  in.ReferenceID,
		ReferenceNo:  in.ReferenceNo,
		EntryDate:    in.EntryDate,
		Debit:        in.Debit,
		Credit:       in.Credit,
		BalanceAfter: balanceAfter,
		Remarks:      in.Remarks,
	}
	if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
