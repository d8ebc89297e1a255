package studio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loomworks-erp/loomworks-erp/internal/sequences"
)

// Repository encapsulates DB operations for studio productions.
type Repository interface {
	GetProduction(ctx context.Context, id int64) (Production, error)
	ListStages(ctx context.Context, productionID int64) ([]Stage, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a studio transaction.
type TxRepository interface {
	GetStageForUpdate(ctx context.Context, stageID int64) (Stage, int64, error)
	MarkStageCompleted(ctx context.Context, stageID int64, completedAt time.Time) error
	MintJobNumber(ctx context.Context, companyID int64, branchID *int64) (string, error)
	InsertAccrual(ctx context.Context, accrual Accrual, description string) (Accrual, error)
	UnpaidEntriesForUpdate(ctx context.Context, companyID int64, workerID uuid.UUID) ([]Accrual, error)
	MarkEntriesPaid(ctx context.Context, entryIDs []int64, paymentReference string, paidAt time.Time) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) GetProduction(ctx context.Context, id int64) (Production, error) {
	var p Production
	err := r.db.QueryRow(ctx, `SELECT id, company_id, branch_id, code, name, status, created_at
FROM productions WHERE id=$1`, id).
		Scan(&p.ID, &p.CompanyID, &p.BranchID, &p.Code, &p.Name, &p.Status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Production{}, ErrProductionNotFound
		}
		return Production{}, err
	}
	return p, nil
}

func (r *repository) ListStages(ctx context.Context, productionID int64) ([]Stage, error) {
	rows, err := r.db.Query(ctx, `SELECT id, production_id, stage_type, worker_id, piece_rate, quantity, status, completed_at, created_at
FROM production_stages WHERE production_id=$1 ORDER BY id`, productionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var stages []Stage
	for rows.Next() {
		var s Stage
		if err := rows.Scan(&s.ID, &s.ProductionID, &s.StageType, &s.WorkerID, &s.PieceRate, &s.Quantity,
			&s.Status, &s.CompletedAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
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

// GetStageForUpdate returns the stage and its company, locking the row so
// two completions cannot both accrue.
func (r *txRepository) GetStageForUpdate(ctx context.Context, stageID int64) (Stage, int64, error) {
	var (
		s         Stage
		companyID int64
	)
	err := r.tx.QueryRow(ctx, `SELECT s.id, s.production_id, s.stage_type, s.worker_id, s.piece_rate, s.quantity, s.status, s.completed_at, s.created_at, p.company_id
FROM production_stages s
JOIN productions p ON p.id = s.production_id
WHERE s.id=$1 FOR UPDATE OF s`, stageID).
		Scan(&s.ID, &s.ProductionID, &s.StageType, &s.WorkerID, &s.PieceRate, &s.Quantity,
			&s.Status, &s.CompletedAt, &s.CreatedAt, &companyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stage{}, 0, ErrStageNotFound
		}
		return Stage{}, 0, err
	}
	return s, companyID, nil
}

func (r *txRepository) MarkStageCompleted(ctx context.Context, stageID int64, completedAt time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE production_stages SET status='completed', completed_at=$1 WHERE id=$2`,
		completedAt, stageID)
	return err
}

func (r *txRepository) MintJobNumber(ctx context.Context, companyID int64, branchID *int64) (string, error) {
	return sequences.NextInTx(ctx, r.tx, companyID, branchID, sequences.DocWorkerJob)
}

func (r *txRepository) InsertAccrual(ctx context.Context, accrual Accrual, description string) (Accrual, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO worker_ledger_entries (company_id, worker_id, document_no, description, amount, status, production_stage_id)
VALUES ($1,$2,$3,$4,$5,'unpaid',$6) RETURNING id`,
		accrual.CompanyID, accrual.WorkerID, accrual.DocumentNo, description,
		fmt.Sprintf("%.2f", accrual.Amount), accrual.StageID).Scan(&accrual.ID)
	if err != nil {
		return Accrual{}, err
	}
	return accrual, nil
}

func (r *txRepository) UnpaidEntriesForUpdate(ctx context.Context, companyID int64, workerID uuid.UUID) ([]Accrual, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, company_id, worker_id, COALESCE(production_stage_id, 0), document_no, amount
FROM worker_ledger_entries
WHERE company_id=$1 AND worker_id=$2 AND status='unpaid'
ORDER BY id FOR UPDATE`, companyID, workerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Accrual
	for rows.Next() {
		var a Accrual
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.WorkerID, &a.StageID, &a.DocumentNo, &a.Amount); err != nil {
			return nil, err
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}

func (r *txRepository) MarkEntriesPaid(ctx context.Context, entryIDs []int64, paymentReference string, paidAt time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE worker_ledger_entries
SET status='paid', payment_reference=$1, paid_at=$2
WHERE id = ANY($3)`, paymentReference, paidAt, entryIDs)
	return err
}
