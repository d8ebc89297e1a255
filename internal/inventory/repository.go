package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrMovementExists indicates a movement already covers the reference item.
var ErrMovementExists = errors.New("inventory: movement already recorded")

// Repository encapsulates DB operations for stock movements.
type Repository interface {
	MissingSaleMovements(ctx context.Context, companyID int64) ([]Candidate, error)
	MissingPurchaseMovements(ctx context.Context, companyID int64) ([]Candidate, error)
	InsertMovement(ctx context.Context, movement StockMovement) (StockMovement, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// MissingSaleMovements scans finalized sale items without an out-movement.
func (r *repository) MissingSaleMovements(ctx context.Context, companyID int64) ([]Candidate, error) {
	rows, err := r.db.Query(ctx, `SELECT s.company_id, s.branch_id, i.product_id, i.quantity, i.id
FROM sale_items i
JOIN sales s ON s.id = i.sale_id
WHERE s.company_id=$1 AND s.status = 'finalized'
  AND NOT EXISTS (
    SELECT 1 FROM stock_movements m
    WHERE m.reference_type = 'sale_item' AND m.reference_id = i.id
  )
ORDER BY i.id`, companyID)
	if err != nil {
		return nil, err
	}
	return scanCandidates(rows, MovementOut, "sale_item")
}

// MissingPurchaseMovements scans received purchase items without an in-movement.
func (r *repository) MissingPurchaseMovements(ctx context.Context, companyID int64) ([]Candidate, error) {
	rows, err := r.db.Query(ctx, `SELECT p.company_id, p.branch_id, i.product_id, i.quantity, i.id
FROM purchase_items i
JOIN purchases p ON p.id = i.purchase_id
WHERE p.company_id=$1 AND p.status = 'received'
  AND NOT EXISTS (
    SELECT 1 FROM stock_movements m
    WHERE m.reference_type = 'purchase_item' AND m.reference_id = i.id
  )
ORDER BY i.id`, companyID)
	if err != nil {
		return nil, err
	}
	return scanCandidates(rows, MovementIn, "purchase_item")
}

func (r *repository) InsertMovement(ctx context.Context, movement StockMovement) (StockMovement, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO stock_movements (company_id, branch_id, product_id, movement_no, movement_type, quantity, reference_type, reference_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at`,
		movement.CompanyID, movement.BranchID, movement.ProductID, movement.MovementNo,
		movement.MovementType, movement.Quantity, movement.ReferenceType, movement.ReferenceID)
	if err := row.Scan(&movement.ID, &movement.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return StockMovement{}, ErrMovementExists
		}
		return StockMovement{}, err
	}
	return movement, nil
}

type rowsScanner interface {
	Next() bool
	Scan(dest ...any) error
	Close()
	Err() error
}

func scanCandidates(rows rowsScanner, movementType MovementType, referenceType string) ([]Candidate, error) {
	defer rows.Close()
	var candidates []Candidate
	for rows.Next() {
		c := Candidate{MovementType: movementType, ReferenceType: referenceType}
		if err := rows.Scan(&c.CompanyID, &c.BranchID, &c.ProductID, &c.Quantity, &c.ReferenceID); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
