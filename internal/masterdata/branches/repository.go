package branches

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loomworks-erp/loomworks-erp/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Branch, int, error)
	Get(ctx context.Context, id int64) (Branch, error)
	Create(ctx context.Context, branch Branch) (Branch, error)
	Update(ctx context.Context, id int64, branch Branch) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const branchColumns = `id, company_id, code, name, address, is_active, created_at, updated_at`

func scanBranch(row pgx.Row) (Branch, error) {
	var b Branch
	err := row.Scan(&b.ID, &b.CompanyID, &b.Code, &b.Name, &b.Address, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Branch, int, error) {
	query := `SELECT ` + branchColumns + ` FROM branches WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM branches WHERE 1=1`
	args := []any{}

	if filters.CompanyID != nil {
		args = append(args, *filters.CompanyID)
		cond := ` AND company_id=$` + strconv.Itoa(len(args))
		query += cond
		countQuery += cond
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		cond := ` AND (name ILIKE $` + strconv.Itoa(len(args)) + ` OR code ILIKE $` + strconv.Itoa(len(args)) + `)`
		query += cond
		countQuery += cond
	}
	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		cond := ` AND is_active=$` + strconv.Itoa(len(args))
		query += cond
		countQuery += cond
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY name ASC`
	args = append(args, filters.Limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	args = append(args, filters.Offset())
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var branches []Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, 0, err
		}
		branches = append(branches, b)
	}
	return branches, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Branch, error) {
	b, err := scanBranch(r.pool.QueryRow(ctx, `SELECT `+branchColumns+` FROM branches WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Branch{}, shared.ErrNotFound
		}
		return Branch{}, err
	}
	return b, nil
}

func (r *repository) Create(ctx context.Context, branch Branch) (Branch, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO branches (company_id, code, name, address, is_active)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at, updated_at`,
		branch.CompanyID, branch.Code, branch.Name, branch.Address, branch.IsActive)
	if err := row.Scan(&branch.ID, &branch.CreatedAt, &branch.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return Branch{}, shared.ErrDuplicate
			case "23503":
				return Branch{}, shared.ErrNotFound
			}
		}
		return Branch{}, err
	}
	return branch, nil
}

func (r *repository) Update(ctx context.Context, id int64, branch Branch) error {
	tag, err := r.pool.Exec(ctx, `UPDATE branches SET code=$1, name=$2, address=$3, updated_at=NOW() WHERE id=$4`,
		branch.Code, branch.Name, branch.Address, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE branches SET is_active=$1, updated_at=NOW() WHERE id=$2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
