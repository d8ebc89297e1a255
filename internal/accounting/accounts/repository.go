package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loomworks-erp/loomworks-erp/internal/accounting/shared"
)

// Repository encapsulates DB operations for the chart of accounts.
type Repository interface {
	List(ctx context.Context, companyID int64) ([]Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	Create(ctx context.Context, account Account) (Account, error)
	ResolveRole(ctx context.Context, companyID int64, role Role) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, company_id, code, name, type, opening_balance, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, companyID int64) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id=$1 ORDER BY code ASC`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &a.Type, &a.OpeningBalance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id).
		Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &a.Type, &a.OpeningBalance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotConfigured
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Create(ctx context.Context, account Account) (Account, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO accounts (company_id, code, name, type, opening_balance, is_active)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at, updated_at`,
		account.CompanyID, account.Code, account.Name, account.Type, fmt.Sprintf("%.2f", account.OpeningBalance), account.IsActive).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// ResolveRole looks up the explicit mapping first and falls back to the
// conventional account codes the legacy data used (2000/1100 for AR).
func (r *repository) ResolveRole(ctx context.Context, companyID int64, role Role) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `SELECT account_id FROM account_defaults WHERE company_id=$1 AND role=$2`, companyID, role).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	code, name := legacyHint(role)
	err = r.db.QueryRow(ctx, `SELECT id FROM accounts WHERE company_id=$1 AND (code = ANY($2) OR name ILIKE $3) AND is_active ORDER BY code LIMIT 1`,
		companyID, code, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s", shared.ErrAccountNotConfigured, role)
		}
		return 0, err
	}
	return id, nil
}

func legacyHint(role Role) ([]string, string) {
	switch role {
	case RoleReceivable:
		return []string{"2000", "1100"}, "%Accounts Receivable%"
	case RolePayable:
		return []string{"2100"}, "%Accounts Payable%"
	case RoleSalesReturn:
		return []string{"4100"}, "%Sales Return%"
	case RoleCashBank:
		return []string{"1000", "1010"}, "%Cash%"
	case RoleStaffPayable:
		return []string{"2200"}, "%Staff Payable%"
	default:
		return []string{}, ""
	}
}
