package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/loomworks-erp/loomworks-erp/internal/accounting/shared"
)

// Service handles chart-of-accounts business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the chart of accounts for a company.
func (s *Service) List(ctx context.Context, companyID int64) ([]Account, error) {
	if companyID <= 0 {
		return nil, errors.New("accounts: company id required")
	}
	return s.repo.List(ctx, companyID)
}

// Create registers a new account.
func (s *Service) Create(ctx context.Context, account Account) (Account, error) {
	if account.CompanyID <= 0 {
		return Account{}, errors.New("accounts: company id required")
	}
	if account.Code == "" || account.Name == "" {
		return Account{}, errors.New("accounts: code and name required")
	}
	switch account.Type {
	case TypeAsset, TypeLiability, TypeEquity, TypeIncome, TypeExpense:
	default:
		return Account{}, fmt.Errorf("accounts: unknown type %q", account.Type)
	}
	return s.repo.Create(ctx, account)
}

// ResolveDefaults resolves every well-known role for a company. Roles that
// cannot be resolved are left zero; callers requiring a role use RequireRole.
func (s *Service) ResolveDefaults(ctx context.Context, companyID int64) (Defaults, error) {
	var d Defaults
	targets := []struct {
		role Role
		dst  *int64
	}{
		{RoleReceivable, &d.ReceivableID},
		{RolePayable, &d.PayableID},
		{RoleSalesReturn, &d.SalesReturnID},
		{RoleCashBank, &d.CashBankID},
		{RoleStaffPayable, &d.StaffPayableID},
	}
	for _, t := range targets {
		id, err := s.repo.ResolveRole(ctx, companyID, t.role)
		if err != nil {
			if errors.Is(err, shared.ErrAccountNotConfigured) {
				continue
			}
			return Defaults{}, err
		}
		*t.dst = id
	}
	return d, nil
}

// RequireRole resolves one role or fails with a descriptive error, e.g.
// "accounting: default account not configured: sales_return".
func (s *Service) RequireRole(ctx context.Context, companyID int64, role Role) (int64, error) {
	id, err := s.repo.ResolveRole(ctx, companyID, role)
	if err != nil {
		return 0, err
	}
	return id, nil
}
