package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Service wraps user provisioning and authentication rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Provision creates the credential record, the application user and the
// branch/account grants in one transaction. A duplicate email aborts the
// whole thing.
func (s *Service) Provision(ctx context.Context, in ProvisionInput) (ProvisionResult, error) {
	if err := validateProvision(in); err != nil {
		return ProvisionResult{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return ProvisionResult{}, err
	}
	var result ProvisionResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		authUserID, err := tx.InsertAuthUser(ctx, in.Email, string(hash))
		if err != nil {
			return err
		}
		user, err := tx.InsertUser(ctx, User{
			AuthUserID: authUserID,
			CompanyID:  in.CompanyID,
			Email:      in.Email,
			FullName:   in.FullName,
			Role:       in.Role,
		})
		if err != nil {
			return err
		}
		branches, err := tx.GrantBranches(ctx, user.ID, in.BranchIDs)
		if err != nil {
			return err
		}
		accounts, err := tx.GrantAccounts(ctx, user.ID, in.AccountIDs)
		if err != nil {
			return err
		}
		result = ProvisionResult{
			Success:               true,
			UserID:                user.ID,
			AuthUserID:            authUserID,
			AssignedBranchesCount: branches,
			AssignedAccountsCount: accounts,
		}
		return nil
	})
	if err != nil {
		return ProvisionResult{}, err
	}
	if s.logger != nil {
		s.logger.Info("user provisioned",
			slog.String("email", in.Email),
			slog.Int64("user_id", result.UserID),
			slog.Int("branches", result.AssignedBranchesCount),
			slog.Int("accounts", result.AssignedAccountsCount))
	}
	return result, nil
}

func validateProvision(in ProvisionInput) error {
	if in.CompanyID <= 0 {
		return errors.New("users: company id required")
	}
	email := strings.TrimSpace(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return errors.New("users: a valid email is required")
	}
	if len(in.Password) < 8 {
		return errors.New("users: password must be at least 8 characters")
	}
	if strings.TrimSpace(in.FullName) == "" {
		return errors.New("users: full name required")
	}
	switch in.Role {
	case "admin", "manager", "staff":
	default:
		return errors.New("users: role must be admin, manager or staff")
	}
	return nil
}
