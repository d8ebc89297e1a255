package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository encapsulates DB operations for user provisioning.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the writes of one provisioning transaction.
type TxRepository interface {
	InsertAuthUser(ctx context.Context, email, passwordHash string) (uuid.UUID, error)
	InsertUser(ctx context.Context, user User) (User, error)
	GrantBranches(ctx context.Context, userID int64, branchIDs []int64) (int, error)
	GrantAccounts(ctx context.Context, userID int64, accountIDs []int64) (int, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
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

func (r *txRepository) InsertAuthUser(ctx context.Context, email, passwordHash string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.tx.QueryRow(ctx, `INSERT INTO auth_users (email, password_hash) VALUES ($1,$2) RETURNING id`,
		email, passwordHash).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, ErrEmailTaken
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (r *txRepository) InsertUser(ctx context.Context, user User) (User, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO users (auth_user_id, company_id, email, full_name, role, is_active)
VALUES ($1,$2,$3,$4,$5,TRUE) RETURNING id, is_active, created_at, updated_at`,
		user.AuthUserID, user.CompanyID, user.Email, user.FullName, user.Role)
	if err := row.Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return user, nil
}

func (r *txRepository) GrantBranches(ctx context.Context, userID int64, branchIDs []int64) (int, error) {
	count := 0
	for _, branchID := range branchIDs {
		tag, err := r.tx.Exec(ctx, `INSERT INTO user_branch_access (user_id, branch_id)
VALUES ($1,$2) ON CONFLICT DO NOTHING`, userID, branchID)
		if err != nil {
			return count, err
		}
		count += int(tag.RowsAffected())
	}
	return count, nil
}

func (r *txRepository) GrantAccounts(ctx context.Context, userID int64, accountIDs []int64) (int, error) {
	count := 0
	for _, accountID := range accountIDs {
		tag, err := r.tx.Exec(ctx, `INSERT INTO user_account_access (user_id, account_id)
VALUES ($1,$2) ON CONFLICT DO NOTHING`, userID, accountID)
		if err != nil {
			return count, err
		}
		count += int(tag.RowsAffected())
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
