package users

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrEmailTaken indicates the email is already provisioned.
	ErrEmailTaken = errors.New("users: email already in use")
)

// User represents an application user account.
type User struct {
	ID         int64     `json:"id"`
	AuthUserID uuid.UUID `json:"auth_user_id"`
	CompanyID  int64     `json:"company_id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AuthUser carries the credential record behind a user.
type AuthUser struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// ProvisionInput describes a user to provision with their access grants.
type ProvisionInput struct {
	CompanyID  int64
	Email      string
	Password   string
	FullName   string
	Role       string
	BranchIDs  []int64
	AccountIDs []int64
}

// ProvisionResult mirrors the provisioning response contract.
type ProvisionResult struct {
	Success               bool      `json:"success"`
	UserID                int64     `json:"user_id"`
	AuthUserID            uuid.UUID `json:"auth_user_id"`
	AssignedBranchesCount int       `json:"assignedBranchesCount"`
	AssignedAccountsCount int       `json:"assignedAccountsCount"`
}
