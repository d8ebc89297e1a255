package accounts

import "time"

// AccountType enumerates chart-of-account categories.
type AccountType string

const (
	TypeAsset     AccountType = "asset"
	TypeLiability AccountType = "liability"
	TypeEquity    AccountType = "equity"
	TypeIncome    AccountType = "income"
	TypeExpense   AccountType = "expense"
)

// Role names the well-known accounts posting services depend on.
type Role string

const (
	RoleReceivable   Role = "accounts_receivable"
	RolePayable      Role = "accounts_payable"
	RoleSalesReturn  Role = "sales_return"
	RoleCashBank     Role = "cash_bank"
	RoleStaffPayable Role = "staff_payable"
)

// Account is one row of the chart of accounts.
type Account struct {
	ID             int64
	CompanyID      int64
	Code           string
	Name           string
	Type           AccountType
	OpeningBalance float64
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Defaults resolves the account ids behind each well-known role.
type Defaults struct {
	ReceivableID   int64
	PayableID      int64
	SalesReturnID  int64
	CashBankID     int64
	StaffPayableID int64
}

// ForRole returns the resolved id for a role, zero when unresolved.
func (d Defaults) ForRole(role Role) int64 {
	switch role {
	case RoleReceivable:
		return d.ReceivableID
	case RolePayable:
		return d.PayableID
	case RoleSalesReturn:
		return d.SalesReturnID
	case RoleCashBank:
		return d.CashBankID
	case RoleStaffPayable:
		return d.StaffPayableID
	default:
		return 0
	}
}
