package journals

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/loomworks-erp/loomworks-erp/internal/accounting/shared"
)

func validPosting() PostingInput {
	return PostingInput{
		CompanyID:   1,
		EntryDate:   time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Description: "Invoice INV-0007",
		Kind:        KindSale,
		ReferenceID: uuid.New(),
		Lines: []PostingLineInput{
			{AccountID: 10, Debit: 1500},
			{AccountID: 20, Credit: 1500},
		},
	}
}

func TestPostingInputValidate(t *testing.T) {
	require.NoError(t, validPosting().Validate())
}

func TestPostingInputValidateUnbalanced(t *testing.T) {
	in := validPosting()
	in.Lines[1].Credit = 1400
	err := in.Validate()
	require.ErrorIs(t, err, shared.ErrUnbalanced)
}

func TestPostingInputValidateTolerance(t *testing.T) {
	in := validPosting()
	in.Lines[0].Debit = 1500.009
	require.NoError(t, in.Validate())

	in.Lines[0].Debit = 1500.02
	require.ErrorIs(t, in.Validate(), shared.ErrUnbalanced)
}

func TestPostingInputValidateBothSides(t *testing.T) {
	in := validPosting()
	in.Lines[0].Credit = 5
	in.Lines[0].Debit = 5
	require.ErrorIs(t, in.Validate(), shared.ErrBothSides)
}

func TestPostingInputValidateTooFewLines(t *testing.T) {
	in := validPosting()
	in.Lines = in.Lines[:1]
	require.ErrorIs(t, in.Validate(), shared.ErrTooFewLines)
}

func TestPostingInputValidateNegativeAmount(t *testing.T) {
	in := validPosting()
	in.Lines[0].Debit = -10
	require.Error(t, in.Validate())
}

func TestPostingInputValidateUnknownKind(t *testing.T) {
	in := validPosting()
	in.Kind = "gift"
	require.Error(t, in.Validate())
}

func TestReceivableRules(t *testing.T) {
	const arAccount = int64(10)

	sale := validPosting()
	require.NoError(t, sale.ValidateReceivableRules(arAccount))

	// Sale crediting AR is a rule violation.
	badSale := validPosting()
	badSale.Lines = []PostingLineInput{
		{AccountID: 20, Debit: 1500},
		{AccountID: arAccount, Credit: 1500},
	}
	require.ErrorIs(t, badSale.ValidateReceivableRules(arAccount), shared.ErrReceivableRule)

	payment := validPosting()
	payment.Kind = KindPayment
	payment.Lines = []PostingLineInput{
		{AccountID: 30, Debit: 500},
		{AccountID: arAccount, Credit: 500},
	}
	require.NoError(t, payment.ValidateReceivableRules(arAccount))

	badPayment := validPosting()
	badPayment.Kind = KindPayment
	require.ErrorIs(t, badPayment.ValidateReceivableRules(arAccount), shared.ErrReceivableRule)

	commission := validPosting()
	commission.Kind = KindCommission
	require.ErrorIs(t, commission.ValidateReceivableRules(arAccount), shared.ErrReceivableRule)

	// Commission entries away from AR are fine.
	commission.Lines = []PostingLineInput{
		{AccountID: 40, Debit: 100},
		{AccountID: 50, Credit: 100},
	}
	require.NoError(t, commission.ValidateReceivableRules(arAccount))
}
