package returns

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/loomworks-erp/loomworks-erp/internal/accounting/accounts"
	"github.com/loomworks-erp/loomworks-erp/internal/accounting/journals"
	"github.com/loomworks-erp/loomworks-erp/internal/accounting/shared"
	"github.com/loomworks-erp/loomworks-erp/internal/ledger"
	"github.com/loomworks-erp/loomworks-erp/internal/sequences"
)

type memoryReturnsRepo struct {
	saleStatus  map[uuid.UUID]string
	creditNotes map[uuid.UUID]CreditNote
	refunds     map[uuid.UUID]Refund
	posted      []journals.PostingInput
	appended    []ledger.AppendInput
	counters    map[sequences.DocumentType]int64
	nextID      int64
	insertErr   error
}

func newMemoryReturnsRepo() *memoryReturnsRepo {
	return &memoryReturnsRepo{
		saleStatus:  make(map[uuid.UUID]string),
		creditNotes: make(map[uuid.UUID]CreditNote),
		refunds:     make(map[uuid.UUID]Refund),
		counters:    make(map[sequences.DocumentType]int64),
	}
}

func (r *memoryReturnsRepo) SaleStatus(ctx context.Context, saleID uuid.UUID) (string, error) {
	status, ok := r.saleStatus[saleID]
	if !ok {
		return "", ErrSaleNotFound
	}
	return status, nil
}

func (r *memoryReturnsRepo) GetCreditNoteBySale(ctx context.Context, saleID uuid.UUID) (CreditNote, error) {
	note, ok := r.creditNotes[saleID]
	if !ok {
		return CreditNote{}, ErrCreditNoteMissing
	}
	return note, nil
}

func (r *memoryReturnsRepo) GetRefundBySale(ctx context.Context, saleID uuid.UUID) (Refund, error) {
	refund, ok := r.refunds[saleID]
	if !ok {
		return Refund{}, ErrRefundMissing
	}
	return refund, nil
}

// WithTx stages every write and merges only on success, mirroring the
// rollback behaviour of the real transaction.
func (r *memoryReturnsRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryReturnsTx{repo: r, minted: make(map[sequences.DocumentType]int64)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for doc, n := range tx.minted {
		r.counters[doc] += n
	}
	for _, note := range tx.notes {
		r.creditNotes[note.SaleID] = note
	}
	for _, refund := range tx.refunds {
		r.refunds[refund.SaleID] = refund
	}
	r.posted = append(r.posted, tx.posted...)
	r.appended = append(r.appended, tx.appended...)
	return nil
}

type memoryReturnsTx struct {
	repo     *memoryReturnsRepo
	notes    []CreditNote
	refunds  []Refund
	posted   []journals.PostingInput
	appended []ledger.AppendInput
	minted   map[sequences.DocumentType]int64
}

func (t *memoryReturnsTx) MintNumber(ctx context.Context, companyID int64, branchID *int64, docType sequences.DocumentType) (string, error) {
	prefix := map[sequences.DocumentType]string{
		sequences.DocCreditNote: "CN",
		sequences.DocRefund:     "RF",
	}[docType]
	t.minted[docType]++
	return sequences.Format(prefix, t.repo.counters[docType]+t.minted[docType], 4), nil
}

func (t *memoryReturnsTx) PostJournal(ctx context.Context, in journals.PostingInput, receivableAccountID int64) (journals.JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return journals.JournalEntry{}, err
	}
	if err := in.ValidateReceivableRules(receivableAccountID); err != nil {
		return journals.JournalEntry{}, err
	}
	for _, prior := range t.repo.posted {
		if prior.Kind == in.Kind && prior.ReferenceID == in.ReferenceID {
			return journals.JournalEntry{}, shared.ErrSourceAlreadyLinked
		}
	}
	t.repo.nextID++
	t.posted = append(t.posted, in)
	return journals.JournalEntry{ID: t.repo.nextID, CompanyID: in.CompanyID, Kind: in.Kind}, nil
}

func (t *memoryReturnsTx) InsertCreditNote(ctx context.Context, note CreditNote) (CreditNote, error) {
	if err := t.repo.insertErr; err != nil {
		t.repo.insertErr = nil
		return CreditNote{}, err
	}
	if _, exists := t.repo.creditNotes[note.SaleID]; exists {
		return CreditNote{}, ErrCreditNoteExists
	}
	t.repo.nextID++
	note.ID = t.repo.nextID
	t.notes = append(t.notes, note)
	return note, nil
}

func (t *memoryReturnsTx) InsertRefund(ctx context.Context, refund Refund) (Refund, error) {
	if err := t.repo.insertErr; err != nil {
		t.repo.insertErr = nil
		return Refund{}, err
	}
	if _, exists := t.repo.refunds[refund.SaleID]; exists {
		return Refund{}, ErrRefundExists
	}
	t.repo.nextID++
	refund.ID = t.repo.nextID
	t.refunds = append(t.refunds, refund)
	return refund, nil
}

func (t *memoryReturnsTx) AppendLedger(ctx context.Context, in ledger.AppendInput) (ledger.Entry, error) {
	t.appended = append(t.appended, in)
	return ledger.Entry{}, nil
}

type fakeRoles struct {
	roles map[accounts.Role]int64
}

func (f *fakeRoles) RequireRole(ctx context.Context, companyID int64, role accounts.Role) (int64, error) {
	id, ok := f.roles[role]
	if !ok {
		return 0, fmt.Errorf("%w: %s", shared.ErrAccountNotConfigured, role)
	}
	return id, nil
}

type fixture struct {
	repo     *memoryReturnsRepo
	roles    *fakeRoles
	svc      *Service
	saleID   uuid.UUID
	customer uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo: newMemoryReturnsRepo(),
		roles: &fakeRoles{roles: map[accounts.Role]int64{
			accounts.RoleReceivable:  10,
			accounts.RoleSalesReturn: 40,
			accounts.RoleCashBank:    30,
		}},
		saleID:   uuid.New(),
		customer: uuid.New(),
	}
	f.repo.saleStatus[f.saleID] = SaleStatusCancelled
	f.svc = NewService(f.repo, f.roles, nil)
	return f
}

func (f *fixture) creditNoteInput(amount float64) CreditNoteInput {
	return CreditNoteInput{
		CompanyID:  1,
		SaleID:     f.saleID,
		CustomerID: f.customer,
		Amount:     amount,
		Reason:     "damaged goods",
	}
}

func TestCreateCreditNote(t *testing.T) {
	f := newFixture(t)

	note, err := f.svc.CreateCreditNote(context.Background(), f.creditNoteInput(5000))
	require.NoError(t, err)
	require.Equal(t, "CN-0001", note.NoteNo)
	require.Equal(t, 5000.0, note.Amount)

	// Exactly one journal entry: Dr sales return, Cr receivable.
	require.Len(t, f.repo.posted, 1)
	posted := f.repo.posted[0]
	require.Equal(t, journals.KindCreditNote, posted.Kind)
	require.Len(t, posted.Lines, 2)
	require.Equal(t, int64(40), posted.Lines[0].AccountID)
	require.Equal(t, 5000.0, posted.Lines[0].Debit)
	require.Equal(t, int64(10), posted.Lines[1].AccountID)
	require.Equal(t, 5000.0, posted.Lines[1].Credit)

	// Customer ledger receives the credit side.
	require.Len(t, f.repo.appended, 1)
	require.Equal(t, ledger.SourceCreditNote, f.repo.appended[0].Source)
	require.Equal(t, 5000.0, f.repo.appended[0].Credit)
}

func TestCreateCreditNoteRequiresCancelledSale(t *testing.T) {
	f := newFixture(t)
	f.repo.saleStatus[f.saleID] = "finalized"

	_, err := f.svc.CreateCreditNote(context.Background(), f.creditNoteInput(5000))
	require.ErrorIs(t, err, ErrSaleNotCancelled)
	require.Empty(t, f.repo.posted)
}

func TestCreateCreditNoteDuplicate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateCreditNote(context.Background(), f.creditNoteInput(5000))
	require.NoError(t, err)
	_, err = f.svc.CreateCreditNote(context.Background(), f.creditNoteInput(5000))
	require.ErrorIs(t, err, ErrCreditNoteExists)
	require.Len(t, f.repo.posted, 1)
}

func TestCreateCreditNoteMissingAccount(t *testing.T) {
	f := newFixture(t)
	delete(f.roles.roles, accounts.RoleSalesReturn)

	_, err := f.svc.CreateCreditNote(context.Background(), f.creditNoteInput(5000))
	require.ErrorIs(t, err, shared.ErrAccountNotConfigured)
	require.Contains(t, err.Error(), "sales_return")
	require.Empty(t, f.repo.posted)
	require.Empty(t, f.repo.creditNotes)
}

func TestCreateCreditNoteUnknownSale(t *testing.T) {
	f := newFixture(t)
	in := f.creditNoteInput(100)
	in.SaleID = uuid.New()
	_, err := f.svc.CreateCreditNote(context.Background(), in)
	require.ErrorIs(t, err, ErrSaleNotFound)
}

func TestCreateCreditNoteRetriesAfterRollback(t *testing.T) {
	f := newFixture(t)
	f.repo.insertErr = fmt.Errorf("insert credit note: connection reset")

	// The failed attempt rolls the whole transaction back, so neither the
	// journal entry nor the source link survives to block a retry.
	_, err := f.svc.CreateCreditNote(context.Background(), f.creditNoteInput(5000))
	require.Error(t, err)
	require.Empty(t, f.repo.posted)
	require.Empty(t, f.repo.creditNotes)
	require.Empty(t, f.repo.appended)

	note, err := f.svc.CreateCreditNote(context.Background(), f.creditNoteInput(5000))
	require.NoError(t, err)
	// The rolled-back attempt did not burn the note number either.
	require.Equal(t, "CN-0001", note.NoteNo)
	require.Len(t, f.repo.posted, 1)
	require.Len(t, f.repo.appended, 1)
}

func TestCreateRefund(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateCreditNote(context.Background(), f.creditNoteInput(5000))
	require.NoError(t, err)

	refund, err := f.svc.CreateRefund(context.Background(), RefundInput{
		CompanyID:  1,
		SaleID:     f.saleID,
		CustomerID: f.customer,
		Amount:     5000,
		Method:     "bank_transfer",
	})
	require.NoError(t, err)
	require.Equal(t, "RF-0001", refund.RefundNo)

	require.Len(t, f.repo.posted, 2)
	posted := f.repo.posted[1]
	require.Equal(t, journals.KindRefund, posted.Kind)
	require.Equal(t, int64(10), posted.Lines[0].AccountID)
	require.Equal(t, 5000.0, posted.Lines[0].Debit)
	require.Equal(t, int64(30), posted.Lines[1].AccountID)
	require.Equal(t, 5000.0, posted.Lines[1].Credit)

	require.Len(t, f.repo.appended, 2)
	require.Equal(t, ledger.SourceRefund, f.repo.appended[1].Source)
	require.Equal(t, 5000.0, f.repo.appended[1].Debit)
}

func TestCreateRefundRequiresCreditNote(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateRefund(context.Background(), RefundInput{
		CompanyID: 1, SaleID: f.saleID, CustomerID: f.customer, Amount: 5000, Method: "cash",
	})
	require.ErrorIs(t, err, ErrCreditNoteMissing)
}

func TestCreateRefundDuplicate(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateCreditNote(context.Background(), f.creditNoteInput(5000))
	require.NoError(t, err)
	in := RefundInput{CompanyID: 1, SaleID: f.saleID, CustomerID: f.customer, Amount: 5000, Method: "cash"}
	_, err = f.svc.CreateRefund(context.Background(), in)
	require.NoError(t, err)
	_, err = f.svc.CreateRefund(context.Background(), in)
	require.ErrorIs(t, err, ErrRefundExists)
}

func TestCreateRefundRetriesAfterRollback(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateCreditNote(context.Background(), f.creditNoteInput(5000))
	require.NoError(t, err)
	f.repo.insertErr = fmt.Errorf("insert refund: connection reset")

	in := RefundInput{CompanyID: 1, SaleID: f.saleID, CustomerID: f.customer, Amount: 5000, Method: "cash"}
	_, err = f.svc.CreateRefund(context.Background(), in)
	require.Error(t, err)
	require.Len(t, f.repo.posted, 1)
	require.Empty(t, f.repo.refunds)

	refund, err := f.svc.CreateRefund(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "RF-0001", refund.RefundNo)
	require.Len(t, f.repo.posted, 2)
}

func TestReturnAmountsMustBePositive(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateCreditNote(context.Background(), f.creditNoteInput(0))
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.svc.CreateRefund(context.Background(), RefundInput{
		CompanyID: 1, SaleID: f.saleID, CustomerID: f.customer, Amount: -5, Method: "cash",
	})
	require.ErrorIs(t, err, ErrInvalidAmount)
}
