package ledger

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryLedgerRepo struct {
	masters       map[string]Master
	entries       map[int64][]Entry
	workerEntries []WorkerEntry
	nextMasterID  int64
	nextEntryID   int64
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		masters: make(map[string]Master),
		entries: make(map[int64][]Entry),
	}
}

func masterKey(companyID int64, entityType EntityType, entityID uuid.UUID) string {
	return string(entityType) + "/" + entityID.String()
}

func (r *memoryLedgerRepo) EnsureMaster(ctx context.Context, companyID int64, entityType EntityType, entityID uuid.UUID) (Master, error) {
	key := masterKey(companyID, entityType, entityID)
	if m, ok := r.masters[key]; ok {
		return m, nil
	}
	r.nextMasterID++
	m := Master{ID: r.nextMasterID, CompanyID: companyID, EntityType: entityType, EntityID: entityID}
	r.masters[key] = m
	return m, nil
}

func (r *memoryLedgerRepo) LastBalanceBefore(ctx context.Context, ledgerID int64, before time.Time) (float64, bool, error) {
	entries := r.sorted(ledgerID)
	var (
		balance float64
		found   bool
	)
	for _, e := range entries {
		if e.EntryDate.Before(before) {
			balance = e.BalanceAfter
			found = true
		}
	}
	return balance, found, nil
}

func (r *memoryLedgerRepo) EntriesBetween(ctx context.Context, ledgerID int64, from, to *time.Time, sources []Source) ([]Entry, error) {
	allowed := make(map[Source]bool, len(sources))
	for _, s := range sources {
		allowed[s] = true
	}
	var out []Entry
	for _, e := range r.sorted(ledgerID) {
		if from != nil && e.EntryDate.Before(*from) {
			continue
		}
		if to != nil && e.EntryDate.After(*to) {
			continue
		}
		if len(sources) > 0 && !allowed[e.Source] {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *memoryLedgerRepo) sorted(ledgerID int64) []Entry {
	entries := append([]Entry(nil), r.entries[ledgerID]...)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].EntryDate.Equal(entries[j].EntryDate) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].EntryDate.Before(entries[j].EntryDate)
	})
	return entries
}

func (r *memoryLedgerRepo) WorkerEntries(ctx context.Context, companyID int64, workerID uuid.UUID, from, to *time.Time) ([]WorkerEntry, error) {
	var out []WorkerEntry
	for _, e := range r.workerEntries {
		if e.WorkerID == workerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryLedgerTx{repo: r})
}

type memoryLedgerTx struct {
	repo *memoryLedgerRepo
}

func (t *memoryLedgerTx) EnsureMasterForUpdate(ctx context.Context, companyID int64, entityType EntityType, entityID uuid.UUID) (Master, error) {
	return t.repo.EnsureMaster(ctx, companyID, entityType, entityID)
}

func (t *memoryLedgerTx) LatestBalance(ctx context.Context, ledgerID int64) (float64, bool, error) {
	entries := t.repo.sorted(ledgerID)
	if len(entries) == 0 {
		return 0, false, nil
	}
	return entries[len(entries)-1].BalanceAfter, true, nil
}

func (t *memoryLedgerTx) InsertEntry(ctx context.Context, ledgerID int64, in AppendInput, balanceAfter float64) (Entry, error) {
	t.repo.nextEntryID++
	e := Entry{
		ID:           t.repo.nextEntryID,
		LedgerID:     ledgerID,
		Source:       in.Source,
		ReferenceID:  in.ReferenceID,
		ReferenceNo:  in.ReferenceNo,
		EntryDate:    in.EntryDate,
		Debit:        in.Debit,
		Credit:       in.Credit,
		BalanceAfter: balanceAfter,
		Remarks:      in.Remarks,
		CreatedAt:    in.EntryDate,
	}
	t.repo.entries[ledgerID] = append(t.repo.entries[ledgerID], e)
	return e, nil
}

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func appendAll(t *testing.T, svc *Service, customerID uuid.UUID, inputs []AppendInput) {
	t.Helper()
	for _, in := range inputs {
		_, err := svc.Append(context.Background(), in)
		require.NoError(t, err)
	}
}

func customerInputs(customerID uuid.UUID) []AppendInput {
	return []AppendInput{
		{CompanyID: 1, EntityType: EntityCustomer, EntityID: customerID, Source: SourceSale, ReferenceID: uuid.New(), ReferenceNo: "INV-0001", EntryDate: day(2), Debit: 1000},
		{CompanyID: 1, EntityType: EntityCustomer, EntityID: customerID, Source: SourceSale, ReferenceID: uuid.New(), ReferenceNo: "INV-0002", EntryDate: day(3), Debit: 2000},
		{CompanyID: 1, EntityType: EntityCustomer, EntityID: customerID, Source: SourceSale, ReferenceID: uuid.New(), ReferenceNo: "INV-0003", EntryDate: day(4), Debit: 1500},
		{CompanyID: 1, EntityType: EntityCustomer, EntityID: customerID, Source: SourcePayment, ReferenceID: uuid.New(), ReferenceNo: "PAY-0001", EntryDate: day(5), Credit: 500},
		{CompanyID: 1, EntityType: EntityCustomer, EntityID: customerID, Source: SourcePayment, ReferenceID: uuid.New(), ReferenceNo: "PAY-0002", EntryDate: day(6), Credit: 1000},
	}
}

func TestStatementClosingBalance(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	customerID := uuid.New()
	appendAll(t, svc, customerID, customerInputs(customerID))

	st, err := svc.Statement(context.Background(), StatementQuery{
		CompanyID: 1, EntityType: EntityCustomer, EntityID: customerID,
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, st.OpeningBalance)
	require.Equal(t, 4500.0, st.TotalDebit)
	require.Equal(t, 1500.0, st.TotalCredit)
	require.Equal(t, 3000.0, st.ClosingBalance)
	require.Len(t, st.Transactions, 5)

	// Running balances progress debit minus credit.
	require.Equal(t, 1000.0, st.Transactions[0].Balance)
	require.Equal(t, 3000.0, st.Transactions[1].Balance)
	require.Equal(t, 4500.0, st.Transactions[2].Balance)
	require.Equal(t, 4000.0, st.Transactions[3].Balance)
	require.Equal(t, 3000.0, st.Transactions[4].Balance)
}

func TestStatementFoldIsIdempotent(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	customerID := uuid.New()
	appendAll(t, svc, customerID, customerInputs(customerID))

	q := StatementQuery{CompanyID: 1, EntityType: EntityCustomer, EntityID: customerID}
	first, err := svc.Statement(context.Background(), q)
	require.NoError(t, err)
	second, err := svc.Statement(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestStatementWindowOpening(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	customerID := uuid.New()
	appendAll(t, svc, customerID, customerInputs(customerID))

	from := day(4)
	st, err := svc.Statement(context.Background(), StatementQuery{
		CompanyID: 1, EntityType: EntityCustomer, EntityID: customerID, FromDate: &from,
	})
	require.NoError(t, err)
	// Opening picks up the balance after the day-3 sale.
	require.Equal(t, 3000.0, st.OpeningBalance)
	require.Len(t, st.Transactions, 3)
	require.Equal(t, st.OpeningBalance+st.TotalDebit-st.TotalCredit, st.ClosingBalance)
}

func TestStatementEmptyLedger(t *testing.T) {
	svc := NewService(newMemoryLedgerRepo(), nil)
	st, err := svc.Statement(context.Background(), StatementQuery{
		CompanyID: 1, EntityType: EntityCustomer, EntityID: uuid.New(),
	})
	require.NoError(t, err)
	require.Zero(t, st.OpeningBalance)
	require.Zero(t, st.ClosingBalance)
	require.Empty(t, st.Transactions)
	require.Empty(t, st.Invoices)
}

func TestStatementRemarksNeverReclassify(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	customerID := uuid.New()
	appendAll(t, svc, customerID, customerInputs(customerID))

	before, err := svc.Statement(context.Background(), StatementQuery{
		CompanyID: 1, EntityType: EntityCustomer, EntityID: customerID,
	})
	require.NoError(t, err)

	// Rewriting every remark, including misleading keywords, must change
	// nothing but the remark text.
	for id, entries := range repo.entries {
		for i := range entries {
			entries[i].Remarks = "payment refund discount"
		}
		repo.entries[id] = entries
	}
	after, err := svc.Statement(context.Background(), StatementQuery{
		CompanyID: 1, EntityType: EntityCustomer, EntityID: customerID,
	})
	require.NoError(t, err)
	require.Equal(t, before.ClosingBalance, after.ClosingBalance)
	require.Equal(t, before.TotalDebit, after.TotalDebit)
	require.Equal(t, before.TotalCredit, after.TotalCredit)
	require.Equal(t, before.InvoicesSummary, after.InvoicesSummary)
	for i := range before.Transactions {
		require.Equal(t, before.Transactions[i].Source, after.Transactions[i].Source)
	}
}

func TestStatementInvoicePending(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	customerID := uuid.New()
	saleRef := uuid.New()
	appendAll(t, svc, customerID, []AppendInput{
		{CompanyID: 1, EntityType: EntityCustomer, EntityID: customerID, Source: SourceSale, ReferenceID: saleRef, ReferenceNo: "INV-0001", EntryDate: day(2), Debit: 1000},
		{CompanyID: 1, EntityType: EntityCustomer, EntityID: customerID, Source: SourcePayment, ReferenceID: saleRef, ReferenceNo: "PAY-0001", EntryDate: day(3), Credit: 400},
		{CompanyID: 1, EntityType: EntityCustomer, EntityID: customerID, Source: SourceSale, ReferenceID: uuid.New(), ReferenceNo: "INV-0002", EntryDate: day(4), Debit: 2000},
	})

	st, err := svc.Statement(context.Background(), StatementQuery{
		CompanyID: 1, EntityType: EntityCustomer, EntityID: customerID,
	})
	require.NoError(t, err)
	require.Len(t, st.Invoices, 2)
	require.Equal(t, 600.0, st.Invoices[0].Pending)
	require.Equal(t, 2000.0, st.Invoices[1].Pending)
	require.Equal(t, 2, st.InvoicesSummary.Count)
	require.Equal(t, 3000.0, st.InvoicesSummary.TotalAmount)
	require.Equal(t, 2600.0, st.InvoicesSummary.TotalPending)
}

func TestSupplierStatementInvoicePending(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	supplierID := uuid.New()
	purchaseRef := uuid.New()
	appendAll(t, svc, supplierID, []AppendInput{
		{CompanyID: 1, EntityType: EntitySupplier, EntityID: supplierID, Source: SourcePurchase, ReferenceID: purchaseRef, ReferenceNo: "PO-0001", EntryDate: day(2), Credit: 4000},
		{CompanyID: 1, EntityType: EntitySupplier, EntityID: supplierID, Source: SourcePayment, ReferenceID: purchaseRef, ReferenceNo: "PAY-0001", EntryDate: day(3), Debit: 1000},
	})

	st, err := svc.Statement(context.Background(), StatementQuery{
		CompanyID: 1, EntityType: EntitySupplier, EntityID: supplierID,
	})
	require.NoError(t, err)
	require.Equal(t, -3000.0, st.ClosingBalance)

	// The purchase shows up as an open item, reduced by the partial payment.
	require.Len(t, st.Invoices, 1)
	require.Equal(t, "PO-0001", st.Invoices[0].ReferenceNo)
	require.Equal(t, 4000.0, st.Invoices[0].Amount)
	require.Equal(t, 3000.0, st.Invoices[0].Pending)
	require.Equal(t, 1, st.InvoicesSummary.Count)
	require.Equal(t, 4000.0, st.InvoicesSummary.TotalAmount)
	require.Equal(t, 3000.0, st.InvoicesSummary.TotalPending)
}

func TestSupplierStatementSettledPurchaseDropsOut(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	supplierID := uuid.New()
	purchaseRef := uuid.New()
	appendAll(t, svc, supplierID, []AppendInput{
		{CompanyID: 1, EntityType: EntitySupplier, EntityID: supplierID, Source: SourcePurchase, ReferenceID: purchaseRef, ReferenceNo: "PO-0001", EntryDate: day(2), Credit: 2500},
		{CompanyID: 1, EntityType: EntitySupplier, EntityID: supplierID, Source: SourcePayment, ReferenceID: purchaseRef, ReferenceNo: "PAY-0001", EntryDate: day(3), Debit: 2500},
	})

	st, err := svc.Statement(context.Background(), StatementQuery{
		CompanyID: 1, EntityType: EntitySupplier, EntityID: supplierID,
	})
	require.NoError(t, err)
	require.Empty(t, st.Invoices)
	require.Zero(t, st.InvoicesSummary.Count)
}

func TestUserStatementInvoicePending(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	userID := uuid.New()
	salaryRef := uuid.New()
	commissionRef := uuid.New()
	appendAll(t, svc, userID, []AppendInput{
		{CompanyID: 1, EntityType: EntityUser, EntityID: userID, Source: SourceSalary, ReferenceID: salaryRef, ReferenceNo: "SAL-0001", EntryDate: day(2), Debit: 2000},
		{CompanyID: 1, EntityType: EntityUser, EntityID: userID, Source: SourceCommission, ReferenceID: commissionRef, ReferenceNo: "COM-0001", EntryDate: day(3), Debit: 300},
		{CompanyID: 1, EntityType: EntityUser, EntityID: userID, Source: SourcePayment, ReferenceID: salaryRef, ReferenceNo: "PAY-0001", EntryDate: day(4), Credit: 500},
	})

	st, err := svc.Statement(context.Background(), StatementQuery{
		CompanyID: 1, EntityType: EntityUser, EntityID: userID,
	})
	require.NoError(t, err)
	require.Len(t, st.Invoices, 2)
	require.Equal(t, "SAL-0001", st.Invoices[0].ReferenceNo)
	require.Equal(t, 1500.0, st.Invoices[0].Pending)
	require.Equal(t, "COM-0001", st.Invoices[1].ReferenceNo)
	require.Equal(t, 300.0, st.Invoices[1].Pending)
	require.Equal(t, 2, st.InvoicesSummary.Count)
	require.Equal(t, 2300.0, st.InvoicesSummary.TotalAmount)
	require.Equal(t, 1800.0, st.InvoicesSummary.TotalPending)
}

func TestAppendValidatesAmounts(t *testing.T) {
	svc := NewService(newMemoryLedgerRepo(), nil)
	in := AppendInput{CompanyID: 1, EntityType: EntityCustomer, EntityID: uuid.New(), Source: SourceSale, ReferenceID: uuid.New()}

	_, err := svc.Append(context.Background(), in)
	require.ErrorIs(t, err, ErrInvalidAmount)

	in.Debit = 10
	in.Credit = 10
	_, err = svc.Append(context.Background(), in)
	require.ErrorIs(t, err, ErrInvalidAmount)

	in.Credit = 0
	_, err = svc.Append(context.Background(), in)
	require.NoError(t, err)
}

func TestAppendChainsBalances(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	customerID := uuid.New()
	appendAll(t, svc, customerID, customerInputs(customerID))

	for _, entries := range repo.entries {
		running := 0.0
		for _, e := range entries {
			running += e.Debit - e.Credit
			require.Equal(t, running, e.BalanceAfter)
		}
	}
}

func TestWorkerStatement(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	workerID := uuid.New()
	paidAt := day(10)
	ref := "PAY-W-0001"
	repo.workerEntries = []WorkerEntry{
		{CompanyID: 1, WorkerID: workerID, DocumentNo: "JOB-0001", Amount: 250, Status: WorkerEntryPaid, PaidAt: &paidAt, PaymentReference: &ref, CreatedAt: day(2)},
		{CompanyID: 1, WorkerID: workerID, DocumentNo: "JOB-0002", Amount: 300, Status: WorkerEntryUnpaid, CreatedAt: day(3)},
	}

	st, err := svc.Statement(context.Background(), StatementQuery{
		CompanyID: 1, EntityType: EntityWorker, EntityID: workerID,
	})
	require.NoError(t, err)
	require.Len(t, st.Transactions, 3)
	require.Equal(t, 550.0, st.TotalDebit)
	require.Equal(t, 250.0, st.TotalCredit)
	require.Equal(t, 300.0, st.ClosingBalance)
	// The settlement row carries the payment reference.
	require.Equal(t, ref, st.Transactions[2].ReferenceNo)
}

func TestStatementUnknownEntity(t *testing.T) {
	svc := NewService(newMemoryLedgerRepo(), nil)
	_, err := svc.Statement(context.Background(), StatementQuery{CompanyID: 1, EntityType: "vendor", EntityID: uuid.New()})
	require.ErrorIs(t, err, ErrUnknownEntity)
}
