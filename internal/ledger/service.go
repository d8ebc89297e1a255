package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	// ErrUnknownEntity indicates an unrecognised entity type.
	ErrUnknownEntity = errors.New("ledger: unknown entity type")
	// ErrInvalidAmount indicates an entry with no side or both sides set.
	ErrInvalidAmount = errors.New("ledger: exactly one of debit or credit must be positive")
)

// Service computes statements and appends ledger entries.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Statement folds an entity ledger over the query window. An entity with no
// entries yields an all-zero statement rather than an error.
func (s *Service) Statement(ctx context.Context, q StatementQuery) (Statement, error) {
	if !q.EntityType.Valid() {
		return Statement{}, ErrUnknownEntity
	}
	if q.EntityType == EntityWorker {
		return s.workerStatement(ctx, q)
	}
	master, err := s.repo.EnsureMaster(ctx, q.CompanyID, q.EntityType, q.EntityID)
	if err != nil {
		return Statement{}, err
	}
	opening := master.OpeningBalance
	if q.FromDate != nil {
		if balance, found, err := s.repo.LastBalanceBefore(ctx, master.ID, *q.FromDate); err != nil {
			return Statement{}, err
		} else if found {
			opening = balance
		}
	}
	entries, err := s.repo.EntriesBetween(ctx, master.ID, q.FromDate, q.ToDate, sourcesFor(q.EntityType))
	if err != nil {
		return Statement{}, err
	}
	return foldStatement(q.EntityType, opening, entries), nil
}

// foldStatement computes running balances over entries already ordered by
// entry date then id ascending.
func foldStatement(entityType EntityType, opening float64, entries []Entry) Statement {
	st := Statement{
		OpeningBalance: opening,
		ClosingBalance: opening,
		Transactions:   make([]Transaction, 0, len(entries)),
	}
	running := opening
	credited := make(map[uuid.UUID]float64)
	debited := make(map[uuid.UUID]float64)
	for _, e := range entries {
		running += e.Debit - e.Credit
		st.TotalDebit += e.Debit
		st.TotalCredit += e.Credit
		st.Transactions = append(st.Transactions, Transaction{
			EntryDate:   e.EntryDate,
			Source:      e.Source,
			ReferenceNo: e.ReferenceNo,
			Remarks:     e.Remarks,
			Debit:       e.Debit,
			Credit:      e.Credit,
			Balance:     running,
		})
		if e.Credit > 0 {
			credited[e.ReferenceID] += e.Credit
		}
		if e.Debit > 0 {
			debited[e.ReferenceID] += e.Debit
		}
	}
	st.ClosingBalance = running
	for _, e := range entries {
		amount, settled, ok := openItem(entityType, e, credited, debited)
		if !ok {
			continue
		}
		pending := amount - settled
		if pending <= 0 {
			continue
		}
		st.Invoices = append(st.Invoices, Invoice{
			ReferenceID: e.ReferenceID,
			ReferenceNo: e.ReferenceNo,
			EntryDate:   e.EntryDate,
			Amount:      amount,
			Pending:     pending,
		})
		st.InvoicesSummary.Count++
		st.InvoicesSummary.TotalAmount += amount
		st.InvoicesSummary.TotalPending += pending
	}
	return st
}

// openItem classifies an entry as an invoice row for the entity type.
// Customers owe on sale debits and suppliers are owed on purchase credits,
// while user payables accrue on expense, salary, commission and bonus debits.
// Settlements are the opposite-side rows sharing the reference id.
func openItem(entityType EntityType, e Entry, credited, debited map[uuid.UUID]float64) (amount, settled float64, ok bool) {
	switch entityType {
	case EntityCustomer:
		if e.Source == SourceSale && e.Debit > 0 {
			return e.Debit, credited[e.ReferenceID], true
		}
	case EntitySupplier:
		if e.Source == SourcePurchase && e.Credit > 0 {
			return e.Credit, debited[e.ReferenceID], true
		}
	case EntityUser:
		switch e.Source {
		case SourceExpense, SourceSalary, SourceCommission, SourceBonus:
			if e.Debit > 0 {
				return e.Debit, credited[e.ReferenceID], true
			}
		}
	}
	return 0, 0, false
}

// workerStatement folds worker_ledger_entries: every accrual owes the worker
// (debit); a paid row additionally settles it (credit at the payment date).
// Closing balance is therefore the sum of unpaid amounts.
func (s *Service) workerStatement(ctx context.Context, q StatementQuery) (Statement, error) {
	entries, err := s.repo.WorkerEntries(ctx, q.CompanyID, q.EntityID, q.FromDate, q.ToDate)
	if err != nil {
		return Statement{}, err
	}
	txs := make([]Transaction, 0, len(entries))
	for _, e := range entries {
		txs = append(txs, Transaction{
			EntryDate:   e.CreatedAt,
			ReferenceNo: e.DocumentNo,
			Remarks:     e.Description,
			Debit:       e.Amount,
		})
		if e.Status == WorkerEntryPaid && e.PaidAt != nil {
			ref := e.DocumentNo
			if e.PaymentReference != nil {
				ref = *e.PaymentReference
			}
			txs = append(txs, Transaction{
				EntryDate:   *e.PaidAt,
				ReferenceNo: ref,
				Remarks:     e.Description,
				Credit:      e.Amount,
			})
		}
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].EntryDate.Before(txs[j].EntryDate) })
	st := Statement{Transactions: txs}
	running := 0.0
	for i := range txs {
		running += txs[i].Debit - txs[i].Credit
		st.TotalDebit += txs[i].Debit
		st.TotalCredit += txs[i].Credit
		txs[i].Balance = running
	}
	st.ClosingBalance = running
	return st, nil
}

// Append writes one entry with its computed balance_after. The master row is
// locked for the duration so two appends cannot compute from the same
// predecessor balance.
func (s *Service) Append(ctx context.Context, in AppendInput) (Entry, error) {
	if err := validateAppend(in); err != nil {
		return Entry{}, err
	}
	if in.EntryDate.IsZero() {
		in.EntryDate = s.now()
	}
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = appendSteps(ctx, tx, in)
		return err
	})
	if err != nil {
		return Entry{}, err
	}
	if s.logger != nil {
		s.logger.Debug("ledger entry appended",
			slog.String("entity_type", string(in.EntityType)),
			slog.String("source", string(in.Source)),
			slog.Float64("balance_after", entry.BalanceAfter))
	}
	return entry, nil
}

// AppendInTx writes one entry on an already open transaction, so a caller
// can commit the ledger row together with its own rows.
func AppendInTx(ctx context.Context, tx pgx.Tx, in AppendInput) (Entry, error) {
	if err := validateAppend(in); err != nil {
		return Entry{}, err
	}
	if in.EntryDate.IsZero() {
		in.EntryDate = time.Now()
	}
	return appendSteps(ctx, &txRepository{tx: tx}, in)
}

func validateAppend(in AppendInput) error {
	if !in.EntityType.Valid() || in.EntityType == EntityWorker {
		return ErrUnknownEntity
	}
	if (in.Debit > 0) == (in.Credit > 0) || in.Debit < 0 || in.Credit < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func appendSteps(ctx context.Context, tx TxRepository, in AppendInput) (Entry, error) {
	master, err := tx.EnsureMasterForUpdate(ctx, in.CompanyID, in.EntityType, in.EntityID)
	if err != nil {
		return Entry{}, err
	}
	balance, found, err := tx.LatestBalance(ctx, master.ID)
	if err != nil {
		return Entry{}, err
	}
	if !found {
		balance = master.OpeningBalance
	}
	return tx.InsertEntry(ctx, master.ID, in, balance+in.Debit-in.Credit)
}
