package returns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loomworks-erp/loomworks-erp/internal/accounting/accounts"
	"github.com/loomworks-erp/loomworks-erp/internal/accounting/journals"
	"github.com/loomworks-erp/loomworks-erp/internal/ledger"
	"github.com/loomworks-erp/loomworks-erp/internal/sequences"
)

// SaleStatusCancelled is the only sale state that admits returns.
const SaleStatusCancelled = "cancelled"

// RoleResolver resolves well-known default accounts.
type RoleResolver interface {
	RequireRole(ctx context.Context, companyID int64, role accounts.Role) (int64, error)
}

// Service drives the cancelled-sale return flow. Per sale the flow is
// forward-only: no credit note, then a credit note, then optionally a
// refund. Nothing is voided or edited after creation.
type Service struct {
	repo     Repository
	accounts RoleResolver
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(repo Repository, roles RoleResolver, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: roles,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateCreditNote posts exactly one journal entry, Dr sales return and
// Cr accounts receivable for the full note amount, then records the note
// and the customer ledger credit. Number, journal, note and ledger entry
// commit in one transaction, so a failed attempt leaves nothing behind
// and can simply be retried.
func (s *Service) CreateCreditNote(ctx context.Context, in CreditNoteInput) (CreditNote, error) {
	if in.Amount <= 0 {
		return CreditNote{}, ErrInvalidAmount
	}
	status, err := s.repo.SaleStatus(ctx, in.SaleID)
	if err != nil {
		return CreditNote{}, err
	}
	if status != SaleStatusCancelled {
		return CreditNote{}, ErrSaleNotCancelled
	}
	if _, err := s.repo.GetCreditNoteBySale(ctx, in.SaleID); err == nil {
		return CreditNote{}, ErrCreditNoteExists
	} else if !errors.Is(err, ErrCreditNoteMissing) {
		return CreditNote{}, err
	}
	salesReturnID, err := s.accounts.RequireRole(ctx, in.CompanyID, accounts.RoleSalesReturn)
	if err != nil {
		return CreditNote{}, err
	}
	receivableID, err := s.accounts.RequireRole(ctx, in.CompanyID, accounts.RoleReceivable)
	if err != nil {
		return CreditNote{}, err
	}
	var note CreditNote
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		noteNo, err := tx.MintNumber(ctx, in.CompanyID, in.BranchID, sequences.DocCreditNote)
		if err != nil {
			return err
		}
		entry, err := tx.PostJournal(ctx, journals.PostingInput{
			CompanyID:   in.CompanyID,
			BranchID:    in.BranchID,
			EntryDate:   s.now(),
			Description: fmt.Sprintf("Credit note %s", noteNo),
			Kind:        journals.KindCreditNote,
			ReferenceID: in.SaleID,
			CreatedBy:   in.ActorID,
			Lines: []journals.PostingLineInput{
				{AccountID: salesReturnID, Debit: in.Amount, Description: noteNo},
				{AccountID: receivableID, Credit: in.Amount, Description: noteNo},
			},
		}, receivableID)
		if err != nil {
			return err
		}
		note, err = tx.InsertCreditNote(ctx, CreditNote{
			CompanyID:      in.CompanyID,
			BranchID:       in.BranchID,
			SaleID:         in.SaleID,
			CustomerID:     in.CustomerID,
			NoteNo:         noteNo,
			Amount:         in.Amount,
			Reason:         in.Reason,
			JournalEntryID: entry.ID,
			CreatedBy:      in.ActorID,
		})
		if err != nil {
			return err
		}
		_, err = tx.AppendLedger(ctx, ledger.AppendInput{
			CompanyID:   in.CompanyID,
			EntityType:  ledger.EntityCustomer,
			EntityID:    in.CustomerID,
			Source:      ledger.SourceCreditNote,
			ReferenceID: in.SaleID,
			ReferenceNo: noteNo,
			EntryDate:   s.now(),
			Credit:      in.Amount,
			Remarks:     in.Reason,
		})
		return err
	})
	if err != nil {
		return CreditNote{}, err
	}
	if s.logger != nil {
		s.logger.Info("credit note created",
			slog.String("note_no", note.NoteNo),
			slog.String("sale_id", in.SaleID.String()),
			slog.Float64("amount", in.Amount))
	}
	return note, nil
}

// CreateRefund pays a credited amount back: Dr accounts receivable,
// Cr cash/bank, plus the customer ledger debit. Like the credit note,
// everything commits in one transaction.
func (s *Service) CreateRefund(ctx context.Context, in RefundInput) (Refund, error) {
	if in.Amount <= 0 {
		return Refund{}, ErrInvalidAmount
	}
	note, err := s.repo.GetCreditNoteBySale(ctx, in.SaleID)
	if err != nil {
		return Refund{}, err
	}
	if _, err := s.repo.GetRefundBySale(ctx, in.SaleID); err == nil {
		return Refund{}, ErrRefundExists
	} else if !errors.Is(err, ErrRefundMissing) {
		return Refund{}, err
	}
	receivableID, err := s.accounts.RequireRole(ctx, in.CompanyID, accounts.RoleReceivable)
	if err != nil {
		return Refund{}, err
	}
	cashBankID, err := s.accounts.RequireRole(ctx, in.CompanyID, accounts.RoleCashBank)
	if err != nil {
		return Refund{}, err
	}
	var refund Refund
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		refundNo, err := tx.MintNumber(ctx, in.CompanyID, in.BranchID, sequences.DocRefund)
		if err != nil {
			return err
		}
		entry, err := tx.PostJournal(ctx, journals.PostingInput{
			CompanyID:   in.CompanyID,
			BranchID:    in.BranchID,
			EntryDate:   s.now(),
			Description: fmt.Sprintf("Refund %s against %s", refundNo, note.NoteNo),
			Kind:        journals.KindRefund,
			ReferenceID: in.SaleID,
			CreatedBy:   in.ActorID,
			Lines: []journals.PostingLineInput{
				{AccountID: receivableID, Debit: in.Amount, Description: refundNo},
				{AccountID: cashBankID, Credit: in.Amount, Description: refundNo},
			},
		}, receivableID)
		if err != nil {
			return err
		}
		refund, err = tx.InsertRefund(ctx, Refund{
			CompanyID:      in.CompanyID,
			BranchID:       in.BranchID,
			SaleID:         in.SaleID,
			CustomerID:     in.CustomerID,
			RefundNo:       refundNo,
			Amount:         in.Amount,
			Method:         in.Method,
			JournalEntryID: entry.ID,
			CreatedBy:      in.ActorID,
		})
		if err != nil {
			return err
		}
		_, err = tx.AppendLedger(ctx, ledger.AppendInput{
			CompanyID:   in.CompanyID,
			EntityType:  ledger.EntityCustomer,
			EntityID:    in.CustomerID,
			Source:      ledger.SourceRefund,
			ReferenceID: in.SaleID,
			ReferenceNo: refundNo,
			EntryDate:   s.now(),
			Debit:       in.Amount,
			Remarks:     in.Method,
		})
		return err
	})
	if err != nil {
		return Refund{}, err
	}
	if s.logger != nil {
		s.logger.Info("refund created",
			slog.String("refund_no", refund.RefundNo),
			slog.String("sale_id", in.SaleID.String()),
			slog.Float64("amount", in.Amount))
	}
	return refund, nil
}
