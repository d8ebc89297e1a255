package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Service drives stage completion and worker payouts.
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

// GetProduction returns a production with its stages.
func (s *Service) GetProduction(ctx context.Context, id int64) (Production, []Stage, error) {
	production, err := s.repo.GetProduction(ctx, id)
	if err != nil {
		return Production{}, nil, err
	}
	stages, err := s.repo.ListStages(ctx, id)
	if err != nil {
		return Production{}, nil, err
	}
	return production, stages, nil
}

// CompleteStage marks the stage completed and accrues the worker's piece
// pay as an unpaid ledger entry, all in one transaction. A completed stage
// never accrues twice.
func (s *Service) CompleteStage(ctx context.Context, stageID int64) (Accrual, error) {
	var accrual Accrual
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stage, companyID, err := tx.GetStageForUpdate(ctx, stageID)
		if err != nil {
			return err
		}
		if stage.Status == StageCompleted {
			return ErrStageCompleted
		}
		if stage.WorkerID == nil {
			return ErrStageUnassigned
		}
		completedAt := s.now()
		if err := tx.MarkStageCompleted(ctx, stageID, completedAt); err != nil {
			return err
		}
		jobNo, err := tx.MintJobNumber(ctx, companyID, nil)
		if err != nil {
			return err
		}
		accrual, err = tx.InsertAccrual(ctx, Accrual{
			CompanyID:  companyID,
			WorkerID:   *stage.WorkerID,
			StageID:    stage.ID,
			DocumentNo: jobNo,
			Amount:     stage.PieceRate * stage.Quantity,
		}, fmt.Sprintf("%s stage completed", stage.StageType))
		return err
	})
	if err != nil {
		return Accrual{}, err
	}
	if s.logger != nil {
		s.logger.Info("stage completed",
			slog.Int64("stage_id", stageID),
			slog.String("document_no", accrual.DocumentNo),
			slog.Float64("amount", accrual.Amount))
	}
	return accrual, nil
}

// PayWorker marks every unpaid entry for the worker as paid under one
// payment reference.
func (s *Service) PayWorker(ctx context.Context, in PaymentInput) (PaymentResult, error) {
	if in.PaymentReference == "" {
		return PaymentResult{}, errors.New("studio: payment reference required")
	}
	var result PaymentResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entries, err := tx.UnpaidEntriesForUpdate(ctx, in.CompanyID, in.WorkerID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return ErrNothingToPay
		}
		ids := make([]int64, 0, len(entries))
		total := 0.0
		for _, e := range entries {
			ids = append(ids, e.ID)
			total += e.Amount
		}
		if err := tx.MarkEntriesPaid(ctx, ids, in.PaymentReference, s.now()); err != nil {
			return err
		}
		result = PaymentResult{WorkerID: in.WorkerID, EntriesPaid: len(ids), TotalAmount: total}
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}
	if s.logger != nil {
		s.logger.Info("worker paid",
			slog.String("worker_id", in.WorkerID.String()),
			slog.String("reference", in.PaymentReference),
			slog.Float64("total", result.TotalAmount))
	}
	return result, nil
}
