package inventory

import (
	"context"
	"errors"
	"log/slog"

	"github.com/loomworks-erp/loomworks-erp/internal/sequences"
)

// NumberMinter mints movement document numbers.
type NumberMinter interface {
	Next(ctx context.Context, companyID int64, branchID *int64, docType sequences.DocumentType) (string, error)
}

// Locker serialises backfill runs per company.
type Locker interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// LockFactory builds a lock for one company's backfill run.
type LockFactory func(companyID int64) Locker

// Service owns the stock movement backfill.
type Service struct {
	repo      Repository
	sequences NumberMinter
	locks     LockFactory
	logger    *slog.Logger
}

// NewService builds Service instance.
func NewService(repo Repository, minter NumberMinter, locks LockFactory, logger *slog.Logger) *Service {
	return &Service{repo: repo, sequences: minter, locks: locks, logger: logger}
}

// Backfill inserts movement rows for finalized sale items and received
// purchase items that have none. Rows racing with live writes are skipped
// via the unique reference constraint, so reruns are harmless.
func (s *Service) Backfill(ctx context.Context, companyID int64) (BackfillReport, error) {
	if companyID <= 0 {
		return BackfillReport{}, errors.New("inventory: company id required")
	}
	if s.locks != nil {
		lock := s.locks(companyID)
		if err := lock.Acquire(ctx); err != nil {
			return BackfillReport{}, err
		}
		defer func() { _ = lock.Release(ctx) }()
	}

	report := BackfillReport{CompanyID: companyID}
	saleCandidates, err := s.repo.MissingSaleMovements(ctx, companyID)
	if err != nil {
		return report, err
	}
	purchaseCandidates, err := s.repo.MissingPurchaseMovements(ctx, companyID)
	if err != nil {
		return report, err
	}
	for _, c := range append(saleCandidates, purchaseCandidates...) {
		branchID := c.BranchID
		movementNo, err := s.sequences.Next(ctx, companyID, &branchID, sequences.DocStockMovement)
		if err != nil {
			return report, err
		}
		_, err = s.repo.InsertMovement(ctx, StockMovement{
			CompanyID:     c.CompanyID,
			BranchID:      c.BranchID,
			ProductID:     c.ProductID,
			MovementNo:    movementNo,
			MovementType:  c.MovementType,
			Quantity:      c.Quantity,
			ReferenceType: c.ReferenceType,
			ReferenceID:   c.ReferenceID,
		})
		if err != nil {
			if errors.Is(err, ErrMovementExists) {
				report.Skipped++
				continue
			}
			return report, err
		}
		report.Inserted++
	}
	if s.logger != nil {
		s.logger.Info("stock backfill complete",
			slog.Int64("company_id", companyID),
			slog.Int("inserted", report.Inserted),
			slog.Int("skipped", report.Skipped))
	}
	return report, nil
}
