package studio

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryStudioRepo struct {
	productions map[int64]Production
	stages      map[int64]Stage
	accruals    []Accrual
	paidRefs    map[int64]string
	jobCounter  int64
	nextID      int64
}

func newMemoryStudioRepo() *memoryStudioRepo {
	return &memoryStudioRepo{
		productions: make(map[int64]Production),
		stages:      make(map[int64]Stage),
		paidRefs:    make(map[int64]string),
	}
}

func (r *memoryStudioRepo) GetProduction(ctx context.Context, id int64) (Production, error) {
	p, ok := r.productions[id]
	if !ok {
		return Production{}, ErrProductionNotFound
	}
	return p, nil
}

func (r *memoryStudioRepo) ListStages(ctx context.Context, productionID int64) ([]Stage, error) {
	var out []Stage
	for _, s := range r.stages {
		if s.ProductionID == productionID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memoryStudioRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryStudioTx{repo: r})
}

type memoryStudioTx struct {
	repo *memoryStudioRepo
}

func (t *memoryStudioTx) GetStageForUpdate(ctx context.Context, stageID int64) (Stage, int64, error) {
	s, ok := t.repo.stages[stageID]
	if !ok {
		return Stage{}, 0, ErrStageNotFound
	}
	return s, t.repo.productions[s.ProductionID].CompanyID, nil
}

func (t *memoryStudioTx) MarkStageCompleted(ctx context.Context, stageID int64, completedAt time.Time) error {
	s := t.repo.stages[stageID]
	s.Status = StageCompleted
	s.CompletedAt = &completedAt
	t.repo.stages[stageID] = s
	return nil
}

func (t *memoryStudioTx) MintJobNumber(ctx context.Context, companyID int64, branchID *int64) (string, error) {
	t.repo.jobCounter++
	return fmt.Sprintf("JOB-%04d", t.repo.jobCounter), nil
}

func (t *memoryStudioTx) InsertAccrual(ctx context.Context, accrual Accrual, description string) (Accrual, error) {
	t.repo.nextID++
	accrual.ID = t.repo.nextID
	t.repo.accruals = append(t.repo.accruals, accrual)
	return accrual, nil
}

func (t *memoryStudioTx) UnpaidEntriesForUpdate(ctx context.Context, companyID int64, workerID uuid.UUID) ([]Accrual, error) {
	var out []Accrual
	for _, a := range t.repo.accruals {
		if a.WorkerID == workerID && t.repo.paidRefs[a.ID] == "" {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *memoryStudioTx) MarkEntriesPaid(ctx context.Context, entryIDs []int64, paymentReference string, paidAt time.Time) error {
	for _, id := range entryIDs {
		t.repo.paidRefs[id] = paymentReference
	}
	return nil
}

func seedStage(repo *memoryStudioRepo, workerID *uuid.UUID, rate, qty float64) int64 {
	repo.productions[1] = Production{ID: 1, CompanyID: 7, Code: "PRD-001", Name: "Summer run", Status: "active"}
	repo.nextID++
	id := repo.nextID
	repo.stages[id] = Stage{
		ID: id, ProductionID: 1, StageType: "stitching",
		WorkerID: workerID, PieceRate: rate, Quantity: qty, Status: StageInProgress,
	}
	return id
}

func TestCompleteStage(t *testing.T) {
	repo := newMemoryStudioRepo()
	workerID := uuid.New()
	stageID := seedStage(repo, &workerID, 12.5, 20)
	svc := NewService(repo, nil)

	accrual, err := svc.CompleteStage(context.Background(), stageID)
	require.NoError(t, err)
	require.Equal(t, "JOB-0001", accrual.DocumentNo)
	require.Equal(t, 250.0, accrual.Amount)
	require.Equal(t, workerID, accrual.WorkerID)
	require.Equal(t, StageCompleted, repo.stages[stageID].Status)
}

func TestCompleteStageTwice(t *testing.T) {
	repo := newMemoryStudioRepo()
	workerID := uuid.New()
	stageID := seedStage(repo, &workerID, 10, 5)
	svc := NewService(repo, nil)

	_, err := svc.CompleteStage(context.Background(), stageID)
	require.NoError(t, err)
	_, err = svc.CompleteStage(context.Background(), stageID)
	require.ErrorIs(t, err, ErrStageCompleted)
	require.Len(t, repo.accruals, 1)
}

func TestCompleteStageWithoutWorker(t *testing.T) {
	repo := newMemoryStudioRepo()
	stageID := seedStage(repo, nil, 10, 5)
	svc := NewService(repo, nil)

	_, err := svc.CompleteStage(context.Background(), stageID)
	require.ErrorIs(t, err, ErrStageUnassigned)
	require.Empty(t, repo.accruals)
}

func TestPayWorker(t *testing.T) {
	repo := newMemoryStudioRepo()
	workerID := uuid.New()
	svc := NewService(repo, nil)

	for i := 0; i < 3; i++ {
		stageID := seedStage(repo, &workerID, 100, 1)
		_, err := svc.CompleteStage(context.Background(), stageID)
		require.NoError(t, err)
	}

	result, err := svc.PayWorker(context.Background(), PaymentInput{
		CompanyID: 7, WorkerID: workerID, PaymentReference: "PAY-W-0001",
	})
	require.NoError(t, err)
	require.Equal(t, 3, result.EntriesPaid)
	require.Equal(t, 300.0, result.TotalAmount)
	for _, a := range repo.accruals {
		require.Equal(t, "PAY-W-0001", repo.paidRefs[a.ID])
	}

	// A second payout finds nothing left.
	_, err = svc.PayWorker(context.Background(), PaymentInput{
		CompanyID: 7, WorkerID: workerID, PaymentReference: "PAY-W-0002",
	})
	require.ErrorIs(t, err, ErrNothingToPay)
}
