package inventory

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/loomworks-erp/loomworks-erp/internal/sequences"
	"github.com/loomworks-erp/loomworks-erp/internal/shared"
)

type memoryInventoryRepo struct {
	saleCandidates     []Candidate
	purchaseCandidates []Candidate
	movements          map[uuid.UUID]StockMovement
	nextID             int64
}

func newMemoryInventoryRepo() *memoryInventoryRepo {
	return &memoryInventoryRepo{movements: make(map[uuid.UUID]StockMovement)}
}

func (r *memoryInventoryRepo) MissingSaleMovements(ctx context.Context, companyID int64) ([]Candidate, error) {
	return r.missing(r.saleCandidates), nil
}

func (r *memoryInventoryRepo) MissingPurchaseMovements(ctx context.Context, companyID int64) ([]Candidate, error) {
	return r.missing(r.purchaseCandidates), nil
}

func (r *memoryInventoryRepo) missing(candidates []Candidate) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if _, covered := r.movements[c.ReferenceID]; !covered {
			out = append(out, c)
		}
	}
	return out
}

func (r *memoryInventoryRepo) InsertMovement(ctx context.Context, movement StockMovement) (StockMovement, error) {
	if _, exists := r.movements[movement.ReferenceID]; exists {
		return StockMovement{}, ErrMovementExists
	}
	r.nextID++
	movement.ID = r.nextID
	r.movements[movement.ReferenceID] = movement
	return movement, nil
}

type testMinter struct {
	count int64
}

func (m *testMinter) Next(ctx context.Context, companyID int64, branchID *int64, docType sequences.DocumentType) (string, error) {
	m.count++
	return fmt.Sprintf("SM-%04d", m.count), nil
}

func candidate(movementType MovementType, referenceType string, qty float64) Candidate {
	return Candidate{
		CompanyID:     1,
		BranchID:      2,
		ProductID:     uuid.New(),
		MovementType:  movementType,
		Quantity:      qty,
		ReferenceType: referenceType,
		ReferenceID:   uuid.New(),
	}
}

func TestBackfill(t *testing.T) {
	repo := newMemoryInventoryRepo()
	repo.saleCandidates = []Candidate{
		candidate(MovementOut, "sale_item", 3),
		candidate(MovementOut, "sale_item", 1),
	}
	repo.purchaseCandidates = []Candidate{
		candidate(MovementIn, "purchase_item", 10),
	}
	svc := NewService(repo, &testMinter{}, nil, nil)

	report, err := svc.Backfill(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 3, report.Inserted)
	require.Zero(t, report.Skipped)
	require.Len(t, repo.movements, 3)

	// Each inserted movement carries a minted number and the right direction.
	for _, c := range repo.saleCandidates {
		m := repo.movements[c.ReferenceID]
		require.Equal(t, MovementOut, m.MovementType)
		require.NotEmpty(t, m.MovementNo)
	}
}

func TestBackfillIsRerunSafe(t *testing.T) {
	repo := newMemoryInventoryRepo()
	repo.saleCandidates = []Candidate{candidate(MovementOut, "sale_item", 2)}
	svc := NewService(repo, &testMinter{}, nil, nil)

	first, err := svc.Backfill(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, first.Inserted)

	second, err := svc.Backfill(context.Background(), 1)
	require.NoError(t, err)
	require.Zero(t, second.Inserted)
	require.Len(t, repo.movements, 1)
}

type heldLock struct{}

func (heldLock) Acquire(ctx context.Context) error { return shared.ErrLockHeld }
func (heldLock) Release(ctx context.Context) error { return nil }

func TestBackfillRespectsLock(t *testing.T) {
	repo := newMemoryInventoryRepo()
	repo.saleCandidates = []Candidate{candidate(MovementOut, "sale_item", 2)}
	svc := NewService(repo, &testMinter{}, func(int64) Locker { return heldLock{} }, nil)

	_, err := svc.Backfill(context.Background(), 1)
	require.ErrorIs(t, err, shared.ErrLockHeld)
	require.Empty(t, repo.movements)
}
