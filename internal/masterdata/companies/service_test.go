package companies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomworks-erp/loomworks-erp/internal/masterdata/shared"
)

type memoryCompanyRepo struct {
	companies map[int64]Company
	nextID    int64
}

func newMemoryCompanyRepo() *memoryCompanyRepo {
	return &memoryCompanyRepo{companies: make(map[int64]Company)}
}

func (r *memoryCompanyRepo) List(ctx context.Context, filters shared.ListFilters) ([]Company, int, error) {
	var out []Company
	for _, c := range r.companies {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (r *memoryCompanyRepo) Get(ctx context.Context, id int64) (Company, error) {
	c, ok := r.companies[id]
	if !ok {
		return Company{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *memoryCompanyRepo) Create(ctx context.Context, company Company) (Company, error) {
	for _, c := range r.companies {
		if c.Code == company.Code {
			return Company{}, shared.ErrDuplicate
		}
	}
	r.nextID++
	company.ID = r.nextID
	r.companies[company.ID] = company
	return company, nil
}

func (r *memoryCompanyRepo) Update(ctx context.Context, id int64, company Company) error {
	if _, ok := r.companies[id]; !ok {
		return shared.ErrNotFound
	}
	company.ID = id
	r.companies[id] = company
	return nil
}

func (r *memoryCompanyRepo) SetActive(ctx context.Context, id int64, active bool) error {
	c, ok := r.companies[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.IsActive = active
	r.companies[id] = c
	return nil
}

func TestCreateCompany(t *testing.T) {
	svc := NewService(newMemoryCompanyRepo())

	company, err := svc.Create(context.Background(), Company{Code: "LOOM", Name: "Loomworks Apparel"})
	require.NoError(t, err)
	require.True(t, company.IsActive)
	require.NotZero(t, company.ID)
}

func TestCreateCompanyValidation(t *testing.T) {
	svc := NewService(newMemoryCompanyRepo())

	_, err := svc.Create(context.Background(), Company{Name: "No Code"})
	require.Error(t, err)
	_, err = svc.Create(context.Background(), Company{Code: "X"})
	require.Error(t, err)
}

func TestCreateCompanyDuplicateCode(t *testing.T) {
	svc := NewService(newMemoryCompanyRepo())

	_, err := svc.Create(context.Background(), Company{Code: "LOOM", Name: "First"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), Company{Code: "LOOM", Name: "Second"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestDeactivateCompany(t *testing.T) {
	repo := newMemoryCompanyRepo()
	svc := NewService(repo)

	company, err := svc.Create(context.Background(), Company{Code: "LOOM", Name: "Loomworks Apparel"})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(context.Background(), company.ID))
	require.False(t, repo.companies[company.ID].IsActive)

	require.ErrorIs(t, svc.Deactivate(context.Background(), 0), shared.ErrInvalidID)
}
