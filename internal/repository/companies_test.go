package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pygmalion/meettodo-back/internal/domain"
)

func TestMemoryRepositoryRoundTrip(t *testing.T) {
	repo := NewMemoryCompaniesRepository()
	ctx := context.Background()

	company := domain.NewCompany("Acme", "")
	require.NoError(t, repo.CreateCompany(ctx, company))

	stored, err := repo.GetCompany(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, company.ID, stored.ID)
	assert.Equal(t, "Acme", stored.Name)
}

func TestMemoryRepositoryNotFound(t *testing.T) {
	repo := NewMemoryCompaniesRepository()
	ctx := context.Background()

	_, err := repo.GetCompany(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.UpdateCompany(ctx, domain.NewCompany("Ghost", "")), ErrNotFound)
	assert.ErrorIs(t, repo.DeleteCompany(ctx, "missing"), ErrNotFound)
}

func TestMemoryRepositoryUpdate(t *testing.T) {
	repo := NewMemoryCompaniesRepository()
	ctx := context.Background()

	company := domain.NewCompany("Acme", "")
	require.NoError(t, repo.CreateCompany(ctx, company))

	_, err := company.AddStage(domain.StageResume, time.Now().Add(24*time.Hour), nil)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateCompany(ctx, company))

	stored, err := repo.GetCompany(ctx, company.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Stages, 1)
	assert.Equal(t, domain.OverallResume, stored.OverallStatus)
}

func TestMemoryRepositoryListPinnedFirst(t *testing.T) {
	repo := NewMemoryCompaniesRepository()
	ctx := context.Background()

	older := domain.NewCompany("Older", "")
	older.Timestamp = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := domain.NewCompany("Newer", "")
	newer.Timestamp = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	pinned := domain.NewCompany("Pinned", "")
	pinned.Timestamp = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	pinned.Pinned = true

	for _, company := range []*domain.Company{older, newer, pinned} {
		require.NoError(t, repo.CreateCompany(ctx, company))
	}

	companies, err := repo.ListCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 3)
	assert.Equal(t, "Pinned", companies[0].Name)
	assert.Equal(t, "Newer", companies[1].Name)
	assert.Equal(t, "Older", companies[2].Name)
}

func TestMemoryRepositoryIsolatesStoredState(t *testing.T) {
	repo := NewMemoryCompaniesRepository()
	ctx := context.Background()

	company := domain.NewCompany("Acme", "")
	require.NoError(t, repo.CreateCompany(ctx, company))

	// Mutating the caller's copy must not leak into the store.
	company.Name = "Mutated"

	stored, err := repo.GetCompany(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", stored.Name)

	stored.Name = "AlsoMutated"
	again, err := repo.GetCompany(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", again.Name)
}

func TestMemoryRepositoryDelete(t *testing.T) {
	repo := NewMemoryCompaniesRepository()
	ctx := context.Background()

	company := domain.NewCompany("Acme", "")
	require.NoError(t, repo.CreateCompany(ctx, company))
	require.NoError(t, repo.DeleteCompany(ctx, company.ID))

	_, err := repo.GetCompany(ctx, company.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
