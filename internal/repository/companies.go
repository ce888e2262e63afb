package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/pygmalion/meettodo-back/internal/domain"
)

var ErrNotFound = errors.New("resource not found")

// CompaniesRepository abstracts company persistence. A company is stored as
// one document together with its embedded stage list.
type CompaniesRepository interface {
	CreateCompany(ctx context.Context, company *domain.Company) error
	UpdateCompany(ctx context.Context, company *domain.Company) error
	GetCompany(ctx context.Context, companyID string) (*domain.Company, error)
	ListCompanies(ctx context.Context) ([]*domain.Company, error)
	DeleteCompany(ctx context.Context, companyID string) error
}

// MemoryCompaniesRepository stores companies in memory for local development
// and tests.
type MemoryCompaniesRepository struct {
	mu        sync.RWMutex
	companies map[string]*domain.Company
}

func NewMemoryCompaniesRepository() *MemoryCompaniesRepository {
	return &MemoryCompaniesRepository{
		companies: make(map[string]*domain.Company),
	}
}

func (r *MemoryCompaniesRepository) CreateCompany(_ context.Context, company *domain.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.companies[company.ID] = company.Clone()
	return nil
}

func (r *MemoryCompaniesRepository) UpdateCompany(_ context.Context, company *domain.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.companies[company.ID]; !ok {
		return ErrNotFound
	}
	r.companies[company.ID] = company.Clone()
	return nil
}

func (r *MemoryCompaniesRepository) GetCompany(_ context.Context, companyID string) (*domain.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	company, ok := r.companies[companyID]
	if !ok {
		return nil, ErrNotFound
	}
	return company.Clone(), nil
}

// ListCompanies returns every company, pinned ones first, most recently
// created first within each group.
func (r *MemoryCompaniesRepository) ListCompanies(_ context.Context) ([]*domain.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	companies := make([]*domain.Company, 0, len(r.companies))
	for _, company := range r.companies {
		companies = append(companies, company.Clone())
	}
	sort.Slice(companies, func(i, j int) bool {
		if companies[i].Pinned != companies[j].Pinned {
			return companies[i].Pinned
		}
		return companies[i].Timestamp.After(companies[j].Timestamp)
	})
	return companies, nil
}

func (r *MemoryCompaniesRepository) DeleteCompany(_ context.Context, companyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.companies[companyID]; !ok {
		return ErrNotFound
	}
	delete(r.companies, companyID)
	return nil
}
