// Package catalog serves read-mostly business configuration (services,
// booking policies) with a cache-aside redis layer in front of postgres.
package catalog

import (
	"context"

	"github.com/avetisov/apptcore/internal/domain"
	"github.com/avetisov/apptcore/internal/repository"
)

type Cache interface {
	GetService(ctx context.Context, serviceID int64) (*domain.Service, error)
	SetService(ctx context.Context, s *domain.Service) error
	GetPolicy(ctx context.Context, businessID int64) (*domain.BookingPolicy, error)
	SetPolicy(ctx context.Context, p *domain.BookingPolicy) error
}

type Reader struct {
	repo  repository.CatalogRepository
	cache Cache
}

func NewReader(repo repository.CatalogRepository, cache Cache) *Reader {
	return &Reader{repo: repo, cache: cache}
}

func (r *Reader) Service(ctx context.Context, serviceID int64) (*domain.Service, error) {
	if r.cache != nil {
		if cached, err := r.cache.GetService(ctx, serviceID); err == nil && cached != nil {
			return cached, nil
		}
	}

	svc, err := r.repo.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		_ = r.cache.SetService(ctx, svc)
	}
	return svc, nil
}

func (r *Reader) Policy(ctx context.Context, businessID int64) (*domain.BookingPolicy, error) {
	if r.cache != nil {
		if cached, err := r.cache.GetPolicy(ctx, businessID); err == nil && cached != nil {
			return cached, nil
		}
	}

	policy, err := r.repo.GetPolicy(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		_ = r.cache.SetPolicy(ctx, policy)
	}
	return policy, nil
}
