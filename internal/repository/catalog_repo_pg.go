package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/avetisov/apptcore/config"
	"github.com/avetisov/apptcore/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogRepository reads services and per-business booking policy.
type CatalogRepository interface {
	GetService(ctx context.Context, serviceID int64) (*domain.Service, error)
	GetPolicy(ctx context.Context, businessID int64) (*domain.BookingPolicy, error)
}

type PGCatalogRepository struct {
	db       *pgxpool.Pool
	defaults config.BookingConfig
}

func NewCatalogRepository(db *pgxpool.Pool, defaults config.BookingConfig) CatalogRepository {
	return &PGCatalogRepository{db: db, defaults: defaults}
}

func (r *PGCatalogRepository) GetService(ctx context.Context, serviceID int64) (*domain.Service, error) {
	row := r.db.QueryRow(ctx, `SELECT id, business_id, name, duration_minutes, buffer_minutes, capacity FROM services WHERE id=$1`, serviceID)
	var s domain.Service
	if err := row.Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMinutes, &s.BufferMinutes, &s.Capacity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("service %d not found", serviceID)
		}
		return nil, err
	}
	return &s, nil
}

// GetPolicy returns the business policy, falling back to the configured
// defaults when the business has not set one up.
func (r *PGCatalogRepository) GetPolicy(ctx context.Context, businessID int64) (*domain.BookingPolicy, error) {
	row := r.db.QueryRow(ctx, `
        SELECT business_id, min_booking_notice_hours, max_advance_booking_days,
               cancellation_policy_hours, require_approval, require_email_confirmation
        FROM booking_policies WHERE business_id=$1`, businessID)
	var p domain.BookingPolicy
	err := row.Scan(&p.BusinessID, &p.MinBookingNoticeHours, &p.MaxAdvanceBookingDays,
		&p.CancellationPolicyHours, &p.RequireApproval, &p.RequireEmailConfirmation)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.fallbackPolicy(businessID), nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGCatalogRepository) fallbackPolicy(businessID int64) *domain.BookingPolicy {
	return &domain.BookingPolicy{
		BusinessID:            businessID,
		MinBookingNoticeHours: r.defaults.DefaultNoticeHours,
		MaxAdvanceBookingDays: r.defaults.DefaultMaxAdvance,
	}
}

var _ CatalogRepository = (*PGCatalogRepository)(nil)
