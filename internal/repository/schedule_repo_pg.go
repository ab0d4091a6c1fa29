package repository

import (
	"context"
	"errors"
	"time"

	"github.com/avetisov/apptcore/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScheduleRepository reads the weekly templates and date overrides owned by
// the dashboard. Read-only from the core's perspective.
type ScheduleRepository interface {
	GetTemplate(ctx context.Context, businessID int64, staffID *int64) (*domain.AvailabilityTemplate, error)
	GetOverrides(ctx context.Context, businessID int64, staffID *int64, from, to time.Time) ([]domain.AvailabilityOverride, error)
}

type PGScheduleRepository struct {
	db *pgxpool.Pool
}

func NewScheduleRepository(db *pgxpool.Pool) ScheduleRepository {
	return &PGScheduleRepository{db: db}
}

// GetTemplate returns the template for the exact scope requested (staff
// template when staffID is set, business default when nil), with its weekly
// slots loaded, or nil when none exists.
func (r *PGScheduleRepository) GetTemplate(ctx context.Context, businessID int64, staffID *int64) (*domain.AvailabilityTemplate, error) {
	var (
		row pgx.Row
	)
	if staffID == nil {
		row = r.db.QueryRow(ctx, `SELECT id, business_id, staff_id FROM availability_templates WHERE business_id=$1 AND staff_id IS NULL`, businessID)
	} else {
		row = r.db.QueryRow(ctx, `SELECT id, business_id, staff_id FROM availability_templates WHERE business_id=$1 AND staff_id=$2`, businessID, *staffID)
	}

	var tpl domain.AvailabilityTemplate
	if err := row.Scan(&tpl.ID, &tpl.BusinessID, &tpl.StaffID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx, `SELECT day_of_week, start_minutes, end_minutes FROM template_slots WHERE template_id=$1 ORDER BY day_of_week, start_minutes`, tpl.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			dow        int
			start, end int
		)
		if err := rows.Scan(&dow, &start, &end); err != nil {
			return nil, err
		}
		tpl.Slots = append(tpl.Slots, domain.WeeklySlot{
			DayOfWeek:    time.Weekday(dow),
			StartMinutes: start,
			EndMinutes:   end,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// GetOverrides returns overrides in [from, to] that could apply to the given
// staff scope: staff-scoped rows for that staff member plus business-wide
// rows. Precedence between them is the resolver's concern.
func (r *PGScheduleRepository) GetOverrides(ctx context.Context, businessID int64, staffID *int64, from, to time.Time) ([]domain.AvailabilityOverride, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, business_id, staff_id, date, is_available, COALESCE(start_minutes, 0), COALESCE(end_minutes, 0)
        FROM availability_overrides
        WHERE business_id = $1
          AND date BETWEEN $2 AND $3
          AND (staff_id IS NULL OR ($4::bigint IS NOT NULL AND staff_id = $4))
        ORDER BY date`, businessID, from, to, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []domain.AvailabilityOverride
	for rows.Next() {
		var ov domain.AvailabilityOverride
		if err := rows.Scan(&ov.ID, &ov.BusinessID, &ov.StaffID, &ov.Date, &ov.IsAvailable, &ov.StartMinutes, &ov.EndMinutes); err != nil {
			return nil, err
		}
		overrides = append(overrides, ov)
	}
	return overrides, rows.Err()
}

var _ ScheduleRepository = (*PGScheduleRepository)(nil)
