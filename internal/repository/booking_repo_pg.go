package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/avetisov/apptcore/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingRepository owns all mutations of the shared booking/hold interval
// space. Every create path runs its conflict check and its insert inside one
// transaction, behind a locking read on the business row, so two concurrent
// creations for overlapping intervals can never both commit.
type BookingRepository interface {
	BookingsInRange(ctx context.Context, businessID int64, staffID *int64, from, to time.Time) ([]domain.Booking, error)
	ActiveHolds(ctx context.Context, businessID int64, staffID *int64, from, to time.Time) ([]domain.Hold, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	GetHoldByToken(ctx context.Context, token string) (*domain.Hold, error)

	CreateHoldIfFree(ctx context.Context, hold *domain.Hold, svc *domain.Service) (*domain.Hold, error)
	ConfirmHold(ctx context.Context, token string, status domain.BookingStatus, customerName, customerEmail string) (*domain.Booking, error)
	CreateBookingIfFree(ctx context.Context, booking *domain.Booking, svc *domain.Service) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id int64, next domain.BookingStatus, event domain.EventType) (*domain.Booking, error)
	Reschedule(ctx context.Context, id int64, interval domain.Interval, svc *domain.Service) (*domain.Booking, error)

	DeleteExpiredHolds(ctx context.Context, before time.Time) (int64, error)
	ExpireUnconfirmedBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db            *pgxpool.Pool
	retryAttempts int
}

func NewBookingRepository(db *pgxpool.Pool, retryAttempts int) BookingRepository {
	if retryAttempts <= 0 {
		retryAttempts = 3
	}
	return &PGBookingRepository{db: db, retryAttempts: retryAttempts}
}

const bookingColumns = `id, business_id, staff_id, service_id, customer_name, customer_email, starts_at, ends_at, status, metadata, created_at, updated_at`

// blockingStatusesSQL is the literal status list for conflict queries,
// derived from the domain state machine.
var blockingStatusesSQL = func() string {
	statuses := domain.BlockingStatuses()
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		parts = append(parts, "'"+string(s)+"'")
	}
	return strings.Join(parts, ", ")
}()

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.BusinessID, &b.StaffID, &b.ServiceID, &b.CustomerName, &b.CustomerEmail,
		&b.Interval.Start, &b.Interval.End, &b.Status, &b.Metadata, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) BookingsInRange(ctx context.Context, businessID int64, staffID *int64, from, to time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+bookingColumns+` FROM bookings
        WHERE business_id = $1
          AND status IN (`+blockingStatusesSQL+`)
          AND starts_at < $3 AND ends_at > $2
          AND ($4::bigint IS NULL OR staff_id IS NULL OR staff_id = $4)
        ORDER BY starts_at`, businessID, from, to, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

const holdColumns = `id, token, business_id, staff_id, service_id, customer_id, starts_at, ends_at, idempotency_key, expires_at, created_at`

func scanHold(row pgx.Row) (*domain.Hold, error) {
	var h domain.Hold
	err := row.Scan(&h.ID, &h.Token, &h.BusinessID, &h.StaffID, &h.ServiceID, &h.CustomerID,
		&h.Interval.Start, &h.Interval.End, &h.IdempotencyKey, &h.ExpiresAt, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ActiveHolds excludes expired holds in the query itself: an expired hold is
// dead even if the sweeper has not deleted it yet.
func (r *PGBookingRepository) ActiveHolds(ctx context.Context, businessID int64, staffID *int64, from, to time.Time) ([]domain.Hold, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+holdColumns+` FROM booking_holds
        WHERE business_id = $1
          AND expires_at > now()
          AND starts_at < $3 AND ends_at > $2
          AND ($4::bigint IS NULL OR staff_id IS NULL OR staff_id = $4)
        ORDER BY starts_at`, businessID, from, to, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holds []domain.Hold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		holds = append(holds, *h)
	}
	return holds, rows.Err()
}

func (r *PGBookingRepository) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	return b, err
}

func (r *PGBookingRepository) GetHoldByToken(ctx context.Context, token string) (*domain.Hold, error) {
	h, err := scanHold(r.db.QueryRow(ctx, `SELECT `+holdColumns+` FROM booking_holds WHERE token=$1`, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrHoldNotFound
	}
	return h, err
}

// CreateHoldIfFree inserts the hold unless the interval conflicts. The
// sequence lock-check-insert runs in one transaction: a concurrent creation
// for the same business blocks on the business row until this one commits,
// then sees the new hold in its own check.
func (r *PGBookingRepository) CreateHoldIfFree(ctx context.Context, hold *domain.Hold, svc *domain.Service) (*domain.Hold, error) {
	var result *domain.Hold
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if hold.IdempotencyKey != nil {
			existing, err := liveHoldByKey(ctx, tx, hold.BusinessID, *hold.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				result = existing
				return nil
			}
		}

		if err := lockBusiness(ctx, tx, hold.BusinessID); err != nil {
			return err
		}

		free, err := intervalFree(ctx, tx, hold.BusinessID, hold.StaffID, hold.Interval, svc, 0)
		if err != nil {
			return err
		}
		if !free {
			return domain.ErrSlotUnavailable
		}

		row := tx.QueryRow(ctx, `
            INSERT INTO booking_holds (token, business_id, staff_id, service_id, customer_id, starts_at, ends_at, idempotency_key, expires_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
            RETURNING id, created_at`,
			hold.Token, hold.BusinessID, hold.StaffID, hold.ServiceID, hold.CustomerID,
			hold.Interval.Start, hold.Interval.End, hold.IdempotencyKey, hold.ExpiresAt)
		if err := row.Scan(&hold.ID, &hold.CreatedAt); err != nil {
			return err
		}
		result = hold
		return nil
	})

	// A racing request with the same idempotency key can slip past the
	// pre-check and hit the unique index; replay the winner's hold.
	if isUniqueViolation(err) && hold.IdempotencyKey != nil {
		existing, lookupErr := liveHoldByKey(ctx, r.db, hold.BusinessID, *hold.IdempotencyKey)
		if lookupErr == nil && existing != nil {
			return existing, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ConfirmHold converts an unexpired hold into a booking: insert booking,
// delete hold, record the lifecycle fact — one transaction, so a crash can
// never leave both a hold and a booking alive for the interval.
func (r *PGBookingRepository) ConfirmHold(ctx context.Context, token string, status domain.BookingStatus, customerName, customerEmail string) (*domain.Booking, error) {
	var result *domain.Booking
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		h, err := scanHold(tx.QueryRow(ctx, `SELECT `+holdColumns+` FROM booking_holds WHERE token=$1 FOR UPDATE`, token))
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrHoldNotFound
		}
		if err != nil {
			return err
		}
		if h.Expired(time.Now()) {
			return domain.ErrHoldExpired
		}

		b, err := scanBooking(tx.QueryRow(ctx, `
            INSERT INTO bookings (business_id, staff_id, service_id, customer_name, customer_email, starts_at, ends_at, status)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
            RETURNING `+bookingColumns,
			h.BusinessID, h.StaffID, h.ServiceID, customerName, customerEmail,
			h.Interval.Start, h.Interval.End, status))
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM booking_holds WHERE id=$1`, h.ID); err != nil {
			return err
		}

		if err := insertOutboxEvent(ctx, tx, domain.EventBookingCreated, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreateBookingIfFree is the admin path: no hold, but the identical conflict
// discipline. There is no privileged path that skips the check.
func (r *PGBookingRepository) CreateBookingIfFree(ctx context.Context, booking *domain.Booking, svc *domain.Service) (*domain.Booking, error) {
	var result *domain.Booking
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockBusiness(ctx, tx, booking.BusinessID); err != nil {
			return err
		}

		free, err := intervalFree(ctx, tx, booking.BusinessID, booking.StaffID, booking.Interval, svc, 0)
		if err != nil {
			return err
		}
		if !free {
			return domain.ErrSlotUnavailable
		}

		b, err := scanBooking(tx.QueryRow(ctx, `
            INSERT INTO bookings (business_id, staff_id, service_id, customer_name, customer_email, starts_at, ends_at, status, metadata)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
            RETURNING `+bookingColumns,
			booking.BusinessID, booking.StaffID, booking.ServiceID, booking.CustomerName, booking.CustomerEmail,
			booking.Interval.Start, booking.Interval.End, booking.Status, booking.Metadata))
		if err != nil {
			return err
		}
		if err := insertOutboxEvent(ctx, tx, domain.EventBookingCreated, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateStatus applies a validated status transition and records event.
// Event type "" suppresses the outbox record (completed/no-show are not
// notifier-facing facts).
func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id int64, next domain.BookingStatus, event domain.EventType) (*domain.Booking, error) {
	var result *domain.Booking
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrBookingNotFound
		}
		if err != nil {
			return err
		}
		if err := b.Transition(next); err != nil {
			return err
		}

		updated, err := scanBooking(tx.QueryRow(ctx,
			`UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+bookingColumns, next, id))
		if err != nil {
			return err
		}
		if event != "" {
			if err := insertOutboxEvent(ctx, tx, event, updated); err != nil {
				return err
			}
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reschedule validates the new interval and moves the booking in place. It is
// deliberately not cancel+recreate: the old slot must never be visible as
// free to a concurrent request while the move is in flight.
func (r *PGBookingRepository) Reschedule(ctx context.Context, id int64, interval domain.Interval, svc *domain.Service) (*domain.Booking, error) {
	var result *domain.Booking
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrBookingNotFound
		}
		if err != nil {
			return err
		}
		if !b.Status.Blocks() {
			return domain.ErrInvalidTransition
		}

		if err := lockBusiness(ctx, tx, b.BusinessID); err != nil {
			return err
		}
		free, err := intervalFree(ctx, tx, b.BusinessID, b.StaffID, interval, svc, b.ID)
		if err != nil {
			return err
		}
		if !free {
			return domain.ErrSlotUnavailable
		}

		updated, err := scanBooking(tx.QueryRow(ctx,
			`UPDATE bookings SET starts_at=$1, ends_at=$2, updated_at=now() WHERE id=$3 RETURNING `+bookingColumns,
			interval.Start, interval.End, id))
		if err != nil {
			return err
		}
		if err := insertOutboxEvent(ctx, tx, domain.EventBookingRescheduled, updated); err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PGBookingRepository) DeleteExpiredHolds(ctx context.Context, before time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM booking_holds WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// ExpireUnconfirmedBefore cancels unconfirmed bookings whose confirmation
// window has lapsed and records the cancellation facts.
func (r *PGBookingRepository) ExpireUnconfirmedBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	var expired []domain.Booking
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
            UPDATE bookings SET status=$1, updated_at=now()
            WHERE status=$2 AND created_at <= $3
            RETURNING `+bookingColumns, domain.BookingStatusCancelled, domain.BookingStatusUnconfirmed, deadline)
		if err != nil {
			return err
		}
		expired = expired[:0]
		for rows.Next() {
			b, err := scanBooking(rows)
			if err != nil {
				rows.Close()
				return err
			}
			expired = append(expired, *b)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for i := range expired {
			if err := insertOutboxEvent(ctx, tx, domain.EventBookingCancelled, &expired[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// lockBusiness takes the business row for update. All hold/booking creations
// for one business serialize here; different businesses proceed in parallel.
func lockBusiness(ctx context.Context, tx pgx.Tx, businessID int64) error {
	var id int64
	return tx.QueryRow(ctx, `SELECT id FROM businesses WHERE id=$1 FOR UPDATE`, businessID).Scan(&id)
}

// intervalFree counts blocking bookings and unexpired holds that collide with
// the candidate under the buffer rule: conflict iff existing.starts_at <
// candidate.end AND existing.ends_at + buffer > candidate.start. The buffer
// pads only the existing occupancy's trailing edge, so a candidate cannot
// start within buffer of a prior occupancy's end.
func intervalFree(ctx context.Context, tx pgx.Tx, businessID int64, staffID *int64, interval domain.Interval, svc *domain.Service, excludeBookingID int64) (bool, error) {
	capacity := 1
	buffer := time.Duration(0)
	if svc != nil {
		if svc.Capacity > 0 {
			capacity = svc.Capacity
		}
		buffer = time.Duration(svc.BufferMinutes) * time.Minute
	}
	paddedStart := interval.Start.Add(-buffer)

	var occupied int
	err := tx.QueryRow(ctx, `
        SELECT (SELECT count(*) FROM bookings
                WHERE business_id = $1
                  AND status IN (`+blockingStatusesSQL+`)
                  AND starts_at < $3 AND ends_at > $2
                  AND ($4::bigint IS NULL OR staff_id IS NULL OR staff_id = $4)
                  AND id <> $5)
             + (SELECT count(*) FROM booking_holds
                WHERE business_id = $1
                  AND expires_at > now()
                  AND starts_at < $3 AND ends_at > $2
                  AND ($4::bigint IS NULL OR staff_id IS NULL OR staff_id = $4))`,
		businessID, paddedStart, interval.End, staffID, excludeBookingID).Scan(&occupied)
	if err != nil {
		return false, err
	}
	return occupied < capacity, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func liveHoldByKey(ctx context.Context, q queryRower, businessID int64, key string) (*domain.Hold, error) {
	h, err := scanHold(q.QueryRow(ctx, `
        SELECT `+holdColumns+` FROM booking_holds
        WHERE business_id=$1 AND idempotency_key=$2 AND expires_at > now()`, businessID, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// inTx runs fn in a transaction, retrying a bounded number of times on
// serialization failure or deadlock. Domain errors pass through untouched.
func (r *PGBookingRepository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < r.retryAttempts; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !retryableTxError(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (r *PGBookingRepository) runOnce(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func retryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ BookingRepository = (*PGBookingRepository)(nil)
