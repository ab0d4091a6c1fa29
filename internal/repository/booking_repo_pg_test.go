package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/avetisov/apptcore/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookingRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewBookingRepository(pool, 3)
	assert.NotNil(t, repo)
}

func TestBlockingStatusesSQL(t *testing.T) {
	// The conflict queries must filter on exactly the statuses that Blocks()
	// reports as occupying their interval.
	assert.Equal(t, "'UNCONFIRMED', 'PENDING', 'CONFIRMED'", blockingStatusesSQL)
}

// The tests below exercise the lock/check/insert discipline against a real
// postgres with migrations/schema.sql applied. They skip unless
// TEST_DATABASE_DSN points at one.

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func seedCatalog(t *testing.T, pool *pgxpool.Pool) (int64, *domain.Service) {
	t.Helper()
	ctx := context.Background()

	var businessID int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO businesses (name) VALUES ($1) RETURNING id`,
		"repo-test-"+uuid.NewString()).Scan(&businessID))

	svc := &domain.Service{BusinessID: businessID, Name: "consultation", DurationMinutes: 60, Capacity: 1}
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO services (business_id, name, duration_minutes, buffer_minutes, capacity)
         VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		svc.BusinessID, svc.Name, svc.DurationMinutes, svc.BufferMinutes, svc.Capacity).Scan(&svc.ID))

	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM booking_holds WHERE business_id=$1`, businessID)
		pool.Exec(ctx, `DELETE FROM bookings WHERE business_id=$1`, businessID)
		pool.Exec(ctx, `DELETE FROM outbox_events WHERE business_id=$1`, businessID)
		pool.Exec(ctx, `DELETE FROM services WHERE business_id=$1`, businessID)
		pool.Exec(ctx, `DELETE FROM businesses WHERE id=$1`, businessID)
	})
	return businessID, svc
}

func seededHold(businessID int64, svc *domain.Service, interval domain.Interval, key *string) *domain.Hold {
	return &domain.Hold{
		Token:          uuid.NewString(),
		BusinessID:     businessID,
		ServiceID:      &svc.ID,
		Interval:       interval,
		IdempotencyKey: key,
		ExpiresAt:      time.Now().Add(5 * time.Minute),
	}
}

func tomorrowSlot(t *testing.T) domain.Interval {
	t.Helper()
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)
	interval, err := domain.NewInterval(start, start.Add(time.Hour))
	require.NoError(t, err)
	return interval
}

func TestCreateHoldIfFree_ConcurrentSingleWinner(t *testing.T) {
	pool := testPool(t)
	repo := NewBookingRepository(pool, 3)
	businessID, svc := seedCatalog(t, pool)
	interval := tomorrowSlot(t)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateHoldIfFree(context.Background(), seededHold(businessID, svc, interval, nil), svc)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won, lost int
	for err := range errs {
		if err == nil {
			won++
			continue
		}
		require.ErrorIs(t, err, domain.ErrSlotUnavailable)
		lost++
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	var count int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT count(*) FROM booking_holds WHERE business_id=$1`, businessID).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestCreateHoldIfFree_IdempotentReplay(t *testing.T) {
	pool := testPool(t)
	repo := NewBookingRepository(pool, 3)
	businessID, svc := seedCatalog(t, pool)
	interval := tomorrowSlot(t)

	key := uuid.NewString()
	first, err := repo.CreateHoldIfFree(context.Background(), seededHold(businessID, svc, interval, &key), svc)
	require.NoError(t, err)

	replay, err := repo.CreateHoldIfFree(context.Background(), seededHold(businessID, svc, interval, &key), svc)
	require.NoError(t, err)
	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, first.Token, replay.Token)

	var count int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT count(*) FROM booking_holds WHERE business_id=$1 AND idempotency_key=$2`,
		businessID, key).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestConfirmHold_ConsumesHoldAtomically(t *testing.T) {
	pool := testPool(t)
	repo := NewBookingRepository(pool, 3)
	businessID, svc := seedCatalog(t, pool)
	interval := tomorrowSlot(t)

	hold, err := repo.CreateHoldIfFree(context.Background(), seededHold(businessID, svc, interval, nil), svc)
	require.NoError(t, err)

	b, err := repo.ConfirmHold(context.Background(), hold.Token, domain.BookingStatusConfirmed, "Ann", "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)

	_, err = repo.GetHoldByToken(context.Background(), hold.Token)
	assert.ErrorIs(t, err, domain.ErrHoldNotFound)

	var events int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT count(*) FROM outbox_events WHERE business_id=$1 AND event_type=$2`,
		businessID, domain.EventBookingCreated).Scan(&events))
	assert.Equal(t, 1, events)
}
