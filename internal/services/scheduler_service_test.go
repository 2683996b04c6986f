package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikerental/internal/models"
	"bikerental/internal/utils"
)

func confirmedBooking(t *testing.T, env *testEnv, userID string, from, to time.Time, selections ...models.VehicleSelection) *models.Booking {
	t.Helper()
	booking, err := env.booking.CreateAdminBooking(context.Background(), bookingRequest(userID, from, to, selections...))
	require.NoError(t, err)
	return booking
}

func TestActivateBookings(t *testing.T) {
	env := newTestEnv(t)
	env.seedBike(t, "BIKE1", 1000, 1.5, "KA01", "KA02")
	ctx := context.Background()

	due := confirmedBooking(t, env, "user-1", monday, wednesday, sel("BIKE1", "KA01"))
	later := confirmedBooking(t, env, "user-2", wednesday, wednesday.AddDate(0, 0, 1), sel("BIKE1", "KA02"))

	activated, err := env.scheduler.ActivateBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, activated)

	assert.Equal(t, models.BookingStatusActive, env.bookings.status(due.BookingID))
	assert.Equal(t, models.BookingStatusConfirmed, env.bookings.status(later.BookingID))

	v := env.bikes.vehicle(t, "BIKE1", "KA01")
	assert.Equal(t, models.VehicleStatusRented, v.Status)
	assert.Equal(t, "user-1", v.Metadata.HeldBy)
	assert.Equal(t, models.VehicleStatusAvailable, env.bikes.vehicle(t, "BIKE1", "KA02").Status)

	activated, err = env.scheduler.ActivateBookings(ctx)
	require.NoError(t, err)
	assert.Zero(t, activated)
}

func TestCompleteBookings_WaitsUntilReturnDayHasPassed(t *testing.T) {
	env := newTestEnv(t)
	env.seedBike(t, "BIKE1", 1000, 1.5, "KA01")
	ctx := context.Background()

	booking := confirmedBooking(t, env, "user-1", monday, wednesday, sel("BIKE1", "KA01"))
	_, err := env.scheduler.ActivateBookings(ctx)
	require.NoError(t, err)

	env.clock.Set(wednesday.Add(6 * time.Hour))
	completed, err := env.scheduler.CompleteBookings(ctx)
	require.NoError(t, err)
	assert.Zero(t, completed)
	assert.Equal(t, models.BookingStatusActive, env.bookings.status(booking.BookingID))

	env.clock.Set(utils.StartOfDay(wednesday).AddDate(0, 0, 1).Add(time.Minute))
	completed, err = env.scheduler.CompleteBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)
	assert.Equal(t, models.BookingStatusCompleted, env.bookings.status(booking.BookingID))
	assert.Equal(t, models.VehicleStatusAvailable, env.bikes.vehicle(t, "BIKE1", "KA01").Status)
	assert.Equal(t, 1, env.bikes.counters("BIKE1").Available)

	completed, err = env.scheduler.CompleteBookings(ctx)
	require.NoError(t, err)
	assert.Zero(t, completed)
}

func TestCalculateLateCharge(t *testing.T) {
	env := newTestEnv(t)
	env.seedBike(t, "BIKE1", 1200, 1.5, "KA01")
	ctx := context.Background()

	booking := confirmedBooking(t, env, "user-1", monday, wednesday, sel("BIKE1", "KA01"))
	require.Equal(t, 1200.0, booking.Pricing.RemainingAmount)

	now := wednesday.Add(150 * time.Minute)
	charge, err := env.scheduler.CalculateLateCharge(ctx, booking.BookingID, now)
	require.NoError(t, err)
	assert.Equal(t, 3, charge.LateHours)
	assert.Equal(t, 300.0, charge.TotalCharge)
	assert.Equal(t, 1500.0, charge.RemainingAmount)
	require.Len(t, charge.Items, 1)
	assert.Equal(t, 100.0, charge.Items[0].HourlyRate)

	again, err := env.scheduler.CalculateLateCharge(ctx, booking.BookingID, now)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, again.RemainingAmount)

	stored, err := env.booking.GetBooking(ctx, booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, 300.0, stored.Pricing.LateChargeAmount)
	assert.Equal(t, 1500.0, stored.Pricing.RemainingAmount)
	assert.Equal(t, models.BookingStatusConfirmed, stored.BookingStatus)

	later, err := env.scheduler.CalculateLateCharge(ctx, booking.BookingID, wednesday.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 400.0, later.TotalCharge)
	assert.Equal(t, 1600.0, later.RemainingAmount)
}

func TestCalculateLateCharge_OnTimeReturn(t *testing.T) {
	env := newTestEnv(t)
	env.seedBike(t, "BIKE1", 1200, 1.5, "KA01")

	booking := confirmedBooking(t, env, "user-1", monday, wednesday, sel("BIKE1", "KA01"))

	charge, err := env.scheduler.CalculateLateCharge(context.Background(), booking.BookingID, wednesday)
	require.NoError(t, err)
	assert.Zero(t, charge.LateHours)
	assert.Zero(t, charge.TotalCharge)
	assert.Equal(t, 1200.0, charge.RemainingAmount)
}

func TestCalculateLateCharge_ClosedBooking(t *testing.T) {
	env := newTestEnv(t)
	env.seedBike(t, "BIKE1", 1200, 1.5, "KA01")
	ctx := context.Background()

	booking := confirmedBooking(t, env, "user-1", monday, wednesday, sel("BIKE1", "KA01"))
	_, err := env.booking.CancelBooking(ctx, booking.BookingID, "")
	require.NoError(t, err)

	_, err = env.scheduler.CalculateLateCharge(ctx, booking.BookingID, wednesday.Add(time.Hour))
	assert.ErrorIs(t, err, ErrBookingNotCompletable)

	_, err = env.scheduler.CalculateLateCharge(ctx, "BKG-missing", wednesday)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCompleteBookingWithPayment(t *testing.T) {
	env := newTestEnv(t)
	env.seedBike(t, "BIKE1", 1200, 1.5, "KA01")
	ctx := context.Background()

	booking := confirmedBooking(t, env, "user-1", monday, wednesday, sel("BIKE1", "KA01"))
	_, err := env.scheduler.ActivateBookings(ctx)
	require.NoError(t, err)

	_, err = env.scheduler.CompleteBookingWithPayment(ctx, booking.BookingID, -1)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	completed, err := env.scheduler.CompleteBookingWithPayment(ctx, booking.BookingID, 1500)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, completed.BookingStatus)
	assert.Zero(t, completed.Pricing.RemainingAmount)

	stored, err := env.booking.GetBooking(ctx, booking.BookingID)
	require.NoError(t, err)
	assert.Zero(t, stored.Pricing.RemainingAmount)
	require.NotNil(t, stored.CompletedAt)

	pay := env.payments.get(booking.BookingID)
	assert.Equal(t, 2700.0, pay.PaidAmount)
	assert.Zero(t, pay.RemainingAmount)

	assert.Equal(t, models.VehicleStatusAvailable, env.bikes.vehicle(t, "BIKE1", "KA01").Status)

	_, err = env.scheduler.CompleteBookingWithPayment(ctx, booking.BookingID, 0)
	assert.ErrorIs(t, err, ErrBookingNotCompletable)
}

func TestCompleteBookingWithPayment_PartialSettlement(t *testing.T) {
	env := newTestEnv(t)
	env.seedBike(t, "BIKE1", 1200, 1.5, "KA01")

	booking := confirmedBooking(t, env, "user-1", monday, wednesday, sel("BIKE1", "KA01"))

	completed, err := env.scheduler.CompleteBookingWithPayment(context.Background(), booking.BookingID, 200)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, completed.Pricing.RemainingAmount)
	assert.Equal(t, 1000.0, env.payments.get(booking.BookingID).RemainingAmount)
}

func TestCleanupExpiredHolds(t *testing.T) {
	env := newTestEnv(t)
	env.seedBike(t, "BIKE1", 1000, 1.5, "KA01")
	ctx := context.Background()

	order, err := env.booking.CreateBookingOrder(ctx, bookingRequest("user-1", monday, wednesday, sel("BIKE1", "KA01")))
	require.NoError(t, err)

	result, err := env.scheduler.CleanupExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, &CleanupResult{}, result)

	env.clock.Advance(16 * time.Minute)
	result, err = env.scheduler.CleanupExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ReleasedHolds)
	assert.Equal(t, 1, result.CancelledBookings)

	assert.Equal(t, models.BookingStatusCancelled, env.bookings.status(order.BookingID))
	assert.Equal(t, models.PaymentStatusCancelled, env.payments.get(order.BookingID).Status)
	assert.Equal(t, models.VehicleStatusAvailable, env.bikes.vehicle(t, "BIKE1", "KA01").Status)

	result, err = env.scheduler.CleanupExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, &CleanupResult{}, result)
}

func TestCleanupExpiredHolds_StaleBookingLeavesNewerHold(t *testing.T) {
	env := newTestEnv(t)
	env.seedBike(t, "BIKE1", 1000, 1.5, "KA01")
	ctx := context.Background()
	nextMonday := monday.AddDate(0, 0, 7)

	stale, err := env.booking.CreateBookingOrder(ctx, bookingRequest("user-1", monday, wednesday, sel("BIKE1", "KA01")))
	require.NoError(t, err)

	env.clock.Advance(16 * time.Minute)
	fresh, err := env.booking.CreateBookingOrder(ctx, bookingRequest("user-1", nextMonday, nextMonday.AddDate(0, 0, 2), sel("BIKE1", "KA01")))
	require.NoError(t, err)

	result, err := env.scheduler.CleanupExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CancelledBookings)
	assert.Equal(t, models.BookingStatusCancelled, env.bookings.status(stale.BookingID))
	assert.Equal(t, models.BookingStatusInitiated, env.bookings.status(fresh.BookingID))

	v := env.bikes.vehicle(t, "BIKE1", "KA01")
	assert.Equal(t, models.VehicleStatusHolding, v.Status)
	assert.Equal(t, fresh.BookingID, v.Metadata.BookingID)
}

func TestCleanupExpiredHolds_SkipsBookingWithPaymentInFlight(t *testing.T) {
	env := newTestEnv(t)
	env.seedBike(t, "BIKE1", 1000, 1.5, "KA01")
	ctx := context.Background()

	order, err := env.booking.CreateBookingOrder(ctx, bookingRequest("user-1", monday, wednesday, sel("BIKE1", "KA01")))
	require.NoError(t, err)

	_, err = env.locks.AcquireLock(ctx, utils.CacheKeyPaymentLock+order.BookingID, time.Hour)
	require.NoError(t, err)

	env.clock.Advance(16 * time.Minute)
	result, err := env.scheduler.CleanupExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.CancelledBookings)
	assert.Equal(t, models.BookingStatusInitiated, env.bookings.status(order.BookingID))
}

func TestRunSweep(t *testing.T) {
	env := newTestEnv(t)
	env.seedBike(t, "BIKE1", 1000, 1.5, "KA01", "KA02")
	ctx := context.Background()

	confirmedBooking(t, env, "user-1", monday, wednesday, sel("BIKE1", "KA01"))
	_, err := env.booking.CreateBookingOrder(ctx, bookingRequest("user-2", monday, wednesday, sel("BIKE1", "KA02")))
	require.NoError(t, err)

	env.clock.Advance(16 * time.Minute)
	result, err := env.scheduler.RunSweep(ctx)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 1, result.Cleanup.CancelledBookings)
	assert.Equal(t, 1, result.Activated)
	assert.Zero(t, result.Completed)

	counters := env.bikes.counters("BIKE1")
	assert.Equal(t, 1, counters.Available)
	assert.Equal(t, 1, counters.Rented)
}

func TestRunSweep_SkippedWhileAnotherInstanceSweeps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.locks.AcquireLock(ctx, utils.CacheKeySchedulerLock, time.Minute)
	require.NoError(t, err)

	result, err := env.scheduler.RunSweep(ctx)
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	env.clock.Advance(2 * time.Minute)
	result, err = env.scheduler.RunSweep(ctx)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
}

func TestSchedulerStart_StopsWithContext(t *testing.T) {
	env := newTestEnv(t)
	env.config.SchedulerInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		env.scheduler.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
