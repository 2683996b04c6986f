package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bikerental/internal/config"
	"bikerental/internal/models"
	"bikerental/internal/repositories/interfaces"
	"bikerental/internal/utils"
	"bikerental/pkg/cache"
	"bikerental/pkg/logger"
	"bikerental/pkg/metrics"
)

const sweepBatchSize = 200

// SchedulerService advances bookings through their lifecycle. Every job is
// idempotent and reports how many records it changed.
type SchedulerService interface {
	CleanupExpiredHolds(ctx context.Context) (*CleanupResult, error)
	ActivateBookings(ctx context.Context) (int, error)
	CompleteBookings(ctx context.Context) (int, error)
	CalculateLateCharge(ctx context.Context, bookingID string, now time.Time) (*models.LateCharge, error)
	CompleteBookingWithPayment(ctx context.Context, bookingID string, paidAmount float64) (*models.Booking, error)

	// RunSweep runs cleanup, activation and completion once, guarded by a
	// lock so only one replica sweeps at a time.
	RunSweep(ctx context.Context) (*SweepResult, error)
	// Start sweeps every configured interval until ctx is done.
	Start(ctx context.Context)
}

type CleanupResult struct {
	ReleasedHolds     int `json:"releasedHolds"`
	CancelledBookings int `json:"cancelledBookings"`
}

type SweepResult struct {
	Skipped   bool          `json:"skipped"`
	Cleanup   CleanupResult `json:"cleanup"`
	Activated int           `json:"activated"`
	Completed int           `json:"completed"`
}

type schedulerService struct {
	bookingRepo interfaces.BookingRepository
	paymentRepo interfaces.PaymentRepository
	holds       HoldService
	pricing     PricingService
	locks       LockService
	config      *config.BookingConfig
	clock       utils.TimeProvider
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

func NewSchedulerService(
	bookingRepo interfaces.BookingRepository,
	paymentRepo interfaces.PaymentRepository,
	holds HoldService,
	pricing PricingService,
	locks LockService,
	cfg *config.BookingConfig,
	clock utils.TimeProvider,
	log *logger.Logger,
	m *metrics.Metrics,
) SchedulerService {
	return &schedulerService{
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		holds:       holds,
		pricing:     pricing,
		locks:       locks,
		config:      cfg,
		clock:       clock,
		logger:      log.WithField("component", "scheduler"),
		metrics:     m,
	}
}

// CleanupExpiredHolds reaps lapsed holds and cancels INITIATED bookings whose
// payment window has passed while their payment is still pending.
func (s *schedulerService) CleanupExpiredHolds(ctx context.Context) (*CleanupResult, error) {
	start := time.Now()
	result := &CleanupResult{}

	released, err := s.holds.ReleaseExpiredHolds(ctx)
	if err != nil {
		return nil, err
	}
	result.ReleasedHolds = released

	now := s.clock.Now()
	stale, err := s.bookingRepo.FindDue(ctx, interfaces.BookingDueFilter{
		Status:        models.BookingStatusInitiated,
		CreatedBefore: now.Add(-s.config.HoldDuration),
		Limit:         sweepBatchSize,
	})
	if err != nil {
		return result, fmt.Errorf("failed to find stale bookings: %w", err)
	}

	for _, booking := range stale {
		cancelled, err := s.cancelStale(ctx, booking, now)
		if err != nil {
			s.logger.WithError(err).WithBookingID(booking.BookingID).Error("Failed to cancel stale booking")
			continue
		}
		if cancelled {
			result.CancelledBookings++
		}
	}

	s.metrics.ObserveScheduler("release_holds", result.ReleasedHolds)
	s.metrics.ObserveScheduler("cancel_stale", result.CancelledBookings)
	s.logger.LogSchedulerRun("cleanup_expired_holds", result.ReleasedHolds+result.CancelledBookings, time.Since(start))

	return result, nil
}

func (s *schedulerService) cancelStale(ctx context.Context, booking *models.Booking, now time.Time) (bool, error) {
	// A payment completion in flight owns the booking.
	if s.locks != nil {
		lock, err := s.locks.AcquireLock(ctx, utils.CacheKeyPaymentLock+booking.BookingID, s.config.PaymentLockTTL)
		if err != nil {
			if errors.Is(err, cache.ErrLockNotAcquired) {
				return false, nil
			}
			return false, err
		}
		defer s.locks.ReleaseLock(context.WithoutCancel(ctx), lock)
	}

	pay, err := s.paymentRepo.GetByBookingID(ctx, booking.BookingID)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return false, err
	}
	if pay != nil && pay.Status != models.PaymentStatusPending {
		return false, nil
	}

	ok, err := s.bookingRepo.TransitionStatus(ctx, booking.BookingID,
		[]models.BookingStatus{models.BookingStatusInitiated},
		models.BookingStatusCancelled,
		interfaces.BookingStatusChange{At: now, CancellationReason: "payment window expired"})
	if err != nil || !ok {
		return false, err
	}

	if pay != nil {
		if _, err := s.paymentRepo.TransitionStatus(ctx, booking.BookingID,
			[]models.PaymentStatus{models.PaymentStatusPending},
			models.PaymentStatusCancelled,
			models.PaymentUpdate{FailureReason: "payment window expired"},
			now); err != nil {
			s.logger.WithError(err).WithBookingID(booking.BookingID).Error("Failed to cancel stale payment")
		}
	}

	if result, err := s.holds.ReleaseVehicles(ctx, booking.Selections(), booking.UserID, booking.BookingID, models.VehicleStatusHolding); err != nil {
		s.logger.WithError(err).WithBookingID(booking.BookingID).Error("Failed to release stale holds")
	} else if len(result.Succeeded) > 0 {
		s.logger.WithBookingID(booking.BookingID).WithField("released", len(result.Succeeded)).Info("Released holds of stale booking")
	}

	s.logger.LogBookingEvent(booking.BookingID, "expired", nil)
	return true, nil
}

// ActivateBookings starts CONFIRMED bookings whose start time has come and
// occupies their vehicles.
func (s *schedulerService) ActivateBookings(ctx context.Context) (int, error) {
	start := time.Now()
	now := s.clock.Now()

	due, err := s.bookingRepo.FindDue(ctx, interfaces.BookingDueFilter{
		Status:         models.BookingStatusConfirmed,
		FromOnOrBefore: now,
		Limit:          sweepBatchSize,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to find bookings to activate: %w", err)
	}

	activated := 0
	for _, booking := range due {
		ok, err := s.bookingRepo.TransitionStatus(ctx, booking.BookingID,
			[]models.BookingStatus{models.BookingStatusConfirmed},
			models.BookingStatusActive,
			interfaces.BookingStatusChange{At: now})
		if err != nil {
			s.logger.WithError(err).WithBookingID(booking.BookingID).Error("Failed to activate booking")
			continue
		}
		if !ok {
			continue
		}
		activated++

		result, err := s.holds.RentVehicles(ctx, booking.Selections(), booking.UserID, booking.BookingID)
		switch {
		case err != nil:
			s.logger.WithError(err).WithBookingID(booking.BookingID).Error("Failed to occupy vehicles of activated booking")
		case !result.OK():
			s.logger.WithBookingID(booking.BookingID).WithField("failed", result.Failed).Warn("Some vehicles of activated booking are not available")
		}
		s.logger.LogBookingEvent(booking.BookingID, "activated", nil)
	}

	s.metrics.ObserveScheduler("activate", activated)
	s.logger.LogSchedulerRun("activate_bookings", activated, time.Since(start))

	return activated, nil
}

// CompleteBookings closes ACTIVE bookings whose return date lies before
// today in the booking timezone and frees their vehicles.
func (s *schedulerService) CompleteBookings(ctx context.Context) (int, error) {
	start := time.Now()
	now := s.clock.Now()
	today := utils.StartOfDay(now.In(s.config.Location()))

	due, err := s.bookingRepo.FindDue(ctx, interfaces.BookingDueFilter{
		Status:   models.BookingStatusActive,
		ToBefore: today,
		Limit:    sweepBatchSize,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to find bookings to complete: %w", err)
	}

	completed := 0
	for _, booking := range due {
		ok, err := s.bookingRepo.TransitionStatus(ctx, booking.BookingID,
			[]models.BookingStatus{models.BookingStatusActive},
			models.BookingStatusCompleted,
			interfaces.BookingStatusChange{At: now})
		if err != nil {
			s.logger.WithError(err).WithBookingID(booking.BookingID).Error("Failed to complete booking")
			continue
		}
		if !ok {
			continue
		}
		completed++
		s.releaseRented(ctx, booking)
		s.logger.LogBookingEvent(booking.BookingID, "completed", nil)
	}

	s.metrics.ObserveScheduler("complete", completed)
	s.logger.LogSchedulerRun("complete_bookings", completed, time.Since(start))

	return completed, nil
}

// CalculateLateCharge prices an overdue return as of now and stores it as
// the booking's late charge. The charge replaces any earlier one, so calling
// again for the same now changes nothing. The booking status is untouched.
func (s *schedulerService) CalculateLateCharge(ctx context.Context, bookingID string, now time.Time) (*models.LateCharge, error) {
	const maxAttempts = 3

	for attempt := 0; attempt < maxAttempts; attempt++ {
		booking, err := s.getBooking(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if !isCompletable(booking.BookingStatus) {
			return nil, ErrBookingNotCompletable
		}

		charge := s.pricing.CalculateLateCharge(booking, now)
		if charge.TotalCharge == booking.Pricing.LateChargeAmount {
			return charge, nil
		}

		ok, err := s.bookingRepo.UpdateLateCharge(ctx, bookingID,
			booking.Pricing.LateChargeAmount, charge.TotalCharge, charge.RemainingAmount, s.clock.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to update late charge: %w", err)
		}
		if ok {
			s.logger.LogBookingEvent(bookingID, "late_charge", map[string]interface{}{
				"late_hours":  charge.LateHours,
				"late_charge": charge.TotalCharge,
				"remaining":   charge.RemainingAmount,
			})
			return charge, nil
		}
	}

	return nil, fmt.Errorf("late charge for %s changed concurrently: %w", bookingID, ErrBookingNotCompletable)
}

// CompleteBookingWithPayment settles the outstanding balance and completes
// the booking. The remainder is floored at zero.
func (s *schedulerService) CompleteBookingWithPayment(ctx context.Context, bookingID string, paidAmount float64) (*models.Booking, error) {
	if paidAmount < 0 {
		return nil, ErrInvalidAmount
	}

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !isCompletable(booking.BookingStatus) {
		return nil, ErrBookingNotCompletable
	}

	remaining := utils.RoundCurrency(booking.Pricing.RemainingAmount - paidAmount)
	if remaining < 0 {
		remaining = 0
	}

	previous := booking.BookingStatus
	now := s.clock.Now()
	ok, err := s.bookingRepo.TransitionStatus(ctx, bookingID,
		[]models.BookingStatus{previous},
		models.BookingStatusCompleted,
		interfaces.BookingStatusChange{At: now, RemainingAmount: &remaining})
	if err != nil {
		return nil, fmt.Errorf("failed to complete booking: %w", err)
	}
	if !ok {
		return nil, ErrBookingNotCompletable
	}

	if previous == models.BookingStatusActive {
		s.releaseRented(ctx, booking)
	}

	if _, err := s.paymentRepo.RecordSettlement(ctx, bookingID, paidAmount, remaining, now); err != nil {
		s.logger.WithError(err).WithBookingID(bookingID).Error("Failed to record settlement")
	}

	booking.BookingStatus = models.BookingStatusCompleted
	booking.Pricing.RemainingAmount = remaining
	booking.CompletedAt = &now
	booking.UpdatedAt = now

	s.logger.LogPaymentEvent(bookingID, "settled", paidAmount, booking.Pricing.Currency)
	s.logger.LogBookingEvent(bookingID, "completed", map[string]interface{}{"remaining": remaining})
	s.metrics.ObserveBooking("completed")

	return booking, nil
}

func (s *schedulerService) RunSweep(ctx context.Context) (*SweepResult, error) {
	if s.locks != nil {
		lock, err := s.locks.AcquireLock(ctx, utils.CacheKeySchedulerLock, s.config.SchedulerLockTTL)
		if err != nil {
			if errors.Is(err, cache.ErrLockNotAcquired) {
				return &SweepResult{Skipped: true}, nil
			}
			return nil, fmt.Errorf("failed to acquire scheduler lock: %w", err)
		}
		defer s.locks.ReleaseLock(context.WithoutCancel(ctx), lock)
	}

	result := &SweepResult{}
	var errs []error

	cleanup, err := s.CleanupExpiredHolds(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	if cleanup != nil {
		result.Cleanup = *cleanup
	}

	if result.Activated, err = s.ActivateBookings(ctx); err != nil {
		errs = append(errs, err)
	}
	if result.Completed, err = s.CompleteBookings(ctx); err != nil {
		errs = append(errs, err)
	}

	return result, errors.Join(errs...)
}

func (s *schedulerService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.SchedulerInterval)
	defer ticker.Stop()

	s.logger.WithField("interval", s.config.SchedulerInterval.String()).Info("Booking scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Booking scheduler stopped")
			return
		case <-ticker.C:
			result, err := s.RunSweep(ctx)
			if err != nil {
				s.logger.WithError(err).Error("Scheduler sweep failed")
				continue
			}
			if result.Skipped {
				s.logger.Debug("Scheduler sweep skipped, another instance holds the lock")
			}
		}
	}
}

func (s *schedulerService) releaseRented(ctx context.Context, booking *models.Booking) {
	result, err := s.holds.ReleaseVehicles(ctx, booking.Selections(), booking.UserID, booking.BookingID, models.VehicleStatusRented)
	if err != nil {
		s.logger.WithError(err).WithBookingID(booking.BookingID).Error("Failed to release rented vehicles")
		return
	}
	if !result.OK() {
		s.logger.WithBookingID(booking.BookingID).WithField("failed", result.Failed).Warn("Some rented vehicles were not released")
	}
}

func (s *schedulerService) getBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}
