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
	"bikerental/pkg/payment"
)

type BookingService interface {
	// Booking flow
	CreateBookingOrder(ctx context.Context, request *CreateBookingRequest) (*BookingOrder, error)
	CompleteBookingPayment(ctx context.Context, request *CompletePaymentRequest) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID, reason string) (*models.Booking, error)

	// Queries
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	ListBookings(ctx context.Context, filter interfaces.BookingFilter, params *utils.PaginationParams) ([]*models.Booking, models.BookingStats, error)

	// Admin
	CreateAdminBooking(ctx context.Context, request *CreateBookingRequest) (*models.Booking, error)
	UpdateBooking(ctx context.Context, bookingID string, update *BookingUpdate) (*models.Booking, error)
	MarkBookingCompleted(ctx context.Context, bookingID string) (*models.Booking, error)
}

type CreateBookingRequest struct {
	UserID      string
	Vehicles    []models.VehicleSelection
	FromDate    time.Time
	ToDate      time.Time
	FullPayment bool
	Features    []string
	Notes       string
}

type BookingOrder struct {
	OrderID       string          `json:"orderId"`
	BookingID     string          `json:"bookingId"`
	PaymentID     string          `json:"paymentId"`
	TotalAmount   float64         `json:"totalAmount"`
	PayableNow    float64         `json:"payableNow"`
	Currency      string          `json:"currency"`
	GatewayKey    string          `json:"gatewayKey"`
	HoldExpiresAt time.Time       `json:"holdExpiresAt"`
	Booking       *models.Booking `json:"booking"`
}

type CompletePaymentRequest struct {
	BookingID        string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	// UserID, when set, must own the booking.
	UserID string
}

type BookingUpdate struct {
	Notes    *string
	Features []string
}

// Statuses that keep a vehicle's calendar occupied for overlap checks.
var occupyingStatuses = []models.BookingStatus{
	models.BookingStatusInitiated,
	models.BookingStatusConfirmed,
	models.BookingStatusActive,
}

type bookingService struct {
	bookingRepo interfaces.BookingRepository
	paymentRepo interfaces.PaymentRepository
	holds       HoldService
	pricing     PricingService
	gateway     payment.Gateway
	locks       LockService
	config      *config.BookingConfig
	clock       utils.TimeProvider
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

func NewBookingService(
	bookingRepo interfaces.BookingRepository,
	paymentRepo interfaces.PaymentRepository,
	holds HoldService,
	pricing PricingService,
	gateway payment.Gateway,
	locks LockService,
	cfg *config.BookingConfig,
	clock utils.TimeProvider,
	log *logger.Logger,
	m *metrics.Metrics,
) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		holds:       holds,
		pricing:     pricing,
		gateway:     gateway,
		locks:       locks,
		config:      cfg,
		clock:       clock,
		logger:      log,
		metrics:     m,
	}
}

// CreateBookingOrder holds the selected vehicles, opens a gateway order for
// the amount payable now and stores an INITIATED booking with a PENDING
// payment. Any failure after the hold releases it again.
func (s *bookingService) CreateBookingOrder(ctx context.Context, request *CreateBookingRequest) (*BookingOrder, error) {
	log := s.logger.WithContext(ctx).WithUserID(request.UserID)

	if _, err := s.holds.ReleaseExpiredHolds(ctx); err != nil {
		log.WithError(err).Warn("Failed to release expired holds before booking")
	}

	quote, err := s.pricing.QuoteBooking(ctx, &QuoteRequest{
		Vehicles:    request.Vehicles,
		FromDate:    request.FromDate,
		ToDate:      request.ToDate,
		FullPayment: request.FullPayment,
	})
	if err != nil {
		return nil, err
	}

	bookingID := utils.GenerateID(utils.BookingIDPrefix)

	tx := newSaga(log)
	holdExpiresAt, err := s.acquireHolds(ctx, tx, request, bookingID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	booking := s.newBooking(bookingID, request, quote, now)
	booking.BookingStatus = models.BookingStatusInitiated
	booking.BookBy = models.BookedByUser
	booking.HoldExpiresAt = &holdExpiresAt

	payable := booking.Pricing.PayableNow()
	receipt := utils.GenerateID(utils.ReceiptPrefix)

	order, err := s.gateway.CreateOrder(ctx, &payment.OrderRequest{
		Amount:   utils.ToMinorUnits(payable),
		Currency: booking.Pricing.Currency,
		Receipt:  receipt,
		Notes: map[string]string{
			"bookingId": booking.BookingID,
			"userId":    booking.UserID,
		},
	})
	if err != nil {
		s.metrics.ObservePayment("order", "failure")
		tx.compensate(ctx)
		return nil, fmt.Errorf("failed to create payment order: %w", err)
	}
	s.metrics.ObservePayment("order", "success")

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		tx.compensate(ctx)
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	tx.onFailure("cancel booking", func(ctx context.Context) error {
		_, err := s.bookingRepo.TransitionStatus(ctx, booking.BookingID,
			[]models.BookingStatus{models.BookingStatusInitiated},
			models.BookingStatusCancelled,
			interfaces.BookingStatusChange{At: s.clock.Now(), CancellationReason: "payment record could not be created"})
		return err
	})

	pay := &models.Payment{
		PaymentID:       utils.GenerateID(utils.PaymentIDPrefix),
		BookingID:       booking.BookingID,
		UserID:          booking.UserID,
		TotalAmount:     booking.Pricing.TotalAmount,
		AdvanceAmount:   booking.Pricing.AdvanceAmount,
		RemainingAmount: booking.Pricing.RemainingAmount,
		Currency:        booking.Pricing.Currency,
		Receipt:         receipt,
		GatewayOrderID:  order.OrderID,
		Status:          models.PaymentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.paymentRepo.Create(ctx, pay); err != nil {
		tx.compensate(ctx)
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	log.LogBookingEvent(booking.BookingID, "initiated", map[string]interface{}{
		"order_id":     order.OrderID,
		"total_amount": booking.Pricing.TotalAmount,
		"payable_now":  payable,
		"vehicles":     len(booking.Vehicles),
	})
	s.metrics.ObserveBooking("initiated")

	return &BookingOrder{
		OrderID:       order.OrderID,
		BookingID:     booking.BookingID,
		PaymentID:     pay.PaymentID,
		TotalAmount:   booking.Pricing.TotalAmount,
		PayableNow:    payable,
		Currency:      booking.Pricing.Currency,
		GatewayKey:    s.gateway.KeyID(),
		HoldExpiresAt: holdExpiresAt,
		Booking:       booking,
	}, nil
}

// CreateAdminBooking records a walk-in booking that is paid at the counter.
// Holds guard the vehicles until the booking is stored and are then released.
func (s *bookingService) CreateAdminBooking(ctx context.Context, request *CreateBookingRequest) (*models.Booking, error) {
	log := s.logger.WithContext(ctx).WithUserID(request.UserID)

	if _, err := s.holds.ReleaseExpiredHolds(ctx); err != nil {
		log.WithError(err).Warn("Failed to release expired holds before booking")
	}

	quote, err := s.pricing.QuoteBooking(ctx, &QuoteRequest{
		Vehicles:    request.Vehicles,
		FromDate:    request.FromDate,
		ToDate:      request.ToDate,
		FullPayment: request.FullPayment,
	})
	if err != nil {
		return nil, err
	}

	bookingID := utils.GenerateID(utils.BookingIDPrefix)

	tx := newSaga(log)
	if _, err := s.acquireHolds(ctx, tx, request, bookingID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	booking := s.newBooking(bookingID, request, quote, now)
	booking.BookingStatus = models.BookingStatusConfirmed
	booking.BookBy = models.BookedByAdmin
	booking.ConfirmedAt = &now

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		tx.compensate(ctx)
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	tx.onFailure("cancel booking", func(ctx context.Context) error {
		_, err := s.bookingRepo.TransitionStatus(ctx, booking.BookingID,
			[]models.BookingStatus{models.BookingStatusConfirmed},
			models.BookingStatusCancelled,
			interfaces.BookingStatusChange{At: s.clock.Now(), CancellationReason: "payment record could not be created"})
		return err
	})

	payable := booking.Pricing.PayableNow()
	pay := &models.Payment{
		PaymentID:       utils.GenerateID(utils.PaymentIDPrefix),
		BookingID:       booking.BookingID,
		UserID:          booking.UserID,
		PaidAmount:      payable,
		TotalAmount:     booking.Pricing.TotalAmount,
		AdvanceAmount:   booking.Pricing.AdvanceAmount,
		RemainingAmount: booking.Pricing.RemainingAmount,
		Currency:        booking.Pricing.Currency,
		Receipt:         utils.GenerateID(utils.ReceiptPrefix),
		Status:          models.PaymentStatusSuccess,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.paymentRepo.Create(ctx, pay); err != nil {
		tx.compensate(ctx)
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	if result, err := s.holds.ReleaseVehicles(ctx, booking.Selections(), booking.UserID, booking.BookingID, models.VehicleStatusHolding); err != nil || !result.OK() {
		log.WithError(err).WithBookingID(booking.BookingID).Warn("Failed to release holds after admin booking")
	}

	log.LogBookingEvent(booking.BookingID, "confirmed", map[string]interface{}{
		"book_by":      string(models.BookedByAdmin),
		"total_amount": booking.Pricing.TotalAmount,
	})
	s.metrics.ObserveBooking("admin_confirmed")

	return booking, nil
}

// acquireHolds holds every selected vehicle for the request's user and the
// booking being created, and registers their release with tx. It fails
// without holding anything when any vehicle is taken or already booked for an
// overlapping window.
func (s *bookingService) acquireHolds(ctx context.Context, tx *saga, request *CreateBookingRequest, bookingID string) (time.Time, error) {
	result, err := s.holds.HoldVehicles(ctx, request.Vehicles, s.config.HoldDuration, request.UserID, bookingID)
	if result != nil && len(result.Succeeded) > 0 {
		held := result.Succeeded
		tx.onFailure("release holds", func(ctx context.Context) error {
			_, err := s.holds.ReleaseVehicles(ctx, held, request.UserID, bookingID, models.VehicleStatusHolding)
			return err
		})
	}
	if err != nil {
		tx.compensate(ctx)
		return time.Time{}, err
	}
	if !result.OK() {
		tx.compensate(ctx)
		s.metrics.ObserveBooking("hold_failed")
		return time.Time{}, &HoldFailedError{FailedVehicles: result.Failed}
	}

	// The calendar is checked while the vehicles are held so no other
	// attempt can book them between the check and the booking write.
	overlapping, err := s.bookingRepo.CountOverlapping(ctx, request.Vehicles, request.FromDate, request.ToDate, occupyingStatuses)
	if err != nil {
		tx.compensate(ctx)
		return time.Time{}, fmt.Errorf("failed to check booking overlap: %w", err)
	}
	if overlapping > 0 {
		tx.compensate(ctx)
		return time.Time{}, fmt.Errorf("vehicle already booked for the requested dates: %w", ErrVehicleUnavailable)
	}

	return result.ExpiresAt, nil
}

func (s *bookingService) newBooking(bookingID string, request *CreateBookingRequest, quote *BookingQuote, now time.Time) *models.Booking {
	return &models.Booking{
		BookingID: bookingID,
		UserID:    request.UserID,
		Vehicles:  quote.Vehicles,
		FromDate:  request.FromDate,
		ToDate:    request.ToDate,
		TotalDays: quote.Pricing.TotalDays,
		Pricing:   quote.Pricing,
		Features:  request.Features,
		Metadata:  models.NewBookingMetadata(quote.Vehicles, request.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CompleteBookingPayment settles an INITIATED booking after checkout. The
// booking's own holds are released first in every case; the booking is
// confirmed only if its hold window has not lapsed, every hold was still
// owned by it, the signature verifies and the capture succeeds. Otherwise the
// booking is cancelled and the payment failed.
func (s *bookingService) CompleteBookingPayment(ctx context.Context, request *CompletePaymentRequest) (*models.Booking, error) {
	log := s.logger.WithContext(ctx).WithBookingID(request.BookingID)

	if s.locks != nil {
		lock, err := s.locks.AcquireLock(ctx, utils.CacheKeyPaymentLock+request.BookingID, s.config.PaymentLockTTL)
		if err != nil {
			if errors.Is(err, cache.ErrLockNotAcquired) {
				return nil, ErrPaymentInProgress
			}
			return nil, fmt.Errorf("failed to lock booking payment: %w", err)
		}
		defer func() {
			if err := s.locks.ReleaseLock(context.WithoutCancel(ctx), lock); err != nil {
				log.WithError(err).Warn("Failed to release payment lock")
			}
		}()
	}

	booking, err := s.getBooking(ctx, request.BookingID)
	if err != nil {
		return nil, err
	}
	if request.UserID != "" && booking.UserID != request.UserID {
		return nil, ErrBookingNotFound
	}

	switch {
	case booking.BookingStatus.IsPaid():
		if err := s.repairCapturedPayment(ctx, booking, request); err != nil {
			return nil, err
		}
		return booking, nil
	case booking.BookingStatus == models.BookingStatusCancelled:
		return nil, ErrHoldExpired
	}

	pay, err := s.paymentRepo.GetByBookingID(ctx, booking.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	if booking.HoldExpiresAt != nil && s.clock.Now().After(*booking.HoldExpiresAt) {
		s.releaseClaims(ctx, booking, models.VehicleStatusHolding)
		return nil, s.failPayment(ctx, booking, request, "vehicle hold expired", ErrHoldExpired)
	}

	// Lapsed holds are reaped first so a late confirmation cannot release
	// and reuse them.
	if _, err := s.holds.ReleaseExpiredHolds(ctx); err != nil {
		log.WithError(err).Warn("Failed to release expired holds before payment")
	}

	released, err := s.holds.ReleaseVehicles(ctx, booking.Selections(), booking.UserID, booking.BookingID, models.VehicleStatusHolding)
	if err != nil {
		return nil, fmt.Errorf("failed to release holds: %w", err)
	}
	if !released.OK() {
		return nil, s.failPayment(ctx, booking, request, "vehicle hold expired", ErrHoldExpired)
	}

	if request.GatewayOrderID != pay.GatewayOrderID ||
		!s.gateway.VerifyPaymentSignature(request.GatewayOrderID, request.GatewayPaymentID, request.Signature) {
		s.metrics.ObservePayment("verify", "failure")
		return nil, s.failPayment(ctx, booking, request, "signature verification failed", ErrPaymentVerificationFailed)
	}

	amount := booking.Pricing.PayableNow()
	if _, err := s.gateway.CapturePayment(ctx, request.GatewayPaymentID, utils.ToMinorUnits(amount), booking.Pricing.Currency); err != nil {
		s.metrics.ObservePayment("capture", "failure")
		gatewayErr := &GatewayError{Operation: "capture", Err: err}
		return nil, s.failPayment(ctx, booking, request, err.Error(), gatewayErr)
	}
	s.metrics.ObservePayment("capture", "success")
	log.LogPaymentEvent(pay.PaymentID, "captured", amount, booking.Pricing.Currency)

	now := s.clock.Now()
	confirmed, err := s.bookingRepo.TransitionStatus(ctx, booking.BookingID,
		[]models.BookingStatus{models.BookingStatusInitiated},
		models.BookingStatusConfirmed,
		interfaces.BookingStatusChange{At: now})
	if err != nil || !confirmed {
		if err != nil {
			log.WithError(err).Error("Failed to confirm booking after capture")
		}
		// The write may have landed before the error surfaced.
		if current, getErr := s.bookingRepo.GetByBookingID(ctx, booking.BookingID); getErr != nil || current.BookingStatus != models.BookingStatusConfirmed {
			s.refund(ctx, booking, request.GatewayPaymentID, amount)
			s.markPaymentFailed(ctx, booking.BookingID, request.GatewayPaymentID, "booking no longer confirmable")
			return nil, ErrHoldExpired
		}
	}

	paid := amount
	if err := s.recordCapture(ctx, booking.BookingID, request.GatewayPaymentID, paid, now); err != nil {
		// The booking stays confirmed; a repeated call repairs the payment.
		log.WithError(err).Error("Failed to mark payment successful")
		return nil, err
	}

	booking.BookingStatus = models.BookingStatusConfirmed
	booking.ConfirmedAt = &now
	booking.UpdatedAt = now

	log.LogBookingEvent(booking.BookingID, "confirmed", map[string]interface{}{
		"payment_id": request.GatewayPaymentID,
		"paid":       paid,
	})
	s.metrics.ObserveBooking("confirmed")

	return booking, nil
}

// recordCapture moves the booking's PENDING payment to SUCCESS. A payment
// that already left PENDING is left alone.
func (s *bookingService) recordCapture(ctx context.Context, bookingID, gatewayPaymentID string, paid float64, at time.Time) error {
	_, err := s.paymentRepo.TransitionStatus(ctx, bookingID,
		[]models.PaymentStatus{models.PaymentStatusPending},
		models.PaymentStatusSuccess,
		models.PaymentUpdate{GatewayPaymentID: gatewayPaymentID, PaidAmount: &paid},
		at)
	if err != nil {
		return fmt.Errorf("failed to record captured payment: %w", err)
	}
	return nil
}

// repairCapturedPayment finishes a confirmation whose payment write was lost
// after capture. Only a request that carries a valid signature for the
// booking's order may settle the payment.
func (s *bookingService) repairCapturedPayment(ctx context.Context, booking *models.Booking, request *CompletePaymentRequest) error {
	if booking.BookBy != models.BookedByUser {
		return nil
	}

	pay, err := s.paymentRepo.GetByBookingID(ctx, booking.BookingID)
	if err != nil {
		return fmt.Errorf("failed to get payment: %w", err)
	}
	if pay.Status != models.PaymentStatusPending {
		return nil
	}
	if request.GatewayOrderID != pay.GatewayOrderID ||
		!s.gateway.VerifyPaymentSignature(request.GatewayOrderID, request.GatewayPaymentID, request.Signature) {
		return ErrPaymentVerificationFailed
	}

	if err := s.recordCapture(ctx, booking.BookingID, request.GatewayPaymentID, pay.TotalAmount-pay.RemainingAmount, s.clock.Now()); err != nil {
		return err
	}
	s.logger.WithContext(ctx).LogPaymentEvent(pay.PaymentID, "repaired", pay.TotalAmount-pay.RemainingAmount, pay.Currency)
	return nil
}

// failPayment cancels the booking and fails its payment, returning cause.
func (s *bookingService) failPayment(ctx context.Context, booking *models.Booking, request *CompletePaymentRequest, reason string, cause error) error {
	ctx = context.WithoutCancel(ctx)
	log := s.logger.WithContext(ctx).WithBookingID(booking.BookingID)

	if _, err := s.bookingRepo.TransitionStatus(ctx, booking.BookingID,
		[]models.BookingStatus{models.BookingStatusInitiated},
		models.BookingStatusCancelled,
		interfaces.BookingStatusChange{At: s.clock.Now(), CancellationReason: reason}); err != nil {
		log.WithError(err).Error("Failed to cancel booking after payment failure")
	}
	s.markPaymentFailed(ctx, booking.BookingID, request.GatewayPaymentID, reason)

	log.WithError(cause).LogBookingEvent(booking.BookingID, "payment_failed", map[string]interface{}{
		"reason": reason,
	})
	s.metrics.ObserveBooking("payment_failed")

	return cause
}

func (s *bookingService) markPaymentFailed(ctx context.Context, bookingID, gatewayPaymentID, reason string) {
	if _, err := s.paymentRepo.TransitionStatus(ctx, bookingID,
		[]models.PaymentStatus{models.PaymentStatusPending},
		models.PaymentStatusFailed,
		models.PaymentUpdate{GatewayPaymentID: gatewayPaymentID, FailureReason: reason},
		s.clock.Now()); err != nil {
		s.logger.WithError(err).WithBookingID(bookingID).Error("Failed to mark payment failed")
	}
}

func (s *bookingService) refund(ctx context.Context, booking *models.Booking, gatewayPaymentID string, amount float64) {
	_, err := s.gateway.RefundPayment(context.WithoutCancel(ctx), &payment.RefundRequest{
		PaymentID: gatewayPaymentID,
		Amount:    utils.ToMinorUnits(amount),
		Reason:    "booking could not be confirmed",
	})
	if err != nil {
		s.metrics.ObservePayment("refund", "failure")
		s.logger.WithError(err).WithBookingID(booking.BookingID).Error("Failed to refund captured payment")
		return
	}
	s.metrics.ObservePayment("refund", "success")
	s.logger.LogPaymentEvent(gatewayPaymentID, "refunded", amount, booking.Pricing.Currency)
}

// CancelBooking cancels a booking that is not yet closed and frees whatever
// vehicles it still claims.
func (s *bookingService) CancelBooking(ctx context.Context, bookingID, reason string) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.BookingStatus.IsClosed() {
		return nil, ErrBookingNotCancellable
	}

	// Conditioned on the status just read, so a concurrent completion or
	// payment wins and this call reports the booking as not cancellable.
	previous := booking.BookingStatus
	now := s.clock.Now()
	ok, err := s.bookingRepo.TransitionStatus(ctx, bookingID,
		[]models.BookingStatus{previous},
		models.BookingStatusCancelled,
		interfaces.BookingStatusChange{At: now, CancellationReason: reason})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	if !ok {
		return nil, ErrBookingNotCancellable
	}

	log := s.logger.WithContext(ctx).WithBookingID(bookingID)

	switch previous {
	case models.BookingStatusInitiated:
		s.releaseClaims(ctx, booking, models.VehicleStatusHolding)
	case models.BookingStatusActive:
		s.releaseClaims(ctx, booking, models.VehicleStatusRented)
	}

	if _, err := s.paymentRepo.TransitionStatus(ctx, bookingID,
		[]models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusSuccess},
		models.PaymentStatusCancelled,
		models.PaymentUpdate{FailureReason: reason},
		now); err != nil {
		log.WithError(err).Error("Failed to cancel payment")
	}

	booking.BookingStatus = models.BookingStatusCancelled
	booking.CancellationReason = reason
	booking.CancelledAt = &now
	booking.UpdatedAt = now

	log.LogBookingEvent(bookingID, "cancelled", map[string]interface{}{
		"previous_status": string(previous),
		"reason":          reason,
	})
	s.metrics.ObserveBooking("cancelled")

	return booking, nil
}

func (s *bookingService) releaseClaims(ctx context.Context, booking *models.Booking, from models.VehicleStatus) {
	result, err := s.holds.ReleaseVehicles(ctx, booking.Selections(), booking.UserID, booking.BookingID, from)
	if err != nil {
		s.logger.WithError(err).WithBookingID(booking.BookingID).Error("Failed to release booking vehicles")
		return
	}
	if !result.OK() {
		s.logger.WithBookingID(booking.BookingID).WithField("failed", result.Failed).Warn("Some booking vehicles were not released")
	}
}

func (s *bookingService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.getBooking(ctx, bookingID)
}

func (s *bookingService) getBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (s *bookingService) ListBookings(ctx context.Context, filter interfaces.BookingFilter, params *utils.PaginationParams) ([]*models.Booking, models.BookingStats, error) {
	params.Normalize()
	params.RestrictSort("createdAt", "createdAt", "fromDate", "toDate", "pricing.totalAmount")

	bookings, stats, err := s.bookingRepo.List(ctx, filter, params)
	if err != nil {
		return nil, models.BookingStats{}, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, stats, nil
}

// UpdateBooking edits customer notes and feature flags only.
func (s *bookingService) UpdateBooking(ctx context.Context, bookingID string, update *BookingUpdate) (*models.Booking, error) {
	ok, err := s.bookingRepo.UpdateDetails(ctx, bookingID, update.Notes, update.Features, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	if !ok {
		return nil, ErrBookingNotFound
	}
	return s.getBooking(ctx, bookingID)
}

// MarkBookingCompleted closes a settled booking.
func (s *bookingService) MarkBookingCompleted(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !isCompletable(booking.BookingStatus) || booking.Pricing.RemainingAmount > 0 {
		return nil, ErrBookingNotCompletable
	}

	previous := booking.BookingStatus
	now := s.clock.Now()
	ok, err := s.bookingRepo.TransitionStatus(ctx, bookingID,
		[]models.BookingStatus{previous},
		models.BookingStatusCompleted,
		interfaces.BookingStatusChange{At: now})
	if err != nil {
		return nil, fmt.Errorf("failed to complete booking: %w", err)
	}
	if !ok {
		return nil, ErrBookingNotCompletable
	}

	if previous == models.BookingStatusActive {
		s.releaseClaims(ctx, booking, models.VehicleStatusRented)
	}

	booking.BookingStatus = models.BookingStatusCompleted
	booking.CompletedAt = &now
	booking.UpdatedAt = now

	s.logger.WithContext(ctx).LogBookingEvent(bookingID, "completed", nil)
	s.metrics.ObserveBooking("completed")

	return booking, nil
}

func isCompletable(status models.BookingStatus) bool {
	return status == models.BookingStatusConfirmed || status == models.BookingStatusActive
}
