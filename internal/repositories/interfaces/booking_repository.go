package interfaces

import (
	"context"
	"time"

	"bikerental/internal/models"
	"bikerental/internal/utils"
)

// BookingStatusChange carries the fields written alongside a status change.
type BookingStatusChange struct {
	At                 time.Time
	CancellationReason string
	RemainingAmount    *float64
}

// BookingDueFilter selects bookings of one status by date thresholds.
// Zero thresholds are ignored.
type BookingDueFilter struct {
	Status         models.BookingStatus
	FromOnOrBefore time.Time
	ToBefore       time.Time
	CreatedBefore  time.Time
	Limit          int64
}

type BookingFilter struct {
	UserID        string
	Status        models.BookingStatus
	BikeID        string
	VehicleNumber string
	From          *time.Time
	To            *time.Time
}

type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByBookingID(ctx context.Context, bookingID string) (*models.Booking, error)
	List(ctx context.Context, filter BookingFilter, params *utils.PaginationParams) ([]*models.Booking, models.BookingStats, error)

	// TransitionStatus changes bookingStatus only if it is currently one of from.
	TransitionStatus(ctx context.Context, bookingID string, from []models.BookingStatus, to models.BookingStatus, change BookingStatusChange) (bool, error)
	FindDue(ctx context.Context, filter BookingDueFilter) ([]*models.Booking, error)
	CountOverlapping(ctx context.Context, selections []models.VehicleSelection, from, to time.Time, statuses []models.BookingStatus) (int64, error)

	// UpdateLateCharge is a compare-and-swap on pricing.lateChargeAmount.
	UpdateLateCharge(ctx context.Context, bookingID string, previousCharge, charge, remaining float64, at time.Time) (bool, error)
	UpdateDetails(ctx context.Context, bookingID string, notes *string, features []string, at time.Time) (bool, error)
}
