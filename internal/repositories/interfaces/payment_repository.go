package interfaces

import (
	"context"
	"time"

	"bikerental/internal/models"
	"bikerental/internal/utils"
)

type PaymentFilter struct {
	UserID    string
	BookingID string
	Status    models.PaymentStatus
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error)
	GetByBookingID(ctx context.Context, bookingID string) (*models.Payment, error)
	List(ctx context.Context, filter PaymentFilter, params *utils.PaginationParams) ([]*models.Payment, int64, error)
	// TransitionStatus changes status only if it is currently one of from.
	TransitionStatus(ctx context.Context, bookingID string, from []models.PaymentStatus, to models.PaymentStatus, update models.PaymentUpdate, at time.Time) (bool, error)
	// RecordSettlement adds paid to paidAmount and stores the new remainder.
	RecordSettlement(ctx context.Context, bookingID string, paid, remaining float64, at time.Time) (bool, error)
}
