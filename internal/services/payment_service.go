package services

import (
	"context"
	"errors"
	"fmt"

	"bikerental/internal/models"
	"bikerental/internal/repositories/interfaces"
	"bikerental/internal/utils"
)

// PaymentService is the read side of booking payments for admins. Payments
// only change through the booking flow.
type PaymentService interface {
	ListPayments(ctx context.Context, filter interfaces.PaymentFilter, params *utils.PaginationParams) ([]*models.Payment, int64, error)
	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	GetPaymentByBookingID(ctx context.Context, bookingID string) (*models.Payment, error)
}

type paymentService struct {
	paymentRepo interfaces.PaymentRepository
}

func NewPaymentService(paymentRepo interfaces.PaymentRepository) PaymentService {
	return &paymentService{
		paymentRepo: paymentRepo,
	}
}

func (s *paymentService) ListPayments(ctx context.Context, filter interfaces.PaymentFilter, params *utils.PaginationParams) ([]*models.Payment, int64, error) {
	params.Normalize()
	params.RestrictSort("createdAt", "createdAt", "updatedAt", "totalAmount", "paidAmount")

	payments, total, err := s.paymentRepo.List(ctx, filter, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, total, nil
}

func (s *paymentService) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	return notFoundAsPayment(s.paymentRepo.GetByPaymentID(ctx, paymentID))
}

func (s *paymentService) GetPaymentByBookingID(ctx context.Context, bookingID string) (*models.Payment, error) {
	return notFoundAsPayment(s.paymentRepo.GetByBookingID(ctx, bookingID))
}

func notFoundAsPayment(payment *models.Payment, err error) (*models.Payment, error) {
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}
