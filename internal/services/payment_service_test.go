package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikerental/internal/models"
	"bikerental/internal/repositories/interfaces"
	"bikerental/internal/utils"
)

func TestPaymentService(t *testing.T) {
	env := newTestEnv(t)
	env.seedBike(t, "BIKE1", 1000, 1.5, "KA01", "KA02")
	ctx := context.Background()
	payments := NewPaymentService(env.payments)

	counter, err := env.booking.CreateAdminBooking(ctx, bookingRequest("user-1", monday, wednesday, sel("BIKE1", "KA01")))
	require.NoError(t, err)
	order, err := env.booking.CreateBookingOrder(ctx, bookingRequest("user-2", monday, wednesday, sel("BIKE1", "KA02")))
	require.NoError(t, err)

	byBooking, err := payments.GetPaymentByBookingID(ctx, order.BookingID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentID, byBooking.PaymentID)
	assert.Equal(t, models.PaymentStatusPending, byBooking.Status)

	byID, err := payments.GetPayment(ctx, order.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, order.BookingID, byID.BookingID)

	params := &utils.PaginationParams{Sort: "razorpayPaymentId"}
	list, total, err := payments.ListPayments(ctx, interfaces.PaymentFilter{Status: models.PaymentStatusSuccess}, params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, counter.BookingID, list[0].BookingID)
	assert.Equal(t, "createdAt", params.Sort)

	_, err = payments.GetPayment(ctx, "PAY-missing")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
	_, err = payments.GetPaymentByBookingID(ctx, "BKG-missing")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}
