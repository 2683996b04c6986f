package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	handlers "bikerental/internal/handlers/shared"
	"bikerental/internal/models"
	"bikerental/internal/repositories/interfaces"
	"bikerental/internal/services"
	"bikerental/internal/utils"
)

type PaymentHandler struct {
	paymentService services.PaymentService
}

func NewPaymentHandler(paymentService services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// ListPayments returns payment records filtered by status, user or booking
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	filter := interfaces.PaymentFilter{
		UserID:    c.Query("userId"),
		BookingID: c.Query("bookingId"),
	}
	if raw := c.Query("status"); raw != "" {
		filter.Status = models.PaymentStatus(raw)
		if !filter.Status.IsValid() {
			utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_PAYMENT_STATUS", "Invalid payment status")
			return
		}
	}

	params := utils.GetPaginationParams(c)
	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), filter, params)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Payments retrieved successfully", payments, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Payment retrieved successfully", payment)
}

// GetBookingPayment returns the payment record attached to a booking
func (h *PaymentHandler) GetBookingPayment(c *gin.Context) {
	payment, err := h.paymentService.GetPaymentByBookingID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Payment retrieved successfully", payment)
}
