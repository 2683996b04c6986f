package handlers

import (
	"github.com/gin-gonic/gin"

	"bikerental/internal/middleware"
	"bikerental/internal/models"
	"bikerental/internal/repositories/interfaces"
	"bikerental/internal/services"
	"bikerental/internal/utils"
	"bikerental/internal/validators"
)

type BookingHandler struct {
	bookingService services.BookingService
}

func NewBookingHandler(bookingService services.BookingService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
	}
}

// CreateOrder holds the selected vehicles and opens a gateway order
func (h *BookingHandler) CreateOrder(c *gin.Context) {
	var request validators.CreateBookingRequest
	if !BindJSON(c, &request) {
		return
	}
	if errs := validators.ValidateCreateBooking(&request); len(errs) > 0 {
		RespondError(c, errs)
		return
	}

	order, err := h.bookingService.CreateBookingOrder(c.Request.Context(), ToCreateBooking(&request, middleware.UserID(c)))
	if err != nil {
		RespondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Booking order created successfully", order)
}

// VerifyPayment completes checkout for a booking order
func (h *BookingHandler) VerifyPayment(c *gin.Context) {
	var request validators.VerifyPaymentRequest
	if !BindJSON(c, &request) {
		return
	}
	if errs := validators.ValidateVerifyPayment(&request); len(errs) > 0 {
		RespondError(c, errs)
		return
	}

	booking, err := h.bookingService.CompleteBookingPayment(c.Request.Context(), &services.CompletePaymentRequest{
		BookingID:        request.BookingID,
		GatewayOrderID:   request.GatewayOrderID,
		GatewayPaymentID: request.GatewayPaymentID,
		Signature:        request.Signature,
		UserID:           middleware.UserID(c),
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking confirmed successfully", booking)
}

func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var request validators.CancelBookingRequest
	if c.Request.ContentLength > 0 && !BindJSON(c, &request) {
		return
	}
	if errs := validators.ValidateStruct(&request); len(errs) > 0 {
		RespondError(c, errs)
		return
	}

	if _, ok := h.ownedBooking(c); !ok {
		return
	}

	booking, err := h.bookingService.CancelBooking(c.Request.Context(), c.Param("id"), validators.SanitizeInput(request.Reason))
	if err != nil {
		RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking cancelled successfully", booking)
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, ok := h.ownedBooking(c)
	if !ok {
		return
	}

	utils.SuccessResponse(c, "Booking retrieved successfully", booking)
}

// GetMyBookings lists the caller's bookings
func (h *BookingHandler) GetMyBookings(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	filter := interfaces.BookingFilter{UserID: middleware.UserID(c)}

	bookings, stats, err := h.bookingService.ListBookings(c.Request.Context(), filter, params)
	if err != nil {
		RespondError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Bookings retrieved successfully", bookings, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, stats.Total),
		Stats:      stats,
	})
}

// ownedBooking loads the :id booking and hides other users' bookings from
// non-admin callers.
func (h *BookingHandler) ownedBooking(c *gin.Context) (*models.Booking, bool) {
	booking, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return nil, false
	}
	if !middleware.IsAdmin(c) && booking.UserID != middleware.UserID(c) {
		RespondError(c, services.ErrBookingNotFound)
		return nil, false
	}
	return booking, true
}

// ToCreateBooking converts a validated request for userID.
func ToCreateBooking(request *validators.CreateBookingRequest, userID string) *services.CreateBookingRequest {
	return &services.CreateBookingRequest{
		UserID:      userID,
		Vehicles:    request.Selections(),
		FromDate:    request.FromDate,
		ToDate:      request.ToDate,
		FullPayment: request.FullPayment,
		Features:    request.Features,
		Notes:       request.Notes,
	}
}
