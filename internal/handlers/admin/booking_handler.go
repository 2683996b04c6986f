package admin

import (
	"time"

	"github.com/gin-gonic/gin"

	handlers "bikerental/internal/handlers/shared"
	"bikerental/internal/models"
	"bikerental/internal/repositories/interfaces"
	"bikerental/internal/services"
	"bikerental/internal/utils"
	"bikerental/internal/validators"
)

type BookingHandler struct {
	bookingService   services.BookingService
	schedulerService services.SchedulerService
	location         *time.Location
}

// NewBookingHandler reads plain query dates in loc.
func NewBookingHandler(bookingService services.BookingService, schedulerService services.SchedulerService, loc *time.Location) *BookingHandler {
	return &BookingHandler{
		bookingService:   bookingService,
		schedulerService: schedulerService,
		location:         loc,
	}
}

// ListBookings returns every booking matching the query with aggregate stats
func (h *BookingHandler) ListBookings(c *gin.Context) {
	var query validators.BookingListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BadRequestResponse(c, "Invalid query: "+err.Error())
		return
	}
	if errs := validators.ValidateBookingListQuery(&query, h.location); len(errs) > 0 {
		handlers.RespondError(c, errs)
		return
	}

	params := utils.GetPaginationParams(c)
	filter := interfaces.BookingFilter{
		UserID:        query.UserID,
		Status:        models.BookingStatus(query.Status),
		BikeID:        query.BikeID,
		VehicleNumber: query.VehicleNumber,
		From:          query.From,
		To:            query.To,
	}

	bookings, stats, err := h.bookingService.ListBookings(c.Request.Context(), filter, params)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Bookings retrieved successfully", bookings, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, stats.Total),
		Stats:      stats,
	})
}

// CreateBooking books vehicles on behalf of a walk-in customer
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var request validators.CreateBookingRequest
	if !handlers.BindJSON(c, &request) {
		return
	}
	errs := validators.ValidateCreateBooking(&request)
	if request.UserID == "" {
		errs = append(errs, validators.ValidationError{Field: "userId", Tag: "required", Message: "userId is required"})
	}
	if len(errs) > 0 {
		handlers.RespondError(c, errs)
		return
	}

	booking, err := h.bookingService.CreateAdminBooking(c.Request.Context(), handlers.ToCreateBooking(&request, request.UserID))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Booking created successfully", booking)
}

func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	var request validators.UpdateBookingRequest
	if !handlers.BindJSON(c, &request) {
		return
	}
	if errs := validators.ValidateUpdateBooking(&request); len(errs) > 0 {
		handlers.RespondError(c, errs)
		return
	}

	booking, err := h.bookingService.UpdateBooking(c.Request.Context(), c.Param("id"), &services.BookingUpdate{
		Notes:    request.Notes,
		Features: request.Features,
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking updated successfully", booking)
}

// CalculateLateCharge recomputes the late charge as of the given time, or now
func (h *BookingHandler) CalculateLateCharge(c *gin.Context) {
	var request validators.LateChargeRequest
	if c.Request.ContentLength > 0 && !handlers.BindJSON(c, &request) {
		return
	}

	at := time.Now()
	if request.At != nil {
		at = *request.At
	}

	charge, err := h.schedulerService.CalculateLateCharge(c.Request.Context(), c.Param("id"), at)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Late charge calculated successfully", charge)
}

// SettleBooking records the amount collected at return and completes the booking
func (h *BookingHandler) SettleBooking(c *gin.Context) {
	var request validators.SettleBookingRequest
	if !handlers.BindJSON(c, &request) {
		return
	}
	if errs := validators.ValidateStruct(&request); len(errs) > 0 {
		handlers.RespondError(c, errs)
		return
	}

	booking, err := h.schedulerService.CompleteBookingWithPayment(c.Request.Context(), c.Param("id"), request.PaidAmount)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking settled successfully", booking)
}

func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	booking, err := h.bookingService.MarkBookingCompleted(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking completed successfully", booking)
}

// RunScheduler triggers one sweep outside the regular interval
func (h *BookingHandler) RunScheduler(c *gin.Context) {
	result, err := h.schedulerService.RunSweep(c.Request.Context())
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Scheduler run completed", result)
}
