package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bikerental/internal/services"
	"bikerental/internal/utils"
	"bikerental/internal/validators"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Contention failures answer 409 and payment failures 402 so clients can
// tell "pick other vehicles" from "retry payment".
var errorMappings = []errorMapping{
	{services.ErrInvalidDateRange, http.StatusBadRequest, "INVALID_DATE_RANGE", "Return date must be after pickup date"},
	{services.ErrDuplicateVehicle, http.StatusBadRequest, "DUPLICATE_VEHICLE", "Vehicle selected more than once"},
	{services.ErrNoVehicles, http.StatusBadRequest, "NO_VEHICLES", "At least one vehicle is required"},
	{services.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT", "Amount must not be negative"},
	{services.ErrInvalidVehicleStatus, http.StatusBadRequest, "INVALID_VEHICLE_STATUS", "Invalid vehicle status"},
	{services.ErrBikeNotFound, http.StatusNotFound, "BIKE_NOT_FOUND", "Bike or vehicle not found"},
	{services.ErrBookingNotFound, http.StatusNotFound, "BOOKING_NOT_FOUND", "Booking not found"},
	{services.ErrPaymentNotFound, http.StatusNotFound, "PAYMENT_NOT_FOUND", "Payment not found"},
	{services.ErrHoldFailed, http.StatusConflict, "HOLD_FAILED", "Some vehicles could not be held"},
	{services.ErrVehicleUnavailable, http.StatusConflict, "VEHICLE_UNAVAILABLE", "Vehicle is not available"},
	{services.ErrHoldExpired, http.StatusConflict, "HOLD_EXPIRED", "Vehicle hold expired, please book again"},
	{services.ErrBookingNotCancellable, http.StatusConflict, "BOOKING_NOT_CANCELLABLE", "Booking cannot be cancelled"},
	{services.ErrBookingNotCompletable, http.StatusConflict, "BOOKING_NOT_COMPLETABLE", "Booking cannot be completed"},
	{services.ErrPaymentInProgress, http.StatusConflict, "PAYMENT_IN_PROGRESS", "Payment for this booking is already being processed"},
	{services.ErrBikeExists, http.StatusConflict, "BIKE_EXISTS", "Bike already exists"},
	{services.ErrBikeInUse, http.StatusConflict, "BIKE_IN_USE", "Bike has vehicles on hold or rented"},
	{services.ErrVehicleExists, http.StatusConflict, "VEHICLE_EXISTS", "Vehicle already exists"},
	{services.ErrVehicleNotRemovable, http.StatusConflict, "VEHICLE_NOT_REMOVABLE", "Vehicle is in use and cannot be removed"},
	{services.ErrPaymentVerificationFailed, http.StatusPaymentRequired, "PAYMENT_VERIFICATION_FAILED", "Payment verification failed"},
	{services.ErrPaymentCaptureFailed, http.StatusPaymentRequired, "PAYMENT_CAPTURE_FAILED", "Payment could not be captured"},
}

// RespondError writes the envelope for err. Unknown errors are attached to
// the gin context and reported as a generic 500.
func RespondError(c *gin.Context, err error) {
	var validationErrs validators.ValidationErrors
	if errors.As(err, &validationErrs) {
		utils.ValidationErrorResponse(c, validationErrs.Map())
		return
	}

	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		var holdErr *services.HoldFailedError
		if errors.As(err, &holdErr) {
			utils.ErrorResponseWithDetails(c, m.status, m.code, m.message, holdFailureDetails(holdErr))
			return
		}
		utils.ErrorResponse(c, m.status, m.code, m.message)
		return
	}

	_ = c.Error(err)
	utils.InternalServerErrorResponse(c)
}

func holdFailureDetails(err *services.HoldFailedError) map[string]string {
	details := make(map[string]string, len(err.FailedVehicles))
	for _, f := range err.FailedVehicles {
		details[f.BikeID+"/"+f.VehicleNumber] = f.Reason
	}
	return details
}

// BindJSON decodes the body and reports malformed JSON as a 400.
func BindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return false
	}
	return true
}
