package validators

import (
	"fmt"
	"time"

	"bikerental/internal/models"
	"bikerental/internal/utils"
)

const (
	maxVehiclesPerBooking = 10
	maxRentalDays         = 90
)

type VehicleSelectionRequest struct {
	BikeID        string `json:"bikeId" validate:"required"`
	VehicleNumber string `json:"vehicleNumber" validate:"required,vehicle_number"`
}

type CreateBookingRequest struct {
	// UserID is taken from the token for customers; admins name the customer.
	UserID      string                    `json:"userId"`
	Vehicles    []VehicleSelectionRequest `json:"vehicles" validate:"required,min=1,max=10,dive"`
	FromDate    time.Time                 `json:"fromDate" validate:"required"`
	ToDate      time.Time                 `json:"toDate" validate:"required,gtfield=FromDate"`
	FullPayment bool                      `json:"fullPayment"`
	Features    []string                  `json:"features" validate:"omitempty,max=10,dive,min=1,max=50"`
	Notes       string                    `json:"notes" validate:"omitempty,max=500"`
}

type VerifyPaymentRequest struct {
	BookingID        string `json:"bookingId" validate:"required"`
	GatewayOrderID   string `json:"gatewayOrderId" validate:"required"`
	GatewayPaymentID string `json:"gatewayPaymentId" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

type UpdateBookingRequest struct {
	Notes    *string  `json:"notes" validate:"omitempty,max=500"`
	Features []string `json:"features" validate:"omitempty,max=10,dive,min=1,max=50"`
}

type LateChargeRequest struct {
	// At defaults to the current time.
	At *time.Time `json:"at"`
}

type SettleBookingRequest struct {
	PaidAmount float64 `json:"paidAmount" validate:"min=0"`
}

type BookingListQuery struct {
	Status        string `form:"status" validate:"omitempty,booking_status"`
	BikeID        string `form:"bikeId"`
	VehicleNumber string `form:"vehicleNumber"`
	UserID        string `form:"userId"`
	FromDate      string `form:"fromDate"`
	ToDate        string `form:"toDate"`

	// From and To are parsed by ValidateBookingListQuery.
	From *time.Time `form:"-"`
	To   *time.Time `form:"-"`
}

func ValidateCreateBooking(req *CreateBookingRequest) ValidationErrors {
	errors := ValidateStruct(req)

	seen := make(map[string]struct{}, len(req.Vehicles))
	for i, v := range req.Vehicles {
		key := v.BikeID + "/" + v.VehicleNumber
		if _, ok := seen[key]; ok {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("vehicles[%d]", i),
				Tag:     "unique",
				Value:   key,
				Message: "Vehicle selected more than once",
			})
		}
		seen[key] = struct{}{}
	}

	if req.ToDate.Sub(req.FromDate) > maxRentalDays*24*time.Hour {
		errors = append(errors, ValidationError{
			Field:   "toDate",
			Message: fmt.Sprintf("Rental cannot exceed %d days", maxRentalDays),
		})
	}

	req.Notes = SanitizeInput(req.Notes)

	return errors
}

func ValidateVerifyPayment(req *VerifyPaymentRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateUpdateBooking(req *UpdateBookingRequest) ValidationErrors {
	errors := ValidateStruct(req)
	if req.Notes == nil && req.Features == nil {
		errors = append(errors, ValidationError{
			Field:   "request",
			Message: "Nothing to update",
		})
	}
	if req.Notes != nil {
		notes := SanitizeInput(*req.Notes)
		req.Notes = &notes
	}
	return errors
}

// ValidateBookingListQuery checks the query and parses its date bounds,
// reading plain dates in loc.
func ValidateBookingListQuery(req *BookingListQuery, loc *time.Location) ValidationErrors {
	errors := ValidateStruct(req)

	parse := func(field, value string) *time.Time {
		if value == "" {
			return nil
		}
		t, err := utils.ParseFlexibleTime(value, loc)
		if err != nil {
			errors = append(errors, ValidationError{
				Field:   field,
				Tag:     "datetime",
				Value:   value,
				Message: "Must be an RFC3339 timestamp or a YYYY-MM-DD date",
			})
			return nil
		}
		return &t
	}
	req.From = parse("fromDate", req.FromDate)
	req.To = parse("toDate", req.ToDate)

	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		errors = append(errors, ValidationError{
			Field:   "toDate",
			Tag:     "gtefield",
			Message: "toDate must not be before fromDate",
		})
	}

	return errors
}

// Selections converts the request's vehicles into store selections.
func (r *CreateBookingRequest) Selections() []models.VehicleSelection {
	selections := make([]models.VehicleSelection, 0, len(r.Vehicles))
	for _, v := range r.Vehicles {
		selections = append(selections, models.VehicleSelection{BikeID: v.BikeID, VehicleNumber: v.VehicleNumber})
	}
	return selections
}
