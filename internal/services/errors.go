package services

import (
	"errors"
	"fmt"
	"strings"

	"bikerental/internal/pricing"
)

var (
	ErrInvalidDateRange          = pricing.ErrInvalidDateRange
	ErrVehicleUnavailable        = errors.New("vehicle unavailable")
	ErrBikeNotFound              = errors.New("bike or vehicle not found")
	ErrBikeExists                = errors.New("bike already exists")
	ErrBikeInUse                 = errors.New("bike has vehicles in use")
	ErrDuplicateVehicle          = errors.New("vehicle selected more than once")
	ErrHoldFailed                = errors.New("failed to hold vehicles")
	ErrHoldExpired               = errors.New("vehicle hold expired")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrPaymentCaptureFailed      = errors.New("payment capture failed")
	ErrPaymentInProgress         = errors.New("payment already in progress")
	ErrBookingNotFound           = errors.New("booking not found")
	ErrPaymentNotFound           = errors.New("payment not found")
	ErrBookingNotCancellable     = errors.New("booking cannot be cancelled")
	ErrBookingNotCompletable     = errors.New("booking cannot be completed")
	ErrVehicleExists             = errors.New("vehicle already exists")
	ErrVehicleNotRemovable       = errors.New("vehicle cannot be removed")
	ErrInvalidVehicleStatus      = errors.New("invalid vehicle status")
	ErrInvalidAmount             = errors.New("invalid amount")
	ErrNoVehicles                = errors.New("no vehicles selected")
)

// FailedVehicle names a vehicle a hold operation could not change.
type FailedVehicle struct {
	BikeID        string `json:"bikeId"`
	VehicleNumber string `json:"vehicleNumber"`
	Reason        string `json:"reason"`
}

type HoldFailedError struct {
	FailedVehicles []FailedVehicle
}

func (e *HoldFailedError) Error() string {
	parts := make([]string, 0, len(e.FailedVehicles))
	for _, f := range e.FailedVehicles {
		parts = append(parts, fmt.Sprintf("%s/%s: %s", f.BikeID, f.VehicleNumber, f.Reason))
	}
	return fmt.Sprintf("%s: %s", ErrHoldFailed, strings.Join(parts, ", "))
}

func (e *HoldFailedError) Unwrap() error {
	return ErrHoldFailed
}

// GatewayError is a failed call to the payment gateway.
type GatewayError struct {
	Operation string
	Err       error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed: %v", e.Operation, e.Err)
}

func (e *GatewayError) Unwrap() []error {
	return []error{ErrPaymentCaptureFailed, e.Err}
}
