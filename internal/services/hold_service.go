package services

import (
	"context"
	"fmt"
	"time"

	"bikerental/internal/models"
	"bikerental/internal/repositories/interfaces"
	"bikerental/internal/utils"
	"bikerental/pkg/logger"
	"bikerental/pkg/metrics"
)

// HoldService places and releases exclusive claims on vehicles. Every change
// is a conditioned update in the store; the modified flag it returns is the
// only success signal.
//
// A claim belongs to a user and to the booking that took it. Releasing or
// confirming a claim with a bookingID only touches vehicles claimed for that
// booking, so a lapsed booking can never act on a newer booking's claim.
type HoldService interface {
	HoldVehicles(ctx context.Context, selections []models.VehicleSelection, holdDuration time.Duration, userID, bookingID string) (*HoldResult, error)
	ReleaseVehicles(ctx context.Context, selections []models.VehicleSelection, userID, bookingID string, from models.VehicleStatus) (*HoldResult, error)
	ConfirmVehicles(ctx context.Context, selections []models.VehicleSelection, userID, bookingID string) (*HoldResult, error)
	RentVehicles(ctx context.Context, selections []models.VehicleSelection, userID, bookingID string) (*HoldResult, error)
	ReleaseExpiredHolds(ctx context.Context) (int, error)
}

// HoldResult lists the vehicles an operation changed and those it could not.
type HoldResult struct {
	Succeeded []models.VehicleSelection `json:"succeeded"`
	Failed    []FailedVehicle           `json:"failedVehicles"`
	// ExpiresAt is the hold expiry written by HoldVehicles.
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

func (r *HoldResult) OK() bool {
	return len(r.Failed) == 0
}

type holdService struct {
	bikeRepo interfaces.BikeRepository
	clock    utils.TimeProvider
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewHoldService(
	bikeRepo interfaces.BikeRepository,
	clock utils.TimeProvider,
	log *logger.Logger,
	m *metrics.Metrics,
) HoldService {
	return &holdService{
		bikeRepo: bikeRepo,
		clock:    clock,
		logger:   log,
		metrics:  m,
	}
}

func (s *holdService) HoldVehicles(ctx context.Context, selections []models.VehicleSelection, holdDuration time.Duration, userID, bookingID string) (*HoldResult, error) {
	now := s.clock.Now()
	expiry := now.Add(holdDuration)

	result, err := s.transitionAll(ctx, selections, "hold", func(sel models.VehicleSelection) interfaces.VehicleTransition {
		return interfaces.VehicleTransition{
			Selection:  sel,
			From:       []models.VehicleStatus{models.VehicleStatusAvailable},
			To:            models.VehicleStatusHolding,
			Holder:        userID,
			HolderBooking: bookingID,
			HoldExpiry:    &expiry,
			At:            now,
		}
	})
	if err != nil {
		return nil, err
	}
	result.ExpiresAt = expiry

	for _, sel := range result.Succeeded {
		s.logger.LogHoldEvent(sel.BikeID, sel.VehicleNumber, "held", userID)
		s.metrics.ObserveHold("held")
	}
	for range result.Failed {
		s.metrics.ObserveHold("conflict")
	}

	return result, nil
}

// ReleaseVehicles returns vehicles in status from that are claimed by userID
// for bookingID to AVAILABLE and clears their hold metadata.
func (s *holdService) ReleaseVehicles(ctx context.Context, selections []models.VehicleSelection, userID, bookingID string, from models.VehicleStatus) (*HoldResult, error) {
	now := s.clock.Now()

	result, err := s.transitionAll(ctx, selections, "release", func(sel models.VehicleSelection) interfaces.VehicleTransition {
		return interfaces.VehicleTransition{
			Selection:      sel,
			From:           []models.VehicleStatus{from},
			HeldBy:         userID,
			HeldForBooking: bookingID,
			To:             models.VehicleStatusAvailable,
			At:             now,
		}
	})
	if err != nil {
		return nil, err
	}

	for _, sel := range result.Succeeded {
		s.logger.LogHoldEvent(sel.BikeID, sel.VehicleNumber, "released", userID)
		s.metrics.ObserveHold("released")
	}

	return result, nil
}

// ConfirmVehicles moves held vehicles to RENTED, keeping the holder.
func (s *holdService) ConfirmVehicles(ctx context.Context, selections []models.VehicleSelection, userID, bookingID string) (*HoldResult, error) {
	now := s.clock.Now()

	return s.transitionAll(ctx, selections, "confirm", func(sel models.VehicleSelection) interfaces.VehicleTransition {
		return interfaces.VehicleTransition{
			Selection:      sel,
			From:           []models.VehicleStatus{models.VehicleStatusHolding},
			HeldBy:         userID,
			HeldForBooking: bookingID,
			To:             models.VehicleStatusRented,
			Holder:         userID,
			HolderBooking:  bookingID,
			At:             now,
		}
	})
}

// RentVehicles occupies available vehicles for an activated booking.
func (s *holdService) RentVehicles(ctx context.Context, selections []models.VehicleSelection, userID, bookingID string) (*HoldResult, error) {
	now := s.clock.Now()

	return s.transitionAll(ctx, selections, "rent", func(sel models.VehicleSelection) interfaces.VehicleTransition {
		return interfaces.VehicleTransition{
			Selection:     sel,
			From:          []models.VehicleStatus{models.VehicleStatusAvailable},
			To:            models.VehicleStatusRented,
			Holder:        userID,
			HolderBooking: bookingID,
			At:            now,
		}
	})
}

// ReleaseExpiredHolds frees every HOLDING vehicle whose hold has lapsed,
// regardless of holder.
func (s *holdService) ReleaseExpiredHolds(ctx context.Context) (int, error) {
	now := s.clock.Now()

	expired, err := s.bikeRepo.FindExpiredHolds(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired holds: %w", err)
	}

	released := 0
	for _, sel := range expired {
		ok, err := s.bikeRepo.TransitionVehicle(ctx, interfaces.VehicleTransition{
			Selection:     sel,
			From:          []models.VehicleStatus{models.VehicleStatusHolding},
			ExpiredBefore: &now,
			To:            models.VehicleStatusAvailable,
			At:            now,
		})
		if err != nil {
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"bike_id":        sel.BikeID,
				"vehicle_number": sel.VehicleNumber,
			}).Error("Failed to release expired hold")
			continue
		}
		if ok {
			released++
			s.logger.LogHoldEvent(sel.BikeID, sel.VehicleNumber, "expired", "")
			s.metrics.ObserveHold("expired")
		}
	}

	return released, nil
}

// transitionAll applies one conditioned transition per selection. A store
// error aborts the loop; a transition that matched nothing is reported as a
// failed vehicle.
func (s *holdService) transitionAll(
	ctx context.Context,
	selections []models.VehicleSelection,
	operation string,
	build func(models.VehicleSelection) interfaces.VehicleTransition,
) (*HoldResult, error) {
	result := &HoldResult{}

	for _, sel := range selections {
		ok, err := s.bikeRepo.TransitionVehicle(ctx, build(sel))
		if err != nil {
			return result, fmt.Errorf("failed to %s vehicle %s: %w", operation, sel.Key(), err)
		}
		if ok {
			result.Succeeded = append(result.Succeeded, sel)
			continue
		}
		result.Failed = append(result.Failed, FailedVehicle{
			BikeID:        sel.BikeID,
			VehicleNumber: sel.VehicleNumber,
		})
	}

	if len(result.Failed) > 0 {
		s.describeFailures(ctx, result.Failed)
	}

	return result, nil
}

// describeFailures fills in reasons from the current persisted state. The
// read is diagnostic only and never decides an outcome.
func (s *holdService) describeFailures(ctx context.Context, failed []FailedVehicle) {
	selections := make([]models.VehicleSelection, 0, len(failed))
	for _, f := range failed {
		selections = append(selections, models.VehicleSelection{BikeID: f.BikeID, VehicleNumber: f.VehicleNumber})
	}

	current := make(map[string]models.Vehicle)
	if quotes, err := s.bikeRepo.FindVehicles(ctx, selections); err == nil {
		for _, q := range quotes {
			current[models.VehicleSelection{BikeID: q.BikeID, VehicleNumber: q.Vehicle.VehicleNumber}.Key()] = q.Vehicle
		}
	}

	for i := range failed {
		key := selections[i].Key()
		if vehicle, ok := current[key]; ok {
			failed[i].Reason = fmt.Sprintf("vehicle is %s", vehicle.Status)
		} else {
			failed[i].Reason = "vehicle not found"
		}
	}
}
