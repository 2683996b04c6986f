package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bikerental/internal/models"
	"bikerental/internal/pricing"
	"bikerental/internal/repositories/interfaces"
	"bikerental/internal/utils"
	"bikerental/pkg/logger"
)

type InventoryService interface {
	CreateBike(ctx context.Context, bike *models.Bike) (*models.Bike, error)
	GetBike(ctx context.Context, bikeID string) (*models.Bike, error)
	ListBikes(ctx context.Context, filter interfaces.BikeFilter, params *utils.PaginationParams) ([]*models.Bike, int64, error)
	UpdateBike(ctx context.Context, bikeID string, update interfaces.BikeUpdate) (*models.Bike, error)
	DeleteBike(ctx context.Context, bikeID string) error

	AddVehicle(ctx context.Context, bikeID string, vehicle models.Vehicle) (*models.Bike, error)
	UpdateVehicleStatus(ctx context.Context, bikeID, vehicleNumber string, status models.VehicleStatus) (*models.Bike, error)
	RemoveVehicle(ctx context.Context, bikeID, vehicleNumber string) error
	GetVehiclesByStatus(ctx context.Context, status models.VehicleStatus) ([]models.VehicleView, error)
}

var administrativeStatuses = []models.VehicleStatus{
	models.VehicleStatusAvailable,
	models.VehicleStatusMaintenance,
	models.VehicleStatusInactive,
}

type inventoryService struct {
	bikeRepo interfaces.BikeRepository
	clock    utils.TimeProvider
	location *time.Location
	logger   *logger.Logger
}

// NewInventoryService builds the catalog service. loc decides which calendar
// day, and so which day rate, price filters apply to.
func NewInventoryService(bikeRepo interfaces.BikeRepository, clock utils.TimeProvider, loc *time.Location, log *logger.Logger) InventoryService {
	return &inventoryService{
		bikeRepo: bikeRepo,
		clock:    clock,
		location: loc,
		logger:   log,
	}
}

func (s *inventoryService) CreateBike(ctx context.Context, bike *models.Bike) (*models.Bike, error) {
	now := s.clock.Now()

	if bike.BikeID == "" {
		bike.BikeID = utils.GenerateID(utils.BikeIDPrefix)
	}
	if bike.Pricing.WeekendMultiplier == 0 {
		bike.Pricing.WeekendMultiplier = 1
	}
	if bike.Pricing.Currency == "" {
		bike.Pricing.Currency = utils.DefaultCurrency
	}

	seen := make(map[string]struct{}, len(bike.Vehicles))
	for i := range bike.Vehicles {
		v := &bike.Vehicles[i]
		if _, ok := seen[v.VehicleNumber]; ok {
			return nil, fmt.Errorf("%s: %w", v.VehicleNumber, ErrVehicleExists)
		}
		seen[v.VehicleNumber] = struct{}{}

		if err := prepareVehicle(v); err != nil {
			return nil, err
		}
		v.Metadata.LastUpdated = now
	}

	bike.RecomputeCounters()
	bike.CreatedAt = now
	bike.UpdatedAt = now

	if err := s.bikeRepo.Create(ctx, bike); err != nil {
		if errors.Is(err, interfaces.ErrDuplicate) {
			return nil, ErrBikeExists
		}
		return nil, fmt.Errorf("failed to create bike: %w", err)
	}

	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"bike_id":  bike.BikeID,
		"vehicles": len(bike.Vehicles),
	}).Info("Bike created")

	return bike, nil
}

func (s *inventoryService) GetBike(ctx context.Context, bikeID string) (*models.Bike, error) {
	bike, err := s.bikeRepo.GetByBikeID(ctx, bikeID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrBikeNotFound
		}
		return nil, fmt.Errorf("failed to get bike: %w", err)
	}
	return bike, nil
}

func (s *inventoryService) ListBikes(ctx context.Context, filter interfaces.BikeFilter, params *utils.PaginationParams) ([]*models.Bike, int64, error) {
	params.Normalize()
	params.RestrictSort("createdAt", "createdAt", "pricing.basePrice", "modelInfo.brand")

	if filter.MinPrice != nil || filter.MaxPrice != nil {
		filter.Weekend = pricing.IsWeekend(s.clock.Now().In(s.location))
	}

	bikes, total, err := s.bikeRepo.List(ctx, filter, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bikes: %w", err)
	}
	return bikes, total, nil
}

// UpdateBike changes catalog data. Bookings keep the prices they were made
// with, so re-pricing only affects new quotes.
func (s *inventoryService) UpdateBike(ctx context.Context, bikeID string, update interfaces.BikeUpdate) (*models.Bike, error) {
	if update.Pricing != nil {
		if update.Pricing.BasePrice <= 0 {
			return nil, ErrInvalidAmount
		}
		if update.Pricing.WeekendMultiplier == 0 {
			update.Pricing.WeekendMultiplier = 1
		}
		if update.Pricing.Currency == "" {
			update.Pricing.Currency = utils.DefaultCurrency
		}
	}

	ok, err := s.bikeRepo.Update(ctx, bikeID, update, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to update bike: %w", err)
	}
	if !ok {
		return nil, ErrBikeNotFound
	}

	s.logger.WithContext(ctx).WithField("bike_id", bikeID).Info("Bike updated")

	return s.GetBike(ctx, bikeID)
}

// DeleteBike removes a bike with its fleet. It refuses while any vehicle is
// held or rented.
func (s *inventoryService) DeleteBike(ctx context.Context, bikeID string) error {
	ok, err := s.bikeRepo.Delete(ctx, bikeID, []models.VehicleStatus{models.VehicleStatusHolding, models.VehicleStatusRented})
	if err != nil {
		return fmt.Errorf("failed to delete bike: %w", err)
	}
	if !ok {
		if _, err := s.GetBike(ctx, bikeID); err != nil {
			return err
		}
		return ErrBikeInUse
	}

	s.logger.WithContext(ctx).WithField("bike_id", bikeID).Info("Bike deleted")

	return nil
}

// AddVehicle appends a vehicle to a bike. The write is conditioned on the
// number being unused.
func (s *inventoryService) AddVehicle(ctx context.Context, bikeID string, vehicle models.Vehicle) (*models.Bike, error) {
	if err := prepareVehicle(&vehicle); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	vehicle.Metadata.LastUpdated = now

	ok, err := s.bikeRepo.AddVehicle(ctx, bikeID, vehicle, now)
	if err != nil {
		return nil, fmt.Errorf("failed to add vehicle: %w", err)
	}
	if !ok {
		if _, err := s.GetBike(ctx, bikeID); err != nil {
			return nil, err
		}
		return nil, ErrVehicleExists
	}

	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"bike_id":        bikeID,
		"vehicle_number": vehicle.VehicleNumber,
	}).Info("Vehicle added")

	return s.GetBike(ctx, bikeID)
}

// UpdateVehicleStatus applies an administrative status. Vehicles claimed by
// a booking are left alone.
func (s *inventoryService) UpdateVehicleStatus(ctx context.Context, bikeID, vehicleNumber string, status models.VehicleStatus) (*models.Bike, error) {
	if !status.IsAdministrative() {
		return nil, ErrInvalidVehicleStatus
	}

	ok, err := s.bikeRepo.TransitionVehicle(ctx, interfaces.VehicleTransition{
		Selection: models.VehicleSelection{BikeID: bikeID, VehicleNumber: vehicleNumber},
		From:      administrativeStatuses,
		To:        status,
		At:        s.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update vehicle status: %w", err)
	}
	if !ok {
		return nil, s.explainVehicleConflict(ctx, bikeID, vehicleNumber, ErrVehicleUnavailable)
	}

	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"bike_id":        bikeID,
		"vehicle_number": vehicleNumber,
		"status":         string(status),
	}).Info("Vehicle status updated")

	return s.GetBike(ctx, bikeID)
}

func (s *inventoryService) RemoveVehicle(ctx context.Context, bikeID, vehicleNumber string) error {
	ok, err := s.bikeRepo.RemoveVehicle(ctx, bikeID, vehicleNumber, administrativeStatuses, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to remove vehicle: %w", err)
	}
	if !ok {
		return s.explainVehicleConflict(ctx, bikeID, vehicleNumber, ErrVehicleNotRemovable)
	}

	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"bike_id":        bikeID,
		"vehicle_number": vehicleNumber,
	}).Info("Vehicle removed")

	return nil
}

func (s *inventoryService) GetVehiclesByStatus(ctx context.Context, status models.VehicleStatus) ([]models.VehicleView, error) {
	if !status.IsValid() {
		return nil, ErrInvalidVehicleStatus
	}
	vehicles, err := s.bikeRepo.GetVehiclesByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicles: %w", err)
	}
	return vehicles, nil
}

// explainVehicleConflict turns an unmatched vehicle write into not-found or
// conflict.
func (s *inventoryService) explainVehicleConflict(ctx context.Context, bikeID, vehicleNumber string, conflict error) error {
	bike, err := s.GetBike(ctx, bikeID)
	if err != nil {
		return err
	}
	if _, ok := bike.FindVehicle(vehicleNumber); !ok {
		return ErrBikeNotFound
	}
	return conflict
}

func prepareVehicle(v *models.Vehicle) error {
	if v.VehicleNumber == "" {
		return fmt.Errorf("vehicle number is required: %w", ErrInvalidVehicleStatus)
	}
	if v.Status == "" {
		v.Status = models.VehicleStatusAvailable
	}
	if !v.Status.IsAdministrative() {
		return ErrInvalidVehicleStatus
	}
	v.Metadata.HeldBy = ""
	v.Metadata.BookingID = ""
	v.Metadata.HoldExpiryTime = nil
	return nil
}
