package services

import (
	"context"
	"fmt"
	"time"

	"bikerental/internal/config"
	"bikerental/internal/models"
	"bikerental/internal/pricing"
	"bikerental/internal/repositories/interfaces"
	"bikerental/internal/utils"
)

type PricingService interface {
	// QuoteBooking validates a selection against the current inventory and
	// prices it. Nothing is written.
	QuoteBooking(ctx context.Context, request *QuoteRequest) (*BookingQuote, error)
	CalculateLateCharge(booking *models.Booking, now time.Time) *models.LateCharge
}

type QuoteRequest struct {
	Vehicles    []models.VehicleSelection
	FromDate    time.Time
	ToDate      time.Time
	FullPayment bool
}

type BookingQuote struct {
	Vehicles []models.BookingVehicle `json:"vehicles"`
	Pricing  models.PricingBreakdown `json:"pricing"`
}

type pricingService struct {
	bikeRepo interfaces.BikeRepository
	config   *config.BookingConfig
}

func NewPricingService(bikeRepo interfaces.BikeRepository, cfg *config.BookingConfig) PricingService {
	return &pricingService{
		bikeRepo: bikeRepo,
		config:   cfg,
	}
}

func (s *pricingService) QuoteBooking(ctx context.Context, request *QuoteRequest) (*BookingQuote, error) {
	if !request.ToDate.After(request.FromDate) {
		return nil, ErrInvalidDateRange
	}
	if len(request.Vehicles) == 0 {
		return nil, ErrNoVehicles
	}
	if err := checkDuplicates(request.Vehicles); err != nil {
		return nil, err
	}

	found, err := s.bikeRepo.FindVehicles(ctx, request.Vehicles)
	if err != nil {
		return nil, fmt.Errorf("failed to load vehicles: %w", err)
	}

	byKey := make(map[string]models.VehicleQuote, len(found))
	for _, q := range found {
		byKey[models.VehicleSelection{BikeID: q.BikeID, VehicleNumber: q.Vehicle.VehicleNumber}.Key()] = q
	}

	// Quotes follow request order so snapshots and line items do too.
	quotes := make([]models.VehicleQuote, 0, len(request.Vehicles))
	for _, sel := range request.Vehicles {
		q, ok := byKey[sel.Key()]
		if !ok {
			return nil, fmt.Errorf("%s: %w", sel.Key(), ErrBikeNotFound)
		}
		if !q.IsActive {
			return nil, fmt.Errorf("%s: bike is not active: %w", sel.Key(), ErrVehicleUnavailable)
		}
		if q.Vehicle.Status != models.VehicleStatusAvailable {
			return nil, fmt.Errorf("%s is %s: %w", sel.Key(), q.Vehicle.Status, ErrVehicleUnavailable)
		}
		quotes = append(quotes, q)
	}

	loc := s.config.Location()
	breakdown, err := pricing.Breakdown(quotes, request.FromDate.In(loc), request.ToDate.In(loc), pricing.Options{
		FullPayment:  request.FullPayment,
		AdvanceRatio: s.config.AdvanceRatio,
		Currency:     s.config.Currency,
	})
	if err != nil {
		return nil, err
	}

	vehicles := make([]models.BookingVehicle, 0, len(quotes))
	for _, q := range quotes {
		vehicles = append(vehicles, models.NewBookingVehicle(q))
	}

	return &BookingQuote{Vehicles: vehicles, Pricing: breakdown}, nil
}

func (s *pricingService) CalculateLateCharge(booking *models.Booking, now time.Time) *models.LateCharge {
	hours, items, total := pricing.LateCharges(booking.Vehicles, booking.ToDate, now)

	remaining := booking.Pricing.RemainingAmount - booking.Pricing.LateChargeAmount + total
	return &models.LateCharge{
		BookingID:       booking.BookingID,
		LateHours:       hours,
		Items:           items,
		TotalCharge:     total,
		RemainingAmount: utils.RoundCurrency(remaining),
		Currency:        booking.Pricing.Currency,
	}
}

func checkDuplicates(selections []models.VehicleSelection) error {
	seen := make(map[string]struct{}, len(selections))
	for _, sel := range selections {
		if _, ok := seen[sel.Key()]; ok {
			return fmt.Errorf("%s: %w", sel.Key(), ErrDuplicateVehicle)
		}
		seen[sel.Key()] = struct{}{}
	}
	return nil
}
