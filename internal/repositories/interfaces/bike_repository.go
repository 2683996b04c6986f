package interfaces

import (
	"context"
	"time"

	"bikerental/internal/models"
	"bikerental/internal/utils"
)

// VehicleTransition describes one conditioned status change of a vehicle.
// The change is applied only if, at write time, the vehicle's status is one
// of From and the optional holder and expiry predicates hold.
type VehicleTransition struct {
	Selection models.VehicleSelection
	From      []models.VehicleStatus
	// HeldBy, when set, requires metadata.holdedBy to equal it.
	HeldBy string
	// HeldForBooking, when set, requires metadata.bookingId to equal it.
	HeldForBooking string
	// ExpiredBefore, when set, requires metadata.holdExpiryTime < ExpiredBefore.
	ExpiredBefore *time.Time

	To models.VehicleStatus
	// Holder is written to metadata.holdedBy; empty clears it.
	Holder string
	// HolderBooking is written to metadata.bookingId; empty clears it.
	HolderBooking string
	// HoldExpiry is written to metadata.holdExpiryTime; nil clears it.
	HoldExpiry *time.Time
	At         time.Time
}

type BikeFilter struct {
	Category     string
	Brand        string
	Model        string
	Type         string
	Transmission string
	IsActive     *bool
	// MinPrice and MaxPrice bound the day rate currently charged: the base
	// price, scaled by the weekend multiplier when Weekend is set.
	MinPrice *float64
	MaxPrice *float64
	Weekend  bool
}

// BikeUpdate holds the catalog fields an admin may change. Nil fields are
// left as stored; vehicles and counters are never touched.
type BikeUpdate struct {
	ModelInfo *models.ModelInfo
	Pricing   *models.BikePricing
	Features  []string
	IsActive  *bool
}

type BikeRepository interface {
	// Catalog
	Create(ctx context.Context, bike *models.Bike) error
	GetByBikeID(ctx context.Context, bikeID string) (*models.Bike, error)
	List(ctx context.Context, filter BikeFilter, params *utils.PaginationParams) ([]*models.Bike, int64, error)
	Update(ctx context.Context, bikeID string, update BikeUpdate, at time.Time) (bool, error)
	// Delete removes the bike unless any of its vehicles is in one of blocking.
	Delete(ctx context.Context, bikeID string, blocking []models.VehicleStatus) (bool, error)

	// Vehicle reads. FindVehicles reads persisted state and never a cache.
	FindVehicles(ctx context.Context, selections []models.VehicleSelection) ([]models.VehicleQuote, error)
	FindExpiredHolds(ctx context.Context, now time.Time) ([]models.VehicleSelection, error)
	GetVehiclesByStatus(ctx context.Context, status models.VehicleStatus) ([]models.VehicleView, error)

	// Conditioned writes. Each reports whether a document was modified and
	// recomputes the bike's counters in the same update.
	TransitionVehicle(ctx context.Context, t VehicleTransition) (bool, error)
	AddVehicle(ctx context.Context, bikeID string, vehicle models.Vehicle, at time.Time) (bool, error)
	RemoveVehicle(ctx context.Context, bikeID, vehicleNumber string, removable []models.VehicleStatus, at time.Time) (bool, error)
}
