package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "AVAILABLE"
	VehicleStatusHolding     VehicleStatus = "HOLDING"
	VehicleStatusRented      VehicleStatus = "RENTED"
	VehicleStatusMaintenance VehicleStatus = "MAINTENANCE"
	VehicleStatusInactive    VehicleStatus = "INACTIVE"
)

var AllVehicleStatuses = []VehicleStatus{
	VehicleStatusAvailable,
	VehicleStatusHolding,
	VehicleStatusRented,
	VehicleStatusMaintenance,
	VehicleStatusInactive,
}

func (s VehicleStatus) IsValid() bool {
	for _, status := range AllVehicleStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsAdministrative reports whether an admin may set the status directly.
// HOLDING and RENTED are only reachable through the booking flow.
func (s VehicleStatus) IsAdministrative() bool {
	return s == VehicleStatusAvailable || s == VehicleStatusMaintenance || s == VehicleStatusInactive
}

// IsEngaged reports whether the vehicle is claimed by a customer.
func (s VehicleStatus) IsEngaged() bool {
	return s == VehicleStatusHolding || s == VehicleStatusRented
}

type Bike struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	BikeID    string             `json:"bikeId" bson:"bikeId"`
	ModelInfo ModelInfo          `json:"modelInfo" bson:"modelInfo"`
	Pricing   BikePricing        `json:"pricing" bson:"pricing"`
	Features  []string           `json:"features,omitempty" bson:"features,omitempty"`
	IsActive  bool               `json:"isActive" bson:"isActive"`
	Vehicles  []Vehicle          `json:"vehicles" bson:"vehicles"`
	Counters  VehicleCounters    `json:"counters" bson:"counters"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type ModelInfo struct {
	Brand        string `json:"brand" bson:"brand"`
	Model        string `json:"model" bson:"model"`
	Category     string `json:"category" bson:"category"`
	Type         string `json:"type" bson:"type"`
	Transmission string `json:"transmission" bson:"transmission"`
	Year         int    `json:"year,omitempty" bson:"year,omitempty"`
}

type BikePricing struct {
	BasePrice         float64 `json:"basePrice" bson:"basePrice"`
	WeekendMultiplier float64 `json:"weekendMultiplier" bson:"weekendMultiplier"`
	Currency          string  `json:"currency" bson:"currency"`
}

func (p BikePricing) WeekendPrice() float64 {
	return p.BasePrice * p.WeekendMultiplier
}

type Vehicle struct {
	VehicleNumber string          `json:"vehicleNumber" bson:"vehicleNumber"`
	Status        VehicleStatus   `json:"status" bson:"status"`
	Condition     string          `json:"condition,omitempty" bson:"condition,omitempty"`
	Location      string          `json:"location,omitempty" bson:"location,omitempty"`
	Metadata      VehicleMetadata `json:"metadata" bson:"metadata"`
}

type VehicleMetadata struct {
	HoldExpiryTime  *time.Time `json:"holdExpiryTime" bson:"holdExpiryTime"`
	HeldBy          string     `json:"holdedBy,omitempty" bson:"holdedBy"`
	BookingID       string     `json:"bookingId,omitempty" bson:"bookingId,omitempty"`
	LastServiceDate *time.Time `json:"lastServiceDate,omitempty" bson:"lastServiceDate,omitempty"`
	TotalKms        float64    `json:"totalKms" bson:"totalKms"`
	LastUpdated     time.Time  `json:"lastUpdated" bson:"lastUpdated"`
}

// VehicleCounters is derived from the vehicle list and is never set on its own.
type VehicleCounters struct {
	Total       int `json:"total" bson:"total"`
	Available   int `json:"available" bson:"available"`
	Holding     int `json:"holding" bson:"holding"`
	Rented      int `json:"rented" bson:"rented"`
	Maintenance int `json:"maintenance" bson:"maintenance"`
	Inactive    int `json:"inactive" bson:"inactive"`
}

func ComputeCounters(vehicles []Vehicle) VehicleCounters {
	counters := VehicleCounters{Total: len(vehicles)}
	for _, v := range vehicles {
		switch v.Status {
		case VehicleStatusAvailable:
			counters.Available++
		case VehicleStatusHolding:
			counters.Holding++
		case VehicleStatusRented:
			counters.Rented++
		case VehicleStatusMaintenance:
			counters.Maintenance++
		case VehicleStatusInactive:
			counters.Inactive++
		}
	}
	return counters
}

// Consistent reports whether the per-status tallies add up to the total.
func (c VehicleCounters) Consistent() bool {
	return c.Available+c.Holding+c.Rented+c.Maintenance+c.Inactive == c.Total
}

func (b *Bike) FindVehicle(vehicleNumber string) (*Vehicle, bool) {
	for i := range b.Vehicles {
		if b.Vehicles[i].VehicleNumber == vehicleNumber {
			return &b.Vehicles[i], true
		}
	}
	return nil, false
}

func (b *Bike) RecomputeCounters() {
	b.Counters = ComputeCounters(b.Vehicles)
}

// VehicleSelection identifies one physical unit by bike and vehicle number.
type VehicleSelection struct {
	BikeID        string `json:"bikeId" bson:"bikeId" validate:"required"`
	VehicleNumber string `json:"vehicleNumber" bson:"vehicleNumber" validate:"required"`
}

func (s VehicleSelection) Key() string {
	return s.BikeID + "/" + s.VehicleNumber
}

// VehicleQuote is a vehicle as seen by pricing: its bike's catalog data and
// the vehicle's current persisted state.
type VehicleQuote struct {
	BikeID    string      `json:"bikeId" bson:"bikeId"`
	IsActive  bool        `json:"isActive" bson:"isActive"`
	ModelInfo ModelInfo   `json:"modelInfo" bson:"modelInfo"`
	Pricing   BikePricing `json:"pricing" bson:"pricing"`
	Vehicle   Vehicle     `json:"vehicle" bson:"vehicle"`
}

// VehicleView flattens a vehicle with the identity of its bike.
type VehicleView struct {
	BikeID    string    `json:"bikeId" bson:"bikeId"`
	ModelInfo ModelInfo `json:"modelInfo" bson:"modelInfo"`
	Vehicle   Vehicle   `json:"vehicle" bson:"vehicle"`
}
