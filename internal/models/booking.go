package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingStatus string
type BookedBy string

const (
	BookingStatusInitiated BookingStatus = "INITIATED"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusActive    BookingStatus = "ACTIVE"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"

	BookedByUser  BookedBy = "USER"
	BookedByAdmin BookedBy = "ADMIN"
)

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusInitiated, BookingStatusConfirmed, BookingStatusActive,
		BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// IsClosed reports whether the booking can no longer change state.
func (s BookingStatus) IsClosed() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// IsPaid reports whether the upfront payment for the booking has been settled.
func (s BookingStatus) IsPaid() bool {
	return s == BookingStatusConfirmed || s == BookingStatusActive || s == BookingStatusCompleted
}

type Booking struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	BookingID          string             `json:"bookingId" bson:"bookingId"`
	UserID             string             `json:"userId" bson:"userId"`
	Vehicles           []BookingVehicle   `json:"vehicles" bson:"vehicles"`
	FromDate           time.Time          `json:"fromDate" bson:"fromDate"`
	ToDate             time.Time          `json:"toDate" bson:"toDate"`
	TotalDays          int                `json:"totalDays" bson:"totalDays"`
	Pricing            PricingBreakdown   `json:"pricing" bson:"pricing"`
	BookingStatus      BookingStatus      `json:"bookingStatus" bson:"bookingStatus"`
	BookBy             BookedBy           `json:"bookBy" bson:"bookBy"`
	Features           []string           `json:"features,omitempty" bson:"features,omitempty"`
	Metadata           BookingMetadata    `json:"metadata" bson:"metadata"`
	HoldExpiresAt      *time.Time         `json:"holdExpiresAt,omitempty" bson:"holdExpiresAt,omitempty"`
	CancellationReason string             `json:"cancellationReason,omitempty" bson:"cancellationReason,omitempty"`
	CancelledAt        *time.Time         `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`
	ConfirmedAt        *time.Time         `json:"confirmedAt,omitempty" bson:"confirmedAt,omitempty"`
	ActivatedAt        *time.Time         `json:"activatedAt,omitempty" bson:"activatedAt,omitempty"`
	CompletedAt        *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CreatedAt          time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// BookingVehicle is a copy of catalog data taken when the booking is made.
type BookingVehicle struct {
	BikeID            string  `json:"bikeId" bson:"bikeId"`
	VehicleNumber     string  `json:"vehicleNumber" bson:"vehicleNumber"`
	Brand             string  `json:"brand" bson:"brand"`
	ModelName         string  `json:"modelName" bson:"modelName"`
	Category          string  `json:"category" bson:"category"`
	BasePrice         float64 `json:"basePrice" bson:"basePrice"`
	WeekendMultiplier float64 `json:"weekendMultiplier" bson:"weekendMultiplier"`
	Currency          string  `json:"currency" bson:"currency"`
}

type BookingMetadata struct {
	TotalVehicles   int    `json:"totalVehicles" bson:"totalVehicles"`
	DifferentModels int    `json:"differentModels" bson:"differentModels"`
	IsMultiModel    bool   `json:"isMultiModel" bson:"isMultiModel"`
	CustomerNotes   string `json:"customerNotes,omitempty" bson:"customerNotes,omitempty"`
}

func (b *Booking) Selections() []VehicleSelection {
	selections := make([]VehicleSelection, 0, len(b.Vehicles))
	for _, v := range b.Vehicles {
		selections = append(selections, VehicleSelection{BikeID: v.BikeID, VehicleNumber: v.VehicleNumber})
	}
	return selections
}

// NewBookingVehicle snapshots the catalog entry behind a quote.
func NewBookingVehicle(q VehicleQuote) BookingVehicle {
	return BookingVehicle{
		BikeID:            q.BikeID,
		VehicleNumber:     q.Vehicle.VehicleNumber,
		Brand:             q.ModelInfo.Brand,
		ModelName:         q.ModelInfo.Model,
		Category:          q.ModelInfo.Category,
		BasePrice:         q.Pricing.BasePrice,
		WeekendMultiplier: q.Pricing.WeekendMultiplier,
		Currency:          q.Pricing.Currency,
	}
}

// NewBookingMetadata summarises the vehicle mix of a booking.
func NewBookingMetadata(vehicles []BookingVehicle, notes string) BookingMetadata {
	models := make(map[string]struct{}, len(vehicles))
	for _, v := range vehicles {
		models[v.BikeID] = struct{}{}
	}
	return BookingMetadata{
		TotalVehicles:   len(vehicles),
		DifferentModels: len(models),
		IsMultiModel:    len(models) > 1,
		CustomerNotes:   notes,
	}
}

// BookingStats aggregates a filtered booking listing.
type BookingStats struct {
	Total       int64   `json:"total" bson:"total"`
	Confirmed   int64   `json:"confirmed" bson:"confirmed"`
	Completed   int64   `json:"completed" bson:"completed"`
	TotalAmount float64 `json:"totalAmount" bson:"totalAmount"`
}
