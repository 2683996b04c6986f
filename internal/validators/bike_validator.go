package validators

import (
	"fmt"

	"bikerental/internal/models"
)

type BikeCreateRequest struct {
	BikeID    string                 `json:"bikeId" validate:"omitempty,min=2,max=40"`
	ModelInfo ModelInfoRequest       `json:"modelInfo" validate:"required"`
	Pricing   BikePricingRequest     `json:"pricing" validate:"required"`
	Vehicles  []VehicleCreateRequest `json:"vehicles" validate:"omitempty,max=200,dive"`
	Features  []string               `json:"features" validate:"omitempty,max=20"`
	IsActive  *bool                  `json:"isActive"`
}

type ModelInfoRequest struct {
	Brand        string `json:"brand" validate:"required,min=2,max=50"`
	Model        string `json:"model" validate:"required,min=1,max=50"`
	Category     string `json:"category" validate:"required,min=2,max=30"`
	Type         string `json:"type" validate:"omitempty,max=30"`
	Transmission string `json:"transmission" validate:"omitempty,oneof=manual automatic"`
	Year         int    `json:"year" validate:"omitempty,min=1990,max=2100"`
}

type BikePricingRequest struct {
	BasePrice         float64 `json:"basePrice" validate:"required,gt=0"`
	WeekendMultiplier float64 `json:"weekendMultiplier" validate:"omitempty,min=1,max=5"`
	Currency          string  `json:"currency" validate:"omitempty,currency_code"`
}

type VehicleCreateRequest struct {
	VehicleNumber string `json:"vehicleNumber" validate:"required,vehicle_number"`
	Status        string `json:"status" validate:"omitempty,admin_vehicle_status"`
	Condition     string `json:"condition" validate:"omitempty,max=50"`
	Location      string `json:"location" validate:"omitempty,max=100"`
}

type VehicleStatusRequest struct {
	Status string `json:"status" validate:"required,admin_vehicle_status"`
}

// BikeUpdateRequest changes catalogue fields only. Vehicles are managed
// through their own endpoints.
type BikeUpdateRequest struct {
	ModelInfo *ModelInfoRequest   `json:"modelInfo"`
	Pricing   *BikePricingRequest `json:"pricing"`
	Features  []string            `json:"features" validate:"omitempty,max=20"`
	IsActive  *bool               `json:"isActive"`
}

type BikeListQuery struct {
	Category     string   `form:"category" validate:"omitempty,max=30"`
	Brand        string   `form:"brand" validate:"omitempty,max=50"`
	Model        string   `form:"model" validate:"omitempty,max=50"`
	Type         string   `form:"type" validate:"omitempty,max=30"`
	Transmission string   `form:"transmission" validate:"omitempty,oneof=manual automatic"`
	IsActive     *bool    `form:"isActive"`
	MinPrice     *float64 `form:"minPrice" validate:"omitempty,gte=0"`
	MaxPrice     *float64 `form:"maxPrice" validate:"omitempty,gte=0"`
}

func ValidateBikeCreate(req *BikeCreateRequest) ValidationErrors {
	errors := ValidateStruct(req)

	seen := make(map[string]struct{}, len(req.Vehicles))
	for i, v := range req.Vehicles {
		if _, ok := seen[v.VehicleNumber]; ok {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("vehicles[%d].vehicleNumber", i),
				Tag:     "unique",
				Value:   v.VehicleNumber,
				Message: "Vehicle number is duplicated",
			})
		}
		seen[v.VehicleNumber] = struct{}{}
	}

	return errors
}

func ValidateBikeUpdate(req *BikeUpdateRequest) ValidationErrors {
	errors := ValidateStruct(req)
	if req.ModelInfo == nil && req.Pricing == nil && req.Features == nil && req.IsActive == nil {
		errors = append(errors, ValidationError{
			Field:   "request",
			Message: "Nothing to update",
		})
	}
	return errors
}

func ValidateBikeListQuery(req *BikeListQuery) ValidationErrors {
	errors := ValidateStruct(req)
	if req.MinPrice != nil && req.MaxPrice != nil && *req.MinPrice > *req.MaxPrice {
		errors = append(errors, ValidationError{
			Field:   "maxPrice",
			Tag:     "gtefield",
			Message: "maxPrice must not be below minPrice",
		})
	}
	return errors
}

func ValidateVehicleCreate(req *VehicleCreateRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateVehicleStatus(req *VehicleStatusRequest) ValidationErrors {
	return ValidateStruct(req)
}

func (r *BikeCreateRequest) ToModel() *models.Bike {
	bike := &models.Bike{
		BikeID:    r.BikeID,
		ModelInfo: r.ModelInfo.ToModel(),
		Pricing:   r.Pricing.ToModel(),
		Features:  r.Features,
		IsActive:  r.IsActive == nil || *r.IsActive,
	}
	for _, v := range r.Vehicles {
		bike.Vehicles = append(bike.Vehicles, v.ToModel())
	}
	return bike
}

func (r *ModelInfoRequest) ToModel() models.ModelInfo {
	return models.ModelInfo{
		Brand:        r.Brand,
		Model:        r.Model,
		Category:     r.Category,
		Type:         r.Type,
		Transmission: r.Transmission,
		Year:         r.Year,
	}
}

func (r *BikePricingRequest) ToModel() models.BikePricing {
	return models.BikePricing{
		BasePrice:         r.BasePrice,
		WeekendMultiplier: r.WeekendMultiplier,
		Currency:          r.Currency,
	}
}

func (r *VehicleCreateRequest) ToModel() models.Vehicle {
	return models.Vehicle{
		VehicleNumber: r.VehicleNumber,
		Status:        models.VehicleStatus(r.Status),
		Condition:     r.Condition,
		Location:      r.Location,
	}
}
