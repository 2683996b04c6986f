package models

// PricingBreakdown is the priced result of a booking request.
// TotalAmount = TotalBaseAmount + TotalWeekendAmount - DiscountAmount.
type PricingBreakdown struct {
	TotalBaseAmount    float64        `json:"totalBaseAmount" bson:"totalBaseAmount"`
	TotalWeekendAmount float64        `json:"totalWeekendAmount" bson:"totalWeekendAmount"`
	SubtotalAmount     float64        `json:"subtotalAmount" bson:"subtotalAmount"`
	DiscountAmount     float64        `json:"discountAmount" bson:"discountAmount"`
	TotalAmount        float64        `json:"totalAmount" bson:"totalAmount"`
	TotalDays          int            `json:"totalDays" bson:"totalDays"`
	TotalWeekdayCount  int            `json:"totalWeekdayCount" bson:"totalWeekdayCount"`
	TotalWeekendCount  int            `json:"totalWeekendCount" bson:"totalWeekendCount"`
	AdvanceAmount      float64        `json:"advanceAmount" bson:"advanceAmount"`
	RemainingAmount    float64        `json:"remainingAmount" bson:"remainingAmount"`
	LateChargeAmount   float64        `json:"lateChargeAmount" bson:"lateChargeAmount"`
	FullPayment        bool           `json:"fullPayment" bson:"fullPayment"`
	Currency           string         `json:"currency" bson:"currency"`
	Items              []VehiclePrice `json:"items,omitempty" bson:"items,omitempty"`
}

// VehiclePrice is the per-vehicle line of a breakdown.
type VehiclePrice struct {
	BikeID        string  `json:"bikeId" bson:"bikeId"`
	VehicleNumber string  `json:"vehicleNumber" bson:"vehicleNumber"`
	WeekdayAmount float64 `json:"weekdayAmount" bson:"weekdayAmount"`
	WeekendAmount float64 `json:"weekendAmount" bson:"weekendAmount"`
	Total         float64 `json:"total" bson:"total"`
}

// PayableNow is the amount collected when the booking is paid for:
// the advance, or the full total when no remainder is deferred.
func (p PricingBreakdown) PayableNow() float64 {
	return p.TotalAmount - p.RemainingAmount
}

// LateCharge is the result of pricing an overdue return.
type LateCharge struct {
	BookingID       string           `json:"bookingId"`
	LateHours       int              `json:"lateHours"`
	Items           []LateChargeItem `json:"items"`
	TotalCharge     float64          `json:"totalCharge"`
	RemainingAmount float64          `json:"remainingAmount"`
	Currency        string           `json:"currency"`
}

type LateChargeItem struct {
	BikeID        string  `json:"bikeId"`
	VehicleNumber string  `json:"vehicleNumber"`
	BasePrice     float64 `json:"basePrice"`
	HourlyRate    float64 `json:"hourlyRate"`
	Amount        float64 `json:"amount"`
}
