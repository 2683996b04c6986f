// Package pricing computes rental durations, day splits, booking totals and
// late-return charges. Every function here is pure; callers supply catalog
// prices and the current time.
package pricing

import (
	"errors"
	"math"
	"time"

	"bikerental/internal/models"
)

const (
	DefaultAdvanceRatio = 0.5

	hoursPerDay = 24

	lowTierCeiling = 1000.0
	midTierCeiling = 1500.0
	lowTierHourly  = 80.0
	midTierHourly  = 100.0
	highTierHourly = 120.0
)

var ErrInvalidDateRange = errors.New("invalid date range")

type Options struct {
	FullPayment  bool
	AdvanceRatio float64
	Currency     string
	Discount     float64
}

// RentalDays returns the number of started 24-hour blocks between from and
// to, never less than one.
func RentalDays(from, to time.Time) (int, error) {
	if !to.After(from) {
		return 0, ErrInvalidDateRange
	}
	hours := to.Sub(from).Hours()
	days := int(math.Ceil(hours / hoursPerDay))
	if days < 1 {
		days = 1
	}
	return days, nil
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

// IsWeekend reports whether t falls on a Saturday or Sunday in t's location.
func IsWeekend(t time.Time) bool {
	return isWeekend(t.Weekday())
}

// SplitWeekdayWeekend counts weekday and weekend calendar days among the
// totalDays days starting on from's date, in from's location.
func SplitWeekdayWeekend(from time.Time, totalDays int) (weekdays, weekends int) {
	if totalDays <= 0 {
		return 0, 0
	}
	if totalDays == 1 {
		if isWeekend(from.Weekday()) {
			return 0, 1
		}
		return 1, 0
	}

	day := time.Date(from.Year(), from.Month(), from.Day(), 12, 0, 0, 0, from.Location())
	for i := 0; i < totalDays; i++ {
		if isWeekend(day.Weekday()) {
			weekends++
		} else {
			weekdays++
		}
		day = day.AddDate(0, 0, 1)
	}
	return weekdays, weekends
}

// Breakdown prices a set of vehicles for the window [from, to).
func Breakdown(quotes []models.VehicleQuote, from, to time.Time, opts Options) (models.PricingBreakdown, error) {
	totalDays, err := RentalDays(from, to)
	if err != nil {
		return models.PricingBreakdown{}, err
	}
	weekdays, weekends := SplitWeekdayWeekend(from, totalDays)

	breakdown := models.PricingBreakdown{
		TotalDays:         totalDays,
		TotalWeekdayCount: weekdays,
		TotalWeekendCount: weekends,
		FullPayment:       opts.FullPayment,
		Currency:          opts.Currency,
		Items:             make([]models.VehiclePrice, 0, len(quotes)),
	}

	for _, q := range quotes {
		weekdayAmount := float64(weekdays) * q.Pricing.BasePrice
		weekendAmount := float64(weekends) * q.Pricing.BasePrice * q.Pricing.WeekendMultiplier

		breakdown.TotalBaseAmount += weekdayAmount
		breakdown.TotalWeekendAmount += weekendAmount
		breakdown.Items = append(breakdown.Items, models.VehiclePrice{
			BikeID:        q.BikeID,
			VehicleNumber: q.Vehicle.VehicleNumber,
			WeekdayAmount: roundAmount(weekdayAmount),
			WeekendAmount: roundAmount(weekendAmount),
			Total:         roundAmount(weekdayAmount + weekendAmount),
		})
		if breakdown.Currency == "" {
			breakdown.Currency = q.Pricing.Currency
		}
	}

	breakdown.TotalBaseAmount = roundAmount(breakdown.TotalBaseAmount)
	breakdown.TotalWeekendAmount = roundAmount(breakdown.TotalWeekendAmount)
	breakdown.SubtotalAmount = roundAmount(breakdown.TotalBaseAmount + breakdown.TotalWeekendAmount)
	breakdown.DiscountAmount = math.Min(roundAmount(opts.Discount), breakdown.SubtotalAmount)
	breakdown.TotalAmount = roundAmount(breakdown.SubtotalAmount - breakdown.DiscountAmount)

	if !opts.FullPayment {
		ratio := opts.AdvanceRatio
		if ratio <= 0 || ratio > 1 {
			ratio = DefaultAdvanceRatio
		}
		breakdown.AdvanceAmount = math.Round(breakdown.TotalAmount * ratio)
		breakdown.RemainingAmount = roundAmount(breakdown.TotalAmount - breakdown.AdvanceAmount)
	}

	return breakdown, nil
}

// HourlyLateRate returns the late-return rate for a vehicle's base price.
func HourlyLateRate(basePrice float64) float64 {
	switch {
	case basePrice < lowTierCeiling:
		return lowTierHourly
	case basePrice <= midTierCeiling:
		return midTierHourly
	default:
		return highTierHourly
	}
}

// LateHours returns the started hours elapsed since due, or zero when now is
// not past due.
func LateHours(due, now time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(math.Ceil(now.Sub(due).Hours()))
}

// ComputeLateCharge is lateHours at the tiered rate for basePrice.
func ComputeLateCharge(basePrice float64, lateHours int) float64 {
	if lateHours <= 0 {
		return 0
	}
	return float64(lateHours) * HourlyLateRate(basePrice)
}

// LateCharges prices an overdue return for every vehicle of a booking.
func LateCharges(vehicles []models.BookingVehicle, due, now time.Time) (int, []models.LateChargeItem, float64) {
	hours := LateHours(due, now)
	items := make([]models.LateChargeItem, 0, len(vehicles))
	var total float64
	for _, v := range vehicles {
		amount := ComputeLateCharge(v.BasePrice, hours)
		items = append(items, models.LateChargeItem{
			BikeID:        v.BikeID,
			VehicleNumber: v.VehicleNumber,
			BasePrice:     v.BasePrice,
			HourlyRate:    HourlyLateRate(v.BasePrice),
			Amount:        amount,
		})
		total += amount
	}
	return hours, items, roundAmount(total)
}

func roundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}
