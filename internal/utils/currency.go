package utils

import "math"

// RoundCurrency rounds to two decimal places.
func RoundCurrency(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// ToMinorUnits converts an amount to the gateway's smallest unit (paise for INR).
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func FromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}
