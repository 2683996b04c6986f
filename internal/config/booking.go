package config

import (
	"fmt"
	"time"

	"bikerental/internal/utils"
)

type BookingConfig struct {
	HoldDuration      time.Duration `toml:"hold_duration"`
	AdvanceRatio      float64       `toml:"advance_ratio"`
	Currency          string        `toml:"currency"`
	Timezone          string        `toml:"timezone"`
	SchedulerEnabled  bool          `toml:"scheduler_enabled"`
	SchedulerInterval time.Duration `toml:"scheduler_interval"`
	SchedulerLockTTL  time.Duration `toml:"scheduler_lock_ttl"`
	PaymentLockTTL    time.Duration `toml:"payment_lock_ttl"`
}

func defaultBookingConfig() *BookingConfig {
	return &BookingConfig{
		HoldDuration:      15 * time.Minute,
		AdvanceRatio:      0.5,
		Currency:          utils.DefaultCurrency,
		Timezone:          utils.DefaultTimeZone,
		SchedulerEnabled:  true,
		SchedulerInterval: time.Minute,
		SchedulerLockTTL:  50 * time.Second,
		PaymentLockTTL:    30 * time.Second,
	}
}

func loadBookingConfig(c *BookingConfig) {
	c.HoldDuration = getEnvAsDuration("BOOK_HOLD_DURATION", c.HoldDuration)
	c.AdvanceRatio = getEnvAsFloat64("BOOKING_ADVANCE_RATIO", c.AdvanceRatio)
	c.Currency = getEnv("BOOKING_CURRENCY", c.Currency)
	c.Timezone = getEnv("BOOKING_TIMEZONE", c.Timezone)
	c.SchedulerEnabled = getEnvAsBool("SCHEDULER_ENABLED", c.SchedulerEnabled)
	c.SchedulerInterval = getEnvAsDuration("SCHEDULER_INTERVAL", c.SchedulerInterval)
	c.SchedulerLockTTL = getEnvAsDuration("SCHEDULER_LOCK_TTL", c.SchedulerLockTTL)
	c.PaymentLockTTL = getEnvAsDuration("PAYMENT_LOCK_TTL", c.PaymentLockTTL)
}

// Location resolves the booking timezone, falling back to UTC.
func (c *BookingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *BookingConfig) validate() []string {
	var problems []string
	if c.HoldDuration <= 0 {
		problems = append(problems, "BOOK_HOLD_DURATION must be positive")
	}
	if c.AdvanceRatio <= 0 || c.AdvanceRatio > 1 {
		problems = append(problems, fmt.Sprintf("BOOKING_ADVANCE_RATIO must be in (0,1], got %v", c.AdvanceRatio))
	}
	if c.SchedulerEnabled && c.SchedulerInterval <= 0 {
		problems = append(problems, "SCHEDULER_INTERVAL must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("BOOKING_TIMEZONE %q is not a valid location", c.Timezone))
	}
	return problems
}
