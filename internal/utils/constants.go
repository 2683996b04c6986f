package utils

const (
	AppName = "bikerental"

	DefaultCurrency = "INR"
	DefaultTimeZone = "Asia/Kolkata"

	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1
)

// User types carried in access tokens
const (
	UserTypeUser  = "user"
	UserTypeAdmin = "admin"
)

// ID prefixes
const (
	BikeIDPrefix    = "BIKE"
	BookingIDPrefix = "BKG"
	PaymentIDPrefix = "PAY"
	ReceiptPrefix   = "RCP"
)

// Cache keys
const (
	CacheKeyBike          = "bike:"
	CacheKeyPaymentLock   = "lock:booking_payment:"
	CacheKeySchedulerLock = "lock:scheduler_sweep"
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInternalServer   = "Internal server error"
	ErrUnauthorized     = "Unauthorized access"
	ErrForbidden        = "Access forbidden"
	ErrValidationFailed = "Validation failed"
	ErrInvalidToken     = "Invalid or expired token"
)
