package validators

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"bikerental/internal/models"
)

var validate *validator.Validate

var (
	vehicleNumberRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9\-\s]{1,19}$`)
	htmlRegex          = regexp.MustCompile(`<[^>]*>`)
)

func init() {
	validate = validator.New()

	// Report JSON names so clients can map errors back to their payload.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	// Register custom validation functions
	validate.RegisterValidation("vehicle_status", validateVehicleStatus)
	validate.RegisterValidation("admin_vehicle_status", validateAdminVehicleStatus)
	validate.RegisterValidation("booking_status", validateBookingStatus)
	validate.RegisterValidation("vehicle_number", validateVehicleNumber)
	validate.RegisterValidation("currency_code", validateCurrencyCode)
}

var (
	ErrInvalidVehicleNumber = errors.New("invalid vehicle number format")
	ErrInvalidCurrency      = errors.New("invalid currency code")
)

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// Map flattens the errors into field -> message, keeping the first message
// per field.
func (v ValidationErrors) Map() map[string]string {
	out := make(map[string]string, len(v))
	for _, err := range v {
		if _, ok := out[err.Field]; !ok {
			out[err.Field] = err.Message
		}
	}
	return out
}

// ValidateStruct validates a struct and returns detailed errors
func ValidateStruct(s interface{}) ValidationErrors {
	var validationErrors ValidationErrors

	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationErrors{{Field: "request", Message: err.Error()}}
	}

	for _, fe := range fieldErrors {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Value:   fmt.Sprintf("%v", fe.Value()),
			Message: getErrorMessage(fe),
		})
	}

	return validationErrors
}

func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
	case "vehicle_status":
		return "Invalid vehicle status"
	case "admin_vehicle_status":
		return "Status must be AVAILABLE, MAINTENANCE or INACTIVE"
	case "booking_status":
		return "Invalid booking status"
	case "vehicle_number":
		return "Invalid vehicle number format"
	case "currency_code":
		return "Invalid currency code"
	default:
		return fmt.Sprintf("Validation failed for %s", err.Field())
	}
}

func validateVehicleStatus(fl validator.FieldLevel) bool {
	return models.VehicleStatus(fl.Field().String()).IsValid()
}

func validateAdminVehicleStatus(fl validator.FieldLevel) bool {
	return models.VehicleStatus(fl.Field().String()).IsAdministrative()
}

func validateBookingStatus(fl validator.FieldLevel) bool {
	return models.BookingStatus(fl.Field().String()).IsValid()
}

func validateVehicleNumber(fl validator.FieldLevel) bool {
	number := fl.Field().String()
	if number == "" {
		return true // Let required tag handle empty values
	}
	return vehicleNumberRegex.MatchString(strings.ToUpper(number))
}

func validateCurrencyCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	validCurrencies := []string{"INR", "USD", "EUR", "GBP", "AED", "SGD"}

	for _, currency := range validCurrencies {
		if code == currency {
			return true
		}
	}
	return false
}

func SanitizeInput(input string) string {
	// Remove HTML tags and trim whitespace
	cleaned := htmlRegex.ReplaceAllString(input, "")
	return strings.TrimSpace(cleaned)
}
