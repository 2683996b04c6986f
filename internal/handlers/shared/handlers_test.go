package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikerental/internal/middleware"
	"bikerental/internal/models"
	"bikerental/internal/repositories/interfaces"
	"bikerental/internal/services"
	"bikerental/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubBookingService struct {
	services.BookingService

	createOrder func(ctx context.Context, request *services.CreateBookingRequest) (*services.BookingOrder, error)
	completePay func(ctx context.Context, request *services.CompletePaymentRequest) (*models.Booking, error)
	cancel      func(ctx context.Context, bookingID, reason string) (*models.Booking, error)
	get         func(ctx context.Context, bookingID string) (*models.Booking, error)
	list        func(ctx context.Context, filter interfaces.BookingFilter, params *utils.PaginationParams) ([]*models.Booking, models.BookingStats, error)
}

func (s *stubBookingService) CreateBookingOrder(ctx context.Context, request *services.CreateBookingRequest) (*services.BookingOrder, error) {
	return s.createOrder(ctx, request)
}

func (s *stubBookingService) CompleteBookingPayment(ctx context.Context, request *services.CompletePaymentRequest) (*models.Booking, error) {
	return s.completePay(ctx, request)
}

func (s *stubBookingService) CancelBooking(ctx context.Context, bookingID, reason string) (*models.Booking, error) {
	return s.cancel(ctx, bookingID, reason)
}

func (s *stubBookingService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.get(ctx, bookingID)
}

func (s *stubBookingService) ListBookings(ctx context.Context, filter interfaces.BookingFilter, params *utils.PaginationParams) ([]*models.Booking, models.BookingStats, error) {
	return s.list(ctx, filter, params)
}

type stubInventoryService struct {
	services.InventoryService

	get  func(ctx context.Context, bikeID string) (*models.Bike, error)
	list func(ctx context.Context, filter interfaces.BikeFilter, params *utils.PaginationParams) ([]*models.Bike, int64, error)
}

func (s *stubInventoryService) GetBike(ctx context.Context, bikeID string) (*models.Bike, error) {
	return s.get(ctx, bikeID)
}

func (s *stubInventoryService) ListBikes(ctx context.Context, filter interfaces.BikeFilter, params *utils.PaginationParams) ([]*models.Bike, int64, error) {
	return s.list(ctx, filter, params)
}

// asUser stands in for AuthRequired in handler tests.
func asUser(userID, userType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID)
		c.Set(middleware.ContextKeyUserType, userType)
		c.Next()
	}
}

func bookingRouter(svc services.BookingService, userID, userType string) *gin.Engine {
	h := NewBookingHandler(svc)
	r := gin.New()
	g := r.Group("/bookings", asUser(userID, userType))
	g.POST("/order", h.CreateOrder)
	g.POST("/verify", h.VerifyPayment)
	g.GET("/me", h.GetMyBookings)
	g.GET("/:id", h.GetBooking)
	g.POST("/:id/cancel", h.CancelBooking)
	return r
}

func do(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *utils.APIError `json:"error"`
	Meta   *utils.Meta     `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func orderBody() gin.H {
	from := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	return gin.H{
		"vehicles": []gin.H{{"bikeId": "BIKE1", "vehicleNumber": "KA01AB1234"}},
		"fromDate": from,
		"toDate":   from.Add(48 * time.Hour),
		"notes":    "<b>helmet</b> please",
	}
}

func TestCreateOrder(t *testing.T) {
	var got *services.CreateBookingRequest
	svc := &stubBookingService{
		createOrder: func(_ context.Context, request *services.CreateBookingRequest) (*services.BookingOrder, error) {
			got = request
			return &services.BookingOrder{OrderID: "order_1", BookingID: "BK1", PayableNow: 600}, nil
		},
	}

	w := do(bookingRouter(svc, "user-1", utils.UserTypeUser), http.MethodPost, "/bookings/order", orderBody())

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, []models.VehicleSelection{{BikeID: "BIKE1", VehicleNumber: "KA01AB1234"}}, got.Vehicles)
	assert.Equal(t, "helmet please", got.Notes)

	var order services.BookingOrder
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &order))
	assert.Equal(t, "order_1", order.OrderID)
}

func TestCreateOrderValidation(t *testing.T) {
	svc := &stubBookingService{}

	w := do(bookingRouter(svc, "user-1", utils.UserTypeUser), http.MethodPost, "/bookings/order", gin.H{"vehicles": []gin.H{}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Details, "vehicles")
}

func TestCreateOrderMalformedJSON(t *testing.T) {
	r := bookingRouter(&stubBookingService{}, "user-1", utils.UserTypeUser)
	req := httptest.NewRequest(http.MethodPost, "/bookings/order", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderHoldFailure(t *testing.T) {
	svc := &stubBookingService{
		createOrder: func(context.Context, *services.CreateBookingRequest) (*services.BookingOrder, error) {
			return nil, &services.HoldFailedError{FailedVehicles: []services.FailedVehicle{
				{BikeID: "BIKE1", VehicleNumber: "KA01AB1234", Reason: "vehicle unavailable"},
			}}
		},
	}

	w := do(bookingRouter(svc, "user-1", utils.UserTypeUser), http.MethodPost, "/bookings/order", orderBody())

	assert.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "HOLD_FAILED", env.Error.Code)
	assert.Equal(t, map[string]string{"BIKE1/KA01AB1234": "vehicle unavailable"}, env.Error.Details)
}

func TestRespondErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unavailable", fmt.Errorf("wrapped: %w", services.ErrVehicleUnavailable), http.StatusConflict, "VEHICLE_UNAVAILABLE"},
		{"in progress", services.ErrPaymentInProgress, http.StatusConflict, "PAYMENT_IN_PROGRESS"},
		{"hold expired", services.ErrHoldExpired, http.StatusConflict, "HOLD_EXPIRED"},
		{"verification", services.ErrPaymentVerificationFailed, http.StatusPaymentRequired, "PAYMENT_VERIFICATION_FAILED"},
		{"gateway", &services.GatewayError{Operation: "capture", Err: errors.New("timeout")}, http.StatusPaymentRequired, "PAYMENT_CAPTURE_FAILED"},
		{"not found", services.ErrBookingNotFound, http.StatusNotFound, "BOOKING_NOT_FOUND"},
		{"date range", services.ErrInvalidDateRange, http.StatusBadRequest, "INVALID_DATE_RANGE"},
		{"unknown", errors.New("mongo down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubBookingService{
				completePay: func(context.Context, *services.CompletePaymentRequest) (*models.Booking, error) {
					return nil, tt.err
				},
			}
			body := gin.H{"bookingId": "BK1", "gatewayOrderId": "order_1", "gatewayPaymentId": "pay_1", "signature": "sig"}

			w := do(bookingRouter(svc, "user-1", utils.UserTypeUser), http.MethodPost, "/bookings/verify", body)

			assert.Equal(t, tt.status, w.Code)
			env := decode(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestVerifyPaymentPassesCaller(t *testing.T) {
	var got *services.CompletePaymentRequest
	svc := &stubBookingService{
		completePay: func(_ context.Context, request *services.CompletePaymentRequest) (*models.Booking, error) {
			got = request
			return &models.Booking{BookingID: "BK1", BookingStatus: models.BookingStatusConfirmed}, nil
		},
	}
	body := gin.H{"bookingId": "BK1", "gatewayOrderId": "order_1", "gatewayPaymentId": "pay_1", "signature": "sig"}

	w := do(bookingRouter(svc, "user-1", utils.UserTypeUser), http.MethodPost, "/bookings/verify", body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, &services.CompletePaymentRequest{
		BookingID:        "BK1",
		GatewayOrderID:   "order_1",
		GatewayPaymentID: "pay_1",
		Signature:        "sig",
		UserID:           "user-1",
	}, got)
}

func TestGetBookingOwnership(t *testing.T) {
	svc := &stubBookingService{
		get: func(_ context.Context, bookingID string) (*models.Booking, error) {
			return &models.Booking{BookingID: bookingID, UserID: "owner"}, nil
		},
	}

	w := do(bookingRouter(svc, "owner", utils.UserTypeUser), http.MethodGet, "/bookings/BK1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(bookingRouter(svc, "someone-else", utils.UserTypeUser), http.MethodGet, "/bookings/BK1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(bookingRouter(svc, "admin-1", utils.UserTypeAdmin), http.MethodGet, "/bookings/BK1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCancelBooking(t *testing.T) {
	cancelled := false
	svc := &stubBookingService{
		get: func(_ context.Context, bookingID string) (*models.Booking, error) {
			return &models.Booking{BookingID: bookingID, UserID: "owner"}, nil
		},
		cancel: func(_ context.Context, bookingID, reason string) (*models.Booking, error) {
			cancelled = true
			assert.Equal(t, "BK1", bookingID)
			assert.Equal(t, "change of plans", reason)
			return &models.Booking{BookingID: bookingID, BookingStatus: models.BookingStatusCancelled}, nil
		},
	}

	w := do(bookingRouter(svc, "someone-else", utils.UserTypeUser), http.MethodPost, "/bookings/BK1/cancel", gin.H{"reason": "change of plans"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, cancelled)

	w = do(bookingRouter(svc, "owner", utils.UserTypeUser), http.MethodPost, "/bookings/BK1/cancel", gin.H{"reason": "change of plans"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, cancelled)
}

func TestGetMyBookings(t *testing.T) {
	svc := &stubBookingService{
		list: func(_ context.Context, filter interfaces.BookingFilter, params *utils.PaginationParams) ([]*models.Booking, models.BookingStats, error) {
			assert.Equal(t, interfaces.BookingFilter{UserID: "user-1"}, filter)
			assert.Equal(t, 2, params.Page)
			return []*models.Booking{{BookingID: "BK1"}}, models.BookingStats{Total: 25, Confirmed: 3}, nil
		},
	}

	w := do(bookingRouter(svc, "user-1", utils.UserTypeUser), http.MethodGet, "/bookings/me?page=2&pageSize=10", nil)

	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Meta)
	require.NotNil(t, env.Meta.Pagination)
	assert.Equal(t, int64(25), env.Meta.Pagination.Total)
	assert.Equal(t, 3, env.Meta.Pagination.TotalPages)
	assert.True(t, env.Meta.Pagination.HasNext)
}

func bikeRouter(svc services.InventoryService) *gin.Engine {
	h := NewBikeHandler(svc)
	r := gin.New()
	r.GET("/bikes", h.ListBikes)
	r.GET("/bikes/:id", h.GetBike)
	return r
}

func TestGetBikeWeekendPrice(t *testing.T) {
	svc := &stubInventoryService{
		get: func(_ context.Context, bikeID string) (*models.Bike, error) {
			if bikeID != "BIKE1" {
				return nil, services.ErrBikeNotFound
			}
			return &models.Bike{BikeID: "BIKE1", Pricing: models.BikePricing{BasePrice: 500, WeekendMultiplier: 1.5}}, nil
		},
	}
	r := bikeRouter(svc)

	w := do(r, http.MethodGet, "/bikes/BIKE1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var bike struct {
		BikeID       string  `json:"bikeId"`
		WeekendPrice float64 `json:"weekendPrice"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &bike))
	assert.Equal(t, "BIKE1", bike.BikeID)
	assert.Equal(t, 750.0, bike.WeekendPrice)

	w = do(r, http.MethodGet, "/bikes/BIKE9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListBikesFilter(t *testing.T) {
	svc := &stubInventoryService{
		list: func(_ context.Context, filter interfaces.BikeFilter, _ *utils.PaginationParams) ([]*models.Bike, int64, error) {
			assert.Equal(t, "scooter", filter.Category)
			require.NotNil(t, filter.IsActive)
			assert.True(t, *filter.IsActive)
			return []*models.Bike{{BikeID: "BIKE1"}}, 1, nil
		},
	}

	w := do(bikeRouter(svc), http.MethodGet, "/bikes?category=scooter&isActive=true", nil)

	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Meta.Pagination)
	assert.Equal(t, int64(1), env.Meta.Pagination.Total)
}

func TestListBikesModelAndPriceFilter(t *testing.T) {
	var got interfaces.BikeFilter
	svc := &stubInventoryService{
		list: func(_ context.Context, filter interfaces.BikeFilter, _ *utils.PaginationParams) ([]*models.Bike, int64, error) {
			got = filter
			return []*models.Bike{}, 0, nil
		},
	}
	r := bikeRouter(svc)

	w := do(r, http.MethodGet, "/bikes?model=Activa&transmission=automatic&minPrice=300&maxPrice=800", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Activa", got.Model)
	assert.Equal(t, "automatic", got.Transmission)
	require.NotNil(t, got.MinPrice)
	require.NotNil(t, got.MaxPrice)
	assert.Equal(t, 300.0, *got.MinPrice)
	assert.Equal(t, 800.0, *got.MaxPrice)

	w = do(r, http.MethodGet, "/bikes?transmission=cvt", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/bikes?minPrice=900&maxPrice=800", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
