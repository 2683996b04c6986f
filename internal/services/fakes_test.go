package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"bikerental/internal/config"
	"bikerental/internal/models"
	"bikerental/internal/repositories/interfaces"
	"bikerental/internal/utils"
	"bikerental/pkg/logger"
	"bikerental/pkg/payment"
)

const testGatewaySecret = "test_secret"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeBikeRepo applies vehicle transitions under one mutex, which gives the
// same single-document atomicity as the store.
type fakeBikeRepo struct {
	mu    sync.Mutex
	bikes map[string]*models.Bike
}

func newFakeBikeRepo() *fakeBikeRepo {
	return &fakeBikeRepo{bikes: make(map[string]*models.Bike)}
}

func copyBike(b *models.Bike) *models.Bike {
	c := *b
	c.Vehicles = append([]models.Vehicle(nil), b.Vehicles...)
	return &c
}

func (r *fakeBikeRepo) Create(ctx context.Context, bike *models.Bike) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bikes[bike.BikeID]; ok {
		return interfaces.ErrDuplicate
	}
	bike.RecomputeCounters()
	r.bikes[bike.BikeID] = copyBike(bike)
	return nil
}

func (r *fakeBikeRepo) GetByBikeID(ctx context.Context, bikeID string) (*models.Bike, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bikes[bikeID]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return copyBike(b), nil
}

func (r *fakeBikeRepo) List(ctx context.Context, filter interfaces.BikeFilter, params *utils.PaginationParams) ([]*models.Bike, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Bike
	for _, b := range r.bikes {
		if filter.Category != "" && b.ModelInfo.Category != filter.Category {
			continue
		}
		if filter.IsActive != nil && b.IsActive != *filter.IsActive {
			continue
		}
		if filter.Transmission != "" && b.ModelInfo.Transmission != filter.Transmission {
			continue
		}
		price := b.Pricing.BasePrice
		if filter.Weekend {
			price = b.Pricing.WeekendPrice()
		}
		if (filter.MinPrice != nil && price < *filter.MinPrice) || (filter.MaxPrice != nil && price > *filter.MaxPrice) {
			continue
		}
		out = append(out, copyBike(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BikeID < out[j].BikeID })
	return out, int64(len(out)), nil
}

func (r *fakeBikeRepo) Update(ctx context.Context, bikeID string, update interfaces.BikeUpdate, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bikes[bikeID]
	if !ok {
		return false, nil
	}
	if update.ModelInfo != nil {
		b.ModelInfo = *update.ModelInfo
	}
	if update.Pricing != nil {
		b.Pricing = *update.Pricing
	}
	if update.Features != nil {
		b.Features = update.Features
	}
	if update.IsActive != nil {
		b.IsActive = *update.IsActive
	}
	b.UpdatedAt = at
	return true, nil
}

func (r *fakeBikeRepo) Delete(ctx context.Context, bikeID string, blocking []models.VehicleStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bikes[bikeID]
	if !ok {
		return false, nil
	}
	for _, v := range b.Vehicles {
		if statusIn(v.Status, blocking) {
			return false, nil
		}
	}
	delete(r.bikes, bikeID)
	return true, nil
}

func (r *fakeBikeRepo) FindVehicles(ctx context.Context, selections []models.VehicleSelection) ([]models.VehicleQuote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var quotes []models.VehicleQuote
	for _, sel := range selections {
		b, ok := r.bikes[sel.BikeID]
		if !ok {
			continue
		}
		if v, ok := b.FindVehicle(sel.VehicleNumber); ok {
			quotes = append(quotes, models.VehicleQuote{
				BikeID:    b.BikeID,
				IsActive:  b.IsActive,
				ModelInfo: b.ModelInfo,
				Pricing:   b.Pricing,
				Vehicle:   *v,
			})
		}
	}
	return quotes, nil
}

func (r *fakeBikeRepo) FindExpiredHolds(ctx context.Context, now time.Time) ([]models.VehicleSelection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.VehicleSelection
	for _, b := range r.bikes {
		for _, v := range b.Vehicles {
			if v.Status == models.VehicleStatusHolding && v.Metadata.HoldExpiryTime != nil && v.Metadata.HoldExpiryTime.Before(now) {
				out = append(out, models.VehicleSelection{BikeID: b.BikeID, VehicleNumber: v.VehicleNumber})
			}
		}
	}
	return out, nil
}

func (r *fakeBikeRepo) GetVehiclesByStatus(ctx context.Context, status models.VehicleStatus) ([]models.VehicleView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.VehicleView
	for _, b := range r.bikes {
		for _, v := range b.Vehicles {
			if v.Status == status {
				out = append(out, models.VehicleView{BikeID: b.BikeID, ModelInfo: b.ModelInfo, Vehicle: v})
			}
		}
	}
	return out, nil
}

func (r *fakeBikeRepo) TransitionVehicle(ctx context.Context, t interfaces.VehicleTransition) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bikes[t.Selection.BikeID]
	if !ok {
		return false, nil
	}
	v, ok := b.FindVehicle(t.Selection.VehicleNumber)
	if !ok || !statusIn(v.Status, t.From) {
		return false, nil
	}
	if t.HeldBy != "" && v.Metadata.HeldBy != t.HeldBy {
		return false, nil
	}
	if t.HeldForBooking != "" && v.Metadata.BookingID != t.HeldForBooking {
		return false, nil
	}
	if t.ExpiredBefore != nil && (v.Metadata.HoldExpiryTime == nil || !v.Metadata.HoldExpiryTime.Before(*t.ExpiredBefore)) {
		return false, nil
	}

	v.Status = t.To
	v.Metadata.HeldBy = t.Holder
	v.Metadata.BookingID = t.HolderBooking
	v.Metadata.HoldExpiryTime = t.HoldExpiry
	v.Metadata.LastUpdated = t.At
	b.UpdatedAt = t.At
	b.RecomputeCounters()
	return true, nil
}

func (r *fakeBikeRepo) AddVehicle(ctx context.Context, bikeID string, vehicle models.Vehicle, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bikes[bikeID]
	if !ok {
		return false, nil
	}
	if _, exists := b.FindVehicle(vehicle.VehicleNumber); exists {
		return false, nil
	}
	b.Vehicles = append(b.Vehicles, vehicle)
	b.RecomputeCounters()
	return true, nil
}

func (r *fakeBikeRepo) RemoveVehicle(ctx context.Context, bikeID, vehicleNumber string, removable []models.VehicleStatus, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bikes[bikeID]
	if !ok {
		return false, nil
	}
	for i, v := range b.Vehicles {
		if v.VehicleNumber == vehicleNumber && statusIn(v.Status, removable) {
			b.Vehicles = append(b.Vehicles[:i], b.Vehicles[i+1:]...)
			b.RecomputeCounters()
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBikeRepo) vehicle(t *testing.T, bikeID, number string) models.Vehicle {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bikes[bikeID]
	if !ok {
		t.Fatalf("bike %s not seeded", bikeID)
	}
	v, ok := b.FindVehicle(number)
	if !ok {
		t.Fatalf("vehicle %s/%s not seeded", bikeID, number)
	}
	return *v
}

func (r *fakeBikeRepo) counters(bikeID string) models.VehicleCounters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bikes[bikeID].Counters
}

func statusIn[S comparable](s S, set []S) bool {
	for _, x := range set {
		if s == x {
			return true
		}
	}
	return false
}

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	failNext error
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[string]*models.Booking)}
}

func copyBooking(b *models.Booking) *models.Booking {
	c := *b
	c.Vehicles = append([]models.BookingVehicle(nil), b.Vehicles...)
	return &c
}

func (r *fakeBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failNext; err != nil {
		r.failNext = nil
		return err
	}
	if _, ok := r.bookings[booking.BookingID]; ok {
		return interfaces.ErrDuplicate
	}
	r.bookings[booking.BookingID] = copyBooking(booking)
	return nil
}

func (r *fakeBookingRepo) GetByBookingID(ctx context.Context, bookingID string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return copyBooking(b), nil
}

func (r *fakeBookingRepo) List(ctx context.Context, filter interfaces.BookingFilter, params *utils.PaginationParams) ([]*models.Booking, models.BookingStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Booking
	var stats models.BookingStats
	for _, b := range r.bookings {
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && b.BookingStatus != filter.Status {
			continue
		}
		out = append(out, copyBooking(b))
		stats.Total++
		stats.TotalAmount += b.Pricing.TotalAmount
		switch b.BookingStatus {
		case models.BookingStatusConfirmed:
			stats.Confirmed++
		case models.BookingStatusCompleted:
			stats.Completed++
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, stats, nil
}

func (r *fakeBookingRepo) TransitionStatus(ctx context.Context, bookingID string, from []models.BookingStatus, to models.BookingStatus, change interfaces.BookingStatusChange) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok || !statusIn(b.BookingStatus, from) {
		return false, nil
	}
	at := change.At
	b.BookingStatus = to
	b.UpdatedAt = at
	switch to {
	case models.BookingStatusConfirmed:
		b.ConfirmedAt = &at
	case models.BookingStatusActive:
		b.ActivatedAt = &at
	case models.BookingStatusCompleted:
		b.CompletedAt = &at
	case models.BookingStatusCancelled:
		b.CancelledAt = &at
		if change.CancellationReason != "" {
			b.CancellationReason = change.CancellationReason
		}
	}
	if change.RemainingAmount != nil {
		b.Pricing.RemainingAmount = *change.RemainingAmount
	}
	return true, nil
}

func (r *fakeBookingRepo) FindDue(ctx context.Context, filter interfaces.BookingDueFilter) ([]*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Booking
	for _, b := range r.bookings {
		if b.BookingStatus != filter.Status {
			continue
		}
		if !filter.FromOnOrBefore.IsZero() && b.FromDate.After(filter.FromOnOrBefore) {
			continue
		}
		if !filter.ToBefore.IsZero() && !b.ToDate.Before(filter.ToBefore) {
			continue
		}
		if !filter.CreatedBefore.IsZero() && !b.CreatedAt.Before(filter.CreatedBefore) {
			continue
		}
		out = append(out, copyBooking(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if filter.Limit > 0 && int64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *fakeBookingRepo) CountOverlapping(ctx context.Context, selections []models.VehicleSelection, from, to time.Time, statuses []models.BookingStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[string]struct{}, len(selections))
	for _, sel := range selections {
		wanted[sel.Key()] = struct{}{}
	}
	var count int64
	for _, b := range r.bookings {
		if !statusIn(b.BookingStatus, statuses) || !b.FromDate.Before(to) || !b.ToDate.After(from) {
			continue
		}
		for _, sel := range b.Selections() {
			if _, ok := wanted[sel.Key()]; ok {
				count++
				break
			}
		}
	}
	return count, nil
}

func (r *fakeBookingRepo) UpdateLateCharge(ctx context.Context, bookingID string, previousCharge, charge, remaining float64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok || b.Pricing.LateChargeAmount != previousCharge || b.BookingStatus.IsClosed() {
		return false, nil
	}
	b.Pricing.LateChargeAmount = charge
	b.Pricing.RemainingAmount = remaining
	b.UpdatedAt = at
	return true, nil
}

func (r *fakeBookingRepo) UpdateDetails(ctx context.Context, bookingID string, notes *string, features []string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok {
		return false, nil
	}
	if notes != nil {
		b.Metadata.CustomerNotes = *notes
	}
	if features != nil {
		b.Features = features
	}
	b.UpdatedAt = at
	return true, nil
}

func (r *fakeBookingRepo) put(b *models.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.BookingID] = copyBooking(b)
}

func (r *fakeBookingRepo) status(bookingID string) models.BookingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bookings[bookingID].BookingStatus
}

type fakePaymentRepo struct {
	mu             sync.Mutex
	payments       map[string]*models.Payment
	failCreate     error
	failTransition error
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[string]*models.Payment)}
}

func (r *fakePaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failCreate; err != nil {
		r.failCreate = nil
		return err
	}
	if _, ok := r.payments[p.BookingID]; ok {
		return interfaces.ErrDuplicate
	}
	c := *p
	r.payments[p.BookingID] = &c
	return nil
}

func (r *fakePaymentRepo) GetByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.PaymentID == paymentID {
			c := *p
			return &c, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakePaymentRepo) List(ctx context.Context, filter interfaces.PaymentFilter, params *utils.PaginationParams) ([]*models.Payment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Payment
	for _, p := range r.payments {
		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentID < out[j].PaymentID })
	return out, int64(len(out)), nil
}

func (r *fakePaymentRepo) GetByBookingID(ctx context.Context, bookingID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[bookingID]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (r *fakePaymentRepo) TransitionStatus(ctx context.Context, bookingID string, from []models.PaymentStatus, to models.PaymentStatus, update models.PaymentUpdate, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failTransition; err != nil {
		r.failTransition = nil
		return false, err
	}
	p, ok := r.payments[bookingID]
	if !ok || !statusIn(p.Status, from) {
		return false, nil
	}
	p.Status = to
	if update.GatewayPaymentID != "" {
		p.GatewayPaymentID = update.GatewayPaymentID
	}
	if update.PaidAmount != nil {
		p.PaidAmount = *update.PaidAmount
	}
	if update.FailureReason != "" {
		p.FailureReason = update.FailureReason
	}
	p.UpdatedAt = at
	return true, nil
}

func (r *fakePaymentRepo) RecordSettlement(ctx context.Context, bookingID string, paid, remaining float64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[bookingID]
	if !ok {
		return false, nil
	}
	p.PaidAmount += paid
	p.RemainingAmount = remaining
	p.UpdatedAt = at
	return true, nil
}

func (r *fakePaymentRepo) get(bookingID string) models.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.payments[bookingID]
}

type fakeGateway struct {
	mu         sync.Mutex
	orders     []payment.OrderRequest
	captures   []string
	refunds    []payment.RefundRequest
	orderErr   error
	captureErr error
}

func (g *fakeGateway) CreateOrder(ctx context.Context, request *payment.OrderRequest) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.orderErr != nil {
		return nil, g.orderErr
	}
	g.orders = append(g.orders, *request)
	return &payment.Order{
		OrderID:  "order_" + request.Receipt,
		Amount:   request.Amount,
		Currency: request.Currency,
		Receipt:  request.Receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) CapturePayment(ctx context.Context, paymentID string, amount int64, currency string) (*payment.Capture, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	g.captures = append(g.captures, paymentID)
	return &payment.Capture{PaymentID: paymentID, Amount: amount, Currency: currency, Status: "captured"}, nil
}

func (g *fakeGateway) RefundPayment(ctx context.Context, request *payment.RefundRequest) (*payment.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = append(g.refunds, *request)
	return &payment.Refund{RefundID: "rfnd_1", Amount: request.Amount, Status: "processed"}, nil
}

func (g *fakeGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return payment.VerifySignature(testGatewaySecret, orderID, paymentID, signature)
}

func (g *fakeGateway) KeyID() string {
	return "rzp_test_key"
}

func (g *fakeGateway) captureCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.captures)
}

type testEnv struct {
	clock     *fakeClock
	bikes     *fakeBikeRepo
	bookings  *fakeBookingRepo
	payments  *fakePaymentRepo
	gateway   *fakeGateway
	locks     LockService
	config    *config.BookingConfig
	holds     HoldService
	pricing   PricingService
	booking   BookingService
	scheduler SchedulerService
	inventory InventoryService
}

// monday is 2024-01-01 09:00 UTC, a Monday.
var monday = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		clock:    &fakeClock{now: monday},
		bikes:    newFakeBikeRepo(),
		bookings: newFakeBookingRepo(),
		payments: newFakePaymentRepo(),
		gateway:  &fakeGateway{},
		config: &config.BookingConfig{
			HoldDuration:      15 * time.Minute,
			AdvanceRatio:      0.5,
			Currency:          "INR",
			Timezone:          "UTC",
			SchedulerInterval: time.Minute,
			SchedulerLockTTL:  50 * time.Second,
			PaymentLockTTL:    30 * time.Second,
		},
	}

	log := logger.NewNop()
	env.locks = NewLocalLockService(env.clock)
	env.holds = NewHoldService(env.bikes, env.clock, log, nil)
	env.pricing = NewPricingService(env.bikes, env.config)
	env.booking = NewBookingService(env.bookings, env.payments, env.holds, env.pricing, env.gateway, env.locks, env.config, env.clock, log, nil)
	env.scheduler = NewSchedulerService(env.bookings, env.payments, env.holds, env.pricing, env.locks, env.config, env.clock, log, nil)
	env.inventory = NewInventoryService(env.bikes, env.clock, time.UTC, log)

	return env
}

// seedBike stores an active bike whose vehicles are all AVAILABLE.
func (e *testEnv) seedBike(t *testing.T, bikeID string, basePrice, weekendMultiplier float64, numbers ...string) {
	t.Helper()

	bike := &models.Bike{
		BikeID:    bikeID,
		ModelInfo: models.ModelInfo{Brand: "Royal Enfield", Model: "Classic 350", Category: "cruiser"},
		Pricing:   models.BikePricing{BasePrice: basePrice, WeekendMultiplier: weekendMultiplier, Currency: "INR"},
		IsActive:  true,
	}
	for _, n := range numbers {
		bike.Vehicles = append(bike.Vehicles, models.Vehicle{VehicleNumber: n, Status: models.VehicleStatusAvailable})
	}
	if err := e.bikes.Create(context.Background(), bike); err != nil {
		t.Fatalf("seed bike: %v", err)
	}
}

func sel(bikeID, number string) models.VehicleSelection {
	return models.VehicleSelection{BikeID: bikeID, VehicleNumber: number}
}

func bookingRequest(userID string, from, to time.Time, selections ...models.VehicleSelection) *CreateBookingRequest {
	return &CreateBookingRequest{
		UserID:   userID,
		Vehicles: selections,
		FromDate: from,
		ToDate:   to,
	}
}

func signedCompletion(order *BookingOrder, paymentID string) *CompletePaymentRequest {
	return &CompletePaymentRequest{
		BookingID:        order.BookingID,
		GatewayOrderID:   order.OrderID,
		GatewayPaymentID: paymentID,
		Signature:        payment.Sign(testGatewaySecret, order.OrderID, paymentID),
	}
}

var errStore = errors.New("store unavailable")
