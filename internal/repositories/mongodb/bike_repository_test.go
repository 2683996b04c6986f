package mongodb

import (
	"context"
	"testing"
	"time"

	"bikerental/internal/models"
	"bikerental/internal/repositories/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func holdTransition(now time.Time) interfaces.VehicleTransition {
	expiry := now.Add(15 * time.Minute)
	return interfaces.VehicleTransition{
		Selection:     models.VehicleSelection{BikeID: "BIKE1", VehicleNumber: "KA01AB1234"},
		From:          []models.VehicleStatus{models.VehicleStatusAvailable},
		To:            models.VehicleStatusHolding,
		Holder:        "user-1",
		HolderBooking: "BKG-1",
		HoldExpiry:    &expiry,
		At:            now,
	}
}

func lookup(t *testing.T, d bson.D, key string) interface{} {
	t.Helper()
	for _, e := range d {
		if e.Key == key {
			return e.Value
		}
	}
	t.Fatalf("key %q not found in %v", key, d)
	return nil
}

func TestTransitionFilterConditionsOnCurrentState(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	tr := interfaces.VehicleTransition{
		Selection:      models.VehicleSelection{BikeID: "BIKE1", VehicleNumber: "V1"},
		From:           []models.VehicleStatus{models.VehicleStatusHolding},
		HeldBy:         "user-1",
		HeldForBooking: "BKG-1",
		ExpiredBefore:  &now,
		To:             models.VehicleStatusAvailable,
	}

	filter := transitionFilter(tr)

	assert.Equal(t, "BIKE1", lookup(t, filter, "bikeId"))
	elem := lookup(t, lookup(t, filter, "vehicles").(bson.D), "$elemMatch").(bson.D)
	assert.Equal(t, "V1", lookup(t, elem, "vehicleNumber"))
	assert.Equal(t, []models.VehicleStatus{models.VehicleStatusHolding}, lookup(t, lookup(t, elem, "status").(bson.D), "$in"))
	assert.Equal(t, "user-1", lookup(t, elem, "metadata.holdedBy"))
	assert.Equal(t, "BKG-1", lookup(t, elem, "metadata.bookingId"))
	assert.Equal(t, now, lookup(t, lookup(t, elem, "metadata.holdExpiryTime").(bson.D), "$lt"))
}

func TestTransitionFilterOmitsOptionalPredicates(t *testing.T) {
	filter := transitionFilter(holdTransition(time.Now()))
	elem := lookup(t, lookup(t, filter, "vehicles").(bson.D), "$elemMatch").(bson.D)

	assert.Len(t, elem, 2)
}

func TestTransitionPipelineRecomputesCounters(t *testing.T) {
	pipeline := transitionPipeline(holdTransition(time.Now()))
	require.Len(t, pipeline, 2)

	setVehicles := lookup(t, pipeline[0], "$set").(bson.D)
	lookup(t, setVehicles, "vehicles")
	lookup(t, setVehicles, "updatedAt")

	counters := lookup(t, lookup(t, pipeline[1], "$set").(bson.D), "counters").(bson.D)
	keys := make([]string, 0, len(counters))
	for _, e := range counters {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"total", "available", "holding", "rented", "maintenance", "inactive"}, keys)
}

func TestLiteralWrapsValues(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "$literal", Value: "$where"}}, literal("$where"))
}

func TestBikeListFilterMapsCatalogFields(t *testing.T) {
	active := true
	query := bikeListFilter(interfaces.BikeFilter{
		Brand:        "Honda",
		Model:        "Activa",
		Transmission: "automatic",
		IsActive:     &active,
	})

	assert.Equal(t, bson.M{
		"modelInfo.brand":        "Honda",
		"modelInfo.model":        "Activa",
		"modelInfo.transmission": "automatic",
		"isActive":               true,
	}, query)
}

func TestEffectivePriceExpr(t *testing.T) {
	low, high := 300.0, 800.0

	assert.Nil(t, effectivePriceExpr(interfaces.BikeFilter{}))

	weekday := effectivePriceExpr(interfaces.BikeFilter{MinPrice: &low, MaxPrice: &high})
	assert.Equal(t, bson.M{"$and": bson.A{
		bson.M{"$gte": bson.A{"$pricing.basePrice", low}},
		bson.M{"$lte": bson.A{"$pricing.basePrice", high}},
	}}, weekday)

	weekend := effectivePriceExpr(interfaces.BikeFilter{MaxPrice: &high, Weekend: true})
	rate := bson.M{"$multiply": bson.A{"$pricing.basePrice", "$pricing.weekendMultiplier"}}
	assert.Equal(t, bson.M{"$and": bson.A{
		bson.M{"$lte": bson.A{rate, high}},
	}}, weekend)

	query := bikeListFilter(interfaces.BikeFilter{MinPrice: &low})
	assert.Contains(t, query, "$expr")
}

func TestBikeRepositoryWithMockDeployment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("transition applied", func(mt *mtest.T) {
		repo := NewBikeRepository(mt.DB, nil, time.Minute)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		ok, err := repo.TransitionVehicle(context.Background(), holdTransition(time.Now()))
		require.NoError(mt, err)
		assert.True(mt, ok)
	})

	mt.Run("transition lost the race", func(mt *mtest.T) {
		repo := NewBikeRepository(mt.DB, nil, time.Minute)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		ok, err := repo.TransitionVehicle(context.Background(), holdTransition(time.Now()))
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("missing bike", func(mt *mtest.T) {
		repo := NewBikeRepository(mt.DB, nil, time.Minute)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "bikerental.bikes", mtest.FirstBatch))

		_, err := repo.GetByBikeID(context.Background(), "BIKE404")
		assert.ErrorIs(mt, err, interfaces.ErrNotFound)
	})

	mt.Run("duplicate bike id", func(mt *mtest.T) {
		repo := NewBikeRepository(mt.DB, nil, time.Minute)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.Create(context.Background(), &models.Bike{BikeID: "BIKE1"})
		assert.ErrorIs(mt, err, interfaces.ErrDuplicate)
	})

	mt.Run("vehicle quotes", func(mt *mtest.T) {
		repo := NewBikeRepository(mt.DB, nil, time.Minute)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "bikerental.bikes", mtest.FirstBatch, bson.D{
			{Key: "bikeId", Value: "BIKE1"},
			{Key: "isActive", Value: true},
			{Key: "pricing", Value: bson.D{{Key: "basePrice", Value: 1000.0}, {Key: "weekendMultiplier", Value: 1.5}}},
			{Key: "vehicle", Value: bson.D{{Key: "vehicleNumber", Value: "V1"}, {Key: "status", Value: "AVAILABLE"}}},
		}))

		quotes, err := repo.FindVehicles(context.Background(), []models.VehicleSelection{{BikeID: "BIKE1", VehicleNumber: "V1"}})
		require.NoError(mt, err)
		require.Len(mt, quotes, 1)
		assert.Equal(mt, 1000.0, quotes[0].Pricing.BasePrice)
		assert.Equal(mt, models.VehicleStatusAvailable, quotes[0].Vehicle.Status)
	})

	mt.Run("delete refused while vehicles are claimed", func(mt *mtest.T) {
		repo := NewBikeRepository(mt.DB, nil, time.Minute)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		ok, err := repo.Delete(context.Background(), "BIKE1", []models.VehicleStatus{models.VehicleStatusHolding, models.VehicleStatusRented})
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("delete applied", func(mt *mtest.T) {
		repo := NewBikeRepository(mt.DB, nil, time.Minute)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		ok, err := repo.Delete(context.Background(), "BIKE1", []models.VehicleStatus{models.VehicleStatusHolding})
		require.NoError(mt, err)
		assert.True(mt, ok)
	})

	mt.Run("update missing bike", func(mt *mtest.T) {
		repo := NewBikeRepository(mt.DB, nil, time.Minute)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		active := false
		ok, err := repo.Update(context.Background(), "BIKE404", interfaces.BikeUpdate{IsActive: &active}, time.Now())
		require.NoError(mt, err)
		assert.False(mt, ok)
	})
}
