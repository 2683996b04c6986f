package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bikerental/internal/models"
	"bikerental/internal/repositories/interfaces"
	"bikerental/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const BikesCollection = "bikes"

type bikeRepository struct {
	collection *mongo.Collection
	cache      CacheService
	cacheTTL   time.Duration
}

func NewBikeRepository(db *mongo.Database, cache CacheService, cacheTTL time.Duration) interfaces.BikeRepository {
	return &bikeRepository{
		collection: db.Collection(BikesCollection),
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
}

// Catalog
func (r *bikeRepository) Create(ctx context.Context, bike *models.Bike) error {
	now := time.Now()
	bike.ID = primitive.NewObjectID()
	if bike.CreatedAt.IsZero() {
		bike.CreatedAt = now
	}
	bike.UpdatedAt = bike.CreatedAt
	for i := range bike.Vehicles {
		if bike.Vehicles[i].Metadata.LastUpdated.IsZero() {
			bike.Vehicles[i].Metadata.LastUpdated = now
		}
	}
	bike.RecomputeCounters()

	_, err := r.collection.InsertOne(ctx, bike)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: bike %s", interfaces.ErrDuplicate, bike.BikeID)
		}
		return fmt.Errorf("failed to create bike: %w", err)
	}

	return nil
}

func (r *bikeRepository) GetByBikeID(ctx context.Context, bikeID string) (*models.Bike, error) {
	if bike := r.getBikeFromCache(ctx, bikeID); bike != nil {
		return bike, nil
	}

	var bike models.Bike
	err := r.collection.FindOne(ctx, bson.M{"bikeId": bikeID}).Decode(&bike)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bike: %w", err)
	}

	r.cacheBike(ctx, &bike)

	return &bike, nil
}

func (r *bikeRepository) List(ctx context.Context, filter interfaces.BikeFilter, params *utils.PaginationParams) ([]*models.Bike, int64, error) {
	query := bikeListFilter(filter)
	if search := params.GetSearchFilter([]string{"bikeId", "modelInfo.brand", "modelInfo.model"}); len(search) > 0 {
		query["$or"] = search["$or"]
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bikes: %w", err)
	}

	cursor, err := r.collection.Find(ctx, query, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find bikes: %w", err)
	}
	defer cursor.Close(ctx)

	bikes := make([]*models.Bike, 0, params.GetLimit())
	if err := cursor.All(ctx, &bikes); err != nil {
		return nil, 0, fmt.Errorf("failed to decode bikes: %w", err)
	}

	return bikes, total, nil
}

func (r *bikeRepository) Update(ctx context.Context, bikeID string, update interfaces.BikeUpdate, at time.Time) (bool, error) {
	set := bson.M{"updatedAt": at}
	if update.ModelInfo != nil {
		set["modelInfo"] = *update.ModelInfo
	}
	if update.Pricing != nil {
		set["pricing"] = *update.Pricing
	}
	if update.Features != nil {
		set["features"] = update.Features
	}
	if update.IsActive != nil {
		set["isActive"] = *update.IsActive
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"bikeId": bikeID}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to update bike: %w", err)
	}
	if result.MatchedCount == 0 {
		return false, nil
	}

	r.invalidateBikeCache(ctx, bikeID)
	return true, nil
}

func (r *bikeRepository) Delete(ctx context.Context, bikeID string, blocking []models.VehicleStatus) (bool, error) {
	filter := bson.D{
		{Key: "bikeId", Value: bikeID},
		{Key: "vehicles", Value: bson.D{{Key: "$not", Value: bson.D{{Key: "$elemMatch", Value: bson.D{
			{Key: "status", Value: bson.D{{Key: "$in", Value: blocking}}},
		}}}}}},
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to delete bike: %w", err)
	}
	if result.DeletedCount == 0 {
		return false, nil
	}

	r.invalidateBikeCache(ctx, bikeID)
	return true, nil
}

// Vehicle reads
func (r *bikeRepository) FindVehicles(ctx context.Context, selections []models.VehicleSelection) ([]models.VehicleQuote, error) {
	if len(selections) == 0 {
		return nil, nil
	}

	match := selectionMatch(selections, "vehicles.vehicleNumber")
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$unwind", Value: "$vehicles"}},
		{{Key: "$match", Value: match}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "bikeId", Value: 1},
			{Key: "isActive", Value: 1},
			{Key: "modelInfo", Value: 1},
			{Key: "pricing", Value: 1},
			{Key: "vehicle", Value: "$vehicles"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to find vehicles: %w", err)
	}
	defer cursor.Close(ctx)

	var quotes []models.VehicleQuote
	if err := cursor.All(ctx, &quotes); err != nil {
		return nil, fmt.Errorf("failed to decode vehicles: %w", err)
	}

	return quotes, nil
}

func (r *bikeRepository) FindExpiredHolds(ctx context.Context, now time.Time) ([]models.VehicleSelection, error) {
	expired := bson.D{
		{Key: "status", Value: models.VehicleStatusHolding},
		{Key: "metadata.holdExpiryTime", Value: bson.D{{Key: "$lt", Value: now}}},
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "vehicles", Value: bson.D{{Key: "$elemMatch", Value: expired}}}}}},
		{{Key: "$unwind", Value: "$vehicles"}},
		{{Key: "$match", Value: bson.D{
			{Key: "vehicles.status", Value: models.VehicleStatusHolding},
			{Key: "vehicles.metadata.holdExpiryTime", Value: bson.D{{Key: "$lt", Value: now}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "bikeId", Value: 1},
			{Key: "vehicleNumber", Value: "$vehicles.vehicleNumber"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired holds: %w", err)
	}
	defer cursor.Close(ctx)

	var selections []models.VehicleSelection
	if err := cursor.All(ctx, &selections); err != nil {
		return nil, fmt.Errorf("failed to decode expired holds: %w", err)
	}

	return selections, nil
}

func (r *bikeRepository) GetVehiclesByStatus(ctx context.Context, status models.VehicleStatus) ([]models.VehicleView, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "vehicles.status", Value: status}}}},
		{{Key: "$unwind", Value: "$vehicles"}},
		{{Key: "$match", Value: bson.D{{Key: "vehicles.status", Value: status}}}},
		{{Key: "$sort", Value: bson.D{{Key: "bikeId", Value: 1}, {Key: "vehicles.vehicleNumber", Value: 1}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "bikeId", Value: 1},
			{Key: "modelInfo", Value: 1},
			{Key: "vehicle", Value: "$vehicles"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicles by status: %w", err)
	}
	defer cursor.Close(ctx)

	views := []models.VehicleView{}
	if err := cursor.All(ctx, &views); err != nil {
		return nil, fmt.Errorf("failed to decode vehicles: %w", err)
	}

	return views, nil
}

// Conditioned writes
func (r *bikeRepository) TransitionVehicle(ctx context.Context, t interfaces.VehicleTransition) (bool, error) {
	result, err := r.collection.UpdateOne(ctx, transitionFilter(t), transitionPipeline(t))
	if err != nil {
		return false, fmt.Errorf("failed to transition vehicle %s: %w", t.Selection.Key(), err)
	}

	if result.ModifiedCount == 0 {
		return false, nil
	}

	r.invalidateBikeCache(ctx, t.Selection.BikeID)
	return true, nil
}

func (r *bikeRepository) AddVehicle(ctx context.Context, bikeID string, vehicle models.Vehicle, at time.Time) (bool, error) {
	vehicle.Metadata.LastUpdated = at

	filter := bson.D{
		{Key: "bikeId", Value: bikeID},
		{Key: "vehicles.vehicleNumber", Value: bson.D{{Key: "$ne", Value: vehicle.VehicleNumber}}},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "vehicles", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$vehicles", bson.A{}}}},
				bson.A{literal(vehicle)},
			}}}},
			{Key: "updatedAt", Value: at},
		}}},
		countersStage(),
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to add vehicle: %w", err)
	}
	if result.ModifiedCount == 0 {
		return false, nil
	}

	r.invalidateBikeCache(ctx, bikeID)
	return true, nil
}

func (r *bikeRepository) RemoveVehicle(ctx context.Context, bikeID, vehicleNumber string, removable []models.VehicleStatus, at time.Time) (bool, error) {
	filter := bson.D{
		{Key: "bikeId", Value: bikeID},
		{Key: "vehicles", Value: bson.D{{Key: "$elemMatch", Value: bson.D{
			{Key: "vehicleNumber", Value: vehicleNumber},
			{Key: "status", Value: bson.D{{Key: "$in", Value: removable}}},
		}}}},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "vehicles", Value: bson.D{{Key: "$filter", Value: bson.D{
				{Key: "input", Value: "$vehicles"},
				{Key: "as", Value: "v"},
				{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$v.vehicleNumber", literal(vehicleNumber)}}}},
			}}}},
			{Key: "updatedAt", Value: at},
		}}},
		countersStage(),
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to remove vehicle: %w", err)
	}
	if result.ModifiedCount == 0 {
		return false, nil
	}

	r.invalidateBikeCache(ctx, bikeID)
	return true, nil
}

// transitionFilter matches the bike only while the target vehicle still
// satisfies every precondition of t.
func transitionFilter(t interfaces.VehicleTransition) bson.D {
	elem := bson.D{
		{Key: "vehicleNumber", Value: t.Selection.VehicleNumber},
		{Key: "status", Value: bson.D{{Key: "$in", Value: t.From}}},
	}
	if t.HeldBy != "" {
		elem = append(elem, bson.E{Key: "metadata.holdedBy", Value: t.HeldBy})
	}
	if t.HeldForBooking != "" {
		elem = append(elem, bson.E{Key: "metadata.bookingId", Value: t.HeldForBooking})
	}
	if t.ExpiredBefore != nil {
		elem = append(elem, bson.E{Key: "metadata.holdExpiryTime", Value: bson.D{{Key: "$lt", Value: *t.ExpiredBefore}}})
	}

	return bson.D{
		{Key: "bikeId", Value: t.Selection.BikeID},
		{Key: "vehicles", Value: bson.D{{Key: "$elemMatch", Value: elem}}},
	}
}

// transitionPipeline rewrites the target vehicle and then recomputes the
// counters from the rewritten array, so both land in one atomic update.
func transitionPipeline(t interfaces.VehicleTransition) mongo.Pipeline {
	var expiry interface{}
	if t.HoldExpiry != nil {
		expiry = *t.HoldExpiry
	}

	updated := bson.D{{Key: "$mergeObjects", Value: bson.A{
		"$$v",
		bson.D{
			{Key: "status", Value: literal(t.To)},
			{Key: "metadata", Value: bson.D{{Key: "$mergeObjects", Value: bson.A{
				"$$v.metadata",
				bson.D{
					{Key: "holdExpiryTime", Value: literal(expiry)},
					{Key: "holdedBy", Value: literal(t.Holder)},
					{Key: "bookingId", Value: literal(t.HolderBooking)},
					{Key: "lastUpdated", Value: t.At},
				},
			}}}},
		},
	}}}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "vehicles", Value: bson.D{{Key: "$map", Value: bson.D{
				{Key: "input", Value: "$vehicles"},
				{Key: "as", Value: "v"},
				{Key: "in", Value: bson.D{{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$eq", Value: bson.A{"$$v.vehicleNumber", literal(t.Selection.VehicleNumber)}}},
					updated,
					"$$v",
				}}}},
			}}}},
			{Key: "updatedAt", Value: t.At},
		}}},
		countersStage(),
	}
}

func bikeListFilter(filter interfaces.BikeFilter) bson.M {
	query := bson.M{}
	for field, value := range map[string]string{
		"modelInfo.category":     filter.Category,
		"modelInfo.brand":        filter.Brand,
		"modelInfo.model":        filter.Model,
		"modelInfo.type":         filter.Type,
		"modelInfo.transmission": filter.Transmission,
	} {
		if value != "" {
			query[field] = value
		}
	}
	if filter.IsActive != nil {
		query["isActive"] = *filter.IsActive
	}
	if expr := effectivePriceExpr(filter); expr != nil {
		query["$expr"] = expr
	}
	return query
}

// effectivePriceExpr bounds the day rate charged today.
func effectivePriceExpr(filter interfaces.BikeFilter) bson.M {
	if filter.MinPrice == nil && filter.MaxPrice == nil {
		return nil
	}

	var price interface{} = "$pricing.basePrice"
	if filter.Weekend {
		price = bson.M{"$multiply": bson.A{"$pricing.basePrice", "$pricing.weekendMultiplier"}}
	}

	bounds := bson.A{}
	if filter.MinPrice != nil {
		bounds = append(bounds, bson.M{"$gte": bson.A{price, *filter.MinPrice}})
	}
	if filter.MaxPrice != nil {
		bounds = append(bounds, bson.M{"$lte": bson.A{price, *filter.MaxPrice}})
	}
	return bson.M{"$and": bounds}
}

// countersStage derives counters from the vehicles array.
func countersStage() bson.D {
	counters := bson.D{{Key: "total", Value: bson.D{{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$vehicles", bson.A{}}}}}}}}
	for _, status := range []struct {
		field  string
		status models.VehicleStatus
	}{
		{"available", models.VehicleStatusAvailable},
		{"holding", models.VehicleStatusHolding},
		{"rented", models.VehicleStatusRented},
		{"maintenance", models.VehicleStatusMaintenance},
		{"inactive", models.VehicleStatusInactive},
	} {
		counters = append(counters, bson.E{Key: status.field, Value: countStatus(status.status)})
	}

	return bson.D{{Key: "$set", Value: bson.D{{Key: "counters", Value: counters}}}}
}

func countStatus(status models.VehicleStatus) bson.D {
	return bson.D{{Key: "$size", Value: bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$vehicles", bson.A{}}}}},
		{Key: "as", Value: "v"},
		{Key: "cond", Value: bson.D{{Key: "$eq", Value: bson.A{"$$v.status", string(status)}}}},
	}}}}}
}

// literal keeps user-supplied values from being read as field paths or
// operators inside aggregation expressions.
func literal(v interface{}) bson.D {
	return bson.D{{Key: "$literal", Value: v}}
}

// selectionMatch builds an $or over (bikeId, vehicle number) pairs.
func selectionMatch(selections []models.VehicleSelection, numberField string) bson.D {
	or := make(bson.A, 0, len(selections))
	for _, s := range selections {
		or = append(or, bson.D{
			{Key: "bikeId", Value: s.BikeID},
			{Key: numberField, Value: s.VehicleNumber},
		})
	}
	return bson.D{{Key: "$or", Value: or}}
}

// Cache helpers
func (r *bikeRepository) cacheKey(bikeID string) string {
	return utils.CacheKeyBike + bikeID
}

func (r *bikeRepository) cacheBike(ctx context.Context, bike *models.Bike) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Set(ctx, r.cacheKey(bike.BikeID), bike, r.cacheTTL)
}

func (r *bikeRepository) getBikeFromCache(ctx context.Context, bikeID string) *models.Bike {
	if r.cache == nil {
		return nil
	}
	var bike models.Bike
	if err := r.cache.Get(ctx, r.cacheKey(bikeID), &bike); err != nil {
		return nil
	}
	return &bike
}

func (r *bikeRepository) invalidateBikeCache(ctx context.Context, bikeID string) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Delete(ctx, r.cacheKey(bikeID))
}
