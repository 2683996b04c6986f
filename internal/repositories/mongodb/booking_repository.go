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
	"go.mongodb.org/mongo-driver/mongo/options"
)

const BookingsCollection = "bookings"

type bookingRepository struct {
	collection *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) interfaces.BookingRepository {
	return &bookingRepository{
		collection: db.Collection(BookingsCollection),
	}
}

func (r *bookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	now := time.Now()
	booking.ID = primitive.NewObjectID()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = booking.CreatedAt

	_, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: booking %s", interfaces.ErrDuplicate, booking.BookingID)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

func (r *bookingRepository) GetByBookingID(ctx context.Context, bookingID string) (*models.Booking, error) {
	var booking models.Booking
	err := r.collection.FindOne(ctx, bson.M{"bookingId": bookingID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return &booking, nil
}

func (r *bookingRepository) List(ctx context.Context, filter interfaces.BookingFilter, params *utils.PaginationParams) ([]*models.Booking, models.BookingStats, error) {
	var stats models.BookingStats

	match := bookingListFilter(filter)
	if search := params.GetSearchFilter([]string{"bookingId", "userId", "vehicles.vehicleNumber"}); len(search) > 0 {
		match["$or"] = search["$or"]
	}

	dataStages := bson.A{}
	for _, stage := range params.PageStages() {
		dataStages = append(dataStages, stage)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$facet", Value: bson.D{
			{Key: "data", Value: dataStages},
			{Key: "stats", Value: bson.A{
				bson.D{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: nil},
					{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
					{Key: "confirmed", Value: statusCount(models.BookingStatusConfirmed)},
					{Key: "completed", Value: statusCount(models.BookingStatusCompleted)},
					{Key: "totalAmount", Value: bson.D{{Key: "$sum", Value: "$pricing.totalAmount"}}},
				}}},
			}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Data  []*models.Booking     `bson:"data"`
		Stats []models.BookingStats `bson:"stats"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, stats, fmt.Errorf("failed to decode bookings: %w", err)
	}

	bookings := []*models.Booking{}
	if len(results) > 0 {
		if results[0].Data != nil {
			bookings = results[0].Data
		}
		if len(results[0].Stats) > 0 {
			stats = results[0].Stats[0]
		}
	}

	return bookings, stats, nil
}

func (r *bookingRepository) TransitionStatus(ctx context.Context, bookingID string, from []models.BookingStatus, to models.BookingStatus, change interfaces.BookingStatusChange) (bool, error) {
	filter := bson.M{
		"bookingId":     bookingID,
		"bookingStatus": bson.M{"$in": from},
	}

	set := bson.M{
		"bookingStatus": to,
		"updatedAt":     change.At,
	}
	switch to {
	case models.BookingStatusConfirmed:
		set["confirmedAt"] = change.At
	case models.BookingStatusActive:
		set["activatedAt"] = change.At
	case models.BookingStatusCompleted:
		set["completedAt"] = change.At
	case models.BookingStatusCancelled:
		set["cancelledAt"] = change.At
		if change.CancellationReason != "" {
			set["cancellationReason"] = change.CancellationReason
		}
	}
	if change.RemainingAmount != nil {
		set["pricing.remainingAmount"] = *change.RemainingAmount
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to transition booking %s to %s: %w", bookingID, to, err)
	}

	return result.ModifiedCount > 0, nil
}

func (r *bookingRepository) FindDue(ctx context.Context, filter interfaces.BookingDueFilter) ([]*models.Booking, error) {
	query := bson.M{"bookingStatus": filter.Status}
	if !filter.FromOnOrBefore.IsZero() {
		query["fromDate"] = bson.M{"$lte": filter.FromOnOrBefore}
	}
	if !filter.ToBefore.IsZero() {
		query["toDate"] = bson.M{"$lt": filter.ToBefore}
	}
	if !filter.CreatedBefore.IsZero() {
		query["createdAt"] = bson.M{"$lt": filter.CreatedBefore}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find due bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*models.Booking
	for cursor.Next(ctx) {
		var booking models.Booking
		if err := cursor.Decode(&booking); err != nil {
			return nil, fmt.Errorf("failed to decode booking: %w", err)
		}
		bookings = append(bookings, &booking)
	}

	return bookings, cursor.Err()
}

func (r *bookingRepository) CountOverlapping(ctx context.Context, selections []models.VehicleSelection, from, to time.Time, statuses []models.BookingStatus) (int64, error) {
	if len(selections) == 0 {
		return 0, nil
	}

	filter := bson.D{
		{Key: "bookingStatus", Value: bson.D{{Key: "$in", Value: statuses}}},
		{Key: "fromDate", Value: bson.D{{Key: "$lt", Value: to}}},
		{Key: "toDate", Value: bson.D{{Key: "$gt", Value: from}}},
		{Key: "vehicles", Value: bson.D{{Key: "$elemMatch", Value: selectionMatch(selections, "vehicleNumber")}}},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping bookings: %w", err)
	}

	return count, nil
}

func (r *bookingRepository) UpdateLateCharge(ctx context.Context, bookingID string, previousCharge, charge, remaining float64, at time.Time) (bool, error) {
	filter := bson.M{
		"bookingId":                bookingID,
		"pricing.lateChargeAmount": previousCharge,
		"bookingStatus":            bson.M{"$nin": []models.BookingStatus{models.BookingStatusCompleted, models.BookingStatusCancelled}},
	}
	update := bson.M{"$set": bson.M{
		"pricing.lateChargeAmount": charge,
		"pricing.remainingAmount":  remaining,
		"updatedAt":                at,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update late charge: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

func (r *bookingRepository) UpdateDetails(ctx context.Context, bookingID string, notes *string, features []string, at time.Time) (bool, error) {
	set := bson.M{"updatedAt": at}
	if notes != nil {
		set["metadata.customerNotes"] = *notes
	}
	if features != nil {
		set["features"] = features
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"bookingId": bookingID}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to update booking: %w", err)
	}

	return result.MatchedCount > 0, nil
}

func bookingListFilter(filter interfaces.BookingFilter) bson.M {
	match := bson.M{}
	if filter.UserID != "" {
		match["userId"] = filter.UserID
	}
	if filter.Status != "" {
		match["bookingStatus"] = filter.Status
	}
	switch {
	case filter.BikeID != "" && filter.VehicleNumber != "":
		// Both must hold for the same vehicle entry.
		match["vehicles"] = bson.M{"$elemMatch": bson.M{
			"bikeId":        filter.BikeID,
			"vehicleNumber": filter.VehicleNumber,
		}}
	case filter.BikeID != "":
		match["vehicles.bikeId"] = filter.BikeID
	case filter.VehicleNumber != "":
		match["vehicles.vehicleNumber"] = filter.VehicleNumber
	}
	if filter.From != nil {
		match["fromDate"] = bson.M{"$gte": *filter.From}
	}
	if filter.To != nil {
		match["toDate"] = bson.M{"$lte": *filter.To}
	}
	return match
}

func statusCount(status models.BookingStatus) bson.D {
	return bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{"$bookingStatus", string(status)}}},
		1,
		0,
	}}}}}
}
