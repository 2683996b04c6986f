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

const PaymentsCollection = "payments"

type paymentRepository struct {
	collection *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) interfaces.PaymentRepository {
	return &paymentRepository{
		collection: db.Collection(PaymentsCollection),
	}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	payment.ID = primitive.NewObjectID()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}
	payment.UpdatedAt = payment.CreatedAt

	_, err := r.collection.InsertOne(ctx, payment)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: payment for booking %s", interfaces.ErrDuplicate, payment.BookingID)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

func (r *paymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"paymentId": paymentID})
}

func (r *paymentRepository) GetByBookingID(ctx context.Context, bookingID string) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"bookingId": bookingID})
}

func (r *paymentRepository) findOne(ctx context.Context, filter bson.M) (*models.Payment, error) {
	var payment models.Payment
	err := r.collection.FindOne(ctx, filter).Decode(&payment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &payment, nil
}

func (r *paymentRepository) List(ctx context.Context, filter interfaces.PaymentFilter, params *utils.PaginationParams) ([]*models.Payment, int64, error) {
	query := paymentListFilter(filter)
	if search := params.GetSearchFilter([]string{"paymentId", "bookingId", "razorpayOrderId", "razorpayPaymentId"}); len(search) > 0 {
		query["$or"] = search["$or"]
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	cursor, err := r.collection.Find(ctx, query, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find payments: %w", err)
	}
	defer cursor.Close(ctx)

	payments := make([]*models.Payment, 0, params.GetLimit())
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, 0, fmt.Errorf("failed to decode payments: %w", err)
	}

	return payments, total, nil
}

func (r *paymentRepository) TransitionStatus(ctx context.Context, bookingID string, from []models.PaymentStatus, to models.PaymentStatus, update models.PaymentUpdate, at time.Time) (bool, error) {
	filter := bson.M{
		"bookingId": bookingID,
		"status":    bson.M{"$in": from},
	}

	set := bson.M{
		"status":    to,
		"updatedAt": at,
	}
	if update.GatewayPaymentID != "" {
		set["razorpayPaymentId"] = update.GatewayPaymentID
	}
	if update.PaidAmount != nil {
		set["paidAmount"] = *update.PaidAmount
	}
	if update.FailureReason != "" {
		set["failureReason"] = update.FailureReason
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to transition payment for booking %s to %s: %w", bookingID, to, err)
	}

	return result.ModifiedCount > 0, nil
}

func (r *paymentRepository) RecordSettlement(ctx context.Context, bookingID string, paid, remaining float64, at time.Time) (bool, error) {
	update := bson.M{
		"$inc": bson.M{"paidAmount": paid},
		"$set": bson.M{
			"remainingAmount": remaining,
			"updatedAt":       at,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"bookingId": bookingID}, update)
	if err != nil {
		return false, fmt.Errorf("failed to record settlement: %w", err)
	}

	return result.MatchedCount > 0, nil
}

func paymentListFilter(filter interfaces.PaymentFilter) bson.M {
	query := bson.M{}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	if filter.BookingID != "" {
		query["bookingId"] = filter.BookingID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	return query
}
