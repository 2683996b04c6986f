package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}

// Payment is the single payment record of a booking.
type Payment struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PaymentID        string             `json:"paymentId" bson:"paymentId"`
	BookingID        string             `json:"bookingId" bson:"bookingId"`
	UserID           string             `json:"userId" bson:"userId"`
	PaidAmount       float64            `json:"paidAmount" bson:"paidAmount"`
	TotalAmount      float64            `json:"totalAmount" bson:"totalAmount"`
	AdvanceAmount    float64            `json:"advanceAmount" bson:"advanceAmount"`
	RemainingAmount  float64            `json:"remainingAmount" bson:"remainingAmount"`
	Currency         string             `json:"currency" bson:"currency"`
	Receipt          string             `json:"receipt" bson:"receipt"`
	GatewayOrderID   string             `json:"gatewayOrderId,omitempty" bson:"razorpayOrderId,omitempty"`
	GatewayPaymentID string             `json:"gatewayPaymentId,omitempty" bson:"razorpayPaymentId,omitempty"`
	Status           PaymentStatus      `json:"status" bson:"status"`
	FailureReason    string             `json:"failureReason,omitempty" bson:"failureReason,omitempty"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// PaymentUpdate carries the optional fields written with a status change.
type PaymentUpdate struct {
	GatewayPaymentID string
	PaidAmount       *float64
	FailureReason    string
}
