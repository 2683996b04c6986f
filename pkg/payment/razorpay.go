package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/razorpay/razorpay-go"
)

type RazorpayGateway struct {
	client    *razorpay.Client
	keyID     string
	keySecret string
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{
		client:    razorpay.NewClient(keyID, keySecret),
		keyID:     keyID,
		keySecret: keySecret,
	}
}

func (r *RazorpayGateway) KeyID() string {
	return r.keyID
}

// CreateOrder creates an order with deferred capture.
func (r *RazorpayGateway) CreateOrder(ctx context.Context, request *OrderRequest) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	notes := make(map[string]interface{}, len(request.Notes))
	for k, v := range request.Notes {
		notes[k] = v
	}

	orderData := map[string]interface{}{
		"amount":          request.Amount,
		"currency":        request.Currency,
		"receipt":         request.Receipt,
		"payment_capture": 0,
		"notes":           notes,
	}

	order, err := r.client.Order.Create(orderData, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	orderID := stringField(order, "id")
	if orderID == "" {
		return nil, fmt.Errorf("order response without id: %w", ErrInvalidGatewayResponse)
	}

	return &Order{
		OrderID:  orderID,
		Amount:   request.Amount,
		Currency: request.Currency,
		Receipt:  request.Receipt,
		Status:   stringField(order, "status"),
	}, nil
}

func (r *RazorpayGateway) CapturePayment(ctx context.Context, paymentID string, amount int64, currency string) (*Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payment, err := r.client.Payment.Capture(paymentID, int(amount), map[string]interface{}{
		"currency": currency,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to capture payment %s: %w", paymentID, err)
	}

	return &Capture{
		PaymentID: paymentID,
		Amount:    amount,
		Currency:  currency,
		Status:    stringField(payment, "status"),
	}, nil
}

func (r *RazorpayGateway) RefundPayment(ctx context.Context, request *RefundRequest) (*Refund, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	refundData := map[string]interface{}{
		"notes": map[string]interface{}{
			"reason": request.Reason,
		},
	}

	refund, err := r.client.Payment.Refund(request.PaymentID, int(request.Amount), refundData, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to refund payment %s: %w", request.PaymentID, err)
	}

	return &Refund{
		RefundID: stringField(refund, "id"),
		Amount:   request.Amount,
		Status:   stringField(refund, "status"),
	}, nil
}

// VerifyPaymentSignature checks the checkout signature, an HMAC-SHA256 of
// "orderID|paymentID" keyed with the API secret.
func (r *RazorpayGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return VerifySignature(r.keySecret, orderID, paymentID, signature)
}

func VerifySignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	expected := Sign(secret, orderID, paymentID)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// Sign returns the hex signature the gateway issues for orderID and paymentID.
func Sign(secret, orderID, paymentID string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(h.Sum(nil))
}

func stringField(body map[string]interface{}, key string) string {
	if value, ok := body[key].(string); ok {
		return value
	}
	return ""
}
