package payment

import (
	"context"
	"errors"
)

var ErrInvalidGatewayResponse = errors.New("invalid gateway response")

// Gateway is the external payment provider used for booking settlement.
// All amounts are in minor currency units.
type Gateway interface {
	CreateOrder(ctx context.Context, request *OrderRequest) (*Order, error)
	CapturePayment(ctx context.Context, paymentID string, amount int64, currency string) (*Capture, error)
	RefundPayment(ctx context.Context, request *RefundRequest) (*Refund, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	KeyID() string
}

type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type Order struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type Capture struct {
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
}

type RefundRequest struct {
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
}

type Refund struct {
	RefundID string `json:"refund_id"`
	Amount   int64  `json:"amount"`
	Status   string `json:"status"`
}
