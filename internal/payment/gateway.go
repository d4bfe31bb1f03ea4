// Package payment talks to the hosted checkout provider.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrDeclined is returned when the provider refuses to capture an approved order.
var ErrDeclined = errors.New("payment: capture declined")

// ErrUnavailable is returned while the provider is failing and calls are short-circuited.
var ErrUnavailable = errors.New("payment: provider unavailable")

// OrderRequest describes the order to create for a checkout.
type OrderRequest struct {
	Amount    decimal.Decimal
	Currency  string
	ReturnURL string
	CancelURL string
}

// Order is a provider order awaiting buyer approval.
type Order struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	ApproveURL string `json:"approve_url"`
}

// Capture is the settled result of an approved order.
type Capture struct {
	OrderID   string          `json:"order_id"`
	CaptureID string          `json:"capture_id"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// Gateway creates and captures orders with a payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	CaptureOrder(ctx context.Context, orderID string) (Capture, error)
}
