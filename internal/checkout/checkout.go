// Package checkout turns the cart into a paid order through the payment gateway.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/storefront/internal/cart"
	"github.com/odyssey-erp/storefront/internal/catalog"
	"github.com/odyssey-erp/storefront/internal/payment"
	"github.com/odyssey-erp/storefront/internal/shared"
	"github.com/odyssey-erp/storefront/jobs"
)

// Total sums price times quantity over items whose product exists. Items pointing at
// a missing product contribute nothing.
func Total(items []cart.Item, products []catalog.Product) decimal.Decimal {
	return cart.BuildView(items, products).Total
}

// CartService is the part of the cart the checkout needs.
type CartService interface {
	View(ctx context.Context) (cart.View, error)
	Clear(ctx context.Context) error
}

// Recorder receives checkout outcomes for metrics.
type Recorder interface {
	CheckoutCompleted(currency string, amount decimal.Decimal)
	CheckoutFailed(stage string)
}

// Enqueuer hands the receipt to the background worker.
type Enqueuer interface {
	EnqueueCheckoutReceipt(ctx context.Context, payload jobs.CheckoutReceiptPayload) error
}

// Config holds checkout settings.
type Config struct {
	Currency  string
	ReturnURL string
	CancelURL string
}

// Session is a started checkout awaiting buyer approval.
type Session struct {
	OrderID    string          `json:"order_id"`
	ApproveURL string          `json:"approve_url"`
	Total      decimal.Decimal `json:"total"`
	Currency   string          `json:"currency"`
}

// Receipt describes a captured checkout.
type Receipt struct {
	OrderID   string          `json:"order_id"`
	CaptureID string          `json:"capture_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Lines     []cart.Line     `json:"lines"`
}

// Service runs the checkout flow.
type Service struct {
	cfg      Config
	cart     CartService
	gateway  payment.Gateway
	recorder Recorder
	enqueuer Enqueuer
	logger   *slog.Logger
}

// Option customises Service.
type Option func(*Service)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithEnqueuer attaches the receipt job client.
func WithEnqueuer(e Enqueuer) Option {
	return func(s *Service) { s.enqueuer = e }
}

// NewService builds Service.
func NewService(cfg Config, carts CartService, gateway payment.Gateway, logger *slog.Logger, opts ...Option) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{cfg: cfg, cart: carts, gateway: gateway, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates a gateway order for the current cart total.
func (s *Service) Start(ctx context.Context) (Session, error) {
	view, err := s.cart.View(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("checkout: load cart: %w", err)
	}
	if len(view.Lines) == 0 || !view.Total.IsPositive() {
		return Session{}, shared.NewValidationError("cart", "is empty")
	}
	order, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		Amount:    view.Total,
		Currency:  s.cfg.Currency,
		ReturnURL: s.cfg.ReturnURL,
		CancelURL: s.cfg.CancelURL,
	})
	if err != nil {
		s.failed("create")
		return Session{}, fmt.Errorf("checkout: create order: %w", err)
	}
	s.logger.Info("checkout started", slog.String("order_id", order.ID), slog.String("total", view.Total.StringFixed(2)))
	return Session{OrderID: order.ID, ApproveURL: order.ApproveURL, Total: view.Total, Currency: s.cfg.Currency}, nil
}

// Approve captures an approved order, then empties the cart and queues the receipt.
// The cart is only cleared after the capture succeeded.
func (s *Service) Approve(ctx context.Context, orderID string) (Receipt, error) {
	if orderID == "" {
		return Receipt{}, shared.NewValidationError("order_id", "is required")
	}
	view, err := s.cart.View(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("checkout: load cart: %w", err)
	}
	capture, err := s.gateway.CaptureOrder(ctx, orderID)
	if err != nil {
		s.failed("capture")
		return Receipt{}, fmt.Errorf("checkout: capture %s: %w", orderID, err)
	}
	receipt := Receipt{
		OrderID:   orderID,
		CaptureID: capture.CaptureID,
		Amount:    capture.Amount,
		Currency:  capture.Currency,
		Lines:     view.Lines,
	}
	if receipt.Currency == "" {
		receipt.Currency = s.cfg.Currency
	}
	if err := s.cart.Clear(ctx); err != nil {
		s.failed("clear")
		return receipt, fmt.Errorf("checkout: clear cart after capture %s: %w", orderID, err)
	}
	if s.recorder != nil {
		s.recorder.CheckoutCompleted(receipt.Currency, receipt.Amount)
	}
	s.logger.Info("checkout captured", slog.String("order_id", orderID), slog.String("capture_id", capture.CaptureID))

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueCheckoutReceipt(ctx, receiptPayload(receipt)); err != nil {
			s.logger.Warn("enqueue checkout receipt", slog.String("order_id", orderID), slog.Any("error", err))
		}
	}
	return receipt, nil
}

func (s *Service) failed(stage string) {
	if s.recorder != nil {
		s.recorder.CheckoutFailed(stage)
	}
}

func receiptPayload(r Receipt) jobs.CheckoutReceiptPayload {
	p := jobs.CheckoutReceiptPayload{
		OrderID:    r.OrderID,
		CaptureID:  r.CaptureID,
		Amount:     r.Amount.StringFixed(2),
		Currency:   r.Currency,
		CapturedAt: time.Now().UTC(),
	}
	for _, l := range r.Lines {
		p.Lines = append(p.Lines, jobs.ReceiptLine{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal.StringFixed(2),
		})
	}
	return p
}

// IsDeclined reports whether err is a provider decline.
func IsDeclined(err error) bool {
	return errors.Is(err, payment.ErrDeclined)
}
