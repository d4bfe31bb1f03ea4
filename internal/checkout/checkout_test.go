package checkout_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/storefront/internal/cart"
	"github.com/odyssey-erp/storefront/internal/catalog"
	"github.com/odyssey-erp/storefront/internal/checkout"
	"github.com/odyssey-erp/storefront/internal/payment"
	"github.com/odyssey-erp/storefront/internal/platform/kv"
	"github.com/odyssey-erp/storefront/internal/shared"
	"github.com/odyssey-erp/storefront/internal/storage/blob"
	"github.com/odyssey-erp/storefront/jobs"
)

func TestTotal(t *testing.T) {
	products := []catalog.Product{{ID: 1, Price: decimal.RequireFromString("9.99")}}

	total := checkout.Total([]cart.Item{{ProductID: 1, Quantity: 2}}, products)
	assert.True(t, decimal.RequireFromString("19.98").Equal(total), total.String())

	total = checkout.Total([]cart.Item{{ProductID: 1, Quantity: 2}, {ProductID: 42, Quantity: 5}}, products)
	assert.True(t, decimal.RequireFromString("19.98").Equal(total), total.String())

	assert.True(t, checkout.Total(nil, products).IsZero())
}

type recorder struct {
	completed []string
	failed    []string
}

func (r *recorder) CheckoutCompleted(currency string, amount decimal.Decimal) {
	r.completed = append(r.completed, amount.StringFixed(2)+" "+currency)
}

func (r *recorder) CheckoutFailed(stage string) { r.failed = append(r.failed, stage) }

type enqueuer struct {
	payloads []jobs.CheckoutReceiptPayload
	err      error
}

func (e *enqueuer) EnqueueCheckoutReceipt(_ context.Context, p jobs.CheckoutReceiptPayload) error {
	e.payloads = append(e.payloads, p)
	return e.err
}

type decliningGateway struct{ *payment.Sandbox }

func (decliningGateway) CaptureOrder(context.Context, string) (payment.Capture, error) {
	return payment.Capture{}, payment.ErrDeclined
}

type env struct {
	carts    *cart.Service
	service  *checkout.Service
	recorder *recorder
	enqueuer *enqueuer
}

func newEnv(t *testing.T, gateway payment.Gateway) env {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := kv.NewMemory()
	products := catalog.NewService(blob.NewProducts(store), logger)
	qty := int64(5)
	_, err := products.Create(ctx, catalog.ProductInput{Name: "Red Shirt", Price: decimal.RequireFromString("9.99"), Quantity: &qty})
	require.NoError(t, err)
	carts := cart.NewService(blob.NewCart(store), products, logger)
	rec, enq := &recorder{}, &enqueuer{}
	svc := checkout.NewService(checkout.Config{Currency: "USD", ReturnURL: "http://shop.test/cart/checkout/return"}, carts, gateway, logger,
		checkout.WithRecorder(rec), checkout.WithEnqueuer(enq))
	return env{carts: carts, service: svc, recorder: rec, enqueuer: enq}
}

func TestStartRefusesEmptyCart(t *testing.T) {
	e := newEnv(t, payment.NewSandbox())
	_, err := e.service.Start(context.Background())
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCheckoutCapturesThenClears(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, payment.NewSandbox())
	for i := 0; i < 2; i++ {
		_, err := e.carts.AddOrIncrement(ctx, 1)
		require.NoError(t, err)
	}

	session, err := e.service.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "19.98", session.Total.StringFixed(2))
	assert.Contains(t, session.ApproveURL, "token="+session.OrderID)

	receipt, err := e.service.Approve(ctx, session.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "19.98", receipt.Amount.StringFixed(2))
	require.Len(t, receipt.Lines, 1)

	items, err := e.carts.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.Equal(t, []string{"19.98 USD"}, e.recorder.completed)
	require.Len(t, e.enqueuer.payloads, 1)
	assert.Equal(t, session.OrderID, e.enqueuer.payloads[0].OrderID)
	assert.Equal(t, "Red Shirt", e.enqueuer.payloads[0].Lines[0].Name)
}

func TestDeclinedCaptureKeepsCart(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, decliningGateway{payment.NewSandbox()})
	_, err := e.carts.AddOrIncrement(ctx, 1)
	require.NoError(t, err)

	session, err := e.service.Start(ctx)
	require.NoError(t, err)
	_, err = e.service.Approve(ctx, session.OrderID)
	assert.True(t, checkout.IsDeclined(err))

	items, err := e.carts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, []string{"capture"}, e.recorder.failed)
	assert.Empty(t, e.enqueuer.payloads)
}

func TestEnqueueFailureDoesNotFailCheckout(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, payment.NewSandbox())
	e.enqueuer.err = errors.New("redis down")
	_, err := e.carts.AddOrIncrement(ctx, 1)
	require.NoError(t, err)

	session, err := e.service.Start(ctx)
	require.NoError(t, err)
	_, err = e.service.Approve(ctx, session.OrderID)
	assert.NoError(t, err)
}

func TestHandler(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, payment.NewSandbox())
	r := chi.NewRouter()
	checkout.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), e.service).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	_, err := e.carts.AddOrIncrement(ctx, 1)
	require.NoError(t, err)
	session, err := e.service.Start(ctx)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/"+session.OrderID+"/capture", nil))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/"+session.OrderID+"/capture", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
