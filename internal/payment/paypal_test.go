package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePayPal struct {
	tokenCalls  atomic.Int32
	captureCode int
	failAll     bool
}

func (f *fakePayPal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.failAll {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	switch {
	case r.URL.Path == "/v1/oauth2/token":
		f.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	case r.Header.Get("Authorization") != "Bearer tok":
		w.WriteHeader(http.StatusUnauthorized)
	case r.URL.Path == "/v2/checkout/orders":
		var body createOrderBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.PurchaseUnits) != 1 || body.PurchaseUnits[0].Amount.Value != "19.98" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"ORD-1","status":"CREATED","links":[{"href":"https://paypal.test/checkoutnow?token=ORD-1","rel":"approve"}]}`))
	case r.URL.Path == "/v2/checkout/orders/ORD-1/capture":
		if f.captureCode != 0 {
			w.WriteHeader(f.captureCode)
			_, _ = w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"ORD-1","status":"COMPLETED","purchase_units":[{"payments":{"captures":[{"id":"CAP-9","status":"COMPLETED","amount":{"currency_code":"USD","value":"19.98"}}]}}]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newPayPal(t *testing.T, f *fakePayPal) *PayPal {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewPayPal(PayPalConfig{BaseURL: srv.URL + "/", ClientID: "client", ClientSecret: "secret"}, nil)
}

func TestPayPalCreateAndCapture(t *testing.T) {
	f := &fakePayPal{}
	p := newPayPal(t, f)
	ctx := context.Background()

	order, err := p.CreateOrder(ctx, OrderRequest{Amount: decimal.RequireFromString("19.98"), Currency: "USD", ReturnURL: "http://shop/cart/checkout/return"})
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", order.ID)
	assert.Equal(t, "https://paypal.test/checkoutnow?token=ORD-1", order.ApproveURL)

	capture, err := p.CaptureOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "CAP-9", capture.CaptureID)
	assert.True(t, decimal.RequireFromString("19.98").Equal(capture.Amount))

	assert.Equal(t, int32(1), f.tokenCalls.Load(), "token is cached between calls")
}

func TestPayPalCaptureDeclined(t *testing.T) {
	p := newPayPal(t, &fakePayPal{captureCode: http.StatusUnprocessableEntity})
	_, err := p.CaptureOrder(context.Background(), "ORD-1")
	assert.ErrorIs(t, err, ErrDeclined)
}

func TestPayPalBreakerOpensAfterFailures(t *testing.T) {
	p := newPayPal(t, &fakePayPal{failAll: true})
	ctx := context.Background()
	req := OrderRequest{Amount: decimal.RequireFromString("19.98"), Currency: "USD"}
	for i := 0; i < 5; i++ {
		_, err := p.CreateOrder(ctx, req)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	_, err := p.CreateOrder(ctx, req)
	assert.ErrorIs(t, err, ErrUnavailable)
}
