package payment

import (
	"context"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/storefront/internal/shared"
)

func TestSandboxApprovesOnce(t *testing.T) {
	ctx := context.Background()
	s := NewSandbox()
	order, err := s.CreateOrder(ctx, OrderRequest{Amount: decimal.RequireFromString("5.00"), Currency: "EUR", ReturnURL: "http://shop/cart/checkout/return"})
	require.NoError(t, err)

	u, err := url.Parse(order.ApproveURL)
	require.NoError(t, err)
	assert.Equal(t, order.ID, u.Query().Get("token"))

	c, err := s.CaptureOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", c.Status)
	assert.Equal(t, "EUR", c.Currency)

	_, err = s.CaptureOrder(ctx, order.ID)
	assert.ErrorIs(t, err, shared.ErrConflict)
	_, err = s.CaptureOrder(ctx, "nope")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
