package payment

import (
	"context"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/odyssey-erp/storefront/internal/shared"
)

type sandboxOrder struct {
	req      OrderRequest
	captured bool
}

// Sandbox is an in-process gateway that approves every order. The approve URL points
// straight back at the return URL, the way the provider redirects after approval.
type Sandbox struct {
	mu     sync.Mutex
	orders map[string]*sandboxOrder
}

var _ Gateway = (*Sandbox)(nil)

// NewSandbox builds an empty sandbox gateway.
func NewSandbox() *Sandbox {
	return &Sandbox{orders: make(map[string]*sandboxOrder)}
}

// CreateOrder registers an order and returns its approval link.
func (s *Sandbox) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.orders[id] = &sandboxOrder{req: req}
	s.mu.Unlock()
	return Order{ID: id, Status: "CREATED", ApproveURL: withToken(req.ReturnURL, id)}, nil
}

// CaptureOrder settles a created order. Capturing twice is a conflict.
func (s *Sandbox) CaptureOrder(ctx context.Context, orderID string) (Capture, error) {
	if err := ctx.Err(); err != nil {
		return Capture{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return Capture{}, shared.ErrNotFound
	}
	if o.captured {
		return Capture{}, shared.ErrConflict
	}
	o.captured = true
	return Capture{
		OrderID:   orderID,
		CaptureID: uuid.NewString(),
		Status:    "COMPLETED",
		Amount:    o.req.Amount,
		Currency:  o.req.Currency,
	}, nil
}

func withToken(returnURL, orderID string) string {
	u, err := url.Parse(returnURL)
	if err != nil || returnURL == "" {
		return "?token=" + url.QueryEscape(orderID)
	}
	q := u.Query()
	q.Set("token", orderID)
	u.RawQuery = q.Encode()
	return u.String()
}
