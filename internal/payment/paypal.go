package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

// PayPalConfig configures the REST client.
type PayPalConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// PayPal implements Gateway on the Orders v2 REST API. Calls go through a circuit
// breaker and are never retried: a failed create or capture surfaces to the caller.
type PayPal struct {
	cfg        PayPalConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *slog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

var _ Gateway = (*PayPal)(nil)

// NewPayPal constructs the client.
func NewPayPal(cfg PayPalConfig, logger *slog.Logger) *PayPal {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &PayPal{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "paypal",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				var se *statusError
				// 4xx responses do not count against the provider.
				return err == nil || (errors.As(err, &se) && se.code < 500)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("payment breaker state changed", slog.String("name", name), slog.String("from", from.String()), slog.String("to", to.String()))
			},
		}),
	}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("paypal returned status %d: %s", e.code, e.body)
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type createOrderBody struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
	Context       *appContext    `json:"application_context,omitempty"`
}

type purchaseUnit struct {
	Amount   amount `json:"amount"`
	Payments *struct {
		Captures []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Amount amount `json:"amount"`
		} `json:"captures"`
	} `json:"payments,omitempty"`
}

type appContext struct {
	ReturnURL string `json:"return_url,omitempty"`
	CancelURL string `json:"cancel_url,omitempty"`
}

type orderResponse struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Links         []link         `json:"links"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

// CreateOrder creates a CAPTURE-intent order for the amount.
func (p *PayPal) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	body := createOrderBody{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount: amount{CurrencyCode: req.Currency, Value: req.Amount.StringFixed(2)},
		}},
	}
	if req.ReturnURL != "" || req.CancelURL != "" {
		body.Context = &appContext{ReturnURL: req.ReturnURL, CancelURL: req.CancelURL}
	}
	var resp orderResponse
	if err := p.call(ctx, http.MethodPost, "/v2/checkout/orders", body, &resp); err != nil {
		return Order{}, fmt.Errorf("payment: create order: %w", err)
	}
	order := Order{ID: resp.ID, Status: resp.Status}
	for _, l := range resp.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			order.ApproveURL = l.Href
			break
		}
	}
	return order, nil
}

// CaptureOrder captures an approved order. Anything other than COMPLETED is a decline.
func (p *PayPal) CaptureOrder(ctx context.Context, orderID string) (Capture, error) {
	var resp orderResponse
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := p.call(ctx, http.MethodPost, path, struct{}{}, &resp); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusUnprocessableEntity {
			return Capture{}, fmt.Errorf("%w: %s", ErrDeclined, se.body)
		}
		return Capture{}, fmt.Errorf("payment: capture order %s: %w", orderID, err)
	}
	if resp.Status != "COMPLETED" {
		return Capture{}, fmt.Errorf("%w: order %s status %s", ErrDeclined, orderID, resp.Status)
	}
	c := Capture{OrderID: resp.ID, Status: resp.Status}
	for _, pu := range resp.PurchaseUnits {
		if pu.Payments == nil || len(pu.Payments.Captures) == 0 {
			continue
		}
		first := pu.Payments.Captures[0]
		c.CaptureID = first.ID
		c.Currency = first.Amount.CurrencyCode
		if v, err := decimal.NewFromString(first.Amount.Value); err == nil {
			c.Amount = v
		}
		break
	}
	return c, nil
}

func (p *PayPal) call(ctx context.Context, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	raw, err := p.breaker.Execute(func() ([]byte, error) {
		token, err := p.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		return p.do(req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (p *PayPal) accessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" && time.Now().Before(p.tokenExpiry) {
		return p.token, nil
	}
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	raw, err := p.do(req)
	if err != nil {
		return "", fmt.Errorf("oauth token: %w", err)
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &tok); err != nil {
		return "", fmt.Errorf("oauth token: %w", err)
	}
	p.token = tok.AccessToken
	// Refresh a minute early so an in-flight call never carries an expired token.
	p.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return p.token, nil
}

func (p *PayPal) do(req *http.Request) ([]byte, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(raw))}
	}
	return raw, nil
}
