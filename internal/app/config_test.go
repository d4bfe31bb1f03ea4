package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, BackendBolt, cfg.StoreBackend)
	assert.Equal(t, PaymentSandbox, cfg.PaymentProvider)
	assert.Equal(t, "USD", cfg.PaymentCurrency)
	assert.Equal(t, "storefront:", cfg.RedisPrefix)
	assert.Equal(t, 500*time.Millisecond, cfg.RedirectDelay)
	assert.Equal(t, 5*time.Second, cfg.ProbeInterval)
	assert.Equal(t, 2, cfg.ProbeFailureThreshold)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "http://localhost:8080/cart/checkout/return", cfg.CheckoutReturnURL())
}

func TestLoadConfigNormalises(t *testing.T) {
	t.Setenv("STORE_BACKEND", " Memory ")
	t.Setenv("PAYMENT_CURRENCY", "eur")
	t.Setenv("PUBLIC_URL", "https://shop.example.com/")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "EUR", cfg.PaymentCurrency)
	assert.Equal(t, "https://shop.example.com/cart?notice=cancelled", cfg.CheckoutCancelURL())
}

func TestLoadConfigRejectsInconsistentSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown backend":         {"STORE_BACKEND": "sqlite"},
		"postgres without dsn":    {"STORE_BACKEND": "postgres", "PG_DSN": ""},
		"paypal without secrets":  {"PAYMENT_PROVIDER": "paypal"},
		"unknown provider":        {"PAYMENT_PROVIDER": "cash"},
		"bad currency":            {"PAYMENT_CURRENCY": "dollars"},
		"jobs without redis":      {"JOBS_ENABLED": "true", "REDIS_ADDR": ""},
		"zero failure threshold":  {"PROBE_FAILURE_THRESHOLD": "0"},
		"relative public url":     {"PUBLIC_URL": "shop"},
		"unparseable redirect":    {"REDIRECT_DELAY": "soon"},
		"negative redirect delay": {"REDIRECT_DELAY": "-1s"},
		"pdf without receipt dir": {"GOTENBERG_URL": "http://gotenberg:3000"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestPayPalWithCredentials(t *testing.T) {
	t.Setenv("PAYMENT_PROVIDER", "PayPal")
	t.Setenv("PAYPAL_CLIENT_ID", "id")
	t.Setenv("PAYPAL_SECRET", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, PaymentPayPal, cfg.PaymentProvider)
}

func TestTestModeFlag(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
