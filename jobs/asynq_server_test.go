package jobs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientEnqueuesReceiptOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	opts := asynq.RedisClientOpt{Addr: mr.Addr()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient(opts, logger)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	require.NoError(t, client.EnqueueCheckoutReceipt(ctx, samplePayload()))
	require.NoError(t, client.EnqueueCheckoutReceipt(ctx, samplePayload()))

	pending, err := mr.List("asynq:{" + QueueDefault + "}:pending")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, slog.Default()).MountRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}

func TestNewWorkerNeedsHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}})
	assert.Error(t, err)

	w, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Handlers: []TaskHandler{
			{Type: TaskCheckoutReceipt, Handler: func(context.Context, *asynq.Task) error { return nil }},
		},
	})
	require.NoError(t, err)
	assert.NotNil(t, w)
}
