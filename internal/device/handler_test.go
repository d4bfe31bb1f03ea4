package device

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeviceRouter(h *Hub, requirePermission bool) http.Handler {
	r := chi.NewRouter()
	handler := NewHandler(quietLogger(), h, nil, NewGyroscope(h, requirePermission), NewFlashlight(&VirtualTorch{}))
	handler.MountRoutes(r)
	handler.MountStream(r)
	return r
}

func request(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestDeviceHandlerOrientationFlow(t *testing.T) {
	r := newDeviceRouter(NewHub(), true)

	rec := request(r, http.MethodPost, "/orientation", `{"beta":10}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = request(r, http.MethodPost, "/permission", `{"answer":"granted"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"permission":"granted"}`, rec.Body.String())

	rec = request(r, http.MethodPost, "/orientation", `{"beta":10,"gamma":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp orientationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, Orientation{Beta: 10}, resp.Orientation)
	assert.InDelta(t, 1.1, resp.Filter.Brightness, 1e-9)
	assert.Contains(t, resp.CSS, "brightness(1.1)")
}

func TestDeviceHandlerFlashlightAndConnectivity(t *testing.T) {
	hub := NewHub()
	r := newDeviceRouter(hub, false)

	assert.JSONEq(t, `{"on":false}`, request(r, http.MethodGet, "/flashlight", "").Body.String())
	assert.JSONEq(t, `{"on":true}`, request(r, http.MethodPost, "/flashlight/toggle", "").Body.String())
	assert.JSONEq(t, `{"on":true}`, request(r, http.MethodGet, "/flashlight", "").Body.String())

	hub.SetOnline(false)
	assert.JSONEq(t, `{"online":false}`, request(r, http.MethodGet, "/connectivity", "").Body.String())
}

func TestEventStreamSubscribesForConnectionLifetime(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(newDeviceRouter(hub, false))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		var name string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			if strings.HasPrefix(line, "event: ") {
				name = strings.TrimPrefix(line, "event: ")
			}
			if line == "" && name != "" {
				return name
			}
		}
	}
	assert.Equal(t, TopicConnectivity, readEvent())
	assert.Equal(t, TopicOrientation, readEvent())
	assert.Equal(t, 1, hub.Subscribers(TopicConnectivity))

	hub.SetOnline(false)
	assert.Equal(t, TopicConnectivity, readEvent())

	cancel()
	assert.Eventually(t, func() bool {
		return hub.Subscribers(TopicConnectivity) == 0 && hub.Subscribers(TopicOrientation) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
