package device

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/storefront/internal/platform/httpx"
)

const heartbeatInterval = 15 * time.Second

// Handler exposes the signals as JSON and as a server-sent event stream.
type Handler struct {
	logger     *slog.Logger
	env        Environment
	probe      *ConnectivityProbe
	gyro       *Gyroscope
	flashlight *Flashlight
}

// NewHandler constructs a Handler. probe may be nil.
func NewHandler(logger *slog.Logger, env Environment, probe *ConnectivityProbe, gyro *Gyroscope, flashlight *Flashlight) *Handler {
	return &Handler{logger: logger, env: env, probe: probe, gyro: gyro, flashlight: flashlight}
}

// MountRoutes registers the request/response routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/connectivity", h.connectivity)
	r.Get("/orientation", h.orientation)
	r.Post("/orientation", h.recordOrientation)
	r.Get("/permission", h.permission)
	r.Post("/permission", h.requestPermission)
	r.Get("/flashlight", h.flashlightState)
	r.Post("/flashlight/toggle", h.toggleFlashlight)
}

// MountStream registers the event stream. It lives outside the request timeout.
func (h *Handler) MountStream(r chi.Router) {
	r.Get("/events", h.events)
}

type orientationResponse struct {
	Orientation Orientation `json:"orientation"`
	Permission  Permission  `json:"permission"`
	Filter      Filter      `json:"filter"`
	CSS         string      `json:"css"`
}

func (h *Handler) connectivity(w http.ResponseWriter, r *http.Request) {
	online := h.env.Online()
	if h.probe != nil && r.URL.Query().Get("refresh") != "" {
		online = h.probe.Check(r.Context())
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"online": online})
}

func (h *Handler) orientation(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.orientationState())
}

func (h *Handler) orientationState() orientationResponse {
	o := h.env.Orientation()
	f := ImageFilter(o)
	return orientationResponse{Orientation: o, Permission: h.gyro.Permission(), Filter: f, CSS: f.CSS()}
}

func (h *Handler) recordOrientation(w http.ResponseWriter, r *http.Request) {
	var reading Reading
	if err := httpx.DecodeJSON(r, &reading); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if _, err := h.gyro.Record(reading); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.orientationState())
}

func (h *Handler) permission(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]Permission{"permission": h.gyro.Permission()})
}

func (h *Handler) requestPermission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answer string `json:"answer"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]Permission{"permission": h.gyro.RequestPermission(req.Answer)})
}

func (h *Handler) flashlightState(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]bool{"on": h.flashlight.On()})
}

func (h *Handler) toggleFlashlight(w http.ResponseWriter, r *http.Request) {
	on, err := h.flashlight.Toggle(r.Context())
	if err != nil {
		h.logger.Error("toggle flashlight", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"on": on})
}

// events streams signal changes until the client disconnects. Subscriptions are taken
// on connect and dropped on disconnect.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "streaming unsupported")
		return
	}
	// The stream outlives the server's write timeout. Wrappers that hide the deadline
	// just make the client reconnect.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	ch := make(chan Event, 16)
	send := func(ev Event) {
		select {
		case ch <- ev:
		default:
		}
	}
	for _, topic := range []string{TopicConnectivity, TopicOrientation} {
		unsubscribe, err := h.env.Subscribe(topic, send)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		defer unsubscribe()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	now := time.Now().UTC()
	_ = writeEvent(w, Event{Topic: TopicConnectivity, Online: h.env.Online(), At: now})
	_ = writeEvent(w, Event{Topic: TopicOrientation, Online: h.env.Online(), Orientation: h.env.Orientation(), At: now})
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if err := writeEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Topic, data)
	return err
}
