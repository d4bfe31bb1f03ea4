package checkout

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/storefront/internal/payment"
	"github.com/odyssey-erp/storefront/internal/platform/httpx"
)

// Handler exposes checkout as JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers checkout routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.start)
	r.Post("/{orderID}/capture", h.capture)
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Start(r.Context())
	if err != nil {
		h.fail(w, "start checkout", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, session)
}

func (h *Handler) capture(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.service.Approve(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.fail(w, "capture checkout", err)
		return
	}
	httpx.JSON(w, http.StatusOK, receipt)
}

func (h *Handler) fail(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, payment.ErrDeclined):
		httpx.Problem(w, http.StatusPaymentRequired, "Payment Declined", err.Error())
	case errors.Is(err, payment.ErrUnavailable):
		h.logger.Warn(action+" failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Payment Unavailable", "payment provider unavailable")
	default:
		if httpx.StatusFor(err) == http.StatusInternalServerError {
			h.logger.Error(action+" failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
