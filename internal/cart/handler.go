package cart

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/storefront/internal/platform/httpx"
)

// Handler exposes the cart as JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type addRequest struct {
	ProductID int64 `json:"product_id"`
}

type quantityRequest struct {
	Quantity int64 `json:"quantity"`
}

// MountRoutes registers cart routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.view)
	r.Put("/", h.replace)
	r.Delete("/", h.empty)
	r.Post("/items", h.add)
	r.Put("/items/{productID}", h.setQuantity)
	r.Delete("/items/{productID}", h.remove)
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.View(r.Context())
	if err != nil {
		h.fail(w, "view cart", err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) replace(w http.ResponseWriter, r *http.Request) {
	var items []Item
	if err := httpx.DecodeJSON(r, &items); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	out, err := h.service.ReplaceAll(r.Context(), items)
	if err != nil {
		h.fail(w, "replace cart", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) empty(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Empty(r.Context(), httpx.Confirmed(r)); err != nil {
		h.fail(w, "empty cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	item, err := h.service.AddOrIncrement(r.Context(), req.ProductID)
	if err != nil {
		h.fail(w, "add to cart", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathProductID(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	items, err := h.service.SetQuantity(r.Context(), productID, req.Quantity)
	if err != nil {
		h.fail(w, "set cart quantity", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathProductID(w, r)
	if !ok {
		return
	}
	items, err := h.service.Remove(r.Context(), productID, httpx.Confirmed(r))
	if err != nil {
		h.fail(w, "remove cart item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) fail(w http.ResponseWriter, action string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(action+" failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func pathProductID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return 0, false
	}
	return id, true
}
