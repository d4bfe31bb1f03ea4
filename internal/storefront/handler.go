// Package storefront serves the HTML screens: the product list with search and sort,
// product forms, the cart with checkout, and the flashlight demo.
package storefront

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/storefront/internal/cart"
	"github.com/odyssey-erp/storefront/internal/catalog"
	"github.com/odyssey-erp/storefront/internal/checkout"
	"github.com/odyssey-erp/storefront/internal/device"
	"github.com/odyssey-erp/storefront/internal/payment"
	"github.com/odyssey-erp/storefront/internal/platform/httpx"
	"github.com/odyssey-erp/storefront/internal/view"
)

// Renderer executes page templates.
type Renderer interface {
	RenderStatus(w http.ResponseWriter, status int, name string, data view.TemplateData) error
}

// Deps groups the handler's collaborators.
type Deps struct {
	Logger     *slog.Logger
	Views      Renderer
	Catalog    *catalog.Service
	Cart       *cart.Service
	Checkout   *checkout.Service
	Env        device.Environment
	Flashlight *device.Flashlight
	// RedirectDelay is how long the saved page waits before returning to the list.
	RedirectDelay time.Duration
}

// Handler serves the storefront screens.
type Handler struct {
	Deps
}

// NewHandler constructs a Handler.
func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Handler{Deps: deps}
}

// notices are the flash messages a redirect can ask for with ?notice=.
var notices = map[string]view.Flash{
	"added":     {Kind: "success", Message: "Added to cart."},
	"deleted":   {Kind: "success", Message: "Product deleted."},
	"updated":   {Kind: "success", Message: "Cart updated."},
	"removed":   {Kind: "success", Message: "Item removed from cart."},
	"emptied":   {Kind: "success", Message: "Cart emptied."},
	"paid":      {Kind: "success", Message: "Payment received. Thank you for your order!"},
	"cancelled": {Kind: "info", Message: "Checkout cancelled. Your cart is unchanged."},
}

const offlineMessage = "The storefront is offline. Changes are disabled until the connection is back."

// MountRoutes registers the storefront screens.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/products", http.StatusFound)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireOnline)

		r.Get("/products", h.listProducts)
		r.Get("/products/new", h.newProduct)
		r.Post("/products", h.createProduct)
		r.Get("/products/{id}/edit", h.editProduct)
		r.Post("/products/{id}", h.updateProduct)
		r.Get("/products/{id}/delete", h.confirmDelete)
		r.Post("/products/{id}/delete", h.deleteProduct)
		r.Post("/products/{id}/cart", h.addToCart)

		r.Get("/cart", h.showCart)
		r.Post("/cart/items/{pid}", h.setQuantity)
		r.Post("/cart/items/{pid}/delete", h.removeItem)
		r.Post("/cart/empty", h.emptyCart)
		r.Post("/cart/checkout", h.startCheckout)
		r.Get("/cart/checkout/return", h.checkoutReturn)
	})

	r.Get("/flashlight", h.showFlashlight)
	r.Post("/flashlight/toggle", h.toggleFlashlight)
}

// requireOnline refuses mutations with the offline banner while the backend is unreachable.
func (h *Handler) requireOnline(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead && !h.online() {
			h.render(w, r, http.StatusServiceUnavailable, "pages/error.html", "Offline",
				&view.Flash{Kind: "error", Message: offlineMessage}, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) online() bool {
	return h.Env == nil || h.Env.Online()
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, flash *view.Flash, data any) {
	h.renderPage(w, r, status, name, view.TemplateData{Title: title, Flash: flash, Data: data})
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, td view.TemplateData) {
	td.CurrentPath = r.URL.Path
	td.Online = h.online()
	if td.Flash == nil {
		if n, ok := notices[r.URL.Query().Get("notice")]; ok {
			td.Flash = &n
		}
	}
	if h.Cart != nil {
		// A broken cart must not take every page down with it.
		if items, err := h.Cart.List(r.Context()); err == nil {
			for _, it := range items {
				td.CartCount += it.Quantity
			}
		}
	}
	if err := h.Views.RenderStatus(w, status, name, td); err != nil {
		h.Logger.Error("render page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// fail renders err as a notice on the error page with the status its kind maps to.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	status, msg := describe(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error(action+" failed", slog.Any("error", err))
	}
	h.render(w, r, status, "pages/error.html", http.StatusText(status), &view.Flash{Kind: "error", Message: msg}, nil)
}

func describe(err error) (int, string) {
	switch {
	case errors.Is(err, payment.ErrDeclined):
		return http.StatusPaymentRequired, "The payment was declined. Your cart is unchanged."
	case errors.Is(err, payment.ErrUnavailable):
		return http.StatusServiceUnavailable, "The payment provider is unavailable. Please try again shortly."
	}
	status := httpx.StatusFor(err)
	switch status {
	case http.StatusNotFound:
		return status, "That item no longer exists."
	case http.StatusConflict:
		return status, "Someone else changed this item. Reload and try again."
	case http.StatusUnprocessableEntity:
		return status, "Please check the highlighted fields."
	case http.StatusServiceUnavailable:
		return status, offlineMessage
	case http.StatusPreconditionRequired:
		return status, "Please confirm first."
	}
	return http.StatusInternalServerError, "Something went wrong. Please try again."
}

func seeOther(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}
