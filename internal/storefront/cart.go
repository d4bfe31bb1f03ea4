package storefront

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/storefront/internal/cart"
	"github.com/odyssey-erp/storefront/internal/shared"
	"github.com/odyssey-erp/storefront/internal/view"
)

type cartPage struct {
	View cart.View
}

type confirmPage struct {
	Heading string
	Message string
	Action  string
	Cancel  string
}

func (h *Handler) showCart(w http.ResponseWriter, r *http.Request) {
	h.renderCart(w, r, http.StatusOK, nil)
}

func (h *Handler) renderCart(w http.ResponseWriter, r *http.Request, status int, flash *view.Flash) {
	v, err := h.Cart.View(r.Context())
	if err != nil {
		h.fail(w, r, "load cart", err)
		return
	}
	h.render(w, r, status, "pages/cart.html", "Cart", flash, cartPage{View: v})
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.cartProductID(w, r)
	if !ok {
		return
	}
	qty, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue("quantity")), 10, 64)
	if err != nil {
		h.renderCart(w, r, http.StatusUnprocessableEntity, &view.Flash{Kind: "error", Message: "Quantity must be a whole number."})
		return
	}
	if _, err := h.Cart.SetQuantity(r.Context(), pid, qty); err != nil {
		h.fail(w, r, "set quantity", err)
		return
	}
	seeOther(w, r, "/cart?notice=updated")
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.cartProductID(w, r)
	if !ok {
		return
	}
	_, err := h.Cart.Remove(r.Context(), pid, r.PostFormValue("confirm") == "yes")
	if errors.Is(err, shared.ErrConfirmationRequired) {
		h.render(w, r, http.StatusPreconditionRequired, "pages/confirm.html", "Remove item", nil, confirmPage{
			Heading: "Remove item",
			Message: "Remove this item from your cart?",
			Action:  "/cart/items/" + strconv.FormatInt(pid, 10) + "/delete",
			Cancel:  "/cart",
		})
		return
	}
	if err != nil {
		h.fail(w, r, "remove item", err)
		return
	}
	seeOther(w, r, "/cart?notice=removed")
}

func (h *Handler) emptyCart(w http.ResponseWriter, r *http.Request) {
	err := h.Cart.Empty(r.Context(), r.PostFormValue("confirm") == "yes")
	if errors.Is(err, shared.ErrConfirmationRequired) {
		h.render(w, r, http.StatusPreconditionRequired, "pages/confirm.html", "Empty cart", nil, confirmPage{
			Heading: "Empty cart",
			Message: "Remove every item from your cart?",
			Action:  "/cart/empty",
			Cancel:  "/cart",
		})
		return
	}
	if err != nil {
		h.fail(w, r, "empty cart", err)
		return
	}
	seeOther(w, r, "/cart?notice=emptied")
}

func (h *Handler) startCheckout(w http.ResponseWriter, r *http.Request) {
	session, err := h.Checkout.Start(r.Context())
	if errors.Is(err, shared.ErrValidation) {
		h.renderCart(w, r, http.StatusUnprocessableEntity, &view.Flash{Kind: "error", Message: "Your cart is empty."})
		return
	}
	if err != nil {
		status, msg := describe(err)
		if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
			h.fail(w, r, "start checkout", err)
			return
		}
		h.renderCart(w, r, status, &view.Flash{Kind: "error", Message: msg})
		return
	}
	seeOther(w, r, session.ApproveURL)
}

// checkoutReturn is where the payment provider sends the buyer back after approval. The
// order is captured before the cart is cleared.
func (h *Handler) checkoutReturn(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		seeOther(w, r, "/cart")
		return
	}
	if _, err := h.Checkout.Approve(r.Context(), token); err != nil {
		status, msg := describe(err)
		if status == http.StatusInternalServerError {
			h.fail(w, r, "capture checkout", err)
			return
		}
		h.renderCart(w, r, status, &view.Flash{Kind: "error", Message: msg})
		return
	}
	seeOther(w, r, "/products?notice=paid")
}

func (h *Handler) cartProductID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	pid, err := strconv.ParseInt(chi.URLParam(r, "pid"), 10, 64)
	if err != nil || pid <= 0 {
		h.renderCart(w, r, http.StatusNotFound, &view.Flash{Kind: "error", Message: "That item is not in your cart."})
		return 0, false
	}
	return pid, true
}
