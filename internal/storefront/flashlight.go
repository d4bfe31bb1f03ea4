package storefront

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/storefront/internal/view"
)

type flashlightPage struct {
	On bool
}

func (h *Handler) showFlashlight(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/flashlight.html", "Flashlight", nil, flashlightPage{On: h.Flashlight.On()})
}

func (h *Handler) toggleFlashlight(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Flashlight.Toggle(r.Context()); err != nil {
		h.Logger.Warn("toggle flashlight failed", slog.Any("error", err))
		h.render(w, r, http.StatusInternalServerError, "pages/flashlight.html", "Flashlight",
			&view.Flash{Kind: "error", Message: "The torch did not respond."}, flashlightPage{On: h.Flashlight.On()})
		return
	}
	seeOther(w, r, "/flashlight")
}
