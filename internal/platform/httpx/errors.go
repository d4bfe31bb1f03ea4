// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/storefront/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrValidation):
		ValidationProblem(w, err.Error(), shared.FieldErrors(err))
	case errors.Is(err, shared.ErrConfirmationRequired):
		Problem(w, http.StatusPreconditionRequired, "Confirmation Required", err.Error())
	case errors.Is(err, shared.ErrOffline):
		Problem(w, http.StatusServiceUnavailable, "Offline", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// StatusFor returns the status RespondError would use for err.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, shared.ErrOffline):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Confirmed reports whether a destructive request carries an explicit confirmation,
// either as the X-Confirm header or the confirm query parameter.
func Confirmed(r *http.Request) bool {
	for _, v := range []string{r.Header.Get("X-Confirm"), r.URL.Query().Get("confirm")} {
		switch v {
		case "true", "yes", "1":
			return true
		}
	}
	return false
}
