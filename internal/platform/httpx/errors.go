package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-bo/meridian/internal/shared"
)

// RespondError maps domain errors to HTTP problem responses.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidParameter):
		Problem(w, http.StatusBadRequest, "Invalid Parameter", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrForbiddenDelete):
		Problem(w, http.StatusForbidden, "Delete Forbidden", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrBusy):
		Problem(w, http.StatusTooManyRequests, "Busy", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
