package api

import (
	"errors"
	"net/http"

	"github.com/ovehub/asset-manager/internal/api/shared"
	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case store.IsNotFoundError(err):
		return http.StatusNotFound

	case store.IsDuplicateError(err):
		return http.StatusConflict

	case errors.Is(err, domain.ErrMissingParameter),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrWorkerCallback),
		errors.Is(err, domain.ErrWorkerUnavailable),
		errors.Is(err, domain.ErrWorkerLock):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized message for the client. Known
// validation-kind errors keep their text; everything else is generic.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}
	if MapErrorToStatusCode(err) < http.StatusInternalServerError {
		return err.Error()
	}
	return "An unexpected error occurred"
}

// RespondMappedError is the one-stop handler error path: status and
// message both derived from the error's kind.
func RespondMappedError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
}
