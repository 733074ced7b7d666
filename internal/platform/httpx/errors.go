package httpx

import (
	"errors"
	"net/http"

	"github.com/tallyform/tallyform/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Retryable kinds carry a Retry-After hint; the immutable-record case
// gets its own user-facing detail so form frontends can show it as-is.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrImmutableRecord):
		Problem(w, http.StatusConflict, "Already Approved", "already approved — contact an administrator")
	case errors.Is(err, shared.ErrLockTimeout):
		w.Header().Set("Retry-After", "1")
		Problem(w, http.StatusServiceUnavailable, "Busy", err.Error())
	case errors.Is(err, shared.ErrTransientIO):
		w.Header().Set("Retry-After", "5")
		Problem(w, http.StatusServiceUnavailable, "Upstream Timeout", err.Error())
	case errors.Is(err, shared.ErrDirectoryUnavailable),
		errors.Is(err, shared.ErrProvisioning),
		errors.Is(err, shared.ErrLedgerUnavailable):
		Problem(w, http.StatusBadGateway, "Upstream Failure", err.Error())
	case errors.Is(err, shared.ErrConfiguration):
		Problem(w, http.StatusInternalServerError, "Misconfigured", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
