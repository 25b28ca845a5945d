package httpx

import (
	"errors"
	"net/http"

	"github.com/shopledger/shopledger/internal/shared"
)

// RespondError maps the shared error taxonomy to RFC7807 responses. Internal
// failures are reported generically; the wrapped detail stays in the logs.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
