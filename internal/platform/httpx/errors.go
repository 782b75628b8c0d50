// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	ledger "github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Sentinel errors for transport-level failures.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation failed")
)

// StatusFor maps an error onto the HTTP status the API reports for it.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrValidation), errors.Is(err, ErrValidation),
		errors.Is(err, shared.ErrTenantMissing), errors.Is(err, shared.ErrActorMissing):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrStateConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
// Unexpected errors never leak their message.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	code := ledger.CodeOf(err)
	switch status {
	case http.StatusBadRequest:
		if code == "UNEXPECTED" {
			code = "VALIDATION"
		}
		ProblemCode(w, status, "Validation Failed", err.Error(), code)
	case http.StatusNotFound:
		ProblemCode(w, status, "Not Found", err.Error(), code)
	case http.StatusConflict:
		ProblemCode(w, status, "State Conflict", err.Error(), code)
	default:
		ProblemCode(w, status, "Internal Error", "", "UNEXPECTED")
	}
}
