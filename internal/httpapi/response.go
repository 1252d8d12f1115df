package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ficmart/paygate/internal/domain"
)

// apiError is the merchant-facing error body (spec.md §6). Fields
// match exactly; no APIResponse envelope wraps it, unlike the
// teacher's Success/Data/Error envelope.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// validationError is the shape returned for body-schema failures
// (spec.md §6): {"status":"REJECTED","message":"Validation failed","errors":{...}}.
type validationError struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func respondWithJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondValidationFailed(w http.ResponseWriter, errs map[string]string) {
	respondWithJSON(w, http.StatusBadRequest, &validationError{
		Status:  "REJECTED",
		Message: "Validation failed",
		Errors:  errs,
	})
}

// respondWithError maps a domain error to the taxonomy in spec.md §7.
func respondWithError(w http.ResponseWriter, err error) {
	var de *domain.DomainError
	status := http.StatusInternalServerError
	code := "SYSTEM_ERROR"
	message := "An unexpected error occurred"

	if errors.As(err, &de) {
		message = de.Message
		switch de.Code {
		case domain.ErrCodeInvalidArgument:
			status = http.StatusBadRequest
			code = "BAD_REQUEST"
		case domain.ErrCodeNotFound:
			status = http.StatusNotFound
			code = "NOT_FOUND"
		case domain.ErrCodeConsistency, domain.ErrCodeUnexpected:
			status = http.StatusInternalServerError
			code = "SYSTEM_ERROR"
			message = "An unexpected error occurred"
		}
	}

	respondWithJSON(w, status, &apiError{Error: code, Message: message})
}
