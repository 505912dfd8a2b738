// Package shared centralizes domain error translation to HTTP responses so
// every handler produces the same error envelope.
package shared

import (
	"errors"
	"net/http"

	"roster/internal/transport/http/json"
	dErrors "roster/pkg/domain-errors"
)

// WriteError translates transport-agnostic domain errors into HTTP status
// codes and the standard response envelope. Unexpected errors collapse to a
// generic 500 so internals never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		message := domainErr.Message
		if message == "" {
			message = http.StatusText(DomainCodeToHTTPStatus(domainErr.Code))
		}
		json.WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), message, nil)
		return
	}

	json.WriteJSON(w, http.StatusInternalServerError, "Internal server error", nil)
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case dErrors.CodeInvariantViolation, dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
