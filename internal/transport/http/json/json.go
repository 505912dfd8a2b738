// Package json writes the service's uniform response envelope.
//
// Every response carries a human-readable message and a data payload:
//
//	{"message": "Users retrieved successfully", "data": {...}}
//
// Collection endpoints use an empty array as the zero data value so clients
// can iterate without nil checks.
package json

import (
	"encoding/json"
	"net/http"
)

// Envelope is the wire shape of every JSON response.
type Envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// WriteJSON writes an enveloped response. A nil data payload is rendered as
// an empty array, matching the error envelope.
func WriteJSON(w http.ResponseWriter, status int, message string, data any) {
	if data == nil {
		data = []any{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Envelope{Message: message, Data: data}); err != nil {
		// best-effort fallback; don't override status for the caller
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
