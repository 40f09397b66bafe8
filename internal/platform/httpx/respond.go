// Package httpx provides JSON response utilities shared by all handlers.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the caller-safe error envelope. Internal error detail
// never serializes to the client.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error sends the caller-safe error envelope.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
