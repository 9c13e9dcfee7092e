package server

import (
	"encoding/json"
	"net/http"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest    = "BAD_REQUEST"
	CodeInvalidConfig = "INVALID_CONFIG"
	CodeTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeTokenization  = "TOKENIZATION_FAILED"
	CodeNotFound      = "NOT_FOUND"
	CodeUnavailable   = "HISTORY_DISABLED"
	CodeInternal      = "INTERNAL_ERROR"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteError writes an error response to the HTTP response writer
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, ErrorResponse{Error: message, Code: code}, status)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
