package errors

import (
	"net/http"
	"strings"
)

// Canonical error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest = "bad_request"
	CodeNotFound   = "not_found"
	CodeConflict   = "conflict"
	CodeInternal   = "internal_server_error"
)

// ErrorResponse represents the canonical error envelope returned by the API.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// CodeForStatus derives a snake_case code from an HTTP status, e.g. 404 -> "not_found".
func CodeForStatus(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return CodeInternal
	}
	return strings.ToLower(strings.ReplaceAll(text, " ", "_"))
}
