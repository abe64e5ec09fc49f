// Package apierror carries coded, client-facing errors raised before a request
// reaches the domain layer: malformed uploads, bad query parameters and the like.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

func BadRequest(message string, details string) *APIError {
	return New("BAD_REQUEST", message, details, http.StatusBadRequest)
}

func UnsupportedMediaType(message string, details string) *APIError {
	return New("UNSUPPORTED_TYPE", message, details, http.StatusUnsupportedMediaType)
}

func PayloadTooLarge(limit int64) *APIError {
	return New("PAYLOAD_TOO_LARGE", "request body is too large", fmt.Sprintf("limit is %d bytes", limit), http.StatusRequestEntityTooLarge)
}

// As unwraps err to an *APIError when one is in the chain.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr, true
	}
	return nil, false
}
