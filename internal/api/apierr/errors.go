package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/minimarket/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeProfileNotFound    = "PROFILE_NOT_FOUND"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNotReady           = "NOT_READY"
	CodeSaveFailed         = "SAVE_FAILED"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeIDUnavailable      = "ID_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError. Wrapping errors are
// checked before the causes they wrap.
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrInvalidArgument):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}
	case errors.Is(err, model.ErrNotInitialized):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeNotReady, "Profile registry is not ready"}}
	case errors.Is(err, model.ErrNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeProfileNotFound, "Profile not found"}}
	case errors.Is(err, model.ErrExhaustedRetries):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeSaveFailed, "Profile could not be saved"}}
	case errors.Is(err, model.ErrValidation):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeValidationFailed, err.Error()}}
	case errors.Is(err, model.ErrIDExhausted):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeIDUnavailable, "Could not allocate a profile id"}}
	case errors.Is(err, model.ErrIO):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeStorageUnavailable, "Profile storage is unavailable"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
