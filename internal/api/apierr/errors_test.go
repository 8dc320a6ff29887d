package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/minimarket/internal/model"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid argument", fmt.Errorf("%w: empty name", model.ErrInvalidArgument), http.StatusBadRequest, CodeInvalidRequest},
		{"not initialized", model.ErrNotInitialized, http.StatusServiceUnavailable, CodeNotReady},
		{"not found", fmt.Errorf("%w: p1", model.ErrNotFound), http.StatusNotFound, CodeProfileNotFound},
		{"corrupt record is not found", fmt.Errorf("%w: p1: %w", model.ErrNotFound, model.ErrValidation), http.StatusNotFound, CodeProfileNotFound},
		{"field error", &model.FieldError{Field: "id", Reason: "is empty"}, http.StatusUnprocessableEntity, CodeValidationFailed},
		{"exhausted retries", fmt.Errorf("%w: %w", model.ErrExhaustedRetries, model.ErrIO), http.StatusServiceUnavailable, CodeSaveFailed},
		{"id exhausted", model.ErrIDExhausted, http.StatusServiceUnavailable, CodeIDUnavailable},
		{"io", model.ErrIO, http.StatusServiceUnavailable, CodeStorageUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
		{"explicit", NewInvalidRequestError("bad json"), http.StatusBadRequest, CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.status, Status(tt.err))
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}
}
