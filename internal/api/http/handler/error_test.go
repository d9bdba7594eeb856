package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dtroode/authkeeper/internal/model"
)

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantCode    int
		wantMessage string
	}{
		{
			name:        "validation keeps its detail",
			err:         fmt.Errorf("%w: username is required", model.ErrValidation),
			wantCode:    http.StatusBadRequest,
			wantMessage: "validation failed: username is required",
		},
		{
			name:        "conflict",
			err:         model.ErrConflict,
			wantCode:    http.StatusConflict,
			wantMessage: "user already exists",
		},
		{
			name:        "invalid credential hides the wrapped cause",
			err:         fmt.Errorf("%w: token is expired", model.ErrInvalidCredential),
			wantCode:    http.StatusUnauthorized,
			wantMessage: "invalid credentials",
		},
		{
			name:        "store error is opaque",
			err:         fmt.Errorf("%w: connection refused on 10.0.0.1", model.ErrStore),
			wantCode:    http.StatusInternalServerError,
			wantMessage: internalErrorMessage,
		},
		{
			name:        "unknown error is opaque",
			err:         errors.New("boom"),
			wantCode:    http.StatusInternalServerError,
			wantMessage: internalErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, message := statusFor(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}
