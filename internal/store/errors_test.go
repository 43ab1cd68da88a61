package store_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pagetrack/pagetrack-server/internal/store"
)

func TestError_ErrorWithCause(t *testing.T) {
	err := &store.Error{
		Code:    http.StatusNotFound,
		Message: "not found",
		Err:     errors.New("underlying error"),
	}

	assert.Equal(t, "not found: underlying error", err.Error())
	assert.EqualError(t, err.Unwrap(), "underlying error")
}

func TestError_WithMessageKeepsIdentity(t *testing.T) {
	err := store.ErrNotFound.WithMessage("alarm a1 not found")

	assert.Equal(t, "alarm a1 not found", err.Error())
	assert.Equal(t, http.StatusNotFound, err.HTTPCode())
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NotErrorIs(t, err, store.ErrAlreadyExists)
}

func TestError_IsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("get book: %w", store.ErrBookNotFound)

	assert.ErrorIs(t, wrapped, store.ErrNotFound)
	assert.ErrorIs(t, wrapped, store.ErrGoalNotFound)
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      *store.Error
		wantCode int
	}{
		{name: "not found", err: store.ErrNotFound, wantCode: http.StatusNotFound},
		{name: "already exists", err: store.ErrAlreadyExists, wantCode: http.StatusConflict},
		{name: "invalid input", err: store.ErrInvalidInput, wantCode: http.StatusBadRequest},
		{name: "book not found", err: store.ErrBookNotFound, wantCode: http.StatusNotFound},
		{name: "user not found", err: store.ErrUserNotFound, wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.HTTPCode())
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}
