package errs

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewErrorKnownCode(t *testing.T) {
	err := NewError(ErrRateLimitExceeded)

	assert.Equal(t, ErrRateLimitExceeded, err.Code)
	assert.Equal(t, http.StatusTooManyRequests, err.Status)
	assert.NotEmpty(t, err.Message)
}

func TestNewErrorDefaultsStatusToOK(t *testing.T) {
	err := NewError(ErrInvalidParams)

	assert.Equal(t, http.StatusOK, err.Status,
		"business errors without explicit status ride on HTTP 200")
}

func TestNewErrorUnknownCodeFallsBack(t *testing.T) {
	err := NewError(99999)

	assert.Equal(t, ErrUnknown, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestCustomErrorImplementsError(t *testing.T) {
	var err error = NewError(ErrUnauthorized)
	assert.Contains(t, err.Error(), "3001")
}

func TestNewErrorDoesNotMutateTemplate(t *testing.T) {
	first := NewError(ErrInvalidParams)
	first.Message = "mutated"

	second := NewError(ErrInvalidParams)
	assert.NotEqual(t, "mutated", second.Message)
}
