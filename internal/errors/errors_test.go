package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeExtraction(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, Code(NotFound("contact", "c1")))
	assert.Equal(t, ErrCodeConflict, Code(InvalidState("step not active")))
	assert.Equal(t, ErrCodeInternal, Code(fmt.Errorf("plain error")))

	wrapped := fmt.Errorf("outer: %w", Unauthorized("nope"))
	assert.Equal(t, ErrCodeUnauthorized, Code(wrapped))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Transient(nil, "lock contention")))
	assert.False(t, IsRetryable(InvalidState("step not active")))
	assert.False(t, IsRetryable(nil))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidInput("steps", "empty")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("x", "y")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(InvalidState("x")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Unauthorized("x")))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(Transient(nil, "x")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("boom")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("db down")
	err := Wrap(cause, ErrCodeInternal, "failed to load request")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to load request")
}
