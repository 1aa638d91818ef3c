package errorbank

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{BadRequest("bad"), http.StatusBadRequest},
		{Conflict("dup"), http.StatusBadRequest},
		{Unauthorized("who"), http.StatusUnauthorized},
		{NotFound("gone"), http.StatusNotFound},
		{Internal("boom"), http.StatusInternalServerError},
		{nil, http.StatusInternalServerError},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, test.err.StatusCode())
	}
}

func TestGRPCCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		want codes.Code
	}{
		{BadRequest("bad"), codes.InvalidArgument},
		{Conflict("dup"), codes.AlreadyExists},
		{Unauthorized("who"), codes.Unauthenticated},
		{NotFound("gone"), codes.NotFound},
		{Internal("boom"), codes.Internal},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, test.err.GRPCCode())
	}
}

func TestErrorAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("failed to load order", WithCause(cause))

	assert.Equal(t, "failed to load order: connection refused", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestFrom(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, From(nil))
	})

	t.Run("passthrough", func(t *testing.T) {
		original := NotFound("order not found")
		assert.Same(t, original, From(original))
	})

	t.Run("wrapped AppError", func(t *testing.T) {
		original := BadRequest("insufficient stock")
		wrapped := From(Internal("pay failed", WithCause(original)))
		require.NotNil(t, wrapped)
		assert.Equal(t, KindInternal, wrapped.Kind())
	})

	t.Run("unknown error", func(t *testing.T) {
		err := From(errors.New("surprise"))
		require.NotNil(t, err)
		assert.Equal(t, KindInternal, err.Kind())
		assert.True(t, errors.Is(err, err.Unwrap()))
	})
}

func TestDetails(t *testing.T) {
	err := BadRequest("invalid count",
		WithDetail("field", "count"),
		WithDetails(map[string]any{"value": "abc"}))

	details := err.Details()
	assert.Equal(t, "count", details["field"])
	assert.Equal(t, "abc", details["value"])
}

func TestEmptyMessageFallsBackToKind(t *testing.T) {
	err := New(KindConflict, "")
	assert.Equal(t, string(KindConflict), err.Message())
}
