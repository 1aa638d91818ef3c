package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/bazaar/pkg/errorbank"
)

func buildResponse(t *testing.T, build func(b *Builder) *Builder) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	require.NoError(t, build(New(ctx)).Build())

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestBuildSuccess(t *testing.T) {
	rec, env := buildResponse(t, func(b *Builder) *Builder {
		return b.WithData(map[string]string{"orderNumber": "20260101ABCD"})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, env.Code)
	assert.Equal(t, "ok", env.Msg)
	assert.NotNil(t, env.Data)
	assert.NotZero(t, env.Timestamp)
}

func TestBuildSuccessCustomMsg(t *testing.T) {
	_, env := buildResponse(t, func(b *Builder) *Builder {
		return b.WithMsg("order cancelled")
	})

	assert.Equal(t, "order cancelled", env.Msg)
	assert.Nil(t, env.Data)
}

func TestBuildError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{name: "bad request", err: errorbank.BadRequest("insufficient stock"), code: http.StatusBadRequest, msg: "insufficient stock"},
		{name: "conflict collapses to 400", err: errorbank.Conflict("order has already been paid"), code: http.StatusBadRequest, msg: "order has already been paid"},
		{name: "unauthorized", err: errorbank.Unauthorized("not signed in"), code: http.StatusUnauthorized, msg: "not signed in"},
		{name: "not found", err: errorbank.NotFound("order not found"), code: http.StatusNotFound, msg: "order not found"},
		{name: "plain error becomes 500", err: errors.New("pq: connection refused"), code: http.StatusInternalServerError, msg: "internal error"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec, env := buildResponse(t, func(b *Builder) *Builder {
				return b.WithError(test.err)
			})

			assert.Equal(t, test.code, rec.Code)
			assert.Equal(t, test.code, env.Code)
			assert.Equal(t, test.msg, env.Msg)
		})
	}
}

func TestBuildErrorHidesInternalCause(t *testing.T) {
	cause := errors.New("pq: relation orders does not exist")
	_, env := buildResponse(t, func(b *Builder) *Builder {
		return b.WithError(errorbank.Internal("failed to load order", errorbank.WithCause(cause)))
	})

	assert.Equal(t, "failed to load order", env.Msg)
	assert.Empty(t, env.Trace)
}

func TestBuildErrorExposesClientCause(t *testing.T) {
	cause := errors.New("count must be positive")
	_, env := buildResponse(t, func(b *Builder) *Builder {
		return b.WithError(errorbank.BadRequest("invalid order", errorbank.WithCause(cause)))
	})

	assert.Equal(t, "count must be positive", env.Trace)
}
