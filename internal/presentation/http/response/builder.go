package response

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/bazaar/pkg/errorbank"
)

// Envelope is the wire format every endpoint returns. The storefront
// client predates this service, so the field set is fixed.
type Envelope struct {
	Code      int    `json:"code"`
	Msg       string `json:"msg"`
	Data      any    `json:"data,omitempty"`
	Trace     string `json:"trace,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Builder helps construct consistent HTTP responses.
type Builder struct {
	ctx  echo.Context
	msg  string
	data any
	err  error
}

// New instantiates a Builder for the provided request context.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx}
}

// WithMsg sets the human-readable message on a success response.
func (b *Builder) WithMsg(msg string) *Builder {
	b.msg = msg
	return b
}

// WithData attaches a success payload.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

// WithError records an error to be rendered.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// Build finalises and emits the HTTP response.
func (b *Builder) Build() error {
	if b.err != nil {
		return b.buildError()
	}
	return b.buildSuccess()
}

func (b *Builder) buildSuccess() error {
	msg := b.msg
	if msg == "" {
		msg = "ok"
	}
	return b.ctx.JSON(http.StatusOK, Envelope{
		Code:      http.StatusOK,
		Msg:       msg,
		Data:      b.data,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (b *Builder) buildError() error {
	appErr := errorbank.From(b.err)
	code := appErr.StatusCode()

	env := Envelope{
		Code:      code,
		Msg:       appErr.Message(),
		Timestamp: time.Now().UnixMilli(),
	}
	// Internal causes stay out of the envelope; clients get the generic
	// message while the full chain goes to the log.
	if cause := appErr.Unwrap(); cause != nil && appErr.Kind() != errorbank.KindInternal {
		env.Trace = cause.Error()
	}

	return b.ctx.JSON(code, env)
}
