package points

import (
	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/bazaar/internal/dto"
	"github.com/Additional-Code/bazaar/internal/entity"
	"github.com/Additional-Code/bazaar/internal/presentation/http/response"
	service "github.com/Additional-Code/bazaar/internal/service/points"
	"github.com/Additional-Code/bazaar/internal/transport/http/middleware/auth"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/bazaar/transport/http/points")

// Handler exposes loyalty-points endpoints over HTTP. Both routes operate
// on the signed-in user; there is no cross-user balance lookup.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a points Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler, mw *auth.Middleware) {
	g := e.Group("/score")
	g.GET("/list", h.list, mw.Require(auth.LevelLogin))
	g.GET("/total", h.total, mw.Require(auth.LevelLogin))
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)
	user := auth.CurrentUser(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "points.list", trace.WithAttributes(attribute.Int64("user.id", user.ID)))
	defer span.End()

	records, err := h.svc.ListFor(ctx, user.ID)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.PointsRecordResponse, 0, len(records))
	for i := range records {
		out = append(out, toDTO(&records[i]))
	}
	return b.WithData(out).Build()
}

func (h *Handler) total(c echo.Context) error {
	b := response.New(c)
	user := auth.CurrentUser(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "points.total", trace.WithAttributes(attribute.Int64("user.id", user.ID)))
	defer span.End()

	total, err := h.svc.TotalFor(ctx, user.ID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.PointsTotalResponse{UserID: user.ID, Total: total}).Build()
}

func toDTO(record *entity.PointsRecord) dto.PointsRecordResponse {
	return dto.PointsRecordResponse{
		ID:          record.ID,
		UserID:      record.UserID,
		Amount:      record.Amount,
		Type:        record.Type,
		Description: record.Description,
		OrderID:     record.OrderID,
		ProductID:   record.ProductID,
		CreatedAt:   record.CreatedAt,
	}
}
