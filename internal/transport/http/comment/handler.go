package comment

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/bazaar/internal/dto"
	"github.com/Additional-Code/bazaar/internal/entity"
	"github.com/Additional-Code/bazaar/internal/presentation/http/response"
	service "github.com/Additional-Code/bazaar/internal/service/comment"
	"github.com/Additional-Code/bazaar/internal/transport/http/middleware/auth"
	"github.com/Additional-Code/bazaar/pkg/errorbank"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/bazaar/transport/http/comment")

// Handler exposes review endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a comment Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler, mw *auth.Middleware) {
	g := e.Group("/comment")
	g.GET("/list", h.list)
	g.POST("/create", h.create, mw.Require(auth.LevelLogin))
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	productID, err := strconv.ParseInt(c.QueryParam("productId"), 10, 64)
	if err != nil || productID <= 0 {
		return b.WithError(errorbank.BadRequest("invalid product id")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "comments.list", trace.WithAttributes(attribute.Int64("product.id", productID)))
	defer span.End()

	comments, err := h.svc.ListByProduct(ctx, productID)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, toDTO(&comments[i]))
	}
	return b.WithData(out).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)
	user := auth.CurrentUser(c)

	var payload struct {
		Content   string `form:"content" json:"content"`
		ProductID int64  `form:"productId" json:"productId"`
		OrderID   int64  `form:"orderId" json:"orderId"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "comments.create", trace.WithAttributes(attribute.Int64("product.id", payload.ProductID)))
	defer span.End()

	comment := &entity.Comment{
		Content:   payload.Content,
		UserID:    user.ID,
		ProductID: payload.ProductID,
		OrderID:   payload.OrderID,
	}
	if err := h.svc.Create(ctx, comment); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithMsg("comment created").WithData(toDTO(comment)).Build()
}

func toDTO(comment *entity.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        comment.ID,
		Content:   comment.Content,
		UserID:    comment.UserID,
		ProductID: comment.ProductID,
		OrderID:   comment.OrderID,
		CreatedAt: comment.CreatedAt,
	}
}
