package product

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Additional-Code/bazaar/internal/dto"
	"github.com/Additional-Code/bazaar/internal/entity"
	"github.com/Additional-Code/bazaar/internal/presentation/http/response"
	service "github.com/Additional-Code/bazaar/internal/service/product"
	"github.com/Additional-Code/bazaar/internal/transport/http/middleware/auth"
	"github.com/Additional-Code/bazaar/pkg/errorbank"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/bazaar/transport/http/product")

// Handler exposes catalog endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a product Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler, mw *auth.Middleware) {
	g := e.Group("/product")
	g.GET("/list", h.list)
	g.GET("/detail", h.detail)
	g.POST("/create", h.create, mw.Require(auth.LevelAdmin))
	g.POST("/update", h.update, mw.Require(auth.LevelAdmin))
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "products.list")
	defer span.End()

	products, err := h.svc.List(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, toDTO(&products[i]))
	}
	return b.WithData(out).Build()
}

func (h *Handler) detail(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.QueryParam("id"), 10, 64)
	if err != nil || id <= 0 {
		return b.WithError(errorbank.BadRequest("invalid product id")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "products.detail", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	product, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(product)).Build()
}

type productPayload struct {
	ID          int64  `form:"id" json:"id"`
	Title       string `form:"title" json:"title"`
	Cover       string `form:"cover" json:"cover"`
	Description string `form:"description" json:"description"`
	Price       string `form:"price" json:"price"`
	Stock       int    `form:"stock" json:"stock"`
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	product, err := bindProduct(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "products.create", trace.WithAttributes(attribute.String("product.title", product.Title)))
	defer span.End()

	if err := h.svc.Create(ctx, product); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithMsg("product created").WithData(toDTO(product)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)

	product, err := bindProduct(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	if product.ID == 0 {
		return b.WithError(errorbank.BadRequest("product id is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "products.update", trace.WithAttributes(attribute.Int64("product.id", product.ID)))
	defer span.End()

	if err := h.svc.Update(ctx, product); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithMsg("product updated").Build()
}

func bindProduct(c echo.Context) (*entity.Product, error) {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return nil, errorbank.BadRequest("invalid payload", errorbank.WithCause(err))
	}

	price, err := decimal.NewFromString(payload.Price)
	if err != nil || price.IsNegative() {
		return nil, errorbank.BadRequest("price must be a non-negative decimal")
	}

	return &entity.Product{
		ID:          payload.ID,
		Title:       payload.Title,
		Cover:       payload.Cover,
		Description: payload.Description,
		Price:       price,
		Stock:       payload.Stock,
	}, nil
}

func toDTO(product *entity.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:          product.ID,
		Title:       product.Title,
		Cover:       product.Cover,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
		SalesCount:  product.SalesCount,
		CreatedAt:   product.CreatedAt,
	}
}
