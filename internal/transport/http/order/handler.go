package order

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/bazaar/internal/dto"
	"github.com/Additional-Code/bazaar/internal/entity"
	"github.com/Additional-Code/bazaar/internal/presentation/http/response"
	service "github.com/Additional-Code/bazaar/internal/service/order"
	"github.com/Additional-Code/bazaar/internal/transport/http/middleware/auth"
	"github.com/Additional-Code/bazaar/pkg/errorbank"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/bazaar/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance. Route paths match the
// legacy storefront client.
func Register(e *echo.Echo, h *Handler, mw *auth.Middleware) {
	g := e.Group("/order")
	g.GET("/list", h.list, mw.Require(auth.LevelAdmin))
	g.GET("/userOrderList", h.userOrders, mw.Require(auth.LevelLogin))
	g.POST("/create", h.create, mw.Require(auth.LevelLogin))
	g.POST("/payOrder", h.pay)
	g.POST("/ship", h.ship, mw.Require(auth.LevelAdmin))
	g.POST("/confirmReceipt", h.confirmReceipt, mw.Require(auth.LevelLogin))
	g.POST("/cancelOrder", h.cancel, mw.Require(auth.LevelAdmin))
	g.POST("/cancelUserOrder", h.cancelUser, mw.Require(auth.LevelLogin))
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	orders, err := h.svc.List(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTOList(orders)).Build()
}

func (h *Handler) userOrders(c echo.Context) error {
	b := response.New(c)
	user := auth.CurrentUser(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.userOrderList", trace.WithAttributes(attribute.Int64("user.id", user.ID)))
	defer span.End()

	orders, err := h.svc.ListByUser(ctx, user.ID, entity.Status(c.QueryParam("status")))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTOList(orders)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)
	user := auth.CurrentUser(c)

	var payload struct {
		ProductID       int64  `form:"productId" json:"productId"`
		Count           string `form:"count" json:"count"`
		ReceiverName    string `form:"receiverName" json:"receiverName"`
		ReceiverPhone   string `form:"receiverPhone" json:"receiverPhone"`
		ReceiverAddress string `form:"receiverAddress" json:"receiverAddress"`
		Remark          string `form:"remark" json:"remark"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(attribute.Int64("product.id", payload.ProductID)))
	defer span.End()

	order, err := h.svc.Create(ctx, service.CreateInput{
		ProductID:       payload.ProductID,
		UserID:          user.ID,
		Count:           payload.Count,
		ReceiverName:    payload.ReceiverName,
		ReceiverPhone:   payload.ReceiverPhone,
		ReceiverAddress: payload.ReceiverAddress,
		Remark:          payload.Remark,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithMsg("order created").WithData(toDTO(order)).Build()
}

func (h *Handler) pay(c echo.Context) error {
	b := response.New(c)

	number := c.FormValue("orderNumber")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.payOrder", trace.WithAttributes(attribute.String("order.number", number)))
	defer span.End()

	order, err := h.svc.Pay(ctx, number)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithMsg("payment successful").WithData(toDTO(order)).Build()
}

func (h *Handler) ship(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		ID              int64  `form:"id" json:"id"`
		TrackingNumber  string `form:"trackingNumber" json:"trackingNumber"`
		ShippingCompany string `form:"shippingCompany" json:"shippingCompany"`
		ShippingRemark  string `form:"shippingRemark" json:"shippingRemark"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.ID == 0 {
		return b.WithError(errorbank.BadRequest("order id is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.ship", trace.WithAttributes(attribute.Int64("order.id", payload.ID)))
	defer span.End()

	err := h.svc.Ship(ctx, service.ShipInput{
		OrderID:         payload.ID,
		TrackingNumber:  payload.TrackingNumber,
		ShippingCompany: payload.ShippingCompany,
		ShippingRemark:  payload.ShippingRemark,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithMsg("order shipped").Build()
}

func (h *Handler) confirmReceipt(c echo.Context) error {
	b := response.New(c)

	id, err := formID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.confirmReceipt", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if err := h.svc.ConfirmReceipt(ctx, id); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithMsg("receipt confirmed").Build()
}

func (h *Handler) cancel(c echo.Context) error {
	b := response.New(c)

	id, err := formID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.cancelOrder", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if err := h.svc.Cancel(ctx, id); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithMsg("order cancelled").Build()
}

func (h *Handler) cancelUser(c echo.Context) error {
	b := response.New(c)
	user := auth.CurrentUser(c)

	id, err := formID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.cancelUserOrder", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if err := h.svc.CancelByUser(ctx, id, user.ID); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithMsg("order cancelled").Build()
}

func formID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.FormValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errorbank.BadRequest("invalid order id")
	}
	return id, nil
}

func toDTO(order *entity.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:              order.ID,
		OrderNumber:     order.Number,
		Status:          string(order.Status),
		ProductID:       order.ProductID,
		UserID:          order.UserID,
		Count:           order.Count,
		ReceiverName:    order.ReceiverName,
		ReceiverPhone:   order.ReceiverPhone,
		ReceiverAddress: order.ReceiverAddress,
		Remark:          order.Remark,
		TrackingNumber:  order.TrackingNumber,
		ShippingCompany: order.ShippingCompany,
		ShippingRemark:  order.ShippingRemark,
		OrderTime:       order.OrderTime,
	}
	if !order.PayTime.IsZero() {
		t := order.PayTime
		resp.PayTime = &t
	}
	if !order.ShippingTime.IsZero() {
		t := order.ShippingTime
		resp.ShippingTime = &t
	}
	return resp
}

func toDTOList(orders []entity.Order) []dto.OrderResponse {
	out := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toDTO(&orders[i]))
	}
	return out
}
