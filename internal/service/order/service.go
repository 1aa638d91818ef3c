package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bazaar/internal/cache"
	"github.com/Additional-Code/bazaar/internal/config"
	"github.com/Additional-Code/bazaar/internal/database"
	"github.com/Additional-Code/bazaar/internal/entity"
	"github.com/Additional-Code/bazaar/internal/messaging"
	repo "github.com/Additional-Code/bazaar/internal/repository/order"
	productrepo "github.com/Additional-Code/bazaar/internal/repository/product"
	pointssvc "github.com/Additional-Code/bazaar/internal/service/points"
	"github.com/Additional-Code/bazaar/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/bazaar/service/order")

// orderStore is the slice of the order repository the lifecycle manager
// consumes. Declared here so tests can substitute a fake.
type orderStore interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	GetByNumber(ctx context.Context, number string) (*entity.Order, error)
	List(ctx context.Context) ([]entity.Order, error)
	ListByUser(ctx context.Context, userID int64, status entity.Status) ([]entity.Order, error)
	MarkPaid(ctx context.Context, db bun.IDB, number string, at time.Time) (bool, error)
	MarkShipped(ctx context.Context, id int64, trackingNumber, company, remark string, at time.Time) (bool, error)
	Transition(ctx context.Context, id int64, from, to entity.Status) (bool, error)
	CancelPreShipment(ctx context.Context, id, ownerID int64) (bool, error)
}

// inventory is the product collaborator: reads plus the two ledger
// mutations the pay transition needs.
type inventory interface {
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
	ReduceStock(ctx context.Context, db bun.IDB, id int64, qty int) (bool, error)
	AddSales(ctx context.Context, db bun.IDB, id int64, qty int) error
}

// pointsLedger is the grant side of the points subsystem.
type pointsLedger interface {
	GrantOrderConfirm(ctx context.Context, userID int64, amount decimal.Decimal, orderID, productID int64) error
}

// txRunner is satisfied by *bun.DB; it scopes the pay transition's writes
// to a single transaction.
type txRunner interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error
}

// Service is the order lifecycle manager. It owns every status transition;
// stock and points mutations happen only through the collaborators above.
type Service struct {
	repo      orderStore
	products  inventory
	points    pointsLedger
	db        txRunner
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Products   *productrepo.Repository
	Points     *pointssvc.Service
	Conns      *database.Connections
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:      p.Repository,
		products:  p.Products,
		points:    p.Points,
		db:        p.Conns.Writer,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// CreateInput carries the fields a buyer submits when placing an order.
type CreateInput struct {
	ProductID       int64
	UserID          int64
	Count           string
	ReceiverName    string
	ReceiverPhone   string
	ReceiverAddress string
	Remark          string
}

// Create places a new order in pending-payment. The order number is
// generated here and never changes afterwards.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(attribute.Int64("product.id", in.ProductID)))
	defer span.End()

	qty, err := strconv.Atoi(strings.TrimSpace(in.Count))
	if err != nil || qty <= 0 {
		return nil, errorbank.BadRequest("order count must be a positive integer")
	}
	if in.UserID == 0 {
		return nil, errorbank.BadRequest("order requires a user")
	}

	if _, err := s.products.GetByID(ctx, in.ProductID); err != nil {
		if errors.Is(err, productrepo.ErrNotFound) {
			return nil, errorbank.NotFound("product not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load product", errorbank.WithCause(err))
	}

	now := time.Now().UTC()
	order := &entity.Order{
		Number:          newOrderNumber(now),
		Status:          entity.StatusPendingPayment,
		ProductID:       in.ProductID,
		UserID:          in.UserID,
		Count:           strconv.Itoa(qty),
		ReceiverName:    in.ReceiverName,
		ReceiverPhone:   in.ReceiverPhone,
		ReceiverAddress: in.ReceiverAddress,
		Remark:          in.Remark,
		OrderTime:       now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}

	s.publishLifecycle(ctx, order, "created")
	return order, nil
}

// Pay settles a pending order. Stock decrement, sales increment and the
// status change commit together or not at all; the conditional updates
// underneath make a concurrent double pay or oversell lose cleanly.
func (s *Service) Pay(ctx context.Context, number string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Pay", trace.WithAttributes(attribute.String("order.number", number)))
	defer span.End()

	if strings.TrimSpace(number) == "" {
		return nil, errorbank.BadRequest("order number is required")
	}

	order, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}
	if order.Status != entity.StatusPendingPayment {
		return nil, errorbank.BadRequest("order is not awaiting payment")
	}

	qty, err := order.Quantity()
	if err != nil || qty <= 0 {
		return nil, errorbank.BadRequest("order count is invalid")
	}

	now := time.Now().UTC()
	err = s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		ok, err := s.products.ReduceStock(ctx, tx, order.ProductID, qty)
		if err != nil {
			return err
		}
		if !ok {
			return errInsufficientStock
		}

		ok, err = s.repo.MarkPaid(ctx, tx, number, now)
		if err != nil {
			return err
		}
		if !ok {
			// Lost a race with another payment; rolling back restores
			// the stock decrement above.
			return errAlreadyPaid
		}

		return s.products.AddSales(ctx, tx, order.ProductID, qty)
	})
	switch {
	case errors.Is(err, errInsufficientStock):
		return nil, errorbank.BadRequest("insufficient stock")
	case errors.Is(err, errAlreadyPaid):
		return nil, errorbank.Conflict("order has already been paid")
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment transaction failed")
		return nil, errorbank.Internal("failed to pay order", errorbank.WithCause(err))
	}

	order.Status = entity.StatusPaid
	order.PayTime = now
	order.UpdatedAt = now
	s.dropFromCache(ctx, order.ID)
	s.publishLifecycle(ctx, order, "paid")
	return order, nil
}

// ShipInput carries carrier metadata for the ship transition.
type ShipInput struct {
	OrderID         int64
	TrackingNumber  string
	ShippingCompany string
	ShippingRemark  string
}

// Ship hands a paid order to the carrier.
func (s *Service) Ship(ctx context.Context, in ShipInput) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Ship", trace.WithAttributes(attribute.Int64("order.id", in.OrderID)))
	defer span.End()

	if strings.TrimSpace(in.TrackingNumber) == "" {
		return errorbank.BadRequest("tracking number is required")
	}

	now := time.Now().UTC()
	ok, err := s.repo.MarkShipped(ctx, in.OrderID, in.TrackingNumber, in.ShippingCompany, in.ShippingRemark, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to ship order", errorbank.WithCause(err))
	}
	if !ok {
		return s.transitionRefused(ctx, in.OrderID, "only paid orders can be shipped")
	}

	s.dropFromCache(ctx, in.OrderID)
	s.publishLifecycleByID(ctx, in.OrderID, "shipped")
	return nil
}

// ConfirmReceipt moves a shipped order to awaiting-review and then grants
// the buyer points worth the order total. The grant is best-effort: once
// the transition has committed, nothing rolls it back.
func (s *Service) ConfirmReceipt(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ConfirmReceipt", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	ok, err := s.repo.Transition(ctx, id, entity.StatusShipped, entity.StatusAwaitingReview)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to confirm receipt", errorbank.WithCause(err))
	}
	if !ok {
		return errorbank.BadRequest("only shipped orders can be confirmed")
	}

	s.grantConfirmPoints(ctx, order)

	order.Status = entity.StatusAwaitingReview
	s.dropFromCache(ctx, id)
	s.publishLifecycle(ctx, order, "confirmed")
	return nil
}

// grantConfirmPoints credits price multiplied by quantity. Failures are
// logged and swallowed: confirming receipt must succeed even when the
// stored count cannot be parsed or the ledger write fails.
func (s *Service) grantConfirmPoints(ctx context.Context, order *entity.Order) {
	product, err := s.products.GetByID(ctx, order.ProductID)
	if err != nil {
		s.logger.Error("points grant skipped: product lookup failed",
			zap.Int64("order_id", order.ID), zap.Int64("product_id", order.ProductID), zap.Error(err))
		return
	}

	qty, err := order.Quantity()
	if err != nil || qty < 0 {
		s.logger.Error("points grant skipped: invalid order count",
			zap.Int64("order_id", order.ID), zap.String("count", order.Count), zap.Error(err))
		return
	}

	amount := product.Price.Mul(decimal.NewFromInt(int64(qty)))
	if err := s.points.GrantOrderConfirm(ctx, order.UserID, amount, order.ID, order.ProductID); err != nil {
		s.logger.Error("points grant failed",
			zap.Int64("order_id", order.ID), zap.Int64("user_id", order.UserID), zap.Error(err))
	}
}

// Cancel terminates an order from the admin side. Only pre-shipment
// orders qualify; stock is not restored for already-paid orders, matching
// the storefront's historical behaviour.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Cancel", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	ok, err := s.repo.CancelPreShipment(ctx, id, 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to cancel order", errorbank.WithCause(err))
	}
	if !ok {
		return s.transitionRefused(ctx, id, "order can no longer be cancelled")
	}

	s.dropFromCache(ctx, id)
	s.publishLifecycleByID(ctx, id, "cancelled")
	return nil
}

// CancelByUser terminates the caller's own unpaid order.
func (s *Service) CancelByUser(ctx context.Context, id, userID int64) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.CancelByUser", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.Int64("user.id", userID),
	))
	defer span.End()

	ok, err := s.repo.CancelPreShipment(ctx, id, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to cancel order", errorbank.WithCause(err))
	}
	if !ok {
		return s.transitionRefused(ctx, id, "only your own unpaid orders can be cancelled")
	}

	s.dropFromCache(ctx, id)
	s.publishLifecycleByID(ctx, id, "cancelled")
	return nil
}

// Get retrieves an order by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		if s.logger != nil {
			s.logger.Warn("orders cache read failed", zap.Int64("id", id), zap.Error(err))
		}
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		if s.logger != nil {
			s.logger.Warn("orders cache write failed", zap.Int64("id", id), zap.Error(err))
		}
	}

	return order, nil
}

// List returns every order. Admin listing endpoint.
func (s *Service) List(ctx context.Context) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	orders, err := s.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// ListByUser returns a user's orders, optionally filtered by status.
func (s *Service) ListByUser(ctx context.Context, userID int64, status entity.Status) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListByUser", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	if status != "" && !status.Valid() {
		return nil, errorbank.BadRequest("unknown order status")
	}

	orders, err := s.repo.ListByUser(ctx, userID, status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}

var (
	errInsufficientStock = errors.New("insufficient stock")
	errAlreadyPaid       = errors.New("order already paid")
)

// transitionRefused distinguishes a missing order from one in the wrong
// state after a guarded update touched zero rows.
func (s *Service) transitionRefused(ctx context.Context, id int64, msg string) error {
	if _, err := s.repo.GetByID(ctx, id); errors.Is(err, repo.ErrNotFound) {
		return errorbank.NotFound("order not found")
	}
	return errorbank.BadRequest(msg)
}

// newOrderNumber composes a sortable timestamp with a random suffix. The
// result is the immutable human-facing identifier used for payment.
func newOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return at.Format("20060102150405") + suffix
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Order, error) {
	var order entity.Order
	if err := cache.GetJSON(ctx, s.cache, s.cacheKey(id), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return nil
	}
	return cache.SetJSON(ctx, s.cache, s.cacheKey(order.ID), order, s.cacheTTL)
}

func (s *Service) dropFromCache(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil && s.logger != nil {
		s.logger.Warn("orders cache invalidation failed", zap.Int64("id", id), zap.Error(err))
	}
}

// LifecycleEvent is emitted on every order state change.
type LifecycleEvent struct {
	Event     string        `json:"event"`
	ID        int64         `json:"id"`
	Number    string        `json:"number"`
	Status    entity.Status `json:"status"`
	UserID    int64         `json:"user_id"`
	Timestamp time.Time     `json:"timestamp"`
}

func (s *Service) publishLifecycle(ctx context.Context, order *entity.Order, event string) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	evt := LifecycleEvent{
		Event:     event,
		ID:        order.ID,
		Number:    order.Number,
		Status:    order.Status,
		UserID:    order.UserID,
		Timestamp: time.Now().UTC(),
	}
	if err := messaging.PublishJSON(ctx, s.publisher, fmt.Sprintf("order-%d", order.ID), evt); err != nil {
		if s.logger != nil {
			s.logger.Error("publish lifecycle event", zap.String("event", event), zap.Error(err))
		}
	}
}

// publishLifecycleByID reloads the order first; used by transitions that
// only touched the row through a guarded update.
func (s *Service) publishLifecycleByID(ctx context.Context, id int64, event string) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("lifecycle event skipped: reload failed", zap.Int64("id", id), zap.Error(err))
		}
		return
	}
	s.publishLifecycle(ctx, order, event)
}
