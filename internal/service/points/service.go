package points

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bazaar/internal/entity"
	repo "github.com/Additional-Code/bazaar/internal/repository/points"
	"github.com/Additional-Code/bazaar/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/bazaar/service/points")

// commentReward is the fixed grant for leaving a product review.
var commentReward = decimal.NewFromInt(5)

// ledgerStore is the slice of the points repository the service consumes.
type ledgerStore interface {
	Create(ctx context.Context, record *entity.PointsRecord) error
	ListByUser(ctx context.Context, userID int64) ([]entity.PointsRecord, error)
	TotalFor(ctx context.Context, userID int64) (decimal.Decimal, error)
}

// Service is the points ledger: append-only grants and balance queries.
type Service struct {
	repo   ledgerStore
	logger *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:   p.Repository,
		logger: p.Logger,
	}
}

// Grant appends a points record.
func (s *Service) Grant(ctx context.Context, record *entity.PointsRecord) error {
	if record == nil || record.UserID == 0 {
		return errorbank.BadRequest("points grant requires a user")
	}
	ctx, span := serviceTracer.Start(ctx, "PointsService.Grant", trace.WithAttributes(
		attribute.Int64("user.id", record.UserID),
		attribute.String("points.type", record.Type),
	))
	defer span.End()

	if err := s.repo.Create(ctx, record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to record points grant", errorbank.WithCause(err))
	}
	return nil
}

// GrantOrderConfirm credits a user with the order total after they confirm
// receipt. One currency unit equals one point.
func (s *Service) GrantOrderConfirm(ctx context.Context, userID int64, amount decimal.Decimal, orderID, productID int64) error {
	return s.Grant(ctx, &entity.PointsRecord{
		UserID:      userID,
		Amount:      amount,
		Type:        entity.GrantOrderConfirm,
		Description: "points for confirming receipt",
		OrderID:     orderID,
		ProductID:   productID,
	})
}

// GrantComment credits the fixed review reward.
func (s *Service) GrantComment(ctx context.Context, userID, orderID, productID int64) error {
	return s.Grant(ctx, &entity.PointsRecord{
		UserID:      userID,
		Amount:      commentReward,
		Type:        entity.GrantComment,
		Description: "points for reviewing a product",
		OrderID:     orderID,
		ProductID:   productID,
	})
}

// TotalFor returns the sum of all grants for a user.
func (s *Service) TotalFor(ctx context.Context, userID int64) (decimal.Decimal, error) {
	ctx, span := serviceTracer.Start(ctx, "PointsService.TotalFor", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	total, err := s.repo.TotalFor(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return decimal.Zero, errorbank.Internal("failed to compute points total", errorbank.WithCause(err))
	}
	return total, nil
}

// ListFor returns a user's grant history.
func (s *Service) ListFor(ctx context.Context, userID int64) ([]entity.PointsRecord, error) {
	ctx, span := serviceTracer.Start(ctx, "PointsService.ListFor", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list points records", errorbank.WithCause(err))
	}
	return records, nil
}
