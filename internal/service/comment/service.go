package comment

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bazaar/internal/entity"
	repo "github.com/Additional-Code/bazaar/internal/repository/comment"
	pointssvc "github.com/Additional-Code/bazaar/internal/service/points"
	"github.com/Additional-Code/bazaar/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/bazaar/service/comment")

// commentStore is the slice of the comment repository the service consumes.
type commentStore interface {
	Create(ctx context.Context, c *entity.Comment) error
	ListByProduct(ctx context.Context, productID int64) ([]entity.Comment, error)
}

// rewarder hands out the fixed review reward.
type rewarder interface {
	GrantComment(ctx context.Context, userID, orderID, productID int64) error
}

// Service stores product reviews and hands out the review reward.
type Service struct {
	repo   commentStore
	points rewarder
	logger *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Points     *pointssvc.Service
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:   p.Repository,
		points: p.Points,
		logger: p.Logger,
	}
}

// Create stores a comment and then credits the review reward. The grant is
// fire-and-forget: a ledger failure never fails the comment.
func (s *Service) Create(ctx context.Context, c *entity.Comment) error {
	if c == nil || strings.TrimSpace(c.Content) == "" {
		return errorbank.BadRequest("comment content is required")
	}
	if c.UserID == 0 || c.ProductID == 0 {
		return errorbank.BadRequest("comment requires a user and a product")
	}
	ctx, span := serviceTracer.Start(ctx, "CommentService.Create", trace.WithAttributes(
		attribute.Int64("user.id", c.UserID),
		attribute.Int64("product.id", c.ProductID),
	))
	defer span.End()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	if err := s.repo.Create(ctx, c); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to create comment", errorbank.WithCause(err))
	}

	if err := s.points.GrantComment(ctx, c.UserID, c.OrderID, c.ProductID); err != nil {
		s.logger.Error("comment points grant failed",
			zap.Int64("user_id", c.UserID), zap.Int64("comment_id", c.ID), zap.Error(err))
	}

	return nil
}

// ListByProduct returns a product's comments.
func (s *Service) ListByProduct(ctx context.Context, productID int64) ([]entity.Comment, error) {
	ctx, span := serviceTracer.Start(ctx, "CommentService.ListByProduct", trace.WithAttributes(attribute.Int64("product.id", productID)))
	defer span.End()

	comments, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list comments", errorbank.WithCause(err))
	}
	return comments, nil
}
