package comment

import (
	"context"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/bazaar/internal/database"
	"github.com/Additional-Code/bazaar/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/bazaar/repository/comment")

// Repository encapsulates read/write access for product comments.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new comment.
func (r *Repository) Create(ctx context.Context, c *entity.Comment) error {
	if c == nil {
		return errors.New("nil comment")
	}
	ctx, span := repoTracer.Start(ctx, "CommentRepository.Create", trace.WithAttributes(attribute.Int64("product.id", c.ProductID)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(c).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// ListByProduct returns a product's comments, newest first.
func (r *Repository) ListByProduct(ctx context.Context, productID int64) ([]entity.Comment, error) {
	ctx, span := repoTracer.Start(ctx, "CommentRepository.ListByProduct", trace.WithAttributes(attribute.Int64("product.id", productID)))
	defer span.End()

	var comments []entity.Comment
	err := r.reader.NewSelect().Model(&comments).
		Where("product_id = ?", productID).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return comments, nil
}
