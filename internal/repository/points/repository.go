package points

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/bazaar/internal/database"
	"github.com/Additional-Code/bazaar/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/bazaar/repository/points")

// Repository stores loyalty-points grants. Rows are append-only; there is
// deliberately no update or delete here.
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

// Create appends a new grant record.
func (r *Repository) Create(ctx context.Context, record *entity.PointsRecord) error {
	if record == nil {
		return errors.New("nil points record")
	}
	ctx, span := repoTracer.Start(ctx, "PointsRepository.Create", trace.WithAttributes(
		attribute.Int64("user.id", record.UserID),
		attribute.String("points.type", record.Type),
	))
	defer span.End()

	_, err := r.writer.NewInsert().Model(record).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// ListByUser returns all grants for a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]entity.PointsRecord, error) {
	ctx, span := repoTracer.Start(ctx, "PointsRepository.ListByUser", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	var records []entity.PointsRecord
	err := r.reader.NewSelect().Model(&records).
		Where("user_id = ?", userID).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return records, nil
}

// TotalFor sums all grants for a user; zero when none exist.
func (r *Repository) TotalFor(ctx context.Context, userID int64) (decimal.Decimal, error) {
	ctx, span := repoTracer.Start(ctx, "PointsRepository.TotalFor", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	var total decimal.Decimal
	err := r.reader.NewSelect().Model((*entity.PointsRecord)(nil)).
		ColumnExpr("COALESCE(SUM(amount), 0)").
		Where("user_id = ?", userID).
		Scan(ctx, &total)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return decimal.Zero, err
	}
	return total, nil
}
