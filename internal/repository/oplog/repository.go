package oplog

import (
	"context"
	"errors"

	"github.com/uptrace/bun"

	"github.com/Additional-Code/bazaar/internal/database"
	"github.com/Additional-Code/bazaar/internal/entity"
)

// Repository stores request audit rows.
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

// Create appends an audit row.
func (r *Repository) Create(ctx context.Context, log *entity.OpLog) error {
	if log == nil {
		return errors.New("nil op log")
	}
	_, err := r.writer.NewInsert().Model(log).Exec(ctx)
	return err
}

// List returns the most recent audit rows, capped at limit.
func (r *Repository) List(ctx context.Context, limit int) ([]entity.OpLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var logs []entity.OpLog
	err := r.reader.NewSelect().Model(&logs).
		OrderExpr("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return logs, nil
}
