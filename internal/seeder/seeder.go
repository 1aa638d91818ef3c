package seeder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/Additional-Code/bazaar/internal/database"
	"github.com/Additional-Code/bazaar/internal/entity"
)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Products seeds example catalog items if they are missing.
func (s *Seeder) Products(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []entity.Product{
		{Title: "Walnut Desk Organizer", Price: decimal.RequireFromString("39.99"), Stock: 120, CreatedAt: now, UpdatedAt: now},
		{Title: "Ceramic Pour-Over Kettle", Price: decimal.RequireFromString("64.50"), Stock: 45, CreatedAt: now, UpdatedAt: now},
		{Title: "Linen Throw Blanket", Price: decimal.RequireFromString("89.00"), Stock: 30, CreatedAt: now, UpdatedAt: now},
	}

	for _, sample := range samples {
		product := sample
		_, err := s.db.NewInsert().Model(&product).
			On("CONFLICT (title) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded products", zap.Int("count", len(samples)))
	}
	return nil
}

// Users seeds a development admin and shopper if they are missing.
func (s *Seeder) Users(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []entity.User{
		{Username: "admin", Token: "dev-admin-token", Role: entity.RoleAdmin, CreatedAt: now},
		{Username: "shopper", Token: "dev-shopper-token", Role: entity.RoleUser, CreatedAt: now},
	}

	for _, sample := range samples {
		user := sample
		_, err := s.db.NewInsert().Model(&user).
			On("CONFLICT (username) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded users", zap.Int("count", len(samples)))
	}
	return nil
}
