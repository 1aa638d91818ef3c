package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Product is a catalog item. Stock and SalesCount are only ever mutated
// through the product repository's conditional updates.
type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID          int64           `bun:",pk,autoincrement"`
	Title       string          `bun:"title"`
	Cover       string          `bun:"cover"`
	Description string          `bun:"description"`
	Price       decimal.Decimal `bun:"price"`
	Stock       int             `bun:"stock"`
	SalesCount  int             `bun:"sales_count"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `bun:"updated_at,nullzero"`
}
