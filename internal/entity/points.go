package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Grant types recorded on points records.
const (
	GrantOrderConfirm = "ORDER_CONFIRM"
	GrantComment      = "COMMENT"
)

// PointsRecord is one loyalty-points grant. Records are append-only:
// nothing in the codebase updates or deletes them, a user's balance is
// always the sum over their rows.
type PointsRecord struct {
	bun.BaseModel `bun:"table:points_records"`

	ID          int64           `bun:",pk,autoincrement"`
	UserID      int64           `bun:"user_id"`
	Amount      decimal.Decimal `bun:"amount"`
	Type        string          `bun:"type"`
	Description string          `bun:"description"`
	OrderID     int64           `bun:"order_id,nullzero"`
	ProductID   int64           `bun:"product_id,nullzero"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
