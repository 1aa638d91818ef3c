package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Comment is a product review left by a user, optionally linked to the
// order it came from.
type Comment struct {
	bun.BaseModel `bun:"table:comments"`

	ID        int64  `bun:",pk,autoincrement"`
	Content   string `bun:"content"`
	UserID    int64  `bun:"user_id"`
	ProductID int64  `bun:"product_id"`
	OrderID   int64  `bun:"order_id,nullzero"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
