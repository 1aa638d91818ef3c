package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductResponse represents a catalog item as exposed via transport layers.
type ProductResponse struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Cover       string          `json:"cover,omitempty"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	SalesCount  int             `json:"salesCount"`
	CreatedAt   time.Time       `json:"createdAt"`
}
