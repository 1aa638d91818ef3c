package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PointsRecordResponse represents one grant as exposed via transport layers.
type PointsRecordResponse struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	OrderID     int64           `json:"orderId,omitempty"`
	ProductID   int64           `json:"productId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// PointsTotalResponse is the balance summary for a user.
type PointsTotalResponse struct {
	UserID int64           `json:"userId"`
	Total  decimal.Decimal `json:"total"`
}
