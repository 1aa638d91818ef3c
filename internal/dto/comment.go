package dto

import "time"

// CommentResponse represents a review as exposed via transport layers.
type CommentResponse struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	UserID    int64     `json:"userId"`
	ProductID int64     `json:"productId"`
	OrderID   int64     `json:"orderId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
