package entity

import (
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// Status is an order lifecycle state. The values are the short numeric
// codes the storefront client already speaks, so they go over the wire
// unchanged.
type Status string

const (
	StatusPendingPayment Status = "1"
	StatusPaid           Status = "2"
	StatusShipped        Status = "3"
	StatusAwaitingReview Status = "4"
	StatusCompleted      Status = "5"
	StatusCancelled      Status = "7"
)

// Valid reports whether s is one of the known lifecycle codes.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusPaid, StatusShipped,
		StatusAwaitingReview, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// PreShipment reports whether the order has not been handed to a carrier
// yet. Admin cancellation is only allowed in these states.
func (s Status) PreShipment() bool {
	return s == StatusPendingPayment || s == StatusPaid
}

// Order represents a purchase order stored in the relational database.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID     int64  `bun:",pk,autoincrement"`
	Number string `bun:"order_number"`
	Status Status `bun:"status"`

	ProductID int64  `bun:"product_id"`
	UserID    int64  `bun:"user_id"`
	Count     string `bun:"count"`

	ReceiverName    string `bun:"receiver_name"`
	ReceiverPhone   string `bun:"receiver_phone"`
	ReceiverAddress string `bun:"receiver_address"`
	Remark          string `bun:"remark"`

	TrackingNumber  string    `bun:"tracking_number"`
	ShippingCompany string    `bun:"shipping_company"`
	ShippingRemark  string    `bun:"shipping_remark"`
	ShippingTime    time.Time `bun:"shipping_time,nullzero"`

	OrderTime time.Time `bun:"order_time,nullzero"`
	PayTime   time.Time `bun:"pay_time,nullzero"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `bun:"updated_at,nullzero"`
}

// Quantity parses the stored count. The column is a string for historical
// reasons, so every consumer has to go through this.
func (o *Order) Quantity() (int, error) {
	return strconv.Atoi(o.Count)
}
