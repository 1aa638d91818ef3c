package dto

import "time"

// OrderResponse represents an order as exposed via transport layers. The
// status field carries the legacy numeric code unchanged.
type OrderResponse struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"orderNumber"`
	Status      string `json:"status"`

	ProductID int64  `json:"productId"`
	UserID    int64  `json:"userId"`
	Count     string `json:"count"`

	ReceiverName    string `json:"receiverName,omitempty"`
	ReceiverPhone   string `json:"receiverPhone,omitempty"`
	ReceiverAddress string `json:"receiverAddress,omitempty"`
	Remark          string `json:"remark,omitempty"`

	TrackingNumber  string     `json:"trackingNumber,omitempty"`
	ShippingCompany string     `json:"shippingCompany,omitempty"`
	ShippingRemark  string     `json:"shippingRemark,omitempty"`
	ShippingTime    *time.Time `json:"shippingTime,omitempty"`

	OrderTime time.Time  `json:"orderTime"`
	PayTime   *time.Time `json:"payTime,omitempty"`
}
