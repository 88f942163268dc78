package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Order statuses follow the brewing pipeline. CANCELLED and REFUNDED
// orders never count toward loyalty thresholds.
const (
	OrderStatusPending        = "PENDING"
	OrderStatusBrewing        = "BREWING"
	OrderStatusOutForDelivery = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      = "DELIVERED"
	OrderStatusCancelled      = "CANCELLED"
	OrderStatusRefunded       = "REFUNDED"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID       string    `bun:"order_id,pk" json:"order_id"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	Status        string    `bun:"status,notnull" json:"status"`
	Total         float64   `bun:"total" json:"total"`
	Discount      float64   `bun:"discount" json:"discount"`
	VIPDiscount   float64   `bun:"vip_discount" json:"vip_discount"`
	ShippingFee   float64   `bun:"shipping_fee" json:"shipping_fee"`
	FinalTotal    float64   `bun:"final_total" json:"final_total"`
	AppliedCoupon string    `bun:"applied_coupon,nullzero" json:"applied_coupon,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID        string  `bun:"id,pk" json:"id"`
	OrderID   string  `bun:"order_id,notnull" json:"order_id"`
	ProductID string  `bun:"product_id,notnull" json:"product_id"`
	Name      string  `bun:"name" json:"name"`
	UnitPrice float64 `bun:"unit_price" json:"unit_price"`
	Quantity  int     `bun:"quantity,notnull" json:"quantity"`
}

// CheckoutRequest carries only product references and quantities. Prices
// and discounts are always re-resolved server side.
type CheckoutRequest struct {
	Items      []CheckoutItem `json:"items"`
	CouponCode string         `json:"coupon_code,omitempty"`
}

type CheckoutItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CheckoutResponse struct {
	Order   Order          `json:"order"`
	Items   []OrderItem    `json:"items"`
	Loyalty *LoyaltyStatus `json:"loyalty,omitempty"`
}

type OrderStatusUpdate struct {
	Status string `json:"status"`
}
