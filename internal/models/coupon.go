package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Coupon kinds. Re-engagement coupons only apply to users whose last
// order is old enough to have triggered a comeback offer.
const (
	CouponKindGeneral      = "GENERAL"
	CouponKindReengagement = "REENGAGEMENT"
)

type Coupon struct {
	bun.BaseModel `bun:"table:coupons"`

	Code         string    `bun:"code,pk" json:"code"`
	Description  string    `bun:"description,nullzero" json:"description,omitempty"`
	DiscountRate float64   `bun:"discount_rate,notnull" json:"discount_rate"`
	Kind         string    `bun:"kind,notnull" json:"kind"`
	Active       bool      `bun:"active" json:"active"`
	ValidFrom    time.Time `bun:"valid_from,notnull" json:"valid_from"`
	ValidUntil   time.Time `bun:"valid_until,notnull" json:"valid_until"`
}
