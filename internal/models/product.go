package models

import (
	"time"

	"github.com/uptrace/bun"
)

// TagPastry marks products eligible for happy-hour pricing.
const TagPastry = "PASTRY"

type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID          string    `bun:"id,pk" json:"id"`
	SKU         string    `bun:"sku,unique,notnull" json:"sku"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description,nullzero" json:"description,omitempty"`
	Price       float64   `bun:"price,notnull" json:"price"`
	Tags        []string  `bun:"tags" json:"tags"`
	InStock     bool      `bun:"in_stock" json:"in_stock"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
}

func (p *Product) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ProductQuote is the happy-hour-aware unit price for a caller's tier.
type ProductQuote struct {
	ProductID    string  `json:"product_id"`
	BasePrice    float64 `json:"base_price"`
	QuotedPrice  float64 `json:"quoted_price"`
	HappyHour    bool    `json:"happy_hour"`
	FloorClamped bool    `json:"floor_clamped"`
	TierDiscount float64 `json:"tier_discount"`
}
