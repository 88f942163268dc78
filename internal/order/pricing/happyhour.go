package pricing

import (
	"time"

	"ms-storefront/internal/loyalty"
	"ms-storefront/internal/models"
)

// Happy-hour pricing never drops a product below this share of its
// original price, whatever the tier discount says.
const HappyHourPriceFloor = 0.5

// HappyHour applies the tier-dependent discount to pastry products
// inside a fixed daily window in the store's timezone.
type HappyHour struct {
	StartHour int
	EndHour   int
	Location  *time.Location
}

// NewHappyHour builds the window; an unknown timezone falls back to UTC
// rather than failing startup.
func NewHappyHour(startHour, endHour int, timezone string) *HappyHour {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &HappyHour{StartHour: startHour, EndHour: endHour, Location: loc}
}

// Active reports whether the given instant falls inside the window.
func (h *HappyHour) Active(at time.Time) bool {
	hour := at.In(h.Location).Hour()
	return hour >= h.StartHour && hour < h.EndHour
}

// QuoteProduct returns the unit price for one product under the given
// tier benefits at the given instant. Only PASTRY-tagged products
// discount, and the price floor clamp wins over the computed discount.
func (h *HappyHour) QuoteProduct(product models.Product, benefits loyalty.Benefits, at time.Time) models.ProductQuote {
	quote := models.ProductQuote{
		ProductID:   product.ID,
		BasePrice:   product.Price,
		QuotedPrice: product.Price,
	}

	if !product.HasTag(models.TagPastry) || !h.Active(at) {
		return quote
	}

	quote.HappyHour = true
	quote.TierDiscount = benefits.HappyHourDiscount

	discounted := Round2(product.Price * (1 - benefits.HappyHourDiscount))
	floor := Round2(product.Price * HappyHourPriceFloor)
	if discounted < floor {
		discounted = floor
		quote.FloorClamped = true
	}
	quote.QuotedPrice = discounted

	return quote
}
