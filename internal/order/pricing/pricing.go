package pricing

import (
	"math"
	"time"

	"ms-storefront/internal/logger"
	"ms-storefront/internal/loyalty"
	"ms-storefront/internal/models"
)

// ReengagementInactivity is how long a user must have gone without
// ordering before a re-engagement coupon applies to them.
const ReengagementInactivity = 30 * 24 * time.Hour

// Calculator combines coupon, VIP discount and shipping fee into the
// final charge. Tier and coupon eligibility are always resolved server
// side; nothing here reads client-declared prices.
type Calculator struct {
	logger *logger.Logger
}

func NewCalculator() *Calculator {
	return &Calculator{
		logger: logger.NewLogger(),
	}
}

// CouponEligibility carries the order-history facts the coupon check
// needs, resolved from the database rather than the request.
type CouponEligibility struct {
	HasOrders   bool
	LastOrderAt time.Time
}

// QuoteResult represents the result of pricing an order
type QuoteResult struct {
	Subtotal       float64 // Raw cart total, re-priced from the catalog
	CouponDiscount float64 // Amount taken off by the coupon, if applied
	VIPDiscount    float64 // Tier-based discount amount
	ShippingFee    float64 // Zero when the tier ships free
	FinalTotal     float64 // What the card is charged
	CouponApplied  bool    // Whether the coupon passed every check
	Reason         string  // Why the coupon was not applied (if it wasn't)
}

// Quote prices an order. Every multiplication is rounded to cents
// before the next step so repeated quotes cannot drift.
func (c *Calculator) Quote(total float64, coupon *models.Coupon, eligibility CouponEligibility, benefits loyalty.Benefits, now time.Time) *QuoteResult {
	result := &QuoteResult{
		Subtotal: total,
	}

	// Step 1: tier discount, independent of coupons
	result.VIPDiscount = Round2(total * benefits.VIPDiscount)

	// Step 2: coupon discount, only when the coupon exists and every
	// eligibility check passes
	if coupon == nil {
		result.Reason = "No coupon supplied"
	} else if applied, reason := c.checkCoupon(coupon, eligibility, now); !applied {
		result.Reason = reason
	} else {
		result.CouponDiscount = Round2(total * coupon.DiscountRate)
		result.CouponApplied = true
	}

	// Step 3: shipping
	if benefits.FreeShipping {
		result.ShippingFee = 0
	} else {
		result.ShippingFee = benefits.ShippingFee
	}

	// Step 4: final charge, never negative
	discounted := Round2(total - result.CouponDiscount - result.VIPDiscount)
	if discounted < 0 {
		discounted = 0
	}
	result.FinalTotal = discounted + result.ShippingFee

	return result
}

func (c *Calculator) checkCoupon(coupon *models.Coupon, eligibility CouponEligibility, now time.Time) (bool, string) {
	if !coupon.Active {
		return false, "Coupon is not active"
	}
	if now.Before(coupon.ValidFrom) {
		return false, "Coupon is not yet valid"
	}
	if now.After(coupon.ValidUntil) {
		return false, "Coupon has expired"
	}

	// Re-engagement coupons only apply to users who drifted away: they
	// have ordered before, but not within the inactivity window.
	if coupon.Kind == models.CouponKindReengagement {
		if !eligibility.HasOrders {
			return false, "Re-engagement coupon requires a previous order"
		}
		if now.Sub(eligibility.LastOrderAt) < ReengagementInactivity {
			return false, "Re-engagement coupon requires an inactive account"
		}
	}

	return true, ""
}

// Round2 rounds to two decimal places (cents).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
