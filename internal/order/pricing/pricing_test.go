package pricing_test

import (
	"testing"
	"time"

	"ms-storefront/internal/loyalty"
	"ms-storefront/internal/models"
	"ms-storefront/internal/order/pricing"

	"github.com/stretchr/testify/assert"
)

func activeCoupon(rate float64, kind string) *models.Coupon {
	return &models.Coupon{
		Code:         "BREW10",
		DiscountRate: rate,
		Kind:         kind,
		Active:       true,
		ValidFrom:    time.Now().Add(-24 * time.Hour),
		ValidUntil:   time.Now().Add(24 * time.Hour),
	}
}

func TestQuoteCombinesCouponVIPAndShipping(t *testing.T) {
	calc := pricing.NewCalculator()
	benefits := loyalty.BenefitsFor(loyalty.TierGold) // 5% VIP, ₪10 shipping

	result := calc.Quote(100, activeCoupon(0.10, models.CouponKindGeneral), pricing.CouponEligibility{}, benefits, time.Now())

	assert.True(t, result.CouponApplied)
	assert.Equal(t, 10.0, result.CouponDiscount)
	assert.Equal(t, 5.0, result.VIPDiscount)
	assert.Equal(t, 10.0, result.ShippingFee)
	assert.Equal(t, 95.0, result.FinalTotal) // 100 - 10 - 5 + 10
}

func TestQuoteRoundsEachStepToCents(t *testing.T) {
	calc := pricing.NewCalculator()
	benefits := loyalty.BenefitsFor(loyalty.TierGold)

	// 19.99 * 0.05 = 0.9995 → 1.00, 19.99 * 0.15 = 2.9985 → 3.00
	result := calc.Quote(19.99, activeCoupon(0.15, models.CouponKindGeneral), pricing.CouponEligibility{}, benefits, time.Now())

	assert.Equal(t, 3.0, result.CouponDiscount)
	assert.Equal(t, 1.0, result.VIPDiscount)
	assert.InDelta(t, 25.99, result.FinalTotal, 0.0001) // 19.99 - 3.00 - 1.00 + 10
}

func TestQuoteNeverGoesNegative(t *testing.T) {
	calc := pricing.NewCalculator()
	benefits := loyalty.BenefitsFor(loyalty.TierPlatinum) // free shipping

	// A 100% coupon on top of a VIP discount must clamp at zero
	result := calc.Quote(50, activeCoupon(1.0, models.CouponKindGeneral), pricing.CouponEligibility{}, benefits, time.Now())

	assert.GreaterOrEqual(t, result.FinalTotal, 0.0)
	assert.Equal(t, 0.0, result.FinalTotal)
}

func TestQuoteFreeShippingForPlatinum(t *testing.T) {
	calc := pricing.NewCalculator()

	result := calc.Quote(40, nil, pricing.CouponEligibility{}, loyalty.BenefitsFor(loyalty.TierPlatinum), time.Now())

	assert.Equal(t, 0.0, result.ShippingFee)
	assert.Equal(t, 4.0, result.VIPDiscount)
	assert.Equal(t, 36.0, result.FinalTotal)
	assert.Equal(t, "No coupon supplied", result.Reason)
}

func TestQuoteRejectsInactiveCoupon(t *testing.T) {
	calc := pricing.NewCalculator()
	coupon := activeCoupon(0.10, models.CouponKindGeneral)
	coupon.Active = false

	result := calc.Quote(100, coupon, pricing.CouponEligibility{}, loyalty.BenefitsFor(loyalty.TierSilver), time.Now())

	assert.False(t, result.CouponApplied)
	assert.Equal(t, 0.0, result.CouponDiscount)
	assert.Equal(t, "Coupon is not active", result.Reason)
}

func TestQuoteRejectsExpiredCoupon(t *testing.T) {
	calc := pricing.NewCalculator()
	coupon := activeCoupon(0.10, models.CouponKindGeneral)
	coupon.ValidUntil = time.Now().Add(-time.Hour)

	result := calc.Quote(100, coupon, pricing.CouponEligibility{}, loyalty.BenefitsFor(loyalty.TierSilver), time.Now())

	assert.False(t, result.CouponApplied)
	assert.Equal(t, "Coupon has expired", result.Reason)
}

func TestReengagementCouponRequiresInactivity(t *testing.T) {
	calc := pricing.NewCalculator()
	coupon := activeCoupon(0.20, models.CouponKindReengagement)
	benefits := loyalty.BenefitsFor(loyalty.TierSilver)
	now := time.Now()

	// Ordered yesterday: not inactive, coupon refused
	recent := pricing.CouponEligibility{HasOrders: true, LastOrderAt: now.Add(-24 * time.Hour)}
	result := calc.Quote(100, coupon, recent, benefits, now)
	assert.False(t, result.CouponApplied)
	assert.Equal(t, "Re-engagement coupon requires an inactive account", result.Reason)

	// Never ordered: nothing to re-engage
	fresh := pricing.CouponEligibility{HasOrders: false}
	result = calc.Quote(100, coupon, fresh, benefits, now)
	assert.False(t, result.CouponApplied)

	// Last order 45 days ago: eligible
	dormant := pricing.CouponEligibility{HasOrders: true, LastOrderAt: now.Add(-45 * 24 * time.Hour)}
	result = calc.Quote(100, coupon, dormant, benefits, now)
	assert.True(t, result.CouponApplied)
	assert.Equal(t, 20.0, result.CouponDiscount)
}

// --- Happy hour ---

func pastry(price float64) models.Product {
	return models.Product{
		ID:    "prod-croissant",
		Name:  "Neural Croissant",
		Price: price,
		Tags:  []string{models.TagPastry},
	}
}

func happyHourUTC() *pricing.HappyHour {
	return &pricing.HappyHour{StartHour: 14, EndHour: 17, Location: time.UTC}
}

func at(hour int) time.Time {
	return time.Date(2025, 6, 15, hour, 30, 0, 0, time.UTC)
}

func TestHappyHourPlatinumDiscount(t *testing.T) {
	hh := happyHourUTC()

	// ₪40 at 15% → ₪34, comfortably above the ₪20 floor
	quote := hh.QuoteProduct(pastry(40), loyalty.BenefitsFor(loyalty.TierPlatinum), at(15))

	assert.True(t, quote.HappyHour)
	assert.False(t, quote.FloorClamped)
	assert.Equal(t, 34.0, quote.QuotedPrice)
}

func TestHappyHourFloorClamp(t *testing.T) {
	hh := happyHourUTC()

	// A runaway discount may never undercut half the original price
	deep := loyalty.Benefits{HappyHourDiscount: 0.60}
	quote := hh.QuoteProduct(pastry(40), deep, at(15))

	assert.True(t, quote.FloorClamped)
	assert.Equal(t, 20.0, quote.QuotedPrice)
}

func TestHappyHourOnlyInsideWindow(t *testing.T) {
	hh := happyHourUTC()
	benefits := loyalty.BenefitsFor(loyalty.TierPlatinum)

	before := hh.QuoteProduct(pastry(40), benefits, at(13))
	assert.False(t, before.HappyHour)
	assert.Equal(t, 40.0, before.QuotedPrice)

	edge := hh.QuoteProduct(pastry(40), benefits, at(16))
	assert.True(t, edge.HappyHour)

	after := hh.QuoteProduct(pastry(40), benefits, at(17))
	assert.False(t, after.HappyHour)
	assert.Equal(t, 40.0, after.QuotedPrice)
}

func TestHappyHourIgnoresNonPastry(t *testing.T) {
	hh := happyHourUTC()
	beans := models.Product{ID: "prod-beans", Name: "Quantum Roast", Price: 60, Tags: []string{"BEANS"}}

	quote := hh.QuoteProduct(beans, loyalty.BenefitsFor(loyalty.TierPlatinum), at(15))

	assert.False(t, quote.HappyHour)
	assert.Equal(t, 60.0, quote.QuotedPrice)
}
