package loyalty

// Customer tiers, ordinal progression. A user's tier never goes down.
const (
	TierSilver   = "SILVER"
	TierGold     = "GOLD"
	TierPlatinum = "PLATINUM"
)

// Qualifying-order thresholds for each upgrade step.
const (
	GoldThreshold     = 5
	PlatinumThreshold = 10
)

// Benefits is the static per-tier configuration. It is not persisted;
// pricing always resolves it from the authenticated user's tier.
type Benefits struct {
	AIAccess          string  `json:"ai_access"`
	HappyHourDiscount float64 `json:"happy_hour_discount"`
	VIPDiscount       float64 `json:"vip_discount"`
	ShippingFee       float64 `json:"shipping_fee"`
	FreeShipping      bool    `json:"free_shipping"`
}

var tierBenefits = map[string]Benefits{
	TierSilver: {
		AIAccess:          "BASIC",
		HappyHourDiscount: 0.05,
		VIPDiscount:       0,
		ShippingFee:       15,
		FreeShipping:      false,
	},
	TierGold: {
		AIAccess:          "ADVANCED",
		HappyHourDiscount: 0.10,
		VIPDiscount:       0.05,
		ShippingFee:       10,
		FreeShipping:      false,
	},
	TierPlatinum: {
		AIAccess:          "UNLIMITED",
		HappyHourDiscount: 0.15,
		VIPDiscount:       0.10,
		ShippingFee:       0,
		FreeShipping:      true,
	},
}

// NormalizeTier maps unknown or empty tier values to SILVER. The source
// of a tier string is the users table, but rows written before the tier
// column existed carry an empty value.
func NormalizeTier(tier string) string {
	if _, ok := tierBenefits[tier]; !ok {
		return TierSilver
	}
	return tier
}

// BenefitsFor returns the benefits record for a tier. Pure lookup:
// identical input yields identical output, unknown tiers resolve to the
// SILVER benefits rather than erroring.
func BenefitsFor(tier string) Benefits {
	return tierBenefits[NormalizeTier(tier)]
}

// NextStep returns the next tier and the qualifying-order threshold that
// gates it. ok is false for PLATINUM, the terminal tier.
func NextStep(tier string) (next string, threshold int, ok bool) {
	switch NormalizeTier(tier) {
	case TierSilver:
		return TierGold, GoldThreshold, true
	case TierGold:
		return TierPlatinum, PlatinumThreshold, true
	default:
		return "", 0, false
	}
}
