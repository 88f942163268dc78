package models

// LoyaltyStatus is what the loyalty evaluator reports after every
// successfully placed order.
type LoyaltyStatus struct {
	Tier             string  `json:"tier"`
	OrderCount       int     `json:"order_count"`
	TotalSpent       float64 `json:"total_spent"`
	OrdersToNextTier int     `json:"orders_to_next_tier"`
	NextTier         string  `json:"next_tier,omitempty"`
	JustUpgraded     bool    `json:"just_upgraded"`
}
