package analytics

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ms-storefront/internal/models"

	"github.com/uptrace/bun"
)

// Service aggregates storefront sales data for the admin dashboard.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// RevenueSummary aggregates order revenue across the pipeline.
type RevenueSummary struct {
	TotalRevenue    float64         `json:"total_revenue"`
	TotalOrders     int             `json:"total_orders"`
	StatusBreakdown []StatusMetrics `json:"status_breakdown"`
}

// StatusMetrics contains order metrics for a single status
type StatusMetrics struct {
	Status  string  `bun:"status" json:"status"`
	Orders  int     `bun:"orders" json:"orders"`
	Revenue float64 `bun:"revenue" json:"revenue"`
}

// TierMetrics contains the user count per loyalty tier
type TierMetrics struct {
	Tier  string `bun:"tier" json:"tier"`
	Users int    `bun:"users" json:"users"`
}

// GiftCardLiability is the outstanding value of unredeemed, unexpired
// gift cards.
type GiftCardLiability struct {
	OutstandingCards   int     `json:"outstanding_cards"`
	OutstandingBalance float64 `json:"outstanding_balance"`
	RedeemedCards      int     `json:"redeemed_cards"`
}

// ProductSales contains sales metrics for a single product
type ProductSales struct {
	ProductID string  `bun:"product_id" json:"product_id"`
	Name      string  `bun:"name" json:"name"`
	Units     int     `bun:"units" json:"units"`
	Revenue   float64 `bun:"revenue" json:"revenue"`
}

// GetRevenueSummary returns revenue and order counts per status.
// Cancelled and refunded orders appear in the breakdown but not in the
// totals.
func (s *Service) GetRevenueSummary(ctx context.Context) (*RevenueSummary, error) {
	var breakdown []StatusMetrics
	err := s.db.NewSelect().
		Model((*models.Order)(nil)).
		ColumnExpr("status").
		ColumnExpr("count(*) AS orders").
		ColumnExpr("coalesce(sum(final_total), 0) AS revenue").
		GroupExpr("status").
		Scan(ctx, &breakdown)
	if err != nil {
		return nil, err
	}

	summary := &RevenueSummary{StatusBreakdown: breakdown}
	for _, row := range breakdown {
		if row.Status == models.OrderStatusCancelled || row.Status == models.OrderStatusRefunded {
			continue
		}
		summary.TotalOrders += row.Orders
		summary.TotalRevenue += row.Revenue
	}
	return summary, nil
}

// GetTierDistribution returns how many users hold each loyalty tier.
func (s *Service) GetTierDistribution(ctx context.Context) ([]TierMetrics, error) {
	var tiers []TierMetrics
	err := s.db.NewSelect().
		Model((*models.User)(nil)).
		ColumnExpr("tier").
		ColumnExpr("count(*) AS users").
		GroupExpr("tier").
		OrderExpr("users DESC").
		Scan(ctx, &tiers)
	if err != nil {
		return nil, err
	}
	return tiers, nil
}

// GetGiftCardLiability returns the value of gift cards still waiting
// to be redeemed.
func (s *Service) GetGiftCardLiability(ctx context.Context) (*GiftCardLiability, error) {
	liability := &GiftCardLiability{}

	err := s.db.NewSelect().
		Model((*models.GiftCard)(nil)).
		ColumnExpr("count(*)").
		ColumnExpr("coalesce(sum(balance), 0)").
		Where("is_redeemed = ?", false).
		Where("expires_at > ?", time.Now()).
		Scan(ctx, &liability.OutstandingCards, &liability.OutstandingBalance)
	if err != nil {
		return nil, err
	}

	redeemed, err := s.db.NewSelect().
		Model((*models.GiftCard)(nil)).
		Where("is_redeemed = ?", true).
		Count(ctx)
	if err != nil {
		return nil, err
	}
	liability.RedeemedCards = redeemed

	return liability, nil
}

// GetTopProducts returns the best sellers by revenue, ignoring
// cancelled and refunded orders.
func (s *Service) GetTopProducts(ctx context.Context, limit int) ([]ProductSales, error) {
	if limit <= 0 {
		limit = 10
	}

	var products []ProductSales
	err := s.db.NewRaw(`
		SELECT
			i.product_id AS product_id,
			i.name AS name,
			SUM(i.quantity) AS units,
			SUM(i.quantity * i.unit_price) AS revenue
		FROM order_items i
		JOIN orders o ON o.order_id = i.order_id
		WHERE o.status NOT IN (?, ?)
		GROUP BY i.product_id, i.name
		ORDER BY revenue DESC
		LIMIT ?
	`, models.OrderStatusCancelled, models.OrderStatusRefunded, limit).
		Scan(ctx, &products)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// IsAdmin reports whether the user may see the dashboard.
func (s *Service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var user models.User
	err := s.db.NewSelect().
		Model(&user).
		Column("is_admin").
		Where("id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin, nil
}
