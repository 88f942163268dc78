package db

import (
	"context"
	"database/sql"

	"ms-storefront/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// GetUserByID → fetch one user; sql.ErrNoRows when absent.
func (d *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CountQualifyingOrders → count and spend of orders outside
// CANCELLED/REFUNDED, the only orders that count toward tier upgrades.
func (d *DB) CountQualifyingOrders(ctx context.Context, userID string) (int, float64, error) {
	var count int
	var spent float64
	err := d.Bun.NewSelect().
		Model((*models.Order)(nil)).
		ColumnExpr("count(*)").
		ColumnExpr("coalesce(sum(final_total), 0)").
		Where("user_id = ?", userID).
		Where("status NOT IN (?)", bun.In([]string{models.OrderStatusCancelled, models.OrderStatusRefunded})).
		Scan(ctx, &count, &spent)
	if err != nil {
		return 0, 0, err
	}
	return count, spent, nil
}

// UpgradeTierTx applies the tier change and its notification in one
// transaction: both writes land or neither does.
func (d *DB) UpgradeTierTx(ctx context.Context, userID, newTier string, n models.Notification) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("tier = ?", newTier).
			Where("id = ?", userID).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return sql.ErrNoRows
		}

		_, err = tx.NewInsert().Model(&n).Exec(ctx)
		return err
	})
}

// ListNotifications → newest first.
func (d *DB) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := d.Bun.NewSelect().
		Model(&notifications).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return notifications, nil
}
