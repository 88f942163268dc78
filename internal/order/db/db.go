package db

import (
	"context"
	"database/sql"
	"time"

	"ms-storefront/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- ORDERS ----------------

// GetOrderByID → fetch one order by its ID
func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("order_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItems → fetch the line items for an order
func (d *DB) GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := d.Bun.NewSelect().
		Model(&items).
		Where("order_id = ?", orderID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListOrdersByUser → newest first
func (d *DB) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrderTx inserts the order with its items and bumps the user's
// cumulative spend and order count, all in one transaction.
func (d *DB) CreateOrderTx(ctx context.Context, order models.Order, items []models.OrderItem) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&order).Exec(ctx); err != nil {
			return err
		}
		if len(items) > 0 {
			if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
				return err
			}
		}
		_, err := tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("order_count = order_count + 1").
			Set("total_spent = total_spent + ?", order.FinalTotal).
			Where("id = ?", order.UserID).
			Exec(ctx)
		return err
	})
}

// UpdateOrderStatus → the only mutation orders see after creation
func (d *DB) UpdateOrderStatus(ctx context.Context, id, status string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("order_id = ?", id).
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
	return nil
}

// ---------------- CHECKOUT LOOKUPS ----------------

// GetUserByID → fetch the ordering user; sql.ErrNoRows when absent
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

// GetProductsByIDs → catalog rows for the requested products. Prices
// always come from here, never from the request payload.
func (d *DB) GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := d.Bun.NewSelect().
		Model(&products).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// GetCoupon → sql.ErrNoRows when the code is unknown
func (d *DB) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := d.Bun.NewSelect().
		Model(&coupon).
		Where("code = ?", code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// LastOrderAt → when the user last ordered; ok is false for first-time
// buyers
func (d *DB) LastOrderAt(ctx context.Context, userID string) (time.Time, bool, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return order.CreatedAt, true, nil
}
