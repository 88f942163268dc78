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

// ListProducts → the full menu, stable order
func (d *DB) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := d.Bun.NewSelect().
		Model(&products).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// GetProductByID → sql.ErrNoRows when absent
func (d *DB) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := d.Bun.NewSelect().
		Model(&product).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (d *DB) CreateProduct(ctx context.Context, product models.Product) error {
	_, err := d.Bun.NewInsert().Model(&product).Exec(ctx)
	return err
}

func (d *DB) UpdateProduct(ctx context.Context, product models.Product) error {
	res, err := d.Bun.NewUpdate().
		Model(&product).
		WherePK().
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

// GetUserByID → the quoting user's tier comes from here
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
