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

func (d *DB) CreateGiftCard(ctx context.Context, card models.GiftCard) error {
	_, err := d.Bun.NewInsert().Model(&card).Exec(ctx)
	return err
}

// GetGiftCardByCode → sql.ErrNoRows when the code is unknown
func (d *DB) GetGiftCardByCode(ctx context.Context, code string) (*models.GiftCard, error) {
	var card models.GiftCard
	err := d.Bun.NewSelect().
		Model(&card).
		Where("code = ?", code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// CodeExists reports whether a code is already taken.
func (d *DB) CodeExists(ctx context.Context, code string) (bool, error) {
	count, err := d.Bun.NewSelect().
		Model((*models.GiftCard)(nil)).
		Where("code = ?", code).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RedeemTx flips the card to redeemed and credits the points, both in
// one transaction. The UPDATE is conditional on is_redeemed = false, so
// two concurrent redemptions can never both win: the loser sees zero
// rows affected and gets redeemed = false back.
func (d *DB) RedeemTx(ctx context.Context, cardID, userID string, points int, at time.Time) (bool, error) {
	redeemed := false
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.GiftCard)(nil)).
			Set("is_redeemed = ?", true).
			Set("redeemed_by = ?", userID).
			Set("redeemed_at = ?", at).
			Where("id = ?", cardID).
			Where("is_redeemed = ?", false).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}

		res, err = tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("points = points + ?", points).
			Where("id = ?", userID).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return sql.ErrNoRows
		}

		redeemed = true
		return nil
	})
	return redeemed, err
}
