package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"ms-storefront/internal/giftcard/db"
	"ms-storefront/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	// Connect to an in-memory SQLite DB for testing
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	for _, model := range []interface{}{
		(*models.User)(nil),
		(*models.GiftCard)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(context.Background()); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func seedCard(t *testing.T, cardDB *db.DB, code string, balance float64) models.GiftCard {
	card := models.GiftCard{
		ID:             uuid.New().String(),
		Code:           code,
		Balance:        balance,
		OriginalAmount: balance,
		ExpiresAt:      time.Now().Add(365 * 24 * time.Hour),
		CreatedAt:      time.Now(),
	}
	assert.NoError(t, cardDB.CreateGiftCard(context.Background(), card))
	return card
}

func seedUser(t *testing.T, bunDB *bun.DB, id string) {
	user := models.User{ID: id, Email: id + "@example.com", FullName: "Test User", Tier: "SILVER", CreatedAt: time.Now()}
	_, err := bunDB.NewInsert().Model(&user).Exec(context.Background())
	assert.NoError(t, err)
}

func TestGetGiftCardByCode(t *testing.T) {
	cardDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedCard(t, cardDB, "GC-ABCD2345", 100)

	found, err := cardDB.GetGiftCardByCode(context.Background(), "GC-ABCD2345")
	assert.NoError(t, err)
	assert.Equal(t, 100.0, found.Balance)

	_, err = cardDB.GetGiftCardByCode(context.Background(), "GC-MISSING2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCodeExists(t *testing.T) {
	cardDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedCard(t, cardDB, "GC-ABCD2345", 100)

	exists, err := cardDB.CodeExists(context.Background(), "GC-ABCD2345")
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = cardDB.CodeExists(context.Background(), "GC-FRESH234")
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestRedeemTxCreditsPointsOnce(t *testing.T) {
	cardDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	card := seedCard(t, cardDB, "GC-ABCD2345", 100)
	seedUser(t, bunDB, "user123")

	redeemed, err := cardDB.RedeemTx(context.Background(), card.ID, "user123", 1000, time.Now())
	assert.NoError(t, err)
	assert.True(t, redeemed)

	stored, err := cardDB.GetGiftCardByCode(context.Background(), "GC-ABCD2345")
	assert.NoError(t, err)
	assert.True(t, stored.IsRedeemed)
	assert.Equal(t, "user123", stored.RedeemedBy)

	var user models.User
	err = bunDB.NewSelect().Model(&user).Where("id = ?", "user123").Scan(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1000, user.Points)
}

func TestRedeemTxSecondAttemptLoses(t *testing.T) {
	cardDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	card := seedCard(t, cardDB, "GC-ABCD2345", 100)
	seedUser(t, bunDB, "user123")
	seedUser(t, bunDB, "user456")

	redeemed, err := cardDB.RedeemTx(context.Background(), card.ID, "user123", 1000, time.Now())
	assert.NoError(t, err)
	assert.True(t, redeemed)

	// The conditional UPDATE matches zero rows the second time
	redeemed, err = cardDB.RedeemTx(context.Background(), card.ID, "user456", 1000, time.Now())
	assert.NoError(t, err)
	assert.False(t, redeemed)

	var loser models.User
	err = bunDB.NewSelect().Model(&loser).Where("id = ?", "user456").Scan(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, loser.Points)
}

func TestRedeemTxMissingUserRollsBack(t *testing.T) {
	cardDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	card := seedCard(t, cardDB, "GC-ABCD2345", 100)

	_, err := cardDB.RedeemTx(context.Background(), card.ID, "ghost", 1000, time.Now())
	assert.Error(t, err)

	// The card flip must have rolled back with the failed points credit
	stored, err := cardDB.GetGiftCardByCode(context.Background(), "GC-ABCD2345")
	assert.NoError(t, err)
	assert.False(t, stored.IsRedeemed)
}
