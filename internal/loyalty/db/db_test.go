package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"ms-storefront/internal/loyalty/db"
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
		(*models.Order)(nil),
		(*models.Notification)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(context.Background()); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func insertOrder(t *testing.T, bunDB *bun.DB, userID, status string, finalTotal float64) {
	order := models.Order{
		OrderID:    uuid.New().String(),
		UserID:     userID,
		Status:     status,
		Total:      finalTotal,
		FinalTotal: finalTotal,
		CreatedAt:  time.Now(),
	}
	_, err := bunDB.NewInsert().Model(&order).Exec(context.Background())
	assert.NoError(t, err)
}

func TestCountQualifyingOrdersExcludesCancelled(t *testing.T) {
	loyaltyDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	user := models.User{ID: "user123", Email: "u@example.com", FullName: "Test User", Tier: "SILVER", CreatedAt: time.Now()}
	_, err := bunDB.NewInsert().Model(&user).Exec(context.Background())
	assert.NoError(t, err)

	// 5 delivered + 3 cancelled: only the delivered ones qualify
	for i := 0; i < 5; i++ {
		insertOrder(t, bunDB, "user123", models.OrderStatusDelivered, 40)
	}
	for i := 0; i < 3; i++ {
		insertOrder(t, bunDB, "user123", models.OrderStatusCancelled, 40)
	}
	insertOrder(t, bunDB, "other", models.OrderStatusDelivered, 99)

	count, spent, err := loyaltyDB.CountQualifyingOrders(context.Background(), "user123")
	assert.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, 200.0, spent)
}

func TestCountQualifyingOrdersIncludesPipelineStatuses(t *testing.T) {
	loyaltyDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	insertOrder(t, bunDB, "user123", models.OrderStatusPending, 10)
	insertOrder(t, bunDB, "user123", models.OrderStatusBrewing, 10)
	insertOrder(t, bunDB, "user123", models.OrderStatusOutForDelivery, 10)
	insertOrder(t, bunDB, "user123", models.OrderStatusRefunded, 10)

	count, spent, err := loyaltyDB.CountQualifyingOrders(context.Background(), "user123")
	assert.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 30.0, spent)
}

func TestGetUserByID(t *testing.T) {
	loyaltyDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	user := models.User{ID: "user123", Email: "u@example.com", FullName: "Test User", Tier: "GOLD", CreatedAt: time.Now()}
	_, err := bunDB.NewInsert().Model(&user).Exec(context.Background())
	assert.NoError(t, err)

	found, err := loyaltyDB.GetUserByID(context.Background(), "user123")
	assert.NoError(t, err)
	assert.Equal(t, "GOLD", found.Tier)

	_, err = loyaltyDB.GetUserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUpgradeTierTx(t *testing.T) {
	loyaltyDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	user := models.User{ID: "user123", Email: "u@example.com", FullName: "Test User", Tier: "SILVER", CreatedAt: time.Now()}
	_, err := bunDB.NewInsert().Model(&user).Exec(context.Background())
	assert.NoError(t, err)

	notification := models.Notification{
		ID:        uuid.New().String(),
		UserID:    "user123",
		Type:      models.NotificationTierUpgrade,
		Title:     "Welcome to GOLD!",
		CreatedAt: time.Now(),
	}

	err = loyaltyDB.UpgradeTierTx(context.Background(), "user123", "GOLD", notification)
	assert.NoError(t, err)

	// Both writes landed
	updated, err := loyaltyDB.GetUserByID(context.Background(), "user123")
	assert.NoError(t, err)
	assert.Equal(t, "GOLD", updated.Tier)

	notifications, err := loyaltyDB.ListNotifications(context.Background(), "user123")
	assert.NoError(t, err)
	assert.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationTierUpgrade, notifications[0].Type)
}

func TestUpgradeTierTxMissingUserRollsBack(t *testing.T) {
	loyaltyDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	notification := models.Notification{
		ID:        uuid.New().String(),
		UserID:    "ghost",
		Type:      models.NotificationTierUpgrade,
		Title:     "Welcome to GOLD!",
		CreatedAt: time.Now(),
	}

	err := loyaltyDB.UpgradeTierTx(context.Background(), "ghost", "GOLD", notification)
	assert.Error(t, err)

	// The notification write must have rolled back with the tier update
	notifications, err := loyaltyDB.ListNotifications(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.Len(t, notifications, 0)
}
