package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"ms-storefront/internal/models"
	"ms-storefront/internal/order/db"

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
		(*models.OrderItem)(nil),
		(*models.Product)(nil),
		(*models.Coupon)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(context.Background()); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func seedUser(t *testing.T, bunDB *bun.DB) {
	user := models.User{ID: "user123", Email: "u@example.com", FullName: "Test User", Tier: "SILVER", CreatedAt: time.Now()}
	_, err := bunDB.NewInsert().Model(&user).Exec(context.Background())
	assert.NoError(t, err)
}

func sampleOrder(userID string, finalTotal float64) models.Order {
	return models.Order{
		OrderID:    uuid.New().String(),
		UserID:     userID,
		Status:     models.OrderStatusPending,
		Total:      finalTotal,
		FinalTotal: finalTotal,
		CreatedAt:  time.Now(),
	}
}

func TestCreateOrderTxBumpsUserAggregates(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	seedUser(t, bunDB)

	order := sampleOrder("user123", 51)
	items := []models.OrderItem{
		{ID: uuid.New().String(), OrderID: order.OrderID, ProductID: "prod-latte", Name: "Algorithmic Latte", UnitPrice: 18, Quantity: 2},
	}

	err := orderDB.CreateOrderTx(context.Background(), order, items)
	assert.NoError(t, err)

	stored, err := orderDB.GetOrderByID(context.Background(), order.OrderID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)

	storedItems, err := orderDB.GetOrderItems(context.Background(), order.OrderID)
	assert.NoError(t, err)
	assert.Len(t, storedItems, 1)

	user, err := orderDB.GetUserByID(context.Background(), "user123")
	assert.NoError(t, err)
	assert.Equal(t, 1, user.OrderCount)
	assert.Equal(t, 51.0, user.TotalSpent)
}

func TestUpdateOrderStatus(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	seedUser(t, bunDB)

	order := sampleOrder("user123", 20)
	assert.NoError(t, orderDB.CreateOrderTx(context.Background(), order, nil))

	err := orderDB.UpdateOrderStatus(context.Background(), order.OrderID, models.OrderStatusBrewing)
	assert.NoError(t, err)

	stored, err := orderDB.GetOrderByID(context.Background(), order.OrderID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusBrewing, stored.Status)
	assert.False(t, stored.UpdatedAt.IsZero())
}

func TestUpdateOrderStatusMissingOrder(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	err := orderDB.UpdateOrderStatus(context.Background(), "ghost", models.OrderStatusBrewing)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListOrdersByUserNewestFirst(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	seedUser(t, bunDB)

	old := sampleOrder("user123", 10)
	old.CreatedAt = time.Now().Add(-time.Hour)
	recent := sampleOrder("user123", 20)
	assert.NoError(t, orderDB.CreateOrderTx(context.Background(), old, nil))
	assert.NoError(t, orderDB.CreateOrderTx(context.Background(), recent, nil))

	orders, err := orderDB.ListOrdersByUser(context.Background(), "user123")
	assert.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Equal(t, recent.OrderID, orders[0].OrderID)
}

func TestLastOrderAtFirstTimeBuyer(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	_, hasOrders, err := orderDB.LastOrderAt(context.Background(), "user123")
	assert.NoError(t, err)
	assert.False(t, hasOrders)
}

func TestLastOrderAtReturnsNewestOrder(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	seedUser(t, bunDB)

	old := sampleOrder("user123", 10)
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	recent := sampleOrder("user123", 20)
	assert.NoError(t, orderDB.CreateOrderTx(context.Background(), old, nil))
	assert.NoError(t, orderDB.CreateOrderTx(context.Background(), recent, nil))

	last, hasOrders, err := orderDB.LastOrderAt(context.Background(), "user123")
	assert.NoError(t, err)
	assert.True(t, hasOrders)
	assert.WithinDuration(t, recent.CreatedAt, last, time.Second)
}

func TestGetProductsByIDs(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	products := []models.Product{
		{ID: "prod-latte", SKU: "LATTE-01", Name: "Algorithmic Latte", Price: 18, InStock: true, CreatedAt: time.Now()},
		{ID: "prod-beans", SKU: "BEANS-01", Name: "Quantum Roast", Price: 60, InStock: true, CreatedAt: time.Now()},
	}
	_, err := bunDB.NewInsert().Model(&products).Exec(context.Background())
	assert.NoError(t, err)

	found, err := orderDB.GetProductsByIDs(context.Background(), []string{"prod-latte", "prod-missing"})
	assert.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, "Algorithmic Latte", found[0].Name)

	none, err := orderDB.GetProductsByIDs(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetCoupon(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	coupon := models.Coupon{
		Code:         "BREW10",
		DiscountRate: 0.10,
		Kind:         models.CouponKindGeneral,
		Active:       true,
		ValidFrom:    time.Now().Add(-time.Hour),
		ValidUntil:   time.Now().Add(time.Hour),
	}
	_, err := bunDB.NewInsert().Model(&coupon).Exec(context.Background())
	assert.NoError(t, err)

	found, err := orderDB.GetCoupon(context.Background(), "BREW10")
	assert.NoError(t, err)
	assert.Equal(t, 0.10, found.DiscountRate)

	_, err = orderDB.GetCoupon(context.Background(), "NOPE")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
