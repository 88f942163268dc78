package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"ms-storefront/internal/config"
	"ms-storefront/internal/models"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// Development reset tool. Drops and recreates every table, then seeds a
// small coffee catalog. Never point it at production.
func main() {
	ctx := context.Background()

	_ = godotenv.Load()
	cfg := config.Load()

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Database.Username, cfg.Database.Password,
		cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqldb.Close()

	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())

	log.Println("Dropping tables...")
	dropTables(ctx, db)

	log.Println("Creating tables...")
	createTables(ctx, db)

	log.Println("Seeding sample data...")
	seedData(ctx, db)

	log.Println("✅ Done.")
}

func dropTables(ctx context.Context, db *bun.DB) {
	tables := []interface{}{
		(*models.Notification)(nil),
		(*models.GiftCard)(nil),
		(*models.OrderItem)(nil),
		(*models.Order)(nil),
		(*models.Coupon)(nil),
		(*models.Product)(nil),
		(*models.User)(nil),
	}
	for _, m := range tables {
		_, _ = db.NewDropTable().Model(m).IfExists().Cascade().Exec(ctx)
	}
}

func createTables(ctx context.Context, db *bun.DB) {
	tables := []interface{}{
		(*models.User)(nil),
		(*models.Product)(nil),
		(*models.Coupon)(nil),
		(*models.Order)(nil),
		(*models.OrderItem)(nil),
		(*models.GiftCard)(nil),
		(*models.Notification)(nil),
	}
	for _, m := range tables {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			log.Fatalf("❌ Failed to create table for %T: %v", m, err)
		}
	}
}

func seedData(ctx context.Context, db *bun.DB) {
	now := time.Now()

	users := []models.User{
		{ID: "user-admin", Email: "admin@brewly.coffee", FullName: "Brewly Admin", Tier: "PLATINUM", IsAdmin: true, CreatedAt: now},
		{ID: "user-demo", Email: "demo@brewly.coffee", FullName: "Demo Drinker", Tier: "SILVER", CreatedAt: now},
	}
	_, _ = db.NewInsert().Model(&users).Exec(ctx)

	products := []models.Product{
		{ID: "prod-espresso", SKU: "BRW-ESP-01", Name: "Espresso", Description: "Double shot, house roast", Price: 12, Tags: []string{"COFFEE"}, InStock: true, CreatedAt: now},
		{ID: "prod-latte", SKU: "BRW-LAT-01", Name: "Latte", Description: "Espresso with steamed milk", Price: 18, Tags: []string{"COFFEE"}, InStock: true, CreatedAt: now},
		{ID: "prod-coldbrew", SKU: "BRW-CLD-01", Name: "Cold Brew", Description: "Slow steeped for 18 hours", Price: 20, Tags: []string{"COFFEE"}, InStock: true, CreatedAt: now},
		{ID: "prod-croissant", SKU: "BRW-CRS-01", Name: "Butter Croissant", Description: "Baked fresh every morning", Price: 14, Tags: []string{models.TagPastry}, InStock: true, CreatedAt: now},
		{ID: "prod-babka", SKU: "BRW-BBK-01", Name: "Chocolate Babka", Description: "Sliced, served warm", Price: 16, Tags: []string{models.TagPastry}, InStock: true, CreatedAt: now},
		{ID: "prod-beans", SKU: "BRW-BNS-01", Name: "House Blend Beans", Description: "250g whole bean bag", Price: 52, Tags: []string{"BEANS"}, InStock: true, CreatedAt: now},
	}
	_, _ = db.NewInsert().Model(&products).Exec(ctx)

	coupons := []models.Coupon{
		{Code: "WELCOME10", Description: "10% off your order", DiscountRate: 0.10, Kind: models.CouponKindGeneral, Active: true, ValidFrom: now.AddDate(0, 0, -1), ValidUntil: now.AddDate(0, 3, 0)},
		{Code: "COMEBACK15", Description: "15% off, we missed you", DiscountRate: 0.15, Kind: models.CouponKindReengagement, Active: true, ValidFrom: now.AddDate(0, 0, -1), ValidUntil: now.AddDate(0, 3, 0)},
	}
	_, _ = db.NewInsert().Model(&coupons).Exec(ctx)
}
