package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-storefront/internal/analytics"
	"ms-storefront/internal/analytics/analytics_api"
	"ms-storefront/internal/auth"
	"ms-storefront/internal/catalog"
	"ms-storefront/internal/catalog/cache"
	"ms-storefront/internal/catalog/catalog_api"
	catalog_db "ms-storefront/internal/catalog/db"
	"ms-storefront/internal/config"
	"ms-storefront/internal/database/migrations"
	"ms-storefront/internal/giftcard"
	giftcard_db "ms-storefront/internal/giftcard/db"
	"ms-storefront/internal/giftcard/giftcard_api"
	"ms-storefront/internal/giftcard/qr"
	giftcard_redis "ms-storefront/internal/giftcard/redis"
	"ms-storefront/internal/kafka"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/loyalty"
	"ms-storefront/internal/models"
	loyalty_db "ms-storefront/internal/loyalty/db"
	"ms-storefront/internal/loyalty/loyalty_api"
	"ms-storefront/internal/order"
	order_db "ms-storefront/internal/order/db"
	"ms-storefront/internal/order/order_api"
	"ms-storefront/internal/order/pricing"
	"ms-storefront/internal/payment"
	handlers "ms-storefront/internal/payment/handler"
	"ms-storefront/internal/payment/services"
	"ms-storefront/internal/payment/storage"
	"ms-storefront/internal/sse"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Database.Username, cfg.Database.Password,
		cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", dsn)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	log.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

// subscribePaymentEvents turns payment events from the payment surface
// into user notifications so the storefront inbox shows charge results.
func subscribePaymentEvents(ctx context.Context, cfg *config.Config, orderDB *order_db.DB, bunDB *bun.DB, log *logger.Logger) []*kafka.Consumer {
	topics := []string{kafka.TopicPaymentSucceeded, kafka.TopicPaymentFailed}
	consumers := make([]*kafka.Consumer, 0, len(topics))

	for _, topic := range topics {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, topic, cfg.Kafka.GroupID)
		consumers = append(consumers, consumer)

		go consumer.Start(ctx, func(event models.PaymentEvent) {
			ord, err := orderDB.GetOrderByID(ctx, event.OrderID)
			if err != nil {
				log.Error("PAYMENT", fmt.Sprintf("Failed to load order %s for payment event: %v", event.OrderID, err))
				return
			}

			var title, body string
			switch event.Type {
			case "payment.success":
				title = "Payment received"
				body = fmt.Sprintf("Your payment for order %s went through.", event.OrderID)
			case "payment.refunded":
				title = "Payment refunded"
				body = fmt.Sprintf("Your payment for order %s was refunded.", event.OrderID)
			default:
				title = "Payment failed"
				body = fmt.Sprintf("Your payment for order %s was declined.", event.OrderID)
			}

			notification := models.Notification{
				ID:        uuid.New().String(),
				UserID:    ord.UserID,
				Type:      "PAYMENT",
				Title:     title,
				Body:      body,
				CreatedAt: time.Now(),
			}
			if _, err := bunDB.NewInsert().Model(&notification).Exec(ctx); err != nil {
				log.Error("PAYMENT", fmt.Sprintf("Failed to store payment notification: %v", err))
				return
			}
			log.Info("PAYMENT", fmt.Sprintf("Stored %q notification for user %s", title, ord.UserID))
		})
	}

	log.Info("KAFKA", "Payment event consumers started")
	return consumers
}

func runMigrations(bunDB *bun.DB, log *logger.Logger) {
	opts := migrations.DefaultOptions()
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		opts.MigrationsDir = dir
	}
	opts.SeedData = os.Getenv("SEED_DATA") == "true"

	runner := migrations.NewRunner(bunDB, opts)
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}
	log.Info("DATABASE", "✅ Migrations applied")
}

func startPaymentServer(cfg *config.Config, stripeHandler *handlers.StripeHandler, log *logger.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	stripeHandler.RegisterRoutes(engine)

	server := &http.Server{
		Addr:    cfg.Payment.Port,
		Handler: engine,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("💳 Payment surface running on %s", cfg.Payment.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("Payment server error: %v", err))
		}
	}()

	return server
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Brewly storefront initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	log.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	if os.Getenv("MIGRATE_ON_START") != "false" {
		runMigrations(bunDB, log)
	}

	kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer kafkaProducer.Close()
	log.Info("KAFKA", "Kafka producer initialized successfully")

	if cfg.Kafka.Enabled && !cfg.Kafka.MockMode {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, kafka.RequiredTopics()); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
	}

	// Payment layer. Without a Stripe key the gateway approves charges
	// locally, which keeps local development off the network.
	paymentStore, err := storage.NewPostgreSQLStore(cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to initialize payment store: %v", err))
	}
	defer paymentStore.Close()

	var processor payment.Processor
	var stripeService *services.StripeService
	if os.Getenv("STRIPE_SECRET_KEY") != "" {
		stripeService, err = services.NewStripeService(log)
		if err != nil {
			log.Fatal("PAYMENT", fmt.Sprintf("Failed to initialize Stripe: %v", err))
		}
		processor = stripeService
		log.Info("PAYMENT", "Stripe processor initialized")
	} else {
		log.Warn("PAYMENT", "STRIPE_SECRET_KEY not set, charges will be approved locally")
	}

	gateway := payment.NewGateway(processor, paymentStore, cfg.Payment.Currency, log)

	// Domain services
	happyHour := pricing.NewHappyHour(cfg.HappyHour.StartHour, cfg.HappyHour.EndHour, cfg.HappyHour.Timezone)
	emitter := sse.NewOrderEventEmitter()

	loyaltyService := loyalty.NewService(&loyalty_db.DB{Bun: bunDB}, kafkaProducer, log)
	orderService := order.NewOrderService(&order_db.DB{Bun: bunDB}, kafkaProducer, gateway, loyaltyService, emitter, happyHour, log)
	giftCardService := giftcard.NewService(
		&giftcard_db.DB{Bun: bunDB},
		kafkaProducer,
		giftcard_redis.NewRedis(redisClient, log),
		qr.NewQRGenerator(os.Getenv("GIFTCARD_QR_SECRET")),
		log,
	)
	catalogService := catalog.NewService(&catalog_db.DB{Bun: bunDB}, cache.NewCache(redisClient, log), happyHour, log)
	analyticsService := analytics.NewService(bunDB)

	// Handlers
	loyaltyHandler := loyalty_api.NewHandler(loyaltyService, log)
	orderHandler := order_api.NewHandler(orderService, log)
	giftCardHandler := giftcard_api.NewHandler(giftCardService, log)
	catalogHandler := catalog_api.NewHandler(catalogService, log)
	analyticsHandler := analytics_api.NewHandler(analyticsService, log)
	sseHandler := sse.NewHandler(emitter, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Get("/api/storefront/menu", catalogHandler.Menu)
	r.Get("/api/storefront/products/{id}", catalogHandler.GetProduct)
	log.Info("ROUTER", "Public catalog endpoints registered under /api/storefront")

	// The stream endpoint authenticates itself so EventSource clients
	// can pass the token as a query parameter
	r.Get("/api/storefront/orders/stream", sseHandler.StreamOrders)
	log.Info("ROUTER", "Order event stream registered at /api/storefront/orders/stream")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())
		log.Info("AUTH", "OIDC middleware applied to protected API routes")

		r.Route("/api/storefront", func(r chi.Router) {
			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orderHandler.Checkout)
				r.Get("/", orderHandler.ListOrders)
				r.Get("/{id}", orderHandler.GetOrder)
				r.Put("/{id}/status", orderHandler.UpdateStatus)
				r.Delete("/{id}", orderHandler.Cancel)
			})
			log.Info("ROUTER", "Order routes registered under /api/storefront/orders")

			r.Route("/loyalty", func(r chi.Router) {
				r.Get("/status", loyaltyHandler.GetStatus)
				r.Get("/notifications", loyaltyHandler.ListNotifications)
			})
			log.Info("ROUTER", "Loyalty routes registered under /api/storefront/loyalty")

			r.Route("/giftcards", func(r chi.Router) {
				r.Post("/", giftCardHandler.Issue)
				r.Post("/redeem", giftCardHandler.Redeem)
				r.Get("/{code}", giftCardHandler.Get)
				r.Get("/{code}/qr", giftCardHandler.QRCode)
			})
			log.Info("ROUTER", "Gift card routes registered under /api/storefront/giftcards")

			r.Route("/products", func(r chi.Router) {
				r.Get("/{id}/quote", catalogHandler.QuoteProduct)
				r.Post("/", catalogHandler.CreateProduct)
				r.Put("/{id}", catalogHandler.UpdateProduct)
			})
			log.Info("ROUTER", "Catalog admin routes registered under /api/storefront/products")

			analyticsHandler.RegisterRoutes(r)
			log.Info("ROUTER", "Analytics routes registered under /api/storefront/analytics")
		})
	})

	// No WriteTimeout here, it would cut long-lived SSE streams
	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	if cfg.Kafka.Enabled && !cfg.Kafka.MockMode {
		consumerCtx, cancelConsumers := context.WithCancel(ctx)
		defer cancelConsumers()
		consumers := subscribePaymentEvents(consumerCtx, cfg, &order_db.DB{Bun: bunDB}, bunDB, log)
		defer func() {
			for _, c := range consumers {
				c.Close()
			}
		}()
	}

	var paymentServer *http.Server
	if stripeService != nil {
		stripeHandler := handlers.NewStripeHandler(stripeService, paymentStore, kafkaProducer, orderService, log)
		paymentServer = startPaymentServer(cfg, stripeHandler, log)
	} else {
		log.Warn("PAYMENT", "Payment HTTP surface disabled without Stripe credentials")
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("☕ Brewly storefront running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if paymentServer != nil {
		if err := paymentServer.Shutdown(ctxShutdown); err != nil {
			log.Error("HTTP", fmt.Sprintf("Payment server shutdown failed: %v", err))
		}
	}

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Storefront shutdown complete")
	}
}
