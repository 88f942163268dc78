package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-storefront/internal/logger"
	"ms-storefront/internal/loyalty"
	"ms-storefront/internal/models"
	"ms-storefront/internal/order/pricing"

	"github.com/google/uuid"
)

var ErrProductNotFound = errors.New("product not found")

type DBLayer interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	CreateProduct(ctx context.Context, product models.Product) error
	UpdateProduct(ctx context.Context, product models.Product) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// ProductCache is the optional read-through layer; a nil cache means
// every read goes to the database.
type ProductCache interface {
	GetProduct(ctx context.Context, id string) (*models.Product, bool)
	SetProduct(ctx context.Context, product models.Product)
	GetMenu(ctx context.Context) ([]models.Product, bool)
	SetMenu(ctx context.Context, products []models.Product)
	Invalidate(ctx context.Context, productID string)
}

type Service struct {
	DB        DBLayer
	Cache     ProductCache
	HappyHour *pricing.HappyHour
	Logger    *logger.Logger
}

func NewService(db DBLayer, cache ProductCache, happyHour *pricing.HappyHour, log *logger.Logger) *Service {
	return &Service{DB: db, Cache: cache, HappyHour: happyHour, Logger: log}
}

// Menu returns the full product list, served from cache when warm.
func (s *Service) Menu(ctx context.Context) ([]models.Product, error) {
	if s.Cache != nil {
		if products, ok := s.Cache.GetMenu(ctx); ok {
			return products, nil
		}
	}

	products, err := s.DB.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	if s.Cache != nil {
		s.Cache.SetMenu(ctx, products)
	}
	return products, nil
}

// Get returns one product, served from cache when warm.
func (s *Service) Get(ctx context.Context, id string) (*models.Product, error) {
	if s.Cache != nil {
		if product, ok := s.Cache.GetProduct(ctx, id); ok {
			return product, nil
		}
	}

	product, err := s.DB.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if s.Cache != nil {
		s.Cache.SetProduct(ctx, *product)
	}
	return product, nil
}

// Quote prices one product for the given user right now, applying the
// happy-hour discount when the window and tags allow it. An unknown or
// anonymous user quotes at the SILVER tier.
func (s *Service) Quote(ctx context.Context, productID, userID string) (*models.ProductQuote, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	tier := loyalty.TierSilver
	if userID != "" {
		user, err := s.DB.GetUserByID(ctx, userID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
		}
		if err == nil {
			tier = loyalty.NormalizeTier(user.Tier)
		}
	}

	quote := s.HappyHour.QuoteProduct(*product, loyalty.BenefitsFor(tier), time.Now())
	return &quote, nil
}

// Create adds a product to the catalog (staff endpoint).
func (s *Service) Create(ctx context.Context, product models.Product) (*models.Product, error) {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	product.CreatedAt = time.Now()

	if err := s.DB.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	if s.Cache != nil {
		s.Cache.Invalidate(ctx, product.ID)
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("created product %s (%s)", product.Name, product.ID))
	return &product, nil
}

// Update replaces a product and drops its cache entries.
func (s *Service) Update(ctx context.Context, product models.Product) error {
	if err := s.DB.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	if s.Cache != nil {
		s.Cache.Invalidate(ctx, product.ID)
	}
	return nil
}
