package loyalty

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ms-storefront/internal/kafka"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"

	"github.com/google/uuid"
)

type DBLayer interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CountQualifyingOrders(ctx context.Context, userID string) (int, float64, error)
	UpgradeTierTx(ctx context.Context, userID, newTier string, n models.Notification) error
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

// Service recomputes a user's qualifying orders and applies tier
// upgrades. The tier update and its notification are one transaction.
type Service struct {
	DB     DBLayer
	Kafka  KafkaPublisher
	Logger *logger.Logger
}

func NewService(db DBLayer, kafkaProd KafkaPublisher, log *logger.Logger) *Service {
	return &Service{DB: db, Kafka: kafkaProd, Logger: log}
}

type upgradeEvent struct {
	UserID     string    `json:"user_id"`
	FromTier   string    `json:"from_tier"`
	ToTier     string    `json:"to_tier"`
	OrderCount int       `json:"order_count"`
	UpgradedAt time.Time `json:"upgraded_at"`
}

// Status reports the user's loyalty standing without applying upgrades.
func (s *Service) Status(ctx context.Context, userID string) (*models.LoyaltyStatus, error) {
	user, err := s.DB.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return defaultStatus(), nil
		}
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	count, spent, err := s.DB.CountQualifyingOrders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count qualifying orders: %w", err)
	}

	return buildStatus(NormalizeTier(user.Tier), count, spent, false), nil
}

// EvaluateUpgrade recomputes the user's qualifying order count and, if
// the threshold for the next tier is met, upgrades the tier and writes
// the notification atomically. Invoked after every successfully placed
// order. A missing user degrades to a default SILVER status.
func (s *Service) EvaluateUpgrade(ctx context.Context, userID string) (*models.LoyaltyStatus, error) {
	user, err := s.DB.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.Logger.Warn("LOYALTY", fmt.Sprintf("user %s not found, returning default status", userID))
			return defaultStatus(), nil
		}
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	tier := NormalizeTier(user.Tier)

	count, spent, err := s.DB.CountQualifyingOrders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count qualifying orders: %w", err)
	}

	next, threshold, ok := NextStep(tier)
	if !ok {
		// PLATINUM is terminal
		return buildStatus(tier, count, spent, false), nil
	}

	if count < threshold {
		return buildStatus(tier, count, spent, false), nil
	}

	notification := models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      models.NotificationTierUpgrade,
		Title:     fmt.Sprintf("Welcome to %s!", next),
		Body:      fmt.Sprintf("Your %d orders earned you an upgrade to the %s tier.", count, next),
		CreatedAt: time.Now(),
	}

	if err := s.DB.UpgradeTierTx(ctx, userID, next, notification); err != nil {
		return nil, fmt.Errorf("failed to upgrade %s to %s: %w", userID, next, err)
	}

	s.Logger.LogLoyalty("UPGRADE", userID, fmt.Sprintf("%s -> %s after %d qualifying orders", tier, next, count))
	s.publishUpgrade(userID, tier, next, count)

	return buildStatus(next, count, spent, true), nil
}

func (s *Service) Notifications(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.DB.ListNotifications(ctx, userID)
}

func (s *Service) publishUpgrade(userID, from, to string, count int) {
	if s.Kafka == nil {
		return
	}
	value, err := json.Marshal(upgradeEvent{
		UserID:     userID,
		FromTier:   from,
		ToTier:     to,
		OrderCount: count,
		UpgradedAt: time.Now(),
	})
	if err != nil {
		s.Logger.Error("LOYALTY", fmt.Sprintf("failed to marshal upgrade event: %v", err))
		return
	}
	if err := s.Kafka.Publish(kafka.TopicLoyaltyUpgraded, userID, value); err != nil {
		// Upgrade already committed, the event stream just missed it
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish loyalty upgrade: %v", err))
	}
}

func defaultStatus() *models.LoyaltyStatus {
	return &models.LoyaltyStatus{
		Tier:             TierSilver,
		OrdersToNextTier: GoldThreshold,
		NextTier:         TierGold,
	}
}

// buildStatus recomputes the distance to the following tier from the
// tier the user holds after this pass, so a fresh GOLD upgrade reports
// the PLATINUM threshold instead of a stale zero.
func buildStatus(tier string, count int, spent float64, justUpgraded bool) *models.LoyaltyStatus {
	status := &models.LoyaltyStatus{
		Tier:         tier,
		OrderCount:   count,
		TotalSpent:   spent,
		JustUpgraded: justUpgraded,
	}

	if next, threshold, ok := NextStep(tier); ok {
		status.NextTier = next
		remaining := threshold - count
		if remaining < 0 {
			remaining = 0
		}
		status.OrdersToNextTier = remaining
	}

	return status
}
