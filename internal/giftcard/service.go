package giftcard

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"ms-storefront/internal/kafka"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"

	"github.com/google/uuid"
)

const (
	MinAmount = 25.0
	MaxAmount = 500.0

	// Every unit of balance converts to this many loyalty points.
	PointsPerUnit = 10

	// Codes avoid I, O, 0 and 1 so they survive being read over the phone.
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength      = 8
	codePrefix      = "GC-"
	maxCodeAttempts = 5

	validity = 365 * 24 * time.Hour
)

var (
	ErrInvalidAmount        = errors.New("gift card amount must be between 25 and 500")
	ErrCodeGeneration       = errors.New("could not generate a unique gift card code")
	ErrNotFound             = errors.New("gift card not found")
	ErrExpired              = errors.New("gift card has expired")
	ErrAlreadyRedeemed      = errors.New("gift card has already been redeemed")
	ErrRedemptionInProgress = errors.New("gift card redemption already in progress")
)

type DBLayer interface {
	CreateGiftCard(ctx context.Context, card models.GiftCard) error
	GetGiftCardByCode(ctx context.Context, code string) (*models.GiftCard, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	RedeemTx(ctx context.Context, cardID, userID string, points int, at time.Time) (bool, error)
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

// RedemptionGuard serializes redemption attempts per code before they
// reach the database.
type RedemptionGuard interface {
	AcquireRedemption(ctx context.Context, code, userID string) (bool, error)
	ReleaseRedemption(ctx context.Context, code, userID string) error
}

// QRRenderer renders a gift card as a scannable code.
type QRRenderer interface {
	GenerateEncryptedQR(card models.GiftCard) ([]byte, error)
}

type Service struct {
	DB     DBLayer
	Kafka  KafkaPublisher
	Guard  RedemptionGuard
	QR     QRRenderer
	Logger *logger.Logger
}

func NewService(db DBLayer, kafkaProd KafkaPublisher, guard RedemptionGuard, qrGen QRRenderer, log *logger.Logger) *Service {
	return &Service{DB: db, Kafka: kafkaProd, Guard: guard, QR: qrGen, Logger: log}
}

type redeemedEvent struct {
	CardID     string    `json:"card_id"`
	Code       string    `json:"code"`
	UserID     string    `json:"user_id"`
	Balance    float64   `json:"balance"`
	Points     int       `json:"points"`
	RedeemedAt time.Time `json:"redeemed_at"`
}

// Issue creates a gift card with a fresh unique code, valid for one
// year from issuance.
func (s *Service) Issue(ctx context.Context, req models.IssueGiftCardRequest) (*models.GiftCard, error) {
	if req.Amount < MinAmount || req.Amount > MaxAmount {
		return nil, fmt.Errorf("%w: got %.2f", ErrInvalidAmount, req.Amount)
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	card := models.GiftCard{
		ID:             uuid.New().String(),
		Code:           code,
		Balance:        req.Amount,
		OriginalAmount: req.Amount,
		RecipientEmail: req.RecipientEmail,
		ExpiresAt:      now.Add(validity),
		CreatedAt:      now,
	}

	if err := s.DB.CreateGiftCard(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to store gift card: %w", err)
	}

	s.Logger.LogGiftCard("ISSUE", card.Code, fmt.Sprintf("amount %.2f, expires %s", card.OriginalAmount, card.ExpiresAt.Format(time.RFC3339)))
	return &card, nil
}

// Redeem consumes the card in full and credits the user's points
// balance. The database update is conditional, so double redemption
// loses cleanly even if the guard is bypassed.
func (s *Service) Redeem(ctx context.Context, userID, code string) (*models.RedeemGiftCardResponse, error) {
	if s.Guard != nil {
		acquired, err := s.Guard.AcquireRedemption(ctx, code, userID)
		if err != nil {
			return nil, fmt.Errorf("redemption guard failed: %w", err)
		}
		if !acquired {
			return nil, ErrRedemptionInProgress
		}
		defer func() {
			if err := s.Guard.ReleaseRedemption(ctx, code, userID); err != nil {
				s.Logger.Error("REDIS", fmt.Sprintf("failed to release redemption guard for %s: %v", code, err))
			}
		}()
	}

	card, err := s.DB.GetGiftCardByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load gift card: %w", err)
	}

	now := time.Now()
	if now.After(card.ExpiresAt) {
		return nil, ErrExpired
	}
	if card.IsRedeemed {
		return nil, ErrAlreadyRedeemed
	}

	points := int(math.Round(card.Balance * PointsPerUnit))

	redeemed, err := s.DB.RedeemTx(ctx, card.ID, userID, points, now)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem gift card %s: %w", code, err)
	}
	if !redeemed {
		// Someone else won the conditional update between our read and
		// our write
		return nil, ErrAlreadyRedeemed
	}

	s.Logger.LogGiftCard("REDEEM", code, fmt.Sprintf("user %s credited %d points", userID, points))
	s.publishRedeemed(card, userID, points, now)

	return &models.RedeemGiftCardResponse{
		Balance:        card.Balance,
		PointsCredited: points,
		Message:        fmt.Sprintf("Gift card redeemed, %d points added to your account", points),
	}, nil
}

// Get looks a card up by code for balance checks.
func (s *Service) Get(ctx context.Context, code string) (*models.GiftCard, error) {
	card, err := s.DB.GetGiftCardByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return card, nil
}

// QRCode renders the card for sharing.
func (s *Service) QRCode(ctx context.Context, code string) ([]byte, error) {
	card, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.QR.GenerateEncryptedQR(*card)
}

// uniqueCode draws random codes until one is free, giving up after a
// bounded number of attempts.
func (s *Service) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		exists, err := s.DB.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
		s.Logger.Warn("GIFTCARD", fmt.Sprintf("code collision on attempt %d", attempt+1))
	}
	return "", ErrCodeGeneration
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return codePrefix + string(buf), nil
}

func (s *Service) publishRedeemed(card *models.GiftCard, userID string, points int, at time.Time) {
	if s.Kafka == nil {
		return
	}
	value, err := json.Marshal(redeemedEvent{
		CardID:     card.ID,
		Code:       card.Code,
		UserID:     userID,
		Balance:    card.Balance,
		Points:     points,
		RedeemedAt: at,
	})
	if err != nil {
		s.Logger.Error("GIFTCARD", fmt.Sprintf("failed to marshal redemption event: %v", err))
		return
	}
	if err := s.Kafka.Publish(kafka.TopicGiftCardRedeemed, card.ID, value); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish gift card redemption: %v", err))
	}
}
