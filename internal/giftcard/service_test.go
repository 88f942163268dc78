package giftcard

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) CreateGiftCard(ctx context.Context, card models.GiftCard) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *MockDBLayer) GetGiftCardByCode(ctx context.Context, code string) (*models.GiftCard, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GiftCard), args.Error(1)
}

func (m *MockDBLayer) CodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockDBLayer) RedeemTx(ctx context.Context, cardID, userID string, points int, at time.Time) (bool, error) {
	args := m.Called(ctx, cardID, userID, points, at)
	return args.Bool(0), args.Error(1)
}

type MockKafkaProducer struct {
	mock.Mock
}

func (m *MockKafkaProducer) Publish(topic string, key string, value []byte) error {
	args := m.Called(topic, key, value)
	return args.Error(0)
}

type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) AcquireRedemption(ctx context.Context, code, userID string) (bool, error) {
	args := m.Called(ctx, code, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGuard) ReleaseRedemption(ctx context.Context, code, userID string) error {
	args := m.Called(ctx, code, userID)
	return args.Error(0)
}

func newTestService(db *MockDBLayer, kafkaProd *MockKafkaProducer, guard RedemptionGuard) *Service {
	return &Service{DB: db, Kafka: kafkaProd, Guard: guard, Logger: logger.NewLogger()}
}

func validCard(code string) *models.GiftCard {
	return &models.GiftCard{
		ID:             "card1",
		Code:           code,
		Balance:        100,
		OriginalAmount: 100,
		ExpiresAt:      time.Now().Add(30 * 24 * time.Hour),
		CreatedAt:      time.Now().Add(-24 * time.Hour),
	}
}

// ---- Issue ----

func TestIssueRejectsOutOfRangeAmounts(t *testing.T) {
	service := newTestService(new(MockDBLayer), new(MockKafkaProducer), nil)

	_, err := service.Issue(context.Background(), models.IssueGiftCardRequest{Amount: 24.99})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = service.Issue(context.Background(), models.IssueGiftCardRequest{Amount: 500.01})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestIssueGeneratesWellFormedCode(t *testing.T) {
	mockDB := new(MockDBLayer)
	service := newTestService(mockDB, new(MockKafkaProducer), nil)

	mockDB.On("CodeExists", mock.Anything, mock.Anything).Return(false, nil)
	mockDB.On("CreateGiftCard", mock.Anything, mock.Anything).Return(nil)

	card, err := service.Issue(context.Background(), models.IssueGiftCardRequest{Amount: 100, RecipientEmail: "friend@example.com"})

	assert.NoError(t, err)
	// GC- prefix plus 8 characters from an alphabet without I, O, 0, 1
	assert.Regexp(t, regexp.MustCompile(`^GC-[ABCDEFGHJKLMNPQRSTUVWXYZ23456789]{8}$`), card.Code)
	assert.Equal(t, 100.0, card.Balance)
	assert.Equal(t, 100.0, card.OriginalAmount)
	assert.False(t, card.IsRedeemed)
	assert.WithinDuration(t, time.Now().Add(365*24*time.Hour), card.ExpiresAt, time.Minute)
}

func TestIssueAcceptsBoundaryAmounts(t *testing.T) {
	mockDB := new(MockDBLayer)
	service := newTestService(mockDB, new(MockKafkaProducer), nil)

	mockDB.On("CodeExists", mock.Anything, mock.Anything).Return(false, nil)
	mockDB.On("CreateGiftCard", mock.Anything, mock.Anything).Return(nil)

	for _, amount := range []float64{25, 500} {
		card, err := service.Issue(context.Background(), models.IssueGiftCardRequest{Amount: amount})
		assert.NoError(t, err)
		assert.Equal(t, amount, card.Balance)
	}
}

func TestIssueRetriesOnCodeCollision(t *testing.T) {
	mockDB := new(MockDBLayer)
	service := newTestService(mockDB, new(MockKafkaProducer), nil)

	mockDB.On("CodeExists", mock.Anything, mock.Anything).Return(true, nil).Once()
	mockDB.On("CodeExists", mock.Anything, mock.Anything).Return(false, nil).Once()
	mockDB.On("CreateGiftCard", mock.Anything, mock.Anything).Return(nil)

	card, err := service.Issue(context.Background(), models.IssueGiftCardRequest{Amount: 50})

	assert.NoError(t, err)
	assert.NotEmpty(t, card.Code)
	mockDB.AssertNumberOfCalls(t, "CodeExists", 2)
}

func TestIssueGivesUpAfterBoundedAttempts(t *testing.T) {
	mockDB := new(MockDBLayer)
	service := newTestService(mockDB, new(MockKafkaProducer), nil)

	mockDB.On("CodeExists", mock.Anything, mock.Anything).Return(true, nil)

	_, err := service.Issue(context.Background(), models.IssueGiftCardRequest{Amount: 50})

	assert.ErrorIs(t, err, ErrCodeGeneration)
	mockDB.AssertNumberOfCalls(t, "CodeExists", 5)
	mockDB.AssertNotCalled(t, "CreateGiftCard", mock.Anything, mock.Anything)
}

// ---- Redeem ----

func TestRedeemCreditsPoints(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaProducer)
	service := newTestService(mockDB, mockKafka, nil)

	card := validCard("GC-ABCD2345")
	mockDB.On("GetGiftCardByCode", mock.Anything, "GC-ABCD2345").Return(card, nil)
	// 100 balance × 10 points per unit
	mockDB.On("RedeemTx", mock.Anything, "card1", "user123", 1000, mock.Anything).Return(true, nil)
	mockKafka.On("Publish", "brewly.giftcard.redeemed", "card1", mock.Anything).Return(nil)

	response, err := service.Redeem(context.Background(), "user123", "GC-ABCD2345")

	assert.NoError(t, err)
	assert.Equal(t, 100.0, response.Balance)
	assert.Equal(t, 1000, response.PointsCredited)
	mockDB.AssertExpectations(t)
	mockKafka.AssertExpectations(t)
}

func TestRedeemUnknownCode(t *testing.T) {
	mockDB := new(MockDBLayer)
	service := newTestService(mockDB, new(MockKafkaProducer), nil)

	mockDB.On("GetGiftCardByCode", mock.Anything, "GC-MISSING2").Return(nil, sql.ErrNoRows)

	_, err := service.Redeem(context.Background(), "user123", "GC-MISSING2")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedeemExpiredCard(t *testing.T) {
	mockDB := new(MockDBLayer)
	service := newTestService(mockDB, new(MockKafkaProducer), nil)

	card := validCard("GC-ABCD2345")
	card.ExpiresAt = time.Now().Add(-time.Hour)
	mockDB.On("GetGiftCardByCode", mock.Anything, "GC-ABCD2345").Return(card, nil)

	_, err := service.Redeem(context.Background(), "user123", "GC-ABCD2345")

	assert.ErrorIs(t, err, ErrExpired)
	mockDB.AssertNotCalled(t, "RedeemTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRedeemAlreadyRedeemedCard(t *testing.T) {
	mockDB := new(MockDBLayer)
	service := newTestService(mockDB, new(MockKafkaProducer), nil)

	card := validCard("GC-ABCD2345")
	card.IsRedeemed = true
	mockDB.On("GetGiftCardByCode", mock.Anything, "GC-ABCD2345").Return(card, nil)

	_, err := service.Redeem(context.Background(), "user123", "GC-ABCD2345")

	assert.ErrorIs(t, err, ErrAlreadyRedeemed)
}

func TestRedeemLosesConditionalUpdate(t *testing.T) {
	mockDB := new(MockDBLayer)
	service := newTestService(mockDB, new(MockKafkaProducer), nil)

	// The card looked fresh when read, but another request redeemed it
	// before our UPDATE landed
	card := validCard("GC-ABCD2345")
	mockDB.On("GetGiftCardByCode", mock.Anything, "GC-ABCD2345").Return(card, nil)
	mockDB.On("RedeemTx", mock.Anything, "card1", "user123", 1000, mock.Anything).Return(false, nil)

	_, err := service.Redeem(context.Background(), "user123", "GC-ABCD2345")

	assert.ErrorIs(t, err, ErrAlreadyRedeemed)
}

func TestRedeemGuardBlocksConcurrentAttempt(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockGuard := new(MockGuard)
	service := newTestService(mockDB, new(MockKafkaProducer), mockGuard)

	mockGuard.On("AcquireRedemption", mock.Anything, "GC-ABCD2345", "user123").Return(false, nil)

	_, err := service.Redeem(context.Background(), "user123", "GC-ABCD2345")

	assert.ErrorIs(t, err, ErrRedemptionInProgress)
	mockDB.AssertNotCalled(t, "GetGiftCardByCode", mock.Anything, mock.Anything)
}

func TestRedeemReleasesGuard(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaProducer)
	mockGuard := new(MockGuard)
	service := newTestService(mockDB, mockKafka, mockGuard)

	card := validCard("GC-ABCD2345")
	mockGuard.On("AcquireRedemption", mock.Anything, "GC-ABCD2345", "user123").Return(true, nil)
	mockGuard.On("ReleaseRedemption", mock.Anything, "GC-ABCD2345", "user123").Return(nil)
	mockDB.On("GetGiftCardByCode", mock.Anything, "GC-ABCD2345").Return(card, nil)
	mockDB.On("RedeemTx", mock.Anything, "card1", "user123", 1000, mock.Anything).Return(true, nil)
	mockKafka.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := service.Redeem(context.Background(), "user123", "GC-ABCD2345")

	assert.NoError(t, err)
	mockGuard.AssertCalled(t, "ReleaseRedemption", mock.Anything, "GC-ABCD2345", "user123")
}
