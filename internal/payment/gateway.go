package payment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"
	"ms-storefront/internal/payment/storage"
	"ms-storefront/internal/utils"
)

var ErrChargeDeclined = errors.New("charge declined")

// Processor is the slice of the Stripe service the gateway needs.
type Processor interface {
	ProcessPayment(ctx context.Context, req *models.StripePaymentRequest, paymentID string, amount float64) (*models.StripePaymentResponse, error)
}

// Gateway charges orders during checkout and records every attempt.
// Without a configured processor it records the charge as succeeded,
// which keeps local development off the Stripe network.
type Gateway struct {
	Processor Processor
	Store     storage.Store
	Currency  string
	Logger    *logger.Logger
}

func NewGateway(processor Processor, store storage.Store, currency string, log *logger.Logger) *Gateway {
	return &Gateway{Processor: processor, Store: store, Currency: currency, Logger: log}
}

// ChargeOrder charges the computed final total for an order. The
// amount is whatever checkout calculated; client input never reaches
// this path.
func (g *Gateway) ChargeOrder(ctx context.Context, orderID, userID string, amount float64) (*models.Payment, error) {
	record := &models.Payment{
		PaymentID:   utils.GeneratePaymentID(),
		OrderID:     orderID,
		Status:      models.PaymentPending,
		Amount:      amount,
		Currency:    g.Currency,
		CreatedDate: time.Now(),
	}

	if err := g.Store.SavePayment(record); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	if g.Processor == nil {
		record.Status = models.PaymentSuccess
		record.TransactionID = utils.GenerateTransactionID()
		if err := g.Store.UpdatePayment(record); err != nil {
			g.Logger.Error("PAYMENT", fmt.Sprintf("failed to update payment %s: %v", record.PaymentID, err))
		}
		g.Logger.Info("PAYMENT", fmt.Sprintf("no gateway configured, payment %s for order %s recorded as succeeded", record.PaymentID, orderID))
		return record, nil
	}

	req := &models.StripePaymentRequest{
		OrderID:     orderID,
		Token:       defaultPaymentMethod(),
		Currency:    g.Currency,
		Description: fmt.Sprintf("Brewly order %s", orderID),
		Metadata:    map[string]string{"user_id": userID},
	}

	result, err := g.Processor.ProcessPayment(ctx, req, record.PaymentID, amount)
	if err != nil {
		record.Status = models.PaymentFailed
		if updateErr := g.Store.UpdatePayment(record); updateErr != nil {
			g.Logger.Error("PAYMENT", fmt.Sprintf("failed to update payment %s: %v", record.PaymentID, updateErr))
		}
		return nil, fmt.Errorf("charge failed for order %s: %w", orderID, err)
	}

	record.Status = result.Status
	record.TransactionID = result.TransactionID
	if err := g.Store.UpdatePayment(record); err != nil {
		g.Logger.Error("PAYMENT", fmt.Sprintf("failed to update payment %s: %v", record.PaymentID, err))
	}

	if result.Status == models.PaymentFailed {
		return nil, fmt.Errorf("%w: order %s", ErrChargeDeclined, orderID)
	}

	g.Logger.Info("PAYMENT", fmt.Sprintf("payment %s for order %s: %s", record.PaymentID, orderID, record.Status))
	return record, nil
}

// defaultPaymentMethod is the saved payment method charged during
// checkout until per-user payment methods land.
func defaultPaymentMethod() string {
	if pm := os.Getenv("STRIPE_PAYMENT_METHOD"); pm != "" {
		return pm
	}
	return "pm_card_visa"
}
