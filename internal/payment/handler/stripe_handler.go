package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ms-storefront/internal/kafka"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"
	"ms-storefront/internal/payment/services"
	"ms-storefront/internal/payment/storage"
	"ms-storefront/internal/utils"

	"github.com/gin-gonic/gin"
)

// OrderService is the slice of the order service the payment surface
// needs for amount lookups and status updates.
type OrderService interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, []models.OrderItem, error)
	UpdateStatus(ctx context.Context, orderID, status string) (*models.Order, error)
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

type StripeHandler struct {
	stripeService *services.StripeService
	paymentStore  storage.Store
	producer      KafkaPublisher
	orderService  OrderService
	logger        *logger.Logger
}

func NewStripeHandler(stripeService *services.StripeService, paymentStore storage.Store, producer KafkaPublisher, orderService OrderService, log *logger.Logger) *StripeHandler {
	return &StripeHandler{
		stripeService: stripeService,
		paymentStore:  paymentStore,
		producer:      producer,
		orderService:  orderService,
		logger:        log,
	}
}

// ValidateCard validates credit card details without creating a charge
func (h *StripeHandler) ValidateCard(c *gin.Context) {
	var req models.StripeCardValidationRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	// Cards are only validated against orders we actually hold
	if _, _, err := h.orderService.GetOrder(c.Request.Context(), req.OrderID); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request", "No order found for this order_id"))
		return
	}

	result, err := h.stripeService.ValidateCard(req.Card)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Card validation failed", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Card validation result", result))
}

// ProcessPayment charges an order through Stripe. The amount always
// comes from the order record, never from the request.
func (h *StripeHandler) ProcessPayment(c *gin.Context) {
	var req models.StripePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	if req.Currency == "" {
		req.Currency = "ils"
	}
	if req.Token == "" && req.Card == nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", "Either token or card must be provided"))
		return
	}

	order, _, err := h.orderService.GetOrder(c.Request.Context(), req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request", "No order found for this order_id"))
		return
	}

	record, err := h.paymentStore.GetPaymentByOrderID(req.OrderID)
	if err != nil {
		if !errors.Is(err, storage.ErrPaymentNotFound) {
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load payment record", err.Error()))
			return
		}
		record = &models.Payment{
			PaymentID:   utils.GeneratePaymentID(),
			OrderID:     order.OrderID,
			Status:      models.PaymentPending,
			Amount:      order.FinalTotal,
			Currency:    req.Currency,
			CreatedDate: time.Now(),
		}
		if err := h.paymentStore.SavePayment(record); err != nil {
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Payment creation failed", err.Error()))
			return
		}
	}

	result, err := h.stripeService.ProcessPayment(c.Request.Context(), &req, record.PaymentID, record.Amount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Payment processing failed", err.Error()))
		return
	}

	record.Status = result.Status
	record.TransactionID = result.TransactionID
	if err := h.paymentStore.UpdatePayment(record); err != nil {
		h.logger.Error("PAYMENT", fmt.Sprintf("Failed to update payment record: %v", err))
	}

	// A paid PENDING order moves into the brewing queue
	if result.Status == models.PaymentSuccess && order.Status == models.OrderStatusPending {
		if _, err := h.orderService.UpdateStatus(c.Request.Context(), order.OrderID, models.OrderStatusBrewing); err != nil {
			h.logger.Error("ORDER", fmt.Sprintf("Failed to move paid order %s to brewing: %v", order.OrderID, err))
		}
	}

	h.publishPaymentEvent(record, result.Status)

	c.JSON(http.StatusOK, utils.SuccessResponse("Payment processed", map[string]interface{}{
		"stripe_result":  result,
		"payment_record": record,
	}))
}

// GetPayment returns one payment record.
func (h *StripeHandler) GetPayment(c *gin.Context) {
	paymentID := c.Param("id")

	payment, err := h.paymentStore.GetPayment(paymentID)
	if err != nil {
		if errors.Is(err, storage.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Payment not found", paymentID))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load payment", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Payment", payment))
}

// ListOrderPayments returns the payment attempts for an order.
func (h *StripeHandler) ListOrderPayments(c *gin.Context) {
	orderID := c.Param("orderId")

	payments, err := h.paymentStore.ListPayments(orderID, 50, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list payments", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Payments", payments))
}

// RefundPayment refunds an order's payment in full and marks the
// order refunded.
func (h *StripeHandler) RefundPayment(c *gin.Context) {
	var req models.StripeRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	record, err := h.paymentStore.GetPaymentByOrderID(req.OrderID)
	if err != nil {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Payment not found for order", req.OrderID))
		return
	}
	if record.Status != models.PaymentSuccess {
		c.JSON(http.StatusConflict, utils.ErrorResponse("Only successful payments can be refunded", string(record.Status)))
		return
	}

	if err := h.stripeService.RefundPayment(record.TransactionID, req.Reason); err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Refund failed", err.Error()))
		return
	}

	record.Status = models.PaymentRefunded
	if err := h.paymentStore.UpdatePayment(record); err != nil {
		h.logger.Error("PAYMENT", fmt.Sprintf("Failed to update refunded payment %s: %v", record.PaymentID, err))
	}

	if _, err := h.orderService.UpdateStatus(c.Request.Context(), req.OrderID, models.OrderStatusRefunded); err != nil {
		h.logger.Error("ORDER", fmt.Sprintf("Failed to mark order %s refunded: %v", req.OrderID, err))
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Payment refunded", record))
}

func (h *StripeHandler) publishPaymentEvent(payment *models.Payment, status models.PaymentStatus) {
	if h.producer == nil {
		return
	}

	eventType := "payment." + string(status)
	topic := kafka.TopicPaymentFailed
	if status == models.PaymentSuccess {
		topic = kafka.TopicPaymentSucceeded
	}

	event := &models.PaymentEvent{
		Type:      eventType,
		PaymentID: payment.PaymentID,
		OrderID:   payment.OrderID,
		Payment:   payment,
		Timestamp: time.Now(),
	}

	eventData, _ := json.Marshal(event)
	if err := h.producer.Publish(topic, payment.PaymentID, eventData); err != nil {
		h.logger.Error("KAFKA", fmt.Sprintf("Failed to publish payment event: %v", err))
	}
}

// RegisterRoutes mounts the payment surface on its own gin engine.
func (h *StripeHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/payments")
	{
		api.POST("/process", h.ProcessPayment)
		api.POST("/validate-card", h.ValidateCard)
		api.POST("/refund", h.RefundPayment)
		api.GET("/:id", h.GetPayment)
		api.GET("/order/:orderId", h.ListOrderPayments)
	}
}
