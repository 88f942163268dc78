package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ms-storefront/internal/kafka"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/loyalty"
	"ms-storefront/internal/models"
	"ms-storefront/internal/order/pricing"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart         = errors.New("checkout requires at least one item")
	ErrInvalidQuantity   = errors.New("item quantity must be at least 1")
	ErrProductNotFound   = errors.New("product not found")
	ErrProductOutOfStock = errors.New("product is out of stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

type DBLayer interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	CreateOrderTx(ctx context.Context, order models.Order, items []models.OrderItem) error
	UpdateOrderStatus(ctx context.Context, id, status string) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	GetCoupon(ctx context.Context, code string) (*models.Coupon, error)
	LastOrderAt(ctx context.Context, userID string) (time.Time, bool, error)
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

// PaymentGateway charges the computed final total. The checkout flow
// never forwards client-declared amounts to it.
type PaymentGateway interface {
	ChargeOrder(ctx context.Context, orderID, userID string, amount float64) (*models.Payment, error)
}

// LoyaltyEvaluator runs the tier upgrade pass after a placed order.
type LoyaltyEvaluator interface {
	EvaluateUpgrade(ctx context.Context, userID string) (*models.LoyaltyStatus, error)
}

// EventStream fans order status changes out to connected clients.
type EventStream interface {
	Broadcast(orderID, userID, status string)
}

// OrderService owns the checkout flow and the order status pipeline.
type OrderService struct {
	DB        DBLayer
	Kafka     KafkaPublisher
	Payment   PaymentGateway
	Loyalty   LoyaltyEvaluator
	Events    EventStream
	Pricing   *pricing.Calculator
	HappyHour *pricing.HappyHour
	Logger    *logger.Logger
}

func NewOrderService(db DBLayer, kafkaProd KafkaPublisher, payment PaymentGateway, loyaltySvc LoyaltyEvaluator, events EventStream, happyHour *pricing.HappyHour, log *logger.Logger) *OrderService {
	return &OrderService{
		DB:        db,
		Kafka:     kafkaProd,
		Payment:   payment,
		Loyalty:   loyaltySvc,
		Events:    events,
		Pricing:   pricing.NewCalculator(),
		HappyHour: happyHour,
		Logger:    log,
	}
}

// allowedTransitions is the forward chain of the brewing pipeline.
// CANCELLED is reachable only before the order leaves the store, and
// REFUNDED only after delivery.
var allowedTransitions = map[string][]string{
	models.OrderStatusPending:        {models.OrderStatusBrewing, models.OrderStatusCancelled},
	models.OrderStatusBrewing:        {models.OrderStatusOutForDelivery, models.OrderStatusCancelled},
	models.OrderStatusOutForDelivery: {models.OrderStatusDelivered},
	models.OrderStatusDelivered:      {models.OrderStatusRefunded},
}

type orderEvent struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	FinalTotal float64   `json:"final_total"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Checkout prices the cart from the catalog, creates the order, charges
// the card and runs the loyalty upgrade pass. The returned response
// includes the (possibly upgraded) loyalty status.
func (o *OrderService) Checkout(ctx context.Context, userID string, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, item.ProductID)
		}
	}

	user, err := o.DB.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	benefits := loyalty.BenefitsFor(user.Tier)

	now := time.Now()
	orderID := uuid.New().String()

	items, subtotal, err := o.priceItems(ctx, orderID, req.Items, benefits, now)
	if err != nil {
		return nil, err
	}

	coupon, eligibility, err := o.resolveCoupon(ctx, userID, req.CouponCode)
	if err != nil {
		return nil, err
	}

	quote := o.Pricing.Quote(subtotal, coupon, eligibility, benefits, now)

	newOrder := models.Order{
		OrderID:     orderID,
		UserID:      userID,
		Status:      models.OrderStatusPending,
		Total:       quote.Subtotal,
		Discount:    quote.CouponDiscount,
		VIPDiscount: quote.VIPDiscount,
		ShippingFee: quote.ShippingFee,
		FinalTotal:  quote.FinalTotal,
		CreatedAt:   now,
	}
	if quote.CouponApplied {
		newOrder.AppliedCoupon = coupon.Code
	}

	if err := o.DB.CreateOrderTx(ctx, newOrder, items); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	o.Logger.LogOrder("CREATE", orderID, fmt.Sprintf("user %s, %d items, total %.2f", userID, len(items), quote.FinalTotal))

	if o.Payment != nil && quote.FinalTotal > 0 {
		if _, err := o.Payment.ChargeOrder(ctx, orderID, userID, quote.FinalTotal); err != nil {
			// Payment failed: the order stays in the books as cancelled
			if cancelErr := o.DB.UpdateOrderStatus(ctx, orderID, models.OrderStatusCancelled); cancelErr != nil {
				o.Logger.Error("ORDER", fmt.Sprintf("failed to cancel order %s after payment failure: %v", orderID, cancelErr))
			}
			return nil, fmt.Errorf("payment failed for order %s: %w", orderID, err)
		}
	}

	o.publishEvent(kafka.TopicOrderCreated, newOrder)
	o.broadcast(newOrder.OrderID, newOrder.UserID, newOrder.Status)

	response := &models.CheckoutResponse{Order: newOrder, Items: items}

	// The order the user just placed may push them over a tier threshold
	if o.Loyalty != nil {
		status, err := o.Loyalty.EvaluateUpgrade(ctx, userID)
		if err != nil {
			o.Logger.Error("LOYALTY", fmt.Sprintf("upgrade pass failed for %s: %v", userID, err))
		} else {
			response.Loyalty = status
		}
	}

	return response, nil
}

// priceItems re-fetches every product and prices it server side,
// applying the happy-hour quote per unit.
func (o *OrderService) priceItems(ctx context.Context, orderID string, reqItems []models.CheckoutItem, benefits loyalty.Benefits, now time.Time) ([]models.OrderItem, float64, error) {
	ids := make([]string, 0, len(reqItems))
	for _, item := range reqItems {
		ids = append(ids, item.ProductID)
	}

	products, err := o.DB.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var items []models.OrderItem
	var subtotal float64
	for _, reqItem := range reqItems {
		product, ok := byID[reqItem.ProductID]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrProductNotFound, reqItem.ProductID)
		}
		if !product.InStock {
			return nil, 0, fmt.Errorf("%w: %s", ErrProductOutOfStock, product.Name)
		}

		unitPrice := product.Price
		if o.HappyHour != nil {
			unitPrice = o.HappyHour.QuoteProduct(product, benefits, now).QuotedPrice
		}

		items = append(items, models.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   orderID,
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: unitPrice,
			Quantity:  reqItem.Quantity,
		})
		subtotal = pricing.Round2(subtotal + unitPrice*float64(reqItem.Quantity))
	}

	return items, subtotal, nil
}

// resolveCoupon looks the code up and gathers the order-history facts
// the eligibility check needs. An unknown code is not an error, the
// quote just carries no discount.
func (o *OrderService) resolveCoupon(ctx context.Context, userID, code string) (*models.Coupon, pricing.CouponEligibility, error) {
	var eligibility pricing.CouponEligibility
	if code == "" {
		return nil, eligibility, nil
	}

	coupon, err := o.DB.GetCoupon(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			o.Logger.Warn("ORDER", fmt.Sprintf("unknown coupon code %s from user %s", code, userID))
			return nil, eligibility, nil
		}
		return nil, eligibility, fmt.Errorf("failed to load coupon %s: %w", code, err)
	}

	lastOrderAt, hasOrders, err := o.DB.LastOrderAt(ctx, userID)
	if err != nil {
		return nil, eligibility, fmt.Errorf("failed to load order history: %w", err)
	}
	eligibility.HasOrders = hasOrders
	eligibility.LastOrderAt = lastOrderAt

	return coupon, eligibility, nil
}

// GetOrder returns one order with its items.
func (o *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, []models.OrderItem, error) {
	ord, err := o.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, err
	}
	items, err := o.DB.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return ord, items, nil
}

// ListUserOrders returns the user's orders, newest first.
func (o *OrderService) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return o.DB.ListOrdersByUser(ctx, userID)
}

// UpdateStatus moves an order along the brewing pipeline. Transitions
// only ever move forward; a delivered order cannot go back to brewing.
func (o *OrderService) UpdateStatus(ctx context.Context, orderID, newStatus string) (*models.Order, error) {
	ord, err := o.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if !transitionAllowed(ord.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, ord.Status, newStatus)
	}

	if err := o.DB.UpdateOrderStatus(ctx, orderID, newStatus); err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", orderID, err)
	}
	ord.Status = newStatus
	ord.UpdatedAt = time.Now()

	o.Logger.LogOrder("STATUS", orderID, fmt.Sprintf("now %s", newStatus))

	topic := kafka.TopicOrderUpdated
	if newStatus == models.OrderStatusCancelled {
		topic = kafka.TopicOrderCancelled
	}
	o.publishEvent(topic, *ord)
	o.broadcast(ord.OrderID, ord.UserID, newStatus)

	return ord, nil
}

// Cancel is the user-facing shortcut for the CANCELLED transition.
func (o *OrderService) Cancel(ctx context.Context, orderID, userID string) (*models.Order, error) {
	ord, err := o.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if ord.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return o.UpdateStatus(ctx, orderID, models.OrderStatusCancelled)
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (o *OrderService) publishEvent(topic string, ord models.Order) {
	if o.Kafka == nil {
		return
	}
	value, err := json.Marshal(orderEvent{
		OrderID:    ord.OrderID,
		UserID:     ord.UserID,
		Status:     ord.Status,
		FinalTotal: ord.FinalTotal,
		OccurredAt: time.Now(),
	})
	if err != nil {
		o.Logger.Error("ORDER", fmt.Sprintf("failed to marshal order event: %v", err))
		return
	}
	if err := o.Kafka.Publish(topic, ord.OrderID, value); err != nil {
		o.Logger.Error("KAFKA", fmt.Sprintf("failed to publish to %s: %v", topic, err))
	}
}

func (o *OrderService) broadcast(orderID, userID, status string) {
	if o.Events != nil {
		o.Events.Broadcast(orderID, userID, status)
	}
}
