package models

// StripeCard represents credit card information sent to the gateway.
type StripeCard struct {
	Number   string `json:"number" binding:"required"`
	ExpMonth string `json:"exp_month" binding:"required"`
	ExpYear  string `json:"exp_year" binding:"required"`
	CVC      string `json:"cvc" binding:"required"`
	Name     string `json:"name,omitempty"`
}

// StripePaymentRequest represents a request to process a payment through Stripe
type StripePaymentRequest struct {
	OrderID     string            `json:"order_id" binding:"required"`
	Token       string            `json:"token,omitempty"`
	Card        *StripeCard       `json:"card,omitempty"`
	Currency    string            `json:"currency,omitempty"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// StripePaymentResponse represents a response from a successful Stripe payment
type StripePaymentResponse struct {
	PaymentID     string        `json:"payment_id"`
	OrderID       string        `json:"order_id"`
	Status        PaymentStatus `json:"status"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
	TransactionID string        `json:"transaction_id,omitempty"`
	ReceiptURL    string        `json:"receipt_url,omitempty"`
	Created       int64         `json:"created"`
}

// StripeCardValidationRequest represents a request to validate a credit card
type StripeCardValidationRequest struct {
	OrderID string      `json:"order_id" binding:"required"`
	Card    *StripeCard `json:"card" binding:"required"`
}

// StripeCardValidationResponse represents the response from a card validation request
type StripeCardValidationResponse struct {
	Valid    bool   `json:"valid"`
	Message  string `json:"message,omitempty"`
	CardType string `json:"card_type,omitempty"`
	Last4    string `json:"last4,omitempty"`
}

// StripeRefundRequest represents a request to refund a payment
type StripeRefundRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Reason  string `json:"reason,omitempty"`
}
