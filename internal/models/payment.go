package models

import (
	"time"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentSuccess  PaymentStatus = "success"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type Payment struct {
	PaymentID     string        `json:"payment_id" bun:"payment_id,pk"`
	OrderID       string        `json:"order_id" bun:"order_id"`
	Status        PaymentStatus `json:"status" bun:"status"`
	Amount        float64       `json:"amount" bun:"amount"`
	Currency      string        `json:"currency" bun:"currency"`
	TransactionID string        `json:"transaction_id,omitempty" bun:"transaction_id,nullzero"`
	CreatedDate   time.Time     `json:"created_date" bun:"created_date"`
	UpdatedDate   time.Time     `json:"updated_date,omitempty" bun:"updated_date,nullzero"`
}

type PaymentEvent struct {
	Type      string    `json:"type"`
	PaymentID string    `json:"payment_id"`
	OrderID   string    `json:"order_id"`
	Payment   *Payment  `json:"payment"`
	Timestamp time.Time `json:"timestamp"`
}
