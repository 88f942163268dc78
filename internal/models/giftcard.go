package models

import (
	"time"

	"github.com/uptrace/bun"
)

type GiftCard struct {
	bun.BaseModel `bun:"table:gift_cards"`

	ID             string    `bun:"id,pk" json:"id"`
	Code           string    `bun:"code,unique,notnull" json:"code"`
	Balance        float64   `bun:"balance,notnull" json:"balance"`
	OriginalAmount float64   `bun:"original_amount,notnull" json:"original_amount"`
	RecipientEmail string    `bun:"recipient_email,nullzero" json:"recipient_email,omitempty"`
	IsRedeemed     bool      `bun:"is_redeemed" json:"is_redeemed"`
	RedeemedBy     string    `bun:"redeemed_by,nullzero" json:"redeemed_by,omitempty"`
	RedeemedAt     time.Time `bun:"redeemed_at,nullzero" json:"redeemed_at,omitempty"`
	ExpiresAt      time.Time `bun:"expires_at,notnull" json:"expires_at"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
}

type IssueGiftCardRequest struct {
	Amount         float64 `json:"amount"`
	RecipientEmail string  `json:"recipient_email,omitempty"`
}

type RedeemGiftCardRequest struct {
	Code string `json:"code"`
}

type RedeemGiftCardResponse struct {
	Balance        float64 `json:"balance"`
	PointsCredited int     `json:"points_credited"`
	Message        string  `json:"message"`
}
