package models

import (
	"time"

	"github.com/uptrace/bun"
)

const NotificationTierUpgrade = "TIER_UPGRADE"

type Notification struct {
	bun.BaseModel `bun:"table:notifications"`

	ID        string    `bun:"id,pk" json:"id"`
	UserID    string    `bun:"user_id,notnull" json:"user_id"`
	Type      string    `bun:"type,notnull" json:"type"`
	Title     string    `bun:"title,notnull" json:"title"`
	Body      string    `bun:"body,nullzero" json:"body,omitempty"`
	Read      bool      `bun:"read" json:"read"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}
