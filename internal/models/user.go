package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID         string    `bun:"id,pk" json:"id"`
	Email      string    `bun:"email,unique,notnull" json:"email"`
	FullName   string    `bun:"full_name,notnull" json:"full_name"`
	Tier       string    `bun:"tier,notnull,default:'SILVER'" json:"tier"`
	TotalSpent float64   `bun:"total_spent" json:"total_spent"`
	OrderCount int       `bun:"order_count" json:"order_count"`
	Points     int       `bun:"points" json:"points"`
	IsAdmin    bool      `bun:"is_admin" json:"is_admin"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"created_at"`
}
