// Package domain contains the prepaid page-credit models. Grants are never
// deleted: purchases create or extend them, sends consume pages, and
// cancellation flips is_active.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type GrantKind string

const (
	GrantKindSubscription GrantKind = "subscription"
	GrantKindConsumable   GrantKind = "consumable"
)

// CreditGrant is one prepaid allotment of fax pages.
type CreditGrant struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID    string       `json:"user_id" gorm:"type:text;not null;index"`
	ProductID string       `json:"product_id" gorm:"type:text;not null"`
	Kind      GrantKind    `json:"kind" gorm:"type:text;not null"`
	PageLimit int          `json:"page_limit" gorm:"not null"`
	PagesUsed int          `json:"pages_used" gorm:"not null;default:0"`
	ExpiresAt *time.Time   `json:"expires_at"`
	IsActive  bool         `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (CreditGrant) TableName() string { return "credit_grants" }

// Available returns the remaining pages on the grant.
func (g CreditGrant) Available() int {
	remaining := g.PageLimit - g.PagesUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Usable reports whether the grant counts toward credit checks at the
// given instant.
func (g CreditGrant) Usable(now time.Time) bool {
	if !g.IsActive {
		return false
	}
	if g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
		return false
	}
	return true
}

// UsageEvent is the append-only analytics ledger. A failed append never
// invalidates the grant mutation that preceded it.
type UsageEvent struct {
	ID           snowflake.ID      `json:"id" gorm:"primaryKey"`
	UserID       string            `json:"user_id" gorm:"type:text;not null;index"`
	ResourceKind string            `json:"resource_kind" gorm:"type:text;not null"`
	Unit         string            `json:"unit" gorm:"type:text;not null"`
	Amount       int               `json:"amount" gorm:"not null"`
	RecordedAt   time.Time         `json:"recorded_at" gorm:"not null"`
	Metadata     datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
}

func (UsageEvent) TableName() string { return "usage_events" }
