package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// CheckResult is the answer to a credit check. The check is a plain read:
// the authoritative guard against overdraft is the conditional deduction in
// ApplyUsage, not this snapshot.
type CheckResult struct {
	HasCredits     bool         `json:"has_credits"`
	Available      int          `json:"available"`
	PagesRequired  int          `json:"pages_required"`
	PrimaryGrantID snowflake.ID `json:"primary_grant_id"`
}

type PurchaseRequest struct {
	UserID      string
	ProductID   string
	PurchasedAt time.Time
}

type Balance struct {
	Available int            `json:"available"`
	Grants    []*CreditGrant `json:"grants"`
}

type Service interface {
	CheckCredits(ctx context.Context, userID string, pagesRequired int) (*CheckResult, error)
	ApplyUsage(ctx context.Context, userID string, pages int, grantID snowflake.ID) error
	ApplyPurchase(ctx context.Context, req PurchaseRequest) (*CreditGrant, error)
	DeactivateSubscription(ctx context.Context, userID, productID string) error
	Summary(ctx context.Context, userID string) (*Balance, error)
}

type Repository interface {
	// ActiveGrants returns the user's usable grants ordered subscription
	// kind before consumable, newest first.
	ActiveGrants(ctx context.Context, userID string, now time.Time) ([]*CreditGrant, error)
	CreateGrant(ctx context.Context, grant *CreditGrant) error
	FindGrant(ctx context.Context, id snowflake.ID) (*CreditGrant, error)
	FindActiveByKind(ctx context.Context, userID string, kind GrantKind, now time.Time) (*CreditGrant, error)
	UpdateGrant(ctx context.Context, id snowflake.ID, updates map[string]any) error

	// Deduct adds pages to pages_used only while the result stays within
	// page_limit; returns false when the guard rejects the update.
	Deduct(ctx context.Context, grantID snowflake.ID, pages int, now time.Time) (bool, error)

	// AddPages raises page_limit on an existing grant (consumable top-up).
	AddPages(ctx context.Context, grantID snowflake.ID, pages int, now time.Time) error

	Deactivate(ctx context.Context, userID, productID string, now time.Time) (int64, error)

	AppendUsage(ctx context.Context, event *UsageEvent) error
}

var (
	ErrInsufficientCredits = errors.New("insufficient_credits")
	ErrInvalidPages        = errors.New("invalid_pages")
	ErrInvalidUser         = errors.New("invalid_user")
	ErrUnknownProduct      = errors.New("unknown_product")
	ErrGrantNotFound       = errors.New("grant_not_found")
)
