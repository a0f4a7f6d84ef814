package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/irensaltali/fax-app-backend/internal/clock"
	"github.com/irensaltali/fax-app-backend/internal/config"
	creditdomain "github.com/irensaltali/fax-app-backend/internal/credit/domain"
	"github.com/irensaltali/fax-app-backend/internal/observability"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    creditdomain.Repository
	Catalog *config.ProductCatalogHolder
	Metrics *observability.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    creditdomain.Repository
	catalog *config.ProductCatalogHolder
	metrics *observability.Metrics
}

func NewService(p Params) creditdomain.Service {
	return &Service{
		log:     p.Log.Named("credit.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		catalog: p.Catalog,
		metrics: p.Metrics,
	}
}

func (s *Service) CheckCredits(ctx context.Context, userID string, pagesRequired int) (*creditdomain.CheckResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, creditdomain.ErrInvalidUser
	}
	if pagesRequired <= 0 {
		return nil, creditdomain.ErrInvalidPages
	}

	grants, err := s.repo.ActiveGrants(ctx, userID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	result := &creditdomain.CheckResult{PagesRequired: pagesRequired}
	for _, grant := range grants {
		remaining := grant.Available()
		result.Available += remaining
		if result.PrimaryGrantID == 0 && remaining > 0 {
			result.PrimaryGrantID = grant.ID
		}
	}
	result.HasCredits = result.Available >= pagesRequired
	return result, nil
}

func (s *Service) ApplyUsage(ctx context.Context, userID string, pages int, grantID snowflake.ID) error {
	if pages <= 0 {
		return creditdomain.ErrInvalidPages
	}
	now := s.clock.Now()

	deducted, err := s.repo.Deduct(ctx, grantID, pages, now)
	if err != nil {
		s.metrics.RecordDeduction("error")
		return err
	}
	if !deducted {
		s.metrics.RecordDeduction("rejected")
		return creditdomain.ErrInsufficientCredits
	}
	s.metrics.RecordDeduction("applied")

	// The grant mutation is authoritative for billing; the usage event is
	// best-effort analytics and must not revert it.
	event := &creditdomain.UsageEvent{
		ID:           s.genID.Generate(),
		UserID:       userID,
		ResourceKind: "fax",
		Unit:         "pages",
		Amount:       pages,
		RecordedAt:   now,
		Metadata: map[string]any{
			"grant_id": grantID.String(),
		},
	}
	if err := s.repo.AppendUsage(ctx, event); err != nil {
		s.log.Warn("usage event append failed",
			zap.String("user_id", userID),
			zap.String("grant_id", grantID.String()),
			zap.Int("pages", pages),
			zap.Error(err),
		)
	}
	return nil
}

func (s *Service) ApplyPurchase(ctx context.Context, req creditdomain.PurchaseRequest) (*creditdomain.CreditGrant, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, creditdomain.ErrInvalidUser
	}

	product, ok := s.catalog.Get().Lookup(req.ProductID)
	if !ok {
		return nil, creditdomain.ErrUnknownProduct
	}

	purchasedAt := req.PurchasedAt
	if purchasedAt.IsZero() {
		purchasedAt = s.clock.Now()
	}

	switch product.Kind {
	case config.ProductKindSubscription:
		return s.upsertSubscription(ctx, userID, product, purchasedAt)
	default:
		return s.topUpConsumable(ctx, userID, product, purchasedAt)
	}
}

// upsertSubscription keeps the one-active-subscription-per-user rule. The
// backing store cannot express it as a constraint over a filtered join, so
// it is enforced here.
func (s *Service) upsertSubscription(ctx context.Context, userID string, product config.Product, purchasedAt time.Time) (*creditdomain.CreditGrant, error) {
	now := s.clock.Now()
	expiresAt := GrantExpiration(product, purchasedAt)

	existing, err := s.repo.FindActiveByKind(ctx, userID, creditdomain.GrantKindSubscription, now)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		updates := map[string]any{
			"product_id": product.ID,
			"page_limit": product.Pages,
			"pages_used": 0,
			"expires_at": expiresAt,
			"updated_at": now,
		}
		if err := s.repo.UpdateGrant(ctx, existing.ID, updates); err != nil {
			return nil, err
		}
		existing.ProductID = product.ID
		existing.PageLimit = product.Pages
		existing.PagesUsed = 0
		existing.ExpiresAt = expiresAt
		existing.UpdatedAt = now
		return existing, nil
	}

	grant := &creditdomain.CreditGrant{
		ID:        s.genID.Generate(),
		UserID:    userID,
		ProductID: product.ID,
		Kind:      creditdomain.GrantKindSubscription,
		PageLimit: product.Pages,
		ExpiresAt: expiresAt,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateGrant(ctx, grant); err != nil {
		return nil, err
	}
	return grant, nil
}

// topUpConsumable adds pages onto the newest active consumable grant when
// one exists, else opens a fresh grant.
func (s *Service) topUpConsumable(ctx context.Context, userID string, product config.Product, purchasedAt time.Time) (*creditdomain.CreditGrant, error) {
	now := s.clock.Now()

	existing, err := s.repo.FindActiveByKind(ctx, userID, creditdomain.GrantKindConsumable, now)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.repo.AddPages(ctx, existing.ID, product.Pages, now); err != nil {
			return nil, err
		}
		existing.PageLimit += product.Pages
		existing.UpdatedAt = now
		return existing, nil
	}

	grant := &creditdomain.CreditGrant{
		ID:        s.genID.Generate(),
		UserID:    userID,
		ProductID: product.ID,
		Kind:      creditdomain.GrantKindConsumable,
		PageLimit: product.Pages,
		ExpiresAt: GrantExpiration(product, purchasedAt),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateGrant(ctx, grant); err != nil {
		return nil, err
	}
	return grant, nil
}

func (s *Service) DeactivateSubscription(ctx context.Context, userID, productID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return creditdomain.ErrInvalidUser
	}
	affected, err := s.repo.Deactivate(ctx, userID, strings.TrimSpace(productID), s.clock.Now())
	if err != nil {
		return err
	}
	if affected == 0 {
		s.log.Info("deactivation matched no active grant",
			zap.String("user_id", userID),
			zap.String("product_id", productID),
		)
	}
	return nil
}

func (s *Service) Summary(ctx context.Context, userID string) (*creditdomain.Balance, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, creditdomain.ErrInvalidUser
	}
	grants, err := s.repo.ActiveGrants(ctx, userID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	balance := &creditdomain.Balance{Grants: grants}
	for _, grant := range grants {
		balance.Available += grant.Available()
	}
	return balance, nil
}

// GrantExpiration derives a grant's expiry from the product definition. An
// explicit day count wins; otherwise the coarse period applies, defaulting
// to one month for missing or unrecognized periods. Consumables without
// either never expire.
func GrantExpiration(product config.Product, purchasedAt time.Time) *time.Time {
	purchasedAt = purchasedAt.UTC()

	if product.ExpirationDays > 0 {
		expiry := purchasedAt.AddDate(0, 0, product.ExpirationDays)
		return &expiry
	}

	period := strings.ToLower(strings.TrimSpace(product.Period))
	if period == "" && product.Kind == config.ProductKindConsumable {
		return nil
	}

	var expiry time.Time
	switch period {
	case "day", "daily":
		expiry = purchasedAt.AddDate(0, 0, 1)
	case "week", "weekly":
		expiry = purchasedAt.AddDate(0, 0, 7)
	case "month", "monthly":
		expiry = purchasedAt.AddDate(0, 1, 0)
	case "year", "yearly", "annual":
		expiry = purchasedAt.AddDate(1, 0, 0)
	default:
		expiry = purchasedAt.AddDate(0, 1, 0)
	}
	return &expiry
}
