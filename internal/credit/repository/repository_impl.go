package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/irensaltali/fax-app-backend/internal/credit/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) ActiveGrants(ctx context.Context, userID string, now time.Time) ([]*domain.CreditGrant, error) {
	var grants []*domain.CreditGrant
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("CASE WHEN kind = 'subscription' THEN 0 ELSE 1 END, created_at DESC").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *repo) CreateGrant(ctx context.Context, grant *domain.CreditGrant) error {
	return r.db.WithContext(ctx).Create(grant).Error
}

func (r *repo) FindGrant(ctx context.Context, id snowflake.ID) (*domain.CreditGrant, error) {
	var grant domain.CreditGrant
	err := r.db.WithContext(ctx).First(&grant, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &grant, nil
}

func (r *repo) FindActiveByKind(ctx context.Context, userID string, kind domain.GrantKind, now time.Time) (*domain.CreditGrant, error) {
	var grant domain.CreditGrant
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND is_active = ?", userID, kind, true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("created_at DESC").
		First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &grant, nil
}

func (r *repo) UpdateGrant(ctx context.Context, id snowflake.ID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&domain.CreditGrant{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repo) Deduct(ctx context.Context, grantID snowflake.ID, pages int, now time.Time) (bool, error) {
	// The guard makes the deduction itself conditional so two concurrent
	// checks that both passed cannot overdraw the grant.
	res := r.db.WithContext(ctx).Exec(
		`UPDATE credit_grants
		 SET pages_used = pages_used + ?, updated_at = ?
		 WHERE id = ? AND is_active = ? AND pages_used + ? <= page_limit`,
		pages, now, grantID, true, pages,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) AddPages(ctx context.Context, grantID snowflake.ID, pages int, now time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE credit_grants
		 SET page_limit = page_limit + ?, updated_at = ?
		 WHERE id = ?`,
		pages, now, grantID,
	).Error
}

func (r *repo) Deactivate(ctx context.Context, userID, productID string, now time.Time) (int64, error) {
	stmt := r.db.WithContext(ctx).
		Model(&domain.CreditGrant{}).
		Where("user_id = ? AND is_active = ?", userID, true)
	if productID != "" {
		stmt = stmt.Where("product_id = ?", productID)
	}
	res := stmt.Updates(map[string]any{
		"is_active":  false,
		"updated_at": now,
	})
	return res.RowsAffected, res.Error
}

func (r *repo) AppendUsage(ctx context.Context, event *domain.UsageEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
