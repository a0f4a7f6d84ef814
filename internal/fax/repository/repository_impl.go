package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/irensaltali/fax-app-backend/internal/fax/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, record *domain.FaxRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repo) Update(ctx context.Context, id snowflake.ID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&domain.FaxRecord{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.FaxRecord, error) {
	var record domain.FaxRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) FindByExternalID(ctx context.Context, provider, externalID string) (*domain.FaxRecord, error) {
	var record domain.FaxRecord
	err := r.db.WithContext(ctx).
		Where("provider = ? AND external_id = ?", provider, externalID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.FaxRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var records []*domain.FaxRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) ApplyStatus(ctx context.Context, id snowflake.ID, status domain.Status, rawStatus string, now time.Time, completedAt *time.Time) error {
	// COALESCE keeps the first terminal timestamp when webhooks arrive out
	// of order.
	return r.db.WithContext(ctx).Exec(
		`UPDATE fax_records
		 SET status = ?,
		     provider_status = ?,
		     updated_at = ?,
		     completed_at = COALESCE(completed_at, ?)
		 WHERE id = ?`,
		status,
		rawStatus,
		now,
		completedAt,
		id,
	).Error
}

func (r *repo) FindStalled(ctx context.Context, cutoff time.Time, limit int) ([]*domain.FaxRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []*domain.FaxRecord
	err := r.db.WithContext(ctx).
		Where("status IN ?", []domain.Status{
			domain.StatusQueued,
			domain.StatusProcessing,
			domain.StatusSending,
		}).
		Where("updated_at < ?", cutoff).
		Where("external_id <> ''").
		Order("updated_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
