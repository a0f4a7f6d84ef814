package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	pkgdb "github.com/irensaltali/fax-app-backend/pkg/db"
	"github.com/irensaltali/fax-app-backend/internal/webhook/domain"
	"gorm.io/gorm"
)

type repositoryImpl struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) RecordEvent(ctx context.Context, event *domain.WebhookEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.ErrEventAlreadyProcessed
		}
		return err
	}
	return nil
}

func (r *repositoryImpl) FinishEvent(ctx context.Context, id snowflake.ID, result domain.Result, errMsg string) error {
	return r.db.WithContext(ctx).
		Model(&domain.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"result":        result,
			"error_message": errMsg,
		}).Error
}

func (r *repositoryImpl) FindByEventID(ctx context.Context, provider, eventID string) (*domain.WebhookEvent, error) {
	if eventID == "" {
		return nil, nil
	}
	var event domain.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("provider = ? AND event_id = ?", provider, eventID).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}
