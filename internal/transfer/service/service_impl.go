package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/irensaltali/fax-app-backend/internal/clock"
	identitydomain "github.com/irensaltali/fax-app-backend/internal/identity/domain"
	"github.com/irensaltali/fax-app-backend/internal/transfer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Identity identitydomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	identity identitydomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("transfer.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		identity: p.Identity,
	}
}

func (s *Service) Transfer(ctx context.Context, req domain.TransferRequest) ([]*domain.TransferRecord, error) {
	target := firstNonEmpty(req.ToUserIDs)
	if target == "" {
		return nil, domain.ErrInvalidTransfer
	}
	if identitydomain.IsAnonymousID(target) {
		return nil, domain.ErrAnonymousTarget
	}
	if err := s.checkTargetExists(ctx, target); err != nil {
		return nil, err
	}

	sources := make([]string, 0, len(req.FromUserIDs))
	for _, from := range req.FromUserIDs {
		from = strings.TrimSpace(from)
		if from == "" || from == target {
			continue
		}
		sources = append(sources, from)
	}
	if len(sources) == 0 {
		return nil, domain.ErrInvalidTransfer
	}

	records := make([]*domain.TransferRecord, 0, len(sources))
	var firstErr error
	for _, from := range sources {
		record, err := s.transferOne(ctx, from, target, req.Reason)
		records = append(records, record)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return records, firstErr
}

// transferOne reassigns one source's rows inside a single transaction,
// then runs the best-effort cleanup. A TransferRecord is written for the
// attempt regardless of outcome.
func (s *Service) transferOne(ctx context.Context, from, to, reason string) (*domain.TransferRecord, error) {
	now := s.clock.Now()
	record := &domain.TransferRecord{
		ID:         s.genID.Generate(),
		FromUserID: from,
		ToUserID:   to,
		Reason:     reason,
		Status:     domain.TransferInProgress,
		CreatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return record, err
	}

	var grants, usage, faxes int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`UPDATE credit_grants SET user_id = ?, updated_at = ? WHERE user_id = ?`, to, now, from)
		if res.Error != nil {
			return res.Error
		}
		grants = res.RowsAffected

		res = tx.Exec(`UPDATE usage_events SET user_id = ? WHERE user_id = ?`, to, from)
		if res.Error != nil {
			return res.Error
		}
		usage = res.RowsAffected

		res = tx.Exec(`UPDATE fax_records SET user_id = ?, updated_at = ? WHERE user_id = ?`, to, now, from)
		if res.Error != nil {
			return res.Error
		}
		faxes = res.RowsAffected
		return nil
	})
	if err != nil {
		s.finishRecord(ctx, record, domain.TransferFailed, err.Error())
		return record, err
	}

	record.GrantsMoved = int(grants)
	record.UsageEventsMoved = int(usage)
	record.FaxRecordsMoved = int(faxes)

	// Cleanup, not correctness: a failed delete never undoes the
	// committed reassign.
	if identitydomain.IsAnonymousID(from) {
		if err := s.identity.Delete(ctx, from); err != nil {
			s.log.Warn("failed to delete anonymous source identity",
				zap.String("user_id", from), zap.Error(err))
		} else {
			record.OldUserDeleted = true
		}
	}

	s.finishRecord(ctx, record, domain.TransferCompleted, "")
	s.log.Info("account transfer completed",
		zap.String("from", from),
		zap.String("to", to),
		zap.Int64("grants", grants),
		zap.Int64("usage_events", usage),
		zap.Int64("fax_records", faxes),
	)
	return record, nil
}

func (s *Service) finishRecord(ctx context.Context, record *domain.TransferRecord, status domain.TransferStatus, errMsg string) {
	completed := s.clock.Now()
	record.Status = status
	record.ErrorMessage = errMsg
	record.CompletedAt = &completed

	err := s.db.WithContext(ctx).
		Model(&domain.TransferRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"status":             status,
			"grants_moved":       record.GrantsMoved,
			"usage_events_moved": record.UsageEventsMoved,
			"fax_records_moved":  record.FaxRecordsMoved,
			"old_user_deleted":   record.OldUserDeleted,
			"error_message":      errMsg,
			"completed_at":       completed,
		}).Error
	if err != nil {
		s.log.Warn("failed to finalize transfer record",
			zap.String("transfer_id", record.ID.String()), zap.Error(err))
	}
}

func (s *Service) checkTargetExists(ctx context.Context, target string) error {
	exists, err := s.identity.Exists(ctx, target)
	if err != nil {
		if errors.Is(err, identitydomain.ErrNotConfigured) {
			return nil
		}
		return err
	}
	if !exists {
		return domain.ErrTargetNotFound
	}
	return nil
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
