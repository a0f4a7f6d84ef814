package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/irensaltali/fax-app-backend/internal/clock"
	creditdomain "github.com/irensaltali/fax-app-backend/internal/credit/domain"
	faxdomain "github.com/irensaltali/fax-app-backend/internal/fax/domain"
	"github.com/irensaltali/fax-app-backend/internal/fax/providers"
	"github.com/irensaltali/fax-app-backend/internal/observability"
	transferdomain "github.com/irensaltali/fax-app-backend/internal/transfer/domain"
	"github.com/irensaltali/fax-app-backend/internal/webhook/adapters"
	"github.com/irensaltali/fax-app-backend/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	Adapters    *adapters.Registry
	Providers   *providers.Registry
	FaxRepo     faxdomain.Repository
	CreditSvc   creditdomain.Service
	TransferSvc transferdomain.Service
	Metrics     *observability.Metrics `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	adapters    *adapters.Registry
	providers   *providers.Registry
	faxRepo     faxdomain.Repository
	creditSvc   creditdomain.Service
	transferSvc transferdomain.Service
	metrics     *observability.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:         p.Log.Named("webhook.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		adapters:    p.Adapters,
		providers:   p.Providers,
		faxRepo:     p.FaxRepo,
		creditSvc:   p.CreditSvc,
		transferSvc: p.TransferSvc,
		metrics:     p.Metrics,
	}
}

// Ingest verifies, audits, and applies one webhook delivery. Once the
// audit row is durable the delivery is acknowledged to the sender even if
// a downstream side effect fails; the failure is recorded on the row and
// logged instead of bubbling up, so sender retries never re-trigger
// already-audited work.
func (s *Service) Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return domain.ErrInvalidProvider
	}
	adapter, ok := s.adapters.Adapter(provider)
	if !ok {
		return domain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return domain.ErrInvalidPayload
	}

	if err := adapter.Verify(headers, payload); err != nil {
		s.metrics.RecordWebhook(provider, "unverified", "rejected")
		return err
	}

	event, err := adapter.Parse(payload)
	if err != nil {
		return err
	}

	audit := &domain.WebhookEvent{
		ID:         s.genID.Generate(),
		Provider:   provider,
		EventID:    event.EventID,
		Category:   event.Category,
		Payload:    datatypes.JSON(payload),
		ReceivedAt: s.clock.Now(),
	}
	if err := s.repo.RecordEvent(ctx, audit); err != nil {
		if errors.Is(err, domain.ErrEventAlreadyProcessed) {
			s.metrics.RecordWebhook(provider, string(event.Category), "duplicate")
		}
		return err
	}

	result, dispatchErr := s.dispatch(ctx, event)
	errMsg := ""
	if dispatchErr != nil {
		errMsg = dispatchErr.Error()
		s.log.Warn("webhook side effect failed",
			zap.String("provider", provider),
			zap.String("event_id", event.EventID),
			zap.String("category", string(event.Category)),
			zap.Error(dispatchErr),
		)
	}
	if err := s.repo.FinishEvent(ctx, audit.ID, result, errMsg); err != nil {
		s.log.Warn("failed to finalize webhook audit row", zap.String("event_id", event.EventID), zap.Error(err))
	}
	s.metrics.RecordWebhook(provider, string(event.Category), string(result))
	return nil
}

func (s *Service) dispatch(ctx context.Context, event *domain.Event) (domain.Result, error) {
	switch event.Category {
	case domain.CategoryDeliveryStatus:
		return s.applyDeliveryStatus(ctx, event)
	case domain.CategoryPurchase:
		return s.applyPurchase(ctx, event)
	case domain.CategoryCancellation:
		return s.applyCancellation(ctx, event)
	case domain.CategoryTransfer:
		return s.applyTransfer(ctx, event)
	default:
		return domain.ResultIgnored, nil
	}
}

func (s *Service) applyDeliveryStatus(ctx context.Context, event *domain.Event) (domain.Result, error) {
	record, err := s.faxRepo.FindByExternalID(ctx, event.Provider, event.ExternalID)
	if err != nil {
		return domain.ResultError, err
	}
	if record == nil {
		s.log.Warn("delivery status for unknown fax",
			zap.String("provider", event.Provider),
			zap.String("external_id", event.ExternalID),
		)
		return domain.ResultIgnored, nil
	}

	status := s.providers.MapStatus(event.Provider, event.RawStatus)
	now := s.clock.Now()
	var completedAt *time.Time
	if status.IsTerminal() {
		completedAt = &now
	}
	if err := s.faxRepo.ApplyStatus(ctx, record.ID, status, event.RawStatus, now, completedAt); err != nil {
		return domain.ResultError, err
	}
	return domain.ResultProcessed, nil
}

func (s *Service) applyPurchase(ctx context.Context, event *domain.Event) (domain.Result, error) {
	if event.UserID == "" || event.ProductID == "" {
		return domain.ResultError, domain.ErrInvalidPayload
	}
	purchasedAt := event.PurchasedAt
	if purchasedAt.IsZero() {
		purchasedAt = s.clock.Now()
	}
	_, err := s.creditSvc.ApplyPurchase(ctx, creditdomain.PurchaseRequest{
		UserID:      event.UserID,
		ProductID:   event.ProductID,
		PurchasedAt: purchasedAt,
	})
	if err != nil {
		return domain.ResultError, err
	}
	return domain.ResultProcessed, nil
}

func (s *Service) applyCancellation(ctx context.Context, event *domain.Event) (domain.Result, error) {
	if event.UserID == "" {
		return domain.ResultError, domain.ErrInvalidPayload
	}
	if err := s.creditSvc.DeactivateSubscription(ctx, event.UserID, event.ProductID); err != nil {
		if errors.Is(err, creditdomain.ErrGrantNotFound) {
			return domain.ResultIgnored, nil
		}
		return domain.ResultError, err
	}
	return domain.ResultProcessed, nil
}

func (s *Service) applyTransfer(ctx context.Context, event *domain.Event) (domain.Result, error) {
	_, err := s.transferSvc.Transfer(ctx, transferdomain.TransferRequest{
		FromUserIDs: event.TransferredFrom,
		ToUserIDs:   event.TransferredTo,
		Reason:      "billing_transfer_event",
	})
	if err != nil {
		return domain.ResultError, err
	}
	return domain.ResultProcessed, nil
}
