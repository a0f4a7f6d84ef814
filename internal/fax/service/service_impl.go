package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/irensaltali/fax-app-backend/internal/clock"
	"github.com/irensaltali/fax-app-backend/internal/config"
	creditdomain "github.com/irensaltali/fax-app-backend/internal/credit/domain"
	faxdomain "github.com/irensaltali/fax-app-backend/internal/fax/domain"
	"github.com/irensaltali/fax-app-backend/internal/fax/providers"
	"github.com/irensaltali/fax-app-backend/internal/observability"
	"github.com/irensaltali/fax-app-backend/internal/principal"
	"github.com/irensaltali/fax-app-backend/internal/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Cfg       config.Config
	Repo      faxdomain.Repository
	Registry  *providers.Registry
	CreditSvc creditdomain.Service
	Store     storage.Store          `optional:"true"`
	Metrics   *observability.Metrics `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	cfg       config.Config
	repo      faxdomain.Repository
	registry  *providers.Registry
	creditSvc creditdomain.Service
	store     storage.Store
	metrics   *observability.Metrics
}

func NewService(p Params) faxdomain.Service {
	return &Service{
		log:       p.Log.Named("fax.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		cfg:       p.Cfg,
		repo:      p.Repo,
		registry:  p.Registry,
		creditSvc: p.CreditSvc,
		store:     p.Store,
		metrics:   p.Metrics,
	}
}

// Send runs one fax submission end to end: provider resolution, credit
// check, the provider-specific workflow, then the post-submit deduction.
// Exactly one external submission happens per call; there is no retry and
// no compensating rollback for the staged workflow.
func (s *Service) Send(ctx context.Context, req faxdomain.SendRequest) (*faxdomain.FaxRecord, error) {
	if err := validateSendRequest(req); err != nil {
		return nil, err
	}

	caller, _ := principal.FromContext(ctx)
	if (caller.IsZero() || caller.Anonymous) && !s.cfg.AllowAnonymousFax {
		return nil, faxdomain.ErrMissingUser
	}
	// Anonymous ids still own their records and spend their own grants so
	// a later account transfer can claim both. Only a caller with no id at
	// all leaves the record unowned.
	var userID *string
	if !caller.IsZero() {
		id := caller.UserID
		userID = &id
	}

	providerName := s.registry.ResolveName("", req.Provider, s.cfg.DefaultFaxProvider)
	strategy, err := s.registry.NewStrategy(providerName)
	if err != nil {
		return nil, err
	}

	pages := req.Pages()
	var primaryGrant snowflake.ID
	if userID != nil {
		check, err := s.creditSvc.CheckCredits(ctx, *userID, pages)
		if err != nil {
			return nil, err
		}
		if !check.HasCredits {
			return nil, creditdomain.ErrInsufficientCredits
		}
		primaryGrant = check.PrimaryGrantID
	}

	var record *faxdomain.FaxRecord
	switch strategy.Mode() {
	case providers.ModeStaged:
		record, err = s.sendStaged(ctx, strategy, &req, userID)
	default:
		record, err = s.sendDirect(ctx, strategy, &req, userID)
	}
	if err != nil {
		s.metrics.RecordSubmission(providerName, "error")
		return nil, err
	}
	s.metrics.RecordSubmission(providerName, "ok")

	if userID != nil {
		// The carrier already accepted the fax; a failed deduction is
		// logged for out-of-band reconciliation, never undone by
		// re-submitting.
		if err := s.creditSvc.ApplyUsage(ctx, *userID, pages, primaryGrant); err != nil {
			s.log.Error("credit deduction failed after carrier accepted",
				zap.String("fax_id", record.ID.String()),
				zap.String("user_id", *userID),
				zap.Int("pages", pages),
				zap.Error(err),
			)
		}
	}

	return record, nil
}

// sendDirect persists nothing until the carrier accepts: a failure before
// or during the external call leaves no state behind.
func (s *Service) sendDirect(ctx context.Context, strategy providers.Strategy, req *faxdomain.SendRequest, userID *string) (*faxdomain.FaxRecord, error) {
	payload, err := strategy.BuildPayload(req, nil)
	if err != nil {
		return nil, err
	}

	result, err := strategy.Submit(ctx, payload)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	status := strategy.MapStatus(result.RawStatus)

	record := &faxdomain.FaxRecord{
		ID:             s.genID.Generate(),
		UserID:         userID,
		Provider:       strategy.Provider(),
		Status:         status,
		ProviderStatus: result.RawStatus,
		Recipients:     marshalRecipients(req.Recipients),
		PageCount:      pickPageCount(result.PageCount, req.Pages()),
		Cost:           result.Cost,
		ExternalID:     result.ExternalID,
		Metadata:       datatypes.JSONMap(req.Metadata),
		CreatedAt:      now,
		UpdatedAt:      now,
		SentAt:         &now,
	}
	if status.IsTerminal() {
		record.CompletedAt = &now
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// sendStaged walks the five-step workflow. Each step's effect is durable
// before the next begins; a failure at step k leaves the record exactly as
// step k-1 wrote it, flagged for later reconciliation.
func (s *Service) sendStaged(ctx context.Context, strategy providers.Strategy, req *faxdomain.SendRequest, userID *string) (*faxdomain.FaxRecord, error) {
	if s.store == nil {
		return nil, providers.ErrProviderNotConfigured
	}
	now := s.clock.Now()

	// Step 1: placeholder record tied to the user.
	record := &faxdomain.FaxRecord{
		ID:             s.genID.Generate(),
		UserID:         userID,
		Provider:       strategy.Provider(),
		Status:         faxdomain.StatusQueued,
		ProviderStatus: "preparing",
		Recipients:     marshalRecipients(req.Recipients),
		PageCount:      req.Pages(),
		Metadata:       datatypes.JSONMap(req.Metadata),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	// Step 2: upload every attachment, collecting one public URL each.
	mediaURLs := make([]string, 0, len(req.Attachments))
	for i, doc := range req.Attachments {
		key := fmt.Sprintf("faxes/%s/%d-%s", uuid.NewString(), i, sanitizeFilename(doc.Filename))
		url, err := s.store.Put(ctx, key, doc.Data, doc.ContentType)
		if err != nil {
			s.recordFailure(ctx, record.ID, err)
			return nil, err
		}
		mediaURLs = append(mediaURLs, url)
	}

	// Step 3: record the URLs and move to processing.
	urlsJSON, _ := json.Marshal(mediaURLs)
	if err := s.repo.Update(ctx, record.ID, map[string]any{
		"media_urls":      datatypes.JSON(urlsJSON),
		"status":          faxdomain.StatusProcessing,
		"provider_status": "processing",
		"updated_at":      s.clock.Now(),
	}); err != nil {
		return nil, err
	}
	record.MediaURLs = datatypes.JSON(urlsJSON)
	record.Status = faxdomain.StatusProcessing

	// Step 4: the single external submission, referencing the first URL.
	payload, err := strategy.BuildPayload(req, mediaURLs)
	if err != nil {
		s.recordFailure(ctx, record.ID, err)
		return nil, err
	}
	result, err := strategy.Submit(ctx, payload)
	if err != nil {
		s.recordFailure(ctx, record.ID, err)
		return nil, err
	}

	// Step 5: carrier id plus the mapped status.
	sentAt := s.clock.Now()
	status := strategy.MapStatus(result.RawStatus)
	updates := map[string]any{
		"external_id":     result.ExternalID,
		"status":          status,
		"provider_status": result.RawStatus,
		"sent_at":         sentAt,
		"updated_at":      sentAt,
	}
	if result.PageCount > 0 {
		updates["page_count"] = result.PageCount
	}
	if status.IsTerminal() {
		updates["completed_at"] = sentAt
	}
	if err := s.repo.Update(ctx, record.ID, updates); err != nil {
		// The carrier holds the fax under result.ExternalID but the row
		// never learned it, so neither webhooks nor the sweeper can close
		// it out. Flag the record and log the accepted submission for
		// out-of-band reconciliation; the pages were not deducted.
		s.recordFailure(ctx, record.ID, err)
		s.log.Error("carrier accepted but result not persisted",
			zap.String("fax_id", record.ID.String()),
			zap.String("external_id", result.ExternalID),
			zap.Int("pages", req.Pages()),
			zap.Error(err),
		)
		return nil, err
	}

	record.ExternalID = result.ExternalID
	record.Status = status
	record.ProviderStatus = result.RawStatus
	record.SentAt = &sentAt
	if result.PageCount > 0 {
		record.PageCount = result.PageCount
	}
	if status.IsTerminal() {
		record.CompletedAt = &sentAt
	}
	return record, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*faxdomain.FaxRecord, error) {
	recordID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, faxdomain.ErrNotFound
	}

	record, err := s.repo.FindByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, faxdomain.ErrNotFound
	}

	caller, _ := principal.FromContext(ctx)
	if record.UserID != nil && *record.UserID != caller.UserID {
		return nil, faxdomain.ErrNotFound
	}
	return record, nil
}

func (s *Service) List(ctx context.Context, req faxdomain.ListRequest) ([]*faxdomain.FaxRecord, error) {
	caller, _ := principal.FromContext(ctx)
	if caller.IsZero() {
		return nil, faxdomain.ErrMissingUser
	}
	return s.repo.ListByUser(ctx, caller.UserID, req.Limit)
}

// recordFailure stamps the error message without advancing the status: the
// record stays at whatever the last completed step produced.
func (s *Service) recordFailure(ctx context.Context, id snowflake.ID, cause error) {
	if err := s.repo.Update(ctx, id, map[string]any{
		"error_message": cause.Error(),
		"updated_at":    s.clock.Now(),
	}); err != nil {
		s.log.Warn("failed to record saga failure", zap.String("fax_id", id.String()), zap.Error(err))
	}
}

func validateSendRequest(req faxdomain.SendRequest) error {
	if len(req.Recipients) == 0 {
		return faxdomain.ErrNoRecipients
	}
	for _, to := range req.Recipients {
		if strings.TrimSpace(to) == "" {
			return faxdomain.ErrNoRecipients
		}
	}
	if len(req.Attachments) == 0 {
		return faxdomain.ErrNoAttachments
	}
	for _, doc := range req.Attachments {
		if len(doc.Data) == 0 || len(doc.Data) > faxdomain.MaxAttachmentSize {
			return faxdomain.ErrAttachmentTooLarge
		}
	}
	return nil
}

func marshalRecipients(recipients []string) datatypes.JSON {
	data, _ := json.Marshal(recipients)
	return datatypes.JSON(data)
}

func pickPageCount(fromCarrier, estimated int) int {
	if fromCarrier > 0 {
		return fromCarrier
	}
	return estimated
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "document.pdf"
	}
	name = strings.ReplaceAll(name, "/", "_")
	return strings.ReplaceAll(name, "..", "_")
}
