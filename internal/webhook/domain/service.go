package domain

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidProvider       = errors.New("invalid_webhook_provider")
	ErrProviderNotFound      = errors.New("webhook_provider_not_found")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_webhook_payload")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
)

// Adapter verifies and parses one provider's webhook payloads. Verify
// must fail closed when the provider's secret is not configured.
type Adapter interface {
	Provider() string
	Verify(headers http.Header, payload []byte) error
	Parse(payload []byte) (*Event, error)
}

// Service ingests one raw webhook delivery end to end.
type Service interface {
	Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) error
}

type Repository interface {
	// RecordEvent inserts the audit row; a duplicate (provider, event_id)
	// pair surfaces as ErrEventAlreadyProcessed.
	RecordEvent(ctx context.Context, event *WebhookEvent) error
	FinishEvent(ctx context.Context, id snowflake.ID, result Result, errMsg string) error
	FindByEventID(ctx context.Context, provider, eventID string) (*WebhookEvent, error)
}
