// Package providers resolves a fax request to a carrier strategy. The
// registry fails closed: unknown tags and missing credentials surface at
// lookup time, never deep inside a send.
package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/irensaltali/fax-app-backend/internal/config"
	faxdomain "github.com/irensaltali/fax-app-backend/internal/fax/domain"
	"github.com/irensaltali/fax-app-backend/internal/storage"
)

// Mode selects the submission shape of a strategy.
type Mode string

const (
	// ModeDirect submits the documents inline in one external call; the
	// record is persisted only after the carrier accepts.
	ModeDirect Mode = "direct"
	// ModeStaged uploads documents to storage first and submits a URL
	// reference; the record is persisted before the external call.
	ModeStaged Mode = "staged"
)

// SubmitResult is the carrier's answer to one submission.
type SubmitResult struct {
	ExternalID string
	RawStatus  string
	PageCount  int
	Cost       float64
}

// Strategy is one carrier integration.
type Strategy interface {
	Provider() string
	Mode() Mode
	BuildPayload(req *faxdomain.SendRequest, mediaURLs []string) (any, error)
	Submit(ctx context.Context, payload any) (*SubmitResult, error)
	MapStatus(raw string) faxdomain.Status
}

// StatusFetcher is implemented by strategies whose carrier supports polling
// an already-submitted fax. Used by the reconcile sweep.
type StatusFetcher interface {
	GetStatus(ctx context.Context, externalID string) (string, error)
}

// FactoryConfig carries everything a factory may need to build a strategy.
type FactoryConfig struct {
	App   config.Config
	Store storage.Store
}

// Factory validates credentials and builds a strategy. MapStatus is exposed
// on the factory too so webhook normalization works without carrier
// credentials.
type Factory interface {
	Provider() string
	NewStrategy(cfg FactoryConfig) (Strategy, error)
	MapStatus(raw string) faxdomain.Status
}

var (
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrProviderNotConfigured = errors.New("provider_not_configured")
	ErrInvalidPayload        = errors.New("invalid_provider_payload")
)

// CarrierError is a non-success response from a carrier API.
type CarrierError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *CarrierError) Error() string {
	return fmt.Sprintf("carrier %s returned %d: %s", e.Provider, e.StatusCode, e.Body)
}
