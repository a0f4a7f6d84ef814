package providers

import (
	"strings"

	faxdomain "github.com/irensaltali/fax-app-backend/internal/fax/domain"
)

// aliases maps the misspellings seen in the wild to canonical tags.
var aliases = map[string]string{
	"telynx":   "telnyx",
	"telnx":    "telnyx",
	"notifire": "notifyre",
	"notifyer": "notifyre",
}

// Normalize lowercases a provider tag and folds known misspellings.
func Normalize(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := aliases[provider]; ok {
		return canonical
	}
	return provider
}

type Registry struct {
	factories map[string]Factory
	cfg       FactoryConfig
}

func NewRegistry(cfg FactoryConfig, factories ...Factory) *Registry {
	registry := &Registry{factories: map[string]Factory{}, cfg: cfg}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		provider := Normalize(factory.Provider())
		if provider == "" {
			continue
		}
		registry.factories[provider] = factory
	}
	return registry
}

func (r *Registry) ProviderExists(provider string) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[Normalize(provider)]
	return ok
}

// ResolveName picks the provider tag: explicit query parameter, then the
// request body field, then the configured default.
func (r *Registry) ResolveName(queryParam, bodyField, configured string) string {
	if name := Normalize(queryParam); name != "" {
		return name
	}
	if name := Normalize(bodyField); name != "" {
		return name
	}
	return Normalize(configured)
}

// NewStrategy builds the strategy for a canonical tag. Unknown tags fail
// closed; misconfigured factories surface ErrProviderNotConfigured.
func (r *Registry) NewStrategy(provider string) (Strategy, error) {
	if r == nil {
		return nil, ErrProviderNotFound
	}
	factory, ok := r.factories[Normalize(provider)]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return factory.NewStrategy(r.cfg)
}

// MapStatus normalizes a raw carrier status without requiring credentials.
// Unknown providers and unknown raw values both map to failed.
func (r *Registry) MapStatus(provider, raw string) faxdomain.Status {
	if r == nil {
		return faxdomain.StatusFailed
	}
	factory, ok := r.factories[Normalize(provider)]
	if !ok {
		return faxdomain.StatusFailed
	}
	return factory.MapStatus(raw)
}
