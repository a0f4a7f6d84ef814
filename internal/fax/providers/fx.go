package providers

import (
	"github.com/irensaltali/fax-app-backend/internal/config"
	"github.com/irensaltali/fax-app-backend/internal/storage"
	"go.uber.org/fx"
)

// NewDefaultRegistry builds the registry over all known carrier factories.
// The concrete factories are registered by main to keep this package free
// of carrier imports.
type RegistryParams struct {
	fx.In

	Cfg       config.Config
	Store     storage.Store `optional:"true"`
	Factories []Factory     `group:"fax.provider.factories"`
}

func NewDefaultRegistry(p RegistryParams) *Registry {
	return NewRegistry(FactoryConfig{App: p.Cfg, Store: p.Store}, p.Factories...)
}

var Module = fx.Module("fax.providers",
	fx.Provide(NewDefaultRegistry),
)
