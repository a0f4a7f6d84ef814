package webhook

import (
	"github.com/irensaltali/fax-app-backend/internal/config"
	"github.com/irensaltali/fax-app-backend/internal/webhook/adapters"
	"github.com/irensaltali/fax-app-backend/internal/webhook/repository"
	"github.com/irensaltali/fax-app-backend/internal/webhook/service"
	"go.uber.org/fx"
)

func newAdapterRegistry(cfg config.Config) *adapters.Registry {
	return adapters.NewRegistry(
		adapters.NewTelnyxAdapter(cfg.Telnyx),
		adapters.NewNotifyreAdapter(cfg.Notifyre),
		adapters.NewRevenueCatAdapter(cfg.RevenueCat),
	)
}

var Module = fx.Module("webhook",
	fx.Provide(
		newAdapterRegistry,
		repository.Provide,
		service.NewService,
	),
)
