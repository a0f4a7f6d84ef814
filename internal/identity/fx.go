package identity

import (
	"github.com/irensaltali/fax-app-backend/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(service.NewService),
)
