package transfer

import (
	"github.com/irensaltali/fax-app-backend/internal/transfer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("transfer",
	fx.Provide(service.NewService),
)
