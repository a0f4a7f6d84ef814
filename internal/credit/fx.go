package credit

import (
	"github.com/irensaltali/fax-app-backend/internal/credit/repository"
	"github.com/irensaltali/fax-app-backend/internal/credit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("credit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
