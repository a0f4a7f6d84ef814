package fax

import (
	"github.com/irensaltali/fax-app-backend/internal/fax/repository"
	"github.com/irensaltali/fax-app-backend/internal/fax/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fax",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
