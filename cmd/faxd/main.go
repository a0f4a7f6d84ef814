package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/irensaltali/fax-app-backend/internal/clock"
	"github.com/irensaltali/fax-app-backend/internal/config"
	"github.com/irensaltali/fax-app-backend/internal/credit"
	"github.com/irensaltali/fax-app-backend/internal/fax"
	"github.com/irensaltali/fax-app-backend/internal/fax/providers"
	"github.com/irensaltali/fax-app-backend/internal/fax/providers/notifyre"
	"github.com/irensaltali/fax-app-backend/internal/fax/providers/telnyx"
	"github.com/irensaltali/fax-app-backend/internal/identity"
	"github.com/irensaltali/fax-app-backend/internal/logger"
	"github.com/irensaltali/fax-app-backend/internal/migration"
	"github.com/irensaltali/fax-app-backend/internal/observability"
	"github.com/irensaltali/fax-app-backend/internal/reconcile"
	"github.com/irensaltali/fax-app-backend/internal/server"
	"github.com/irensaltali/fax-app-backend/internal/storage"
	"github.com/irensaltali/fax-app-backend/internal/transfer"
	"github.com/irensaltali/fax-app-backend/internal/webhook"
	"github.com/irensaltali/fax-app-backend/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure.
		config.Module,
		logger.Module,
		clock.Module,
		db.Module,
		storage.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),

		// Carrier strategies feed the provider registry as a group.
		fx.Provide(
			fx.Annotate(asFactory(telnyx.NewFactory()), fx.ResultTags(`group:"fax.provider.factories"`)),
			fx.Annotate(asFactory(notifyre.NewFactory()), fx.ResultTags(`group:"fax.provider.factories"`)),
		),
		providers.Module,

		// Functional domains.
		identity.Module,
		credit.Module,
		fax.Module,
		transfer.Module,
		webhook.Module,
		reconcile.Module,

		migration.Module,
		server.Module,
	)
	app.Run()
}

func asFactory(f providers.Factory) func() providers.Factory {
	return func() providers.Factory { return f }
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
