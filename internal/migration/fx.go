package migration

import (
	creditdomain "github.com/irensaltali/fax-app-backend/internal/credit/domain"
	faxdomain "github.com/irensaltali/fax-app-backend/internal/fax/domain"
	transferdomain "github.com/irensaltali/fax-app-backend/internal/transfer/domain"
	webhookdomain "github.com/irensaltali/fax-app-backend/internal/webhook/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module creates the core tables on startup so the service is usable out
// of the box for local and self-hosted environments.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		return conn.AutoMigrate(
			&faxdomain.FaxRecord{},
			&creditdomain.CreditGrant{},
			&creditdomain.UsageEvent{},
			&webhookdomain.WebhookEvent{},
			&transferdomain.TransferRecord{},
		)
	}),
)
