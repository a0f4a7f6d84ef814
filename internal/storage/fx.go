package storage

import (
	"context"

	"github.com/irensaltali/fax-app-backend/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Provide returns a nil Store when no bucket is configured; the staged
// carrier refuses to register without one.
func Provide(cfg config.Config, log *zap.Logger) Store {
	if cfg.Storage.Bucket == "" {
		log.Named("storage").Info("no storage bucket configured, staged carrier disabled")
		return nil
	}
	store, err := NewS3Store(context.Background(), cfg.Storage)
	if err != nil {
		log.Named("storage").Error("storage init failed", zap.Error(err))
		return nil
	}
	return store
}

var Module = fx.Module("storage",
	fx.Provide(Provide),
)
