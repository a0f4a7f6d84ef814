package reconcile

import (
	"context"

	"github.com/irensaltali/fax-app-backend/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.Reconcile.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Reconcile.RedisAddr,
		Password: cfg.Reconcile.RedisPassword,
		DB:       cfg.Reconcile.RedisDB,
	})
}

var Module = fx.Module("reconcile",
	fx.Provide(
		newRedisClient,
		NewLocker,
		New,
	),
	fx.Invoke(registerSweeper),
)

func registerSweeper(lc fx.Lifecycle, cfg config.Config, sweeper *Sweeper) {
	if !cfg.Reconcile.Enabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go sweeper.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
