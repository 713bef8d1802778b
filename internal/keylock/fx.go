package keylock

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/pricingread/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("keylock",
	fx.Provide(Provide),
)

type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Cfg    config.Config
	Ingest *config.IngestConfigHolder
	Log    *zap.Logger
}

// Provide picks the redis backend when configured and falls back to the in-process one.
func Provide(p Params) Locker {
	if !p.Cfg.UsesRedisLocks() {
		p.Log.Info("using in-process version locks")
		return NewLocal()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     p.Cfg.Redis.Addr,
		Password: p.Cfg.Redis.Password,
		DB:       p.Cfg.Redis.DB,
	})
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	ttl := 6 * p.Ingest.Get().VersionLockTimeout
	p.Log.Info("using redis version locks", zap.String("addr", p.Cfg.Redis.Addr))
	return NewRedis(client, ttl, p.Log)
}
