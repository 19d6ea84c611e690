package storage

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"hybrid_bot/internal/ledger"
	"hybrid_bot/internal/modules/config"
	"hybrid_bot/internal/modules/postgres"
	"hybrid_bot/internal/modules/storage/service/file"
	"hybrid_bot/internal/modules/storage/service/pg"
	redisstore "hybrid_bot/internal/modules/storage/service/redis"
	"hybrid_bot/pkg/logger"
)

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// NewStore выбирает бэкенд по storage.driver.
func NewStore(ctx context.Context, lc fx.Lifecycle, cfg *config.Config) (ledger.Store, error) {
	switch cfg.Storage.Driver {
	case DriverFile, "":
		s := file.NewState(cfg.Storage.Path)
		logger.Info("[STATE] file store %s", s.Path())
		return s, nil

	case DriverPostgres:
		tm, err := postgres.Connect(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(tm.Close))

		s := pg.NewState(tm, cfg.Storage.Key)
		if err := s.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate bot_state: %w", err)
		}
		logger.Info("[STATE] postgres store key=%s", cfg.Storage.Key)
		return s, nil

	case DriverRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		lc.Append(fx.StopHook(client.Close))
		logger.Info("[STATE] redis store %s key=%s", cfg.Redis.Addr, cfg.Storage.Key)
		return redisstore.NewState(client, cfg.Storage.Key), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(
			NewStore,
			ledger.New,
		),
	)
}
