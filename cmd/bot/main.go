package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"hybrid_bot/internal/modules/bootstrap"
	"hybrid_bot/internal/modules/config"
	"hybrid_bot/internal/modules/health"
	"hybrid_bot/internal/modules/okx_client"
	"hybrid_bot/internal/modules/okx_websocket"
	"hybrid_bot/internal/modules/storage"
	"hybrid_bot/internal/modules/strategy"
	telegram "hybrid_bot/internal/modules/telegram_bot"
	"hybrid_bot/internal/modules/tracing"
	"hybrid_bot/internal/runner"
	"hybrid_bot/pkg/logger"
)

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		// логгер нужен раньше всех остальных Invoke
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			logger.SetServiceName(cfg.Service.Name)
			if err := logger.Init(cfg.Service.LogLevel); err != nil {
				return err
			}
			logger.Info("[BOOT] %s starting, okx env=%s, watchlist=%v", cfg.Service.Name, cfg.OKX.Env, cfg.Bot.Watchlist)
			lc.Append(fx.StopHook(logger.Sync))
			return nil
		}),
		tracing.Module(),
		storage.Module(),
		health.Module(),
		okx_client.Module(),
		okx_websocket.Module(),
		strategy.Module(),
		telegram.Module(),
		// прогрев кэша инструментов до первого тика
		bootstrap.Module(),
		runner.Module(),
	)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	app.Run()
}
