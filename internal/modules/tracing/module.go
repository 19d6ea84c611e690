package tracing

import (
	"context"

	"go.uber.org/fx"

	"hybrid_bot/internal/modules/config"
	"hybrid_bot/pkg/logger"
	"hybrid_bot/pkg/tracing"
)

// Module: jaeger по флагу tracing.enabled.
func Module() fx.Option {
	return fx.Module("tracing",
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			if !cfg.Tracing.Enabled {
				return nil
			}
			tracing.SetServiceName(cfg.Service.Name)
			_, closer, err := tracing.InitTracer(tracing.Config{Host: cfg.Tracing.Host, Port: cfg.Tracing.Port})
			if err != nil {
				return err
			}
			logger.Info("[TRACE] jaeger agent %s:%d", cfg.Tracing.Host, cfg.Tracing.Port)
			lc.Append(fx.StopHook(func(context.Context) error {
				closer()
				return nil
			}))
			return nil
		}),
	)
}
