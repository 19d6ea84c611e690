package bootstrap

import (
	"context"

	"go.uber.org/fx"

	bootstrap "hybrid_bot/internal/modules/bootstrap/service"
	"hybrid_bot/internal/runner"
	"hybrid_bot/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			bootstrap.NewWarmuper,
		),
		fx.Invoke(func(lc fx.Lifecycle, r *runner.Runner, wu *bootstrap.Warmuper) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					syms := r.Watchlist()
					rep := wu.Warmup(ctx, syms)
					for sym, err := range rep.Failed {
						logger.Warn("[BOOT] warmup %s: %v", sym, err)
					}
					if len(rep.Fallback) > 0 {
						logger.Warn("[BOOT] not listed, default tick/lot: %v", rep.Fallback)
					}
					logger.Info("[BOOT] warmup done: %d/%d symbols", len(rep.Loaded), len(syms))
					return nil
				},
			})
		}),
	)
}
