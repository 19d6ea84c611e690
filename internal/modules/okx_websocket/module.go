package okx_websocket

import (
	"context"

	"go.uber.org/fx"

	healthservice "hybrid_bot/internal/modules/health/service"
	okxservice "hybrid_bot/internal/modules/okx_client/service"
	"hybrid_bot/internal/modules/okx_websocket/service"
	"hybrid_bot/internal/runner"
)

// Module поднимает стрим тикеров OKX, REST-клиент читает из него последнюю цену.
func Module() fx.Option {
	return fx.Module("okx_websocket",
		fx.Provide(
			func(s *healthservice.State) service.ConnState { return s },
			service.NewTickerStream,
			func(s *service.TickerStream) okxservice.PriceSource { return s },
		),
		fx.Invoke(func(lc fx.Lifecycle, s *service.TickerStream, r *runner.Runner) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					// ctx хука живёт только на время старта
					s.Start(context.Background(), r.Watchlist)
					return nil
				},
				OnStop: func(ctx context.Context) error {
					s.Stop()
					return nil
				},
			})
		}),
	)
}
