package okx_client

import (
	"go.uber.org/fx"

	"hybrid_bot/internal/exchange"
	"hybrid_bot/internal/modules/okx_client/service"
)

func Module() fx.Option {
	return fx.Module("okx_client",
		fx.Provide(
			service.NewClient,
			func(c *service.Client) exchange.Exchange { return c },
			func(c *service.Client) exchange.Wallet { return c },
		),
	)
}
