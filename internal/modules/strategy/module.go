package strategy

import (
	"go.uber.org/fx"

	"hybrid_bot/internal/modules/strategy/service"
	"hybrid_bot/internal/runner"
)

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			service.NewAnalyzer,
			func(a *service.Analyzer) runner.Analyzer { return a },
		),
	)
}
