package telegram

import (
	"context"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"

	"hybrid_bot/internal/modules/config"
	"hybrid_bot/internal/modules/telegram_bot/service"
	"hybrid_bot/internal/notify"
	"hybrid_bot/internal/runner"
)

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			service.NewBotAPI,
			func(cfg *config.Config, bot *tgbot.BotAPI) *notify.Telegram {
				return notify.NewTelegram(bot, cfg.Telegram.ChatID)
			},
			// без токена события только в лог
			func(bot *tgbot.BotAPI, t *notify.Telegram) notify.Notifier {
				if bot == nil {
					return notify.NewStdout()
				}
				return t
			},
			func(r *runner.Runner) service.Commands { return r },
			service.NewTelegram,
		),
		fx.Invoke(
			func(lc fx.Lifecycle, t *service.Telegram) {
				ctx, cancel := context.WithCancel(context.Background())
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						go t.Start(ctx)
						return nil
					},
					OnStop: func(context.Context) error {
						cancel()
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
