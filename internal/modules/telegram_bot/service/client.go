package service

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"hybrid_bot/internal/models"
	"hybrid_bot/internal/modules/config"
	"hybrid_bot/internal/notify"
	"hybrid_bot/internal/runner"
	"hybrid_bot/pkg/logger"
)

// Commands: то, что чат может попросить у раннера.
type Commands interface {
	Status() runner.Status
	Watchlist() []string
	AddSymbol(ctx context.Context, symbol string) ([]string, error)
	RemoveSymbol(ctx context.Context, symbol string) ([]string, error)
	SetMode(ctx context.Context, raw string) (models.StrategyMode, error)
	SetRisk(ctx context.Context, v float64) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Alerts() map[string]models.Alerts
	AddAlert(ctx context.Context, symbol string, kind models.AlertKind, price float64) error
	ClearAlerts(ctx context.Context, symbol string) error
	SetAutoDip(ctx context.Context, on bool) error
	SetAutoBreakout(ctx context.Context, on bool) error
	Close(ctx context.Context, symbol string) (runner.CloseResult, error)
	PnLReport(ctx context.Context) runner.PnLReport
	Balance(ctx context.Context) (float64, string, error)
	Wallet(ctx context.Context) ([]models.Balance, error)
	Levels(ctx context.Context, symbol string) (runner.Levels, error)
}

// NewBotAPI: nil без токена, тогда бот работает без чата.
func NewBotAPI(cfg *config.Config) (*tgbot.BotAPI, error) {
	if cfg.Telegram.Token == "" {
		logger.Warn("[TG] TELEGRAM_BOT_TOKEN not set, notifications go to log only")
		return nil, nil
	}
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	logger.Info("[TG] authorized as @%s", b.Self.UserName)
	return b, nil
}

// Telegram: командный фронт. Уведомления шлёт notify.Telegram на том же BotAPI.
type Telegram struct {
	bot  *tgbot.BotAPI
	sink *notify.Telegram
	cmd  Commands

	env       string
	simulated bool
}

func NewTelegram(cfg *config.Config, bot *tgbot.BotAPI, sink *notify.Telegram, cmd Commands) *Telegram {
	return &Telegram{
		bot:       bot,
		sink:      sink,
		cmd:       cmd,
		env:       cfg.OKX.Env,
		simulated: cfg.OKX.Simulated(),
	}
}

func (t *Telegram) Send(chatID int64, text string) {
	if t.bot == nil {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(chatID, text)); err != nil {
		logger.Error("[TG] send to %d: %v", chatID, err)
	}
}

// Start: long polling до отмены ctx или StopReceivingUpdates.
func (t *Telegram) Start(ctx context.Context) {
	if t.bot == nil {
		return
	}
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.handleUpdate(ctx, update)
		}
	}
}

func (t *Telegram) Stop() {
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
}
