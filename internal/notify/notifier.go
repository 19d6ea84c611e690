// Package notify: куда движок сообщает о событиях. Доставка, забота синка.
package notify

import (
	"context"
	"fmt"
	"sync/atomic"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"hybrid_bot/pkg/logger"
)

type Kind string

const (
	EntryOpened       Kind = "entry_opened"
	ExitTriggered     Kind = "exit_triggered"
	GridPlaced        Kind = "grid_placed"
	GridLegFilled     Kind = "grid_leg_filled"
	GridCycleComplete Kind = "grid_cycle_complete"
	ProtectionFailed  Kind = "protection_failed"
	AlertEntry        Kind = "alert_entry"
	Report            Kind = "report"
)

var icons = map[Kind]string{
	EntryOpened:       "🚀",
	ExitTriggered:     "🛑",
	GridPlaced:        "🧱",
	GridLegFilled:     "✅",
	GridCycleComplete: "♻️",
	ProtectionFailed:  "⚠️",
	AlertEntry:        "🔔",
	Report:            "📊",
}

// Event: одно уведомление. Text уже готов для человека.
type Event struct {
	Kind   Kind
	Symbol string
	Text   string
}

func (e Event) String() string {
	icon := icons[e.Kind]
	if e.Symbol == "" {
		return fmt.Sprintf("%s %s", icon, e.Text)
	}
	return fmt.Sprintf("%s %s %s", icon, e.Symbol, e.Text)
}

func Eventf(kind Kind, symbol, format string, args ...any) Event {
	return Event{Kind: kind, Symbol: symbol, Text: fmt.Sprintf(format, args...)}
}

type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Telegram шлёт события в один чат. Если chat_id не задан в конфиге,
// чат запоминается из последней команды (Bind).
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID atomic.Int64
	locked bool
}

func NewTelegram(bot *tgbot.BotAPI, chatID int64) *Telegram {
	t := &Telegram{bot: bot, locked: chatID != 0}
	t.chatID.Store(chatID)
	return t
}

// Bind: запомнить чат. Возвращает false, если чат зафиксирован другим.
func (t *Telegram) Bind(chatID int64) bool {
	if t.locked {
		return chatID == t.chatID.Load()
	}
	t.chatID.Store(chatID)
	return true
}

// Allowed: можно ли принимать команды из этого чата.
func (t *Telegram) Allowed(chatID int64) bool {
	return !t.locked || chatID == t.chatID.Load()
}

func (t *Telegram) ChatID() int64 { return t.chatID.Load() }

func (t *Telegram) Notify(_ context.Context, e Event) {
	msg := e.String()
	logger.Info("[NOTIFY] %s", msg)

	chatID := t.chatID.Load()
	if t.bot == nil || chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(chatID, msg)); err != nil {
		logger.Error("[TG] send %s: %v", e.Kind, err)
	}
}

// Stdout: без телеграма, только в лог.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) Notify(_ context.Context, e Event) {
	logger.Info("[NOTIFY] %s", e.String())
}
