package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"hybrid_bot/internal/helper"
	"hybrid_bot/internal/models"
	"hybrid_bot/internal/runner"
	"hybrid_bot/pkg/logger"
)

func (t *Telegram) handleUpdate(ctx context.Context, update tgbot.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	chatID := msg.Chat.ID
	if !t.sink.Allowed(chatID) {
		logger.Warn("[TG] command /%s from foreign chat %d ignored", msg.Command(), chatID)
		return
	}
	t.sink.Bind(chatID)

	reply := t.dispatch(ctx, msg.Command(), strings.Fields(msg.CommandArguments()))
	if reply != "" {
		t.Send(chatID, reply)
	}
}

// dispatch: ответ на команду. Пустая строка, отвечать не нужно.
func (t *Telegram) dispatch(ctx context.Context, command string, args []string) string {
	switch command {
	case "start":
		return t.startText()

	case "status":
		return formatStatus(t.cmd.Status())

	case "watchlist":
		return "Watchlist: " + joinOrNone(t.cmd.Watchlist())

	case "add":
		if len(args) < 1 {
			return "Usage: /add SYMBOL-USDT"
		}
		wl, err := t.cmd.AddSymbol(ctx, args[0])
		if err != nil {
			return errText(err)
		}
		return fmt.Sprintf("Added %s. Now: %s", models.NormSymbol(args[0]), joinOrNone(wl))

	case "rm":
		if len(args) < 1 {
			return "Usage: /rm SYMBOL-USDT"
		}
		wl, err := t.cmd.RemoveSymbol(ctx, args[0])
		if err != nil {
			return errText(err)
		}
		return fmt.Sprintf("Removed %s. Now: %s", models.NormSymbol(args[0]), joinOrNone(wl))

	case "mode":
		if len(args) < 1 {
			return "Usage: /mode auto|trend|grid"
		}
		mode, err := t.cmd.SetMode(ctx, strings.ToLower(args[0]))
		if errors.Is(err, runner.ErrUnknownMode) {
			return "Usage: /mode auto|trend|grid"
		}
		if err != nil {
			return errText(err)
		}
		return fmt.Sprintf("Mode set to %s", mode)

	case "risk":
		if len(args) < 1 {
			return "Usage: /risk 0.01 (1%)"
		}
		v, ok := parseFloat(args[0])
		if !ok {
			return "Invalid number"
		}
		if err := t.cmd.SetRisk(ctx, v); err != nil {
			if errors.Is(err, runner.ErrRiskOutOfRange) {
				return "Out of range (0.1%–5%)"
			}
			return errText(err)
		}
		return fmt.Sprintf("Risk per trade set to %.2f%%", v*100)

	case "pause":
		if err := t.cmd.Pause(ctx); err != nil {
			return errText(err)
		}
		return "⏸️ Execution paused"

	case "resume":
		if err := t.cmd.Resume(ctx); err != nil {
			return errText(err)
		}
		return "▶️ Execution resumed"

	case "alerts":
		return formatAlerts(t.cmd.Alerts())

	case "alert":
		if len(args) < 3 {
			return "Usage: /alert SYMBOL dip|breakout PRICE"
		}
		kind, ok := parseAlertKind(args[1])
		if !ok {
			return "Kind must be dip or breakout"
		}
		price, ok := parseFloat(args[2])
		if !ok {
			return "Price must be a number"
		}
		if err := t.cmd.AddAlert(ctx, args[0], kind, price); err != nil {
			return errText(err)
		}
		return fmt.Sprintf("Alert added: %s %s %s", models.NormSymbol(args[0]), kind, helper.FormatNum(price))

	case "auto_dip", "auto_breakout":
		if len(args) < 1 {
			return fmt.Sprintf("Usage: /%s on|off", command)
		}
		on, ok := parseOnOff(args[0])
		if !ok {
			return fmt.Sprintf("Usage: /%s on|off", command)
		}
		set, name := t.cmd.SetAutoDip, "DIP"
		if command == "auto_breakout" {
			set, name = t.cmd.SetAutoBreakout, "BREAKOUT"
		}
		if err := set(ctx, on); err != nil {
			return errText(err)
		}
		return fmt.Sprintf("Auto %s set to %s", name, onOff(on))

	case "clear":
		if len(args) < 1 {
			return "Usage: /clear SYMBOL"
		}
		if err := t.cmd.ClearAlerts(ctx, args[0]); err != nil {
			return errText(err)
		}
		return "Cleared alerts for " + models.NormSymbol(args[0])

	case "close":
		if len(args) < 1 {
			return "Usage: /close SYMBOL"
		}
		res, err := t.cmd.Close(ctx, args[0])
		if errors.Is(err, runner.ErrNoPosition) {
			return "No open position"
		}
		if err != nil {
			return errText(err)
		}
		return formatClose(res, t.cmd.Status().Config.Quote)

	case "pnl":
		return t.cmd.PnLReport(ctx).String()

	case "balance":
		v, quote, err := t.cmd.Balance(ctx)
		if err != nil {
			return errText(err)
		}
		return fmt.Sprintf("Balance: %s %s (env=%s, simulated=%v)", helper.F2(v), quote, t.env, t.simulated)

	case "wallet":
		bals, err := t.cmd.Wallet(ctx)
		if err != nil {
			logger.Error("[TG] /wallet: %v", err)
			return "Failed to fetch wallet."
		}
		return formatWallet(bals)

	case "levels":
		if len(args) < 1 {
			return "Usage: /levels SYMBOL"
		}
		lv, err := t.cmd.Levels(ctx, args[0])
		if err != nil {
			return errText(err)
		}
		return formatLevels(lv)
	}
	return ""
}

func (t *Telegram) startText() string {
	return "🤖 Hybrid Trend+Grid Bot\n" +
		"Commands:\n" +
		"  /status /watchlist /add SYMBOL /rm SYMBOL\n" +
		"  /mode auto|trend|grid  /risk 0.001..0.05  /pause  /resume\n" +
		"  /alerts  /alert SYMBOL dip|breakout PRICE  /auto_dip on|off  /auto_breakout on|off\n" +
		"  /clear SYMBOL  /levels SYMBOL  /close SYMBOL  /pnl\n" +
		"  /balance  /wallet\n" +
		fmt.Sprintf("  (env=%s, simulated=%v)", t.env, t.simulated)
}

func errText(err error) string {
	return "❗️ " + err.Error()
}
