package runner

import (
	"context"
	"errors"
	"fmt"

	"hybrid_bot/internal/helper"
	"hybrid_bot/internal/ledger"
	"hybrid_bot/internal/metrics"
	"hybrid_bot/internal/models"
	"hybrid_bot/internal/notify"
	"hybrid_bot/internal/risk"
	"hybrid_bot/pkg/logger"
)

// manageTrend: шаг 3: сверка входа, трейл только подтягивается, выход при цене <= max(trail, stop).
func (e *Engine) manageTrend(ctx context.Context, cfg models.RuntimeConfig, m market) error {
	pos, ok := e.book.Position(m.symbol)
	if !ok || !pos.IsTrend() {
		return nil
	}
	pos, ok, err := e.syncEntry(ctx, m.symbol, pos)
	if err != nil || !ok {
		return err
	}
	t := pos.Trend

	trail := t.TrailingStop
	if m.analysis.Ready {
		next := risk.ATRTrailingStop(m.analysis.Row.Close, m.analysis.Row.ATR, cfg.Risk.ATRMultTrail, pos.Side)
		v := risk.Ratchet(t.TrailingStop, next, pos.Side)
		trail = &v
	}

	if risk.StopBreached(m.last, t.Stop, trail) {
		_, err := e.exitTrend(ctx, m.symbol, pos, m.last, "trailed stop hit")
		return err
	}

	if trail == nil || (t.TrailingStop != nil && *t.TrailingStop == *trail) {
		return nil
	}
	t.TrailingStop = trail
	return e.book.Update(ctx, func(tx *ledger.Tx) error {
		return tx.SetPosition(m.symbol, pos)
	})
}

// syncEntry сверяет входную лимитку с биржей.
// Исполнена или снята с частичным исполнением: позиция и сделка на купленный объём.
// Снята без исполнения: позиция и сделка удаляются, false.
// Пока висит, ничего не меняем.
func (e *Engine) syncEntry(ctx context.Context, symbol string, pos models.Position) (models.Position, bool, error) {
	t := pos.Trend
	if t.EntryOrderID == "" {
		return pos, true, nil
	}
	info, err := e.ex.GetOrder(ctx, symbol, t.EntryOrderID)
	if err != nil {
		logger.Warn("[RECONCILE] %s entry order %s: %v", symbol, t.EntryOrderID, err)
		return pos, true, nil
	}
	switch info.State {
	case models.OrderLive, models.OrderPartiallyFilled:
		return pos, true, nil
	}

	filled := min(info.FilledSize, t.Size)
	if info.State == models.OrderFilled && filled <= 0 {
		filled = t.Size
	}
	if filled <= 0 {
		return pos, false, e.dropTrend(ctx, symbol, t, fmt.Sprintf("entry %s %s without fill", t.EntryOrderID, info.State))
	}

	resized := filled < t.Size
	t.EntryOrderID = ""
	t.Size = filled
	err = e.book.Update(ctx, func(tx *ledger.Tx) error {
		if resized {
			if err := tx.ResizeTrade(t.TradeID, filled); err != nil {
				logger.Warn("[RECONCILE] %s: %v", symbol, err)
			}
		}
		return tx.SetPosition(symbol, pos)
	})
	if err != nil {
		return pos, false, err
	}
	if resized {
		logger.Info("[RECONCILE] %s entry %s filled %s of planned size", symbol, info.State, helper.FormatNum(filled))
	}
	return pos, true, nil
}

// dropTrend: вход не исполнился, сделки не было.
func (e *Engine) dropTrend(ctx context.Context, symbol string, t *models.TrendPosition, why string) error {
	err := e.book.Update(ctx, func(tx *ledger.Tx) error {
		tx.VoidTrade(t.TradeID)
		tx.RemovePosition(symbol)
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("[RECONCILE] %s trend position dropped: %s", symbol, why)
	e.notify(ctx, notify.Eventf(notify.ExitTriggered, symbol, "%s. Nothing bought, position dropped", why))
	return nil
}

// exitTrend продаёт купленное по текущей цене, закрывает сделку на проданный объём и снимает позицию.
// Вход так и не исполнился: сделка аннулируется, возвращается nil.
// Ошибка биржи оставляет позицию как есть, попробуем на следующем тике.
func (e *Engine) exitTrend(ctx context.Context, symbol string, pos models.Position, price float64, why string) (*models.Trade, error) {
	t := pos.Trend
	meta, err := e.ex.GetInstrumentMeta(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("instrument meta: %w", err)
	}

	bought, err := e.sellableSize(ctx, symbol, t)
	if err != nil {
		return nil, err
	}
	if bought <= 0 {
		return nil, e.dropTrend(ctx, symbol, t, why+", entry not filled")
	}

	closeSize := bought
	size := helper.RoundDownToLot(bought, meta.LotSz)
	if size > 0 {
		px := helper.RoundDownToTick(price, meta.TickSz)
		if _, err := e.ex.PlaceLimitSell(ctx, symbol, px, size); err != nil {
			return nil, fmt.Errorf("exit sell: %w", err)
		}
		metrics.Orders.WithLabelValues("exit_sell").Inc()
		closeSize = size
	} else {
		logger.Warn("[RECONCILE] %s: %s below lot %s, nothing to sell", symbol, helper.FormatNum(bought), helper.FormatNum(meta.LotSz))
	}

	var trade models.Trade
	err = e.book.Update(ctx, func(tx *ledger.Tx) error {
		var cerr error
		trade, cerr = tx.CloseTrade(t.TradeID, price, closeSize)
		if cerr != nil && !errors.Is(cerr, ledger.ErrTradeClosed) {
			return cerr
		}
		if cerr != nil {
			logger.Warn("[RECONCILE] %s: %v", symbol, cerr)
		}
		tx.RemovePosition(symbol)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.notify(ctx, notify.Eventf(notify.ExitTriggered, symbol,
		"%s at %s. R≈%.2f PnL≈%.2f", why, helper.FormatNum(price), trade.RMultiple, trade.PnL))
	return &trade, nil
}

// sellableSize: сколько реально куплено входной лимиткой.
// Неисполненный остаток входа отменяется. Пока вход не удалось ни узнать, ни снять, не продаём.
func (e *Engine) sellableSize(ctx context.Context, symbol string, t *models.TrendPosition) (float64, error) {
	if t.EntryOrderID == "" {
		return t.Size, nil
	}
	info, err := e.ex.GetOrder(ctx, symbol, t.EntryOrderID)
	if err != nil {
		return 0, fmt.Errorf("entry order %s: %w", t.EntryOrderID, err)
	}
	if info.State == models.OrderLive || info.State == models.OrderPartiallyFilled {
		if err := e.ex.CancelOrder(ctx, symbol, t.EntryOrderID); err != nil {
			return 0, fmt.Errorf("cancel entry %s: %w", t.EntryOrderID, err)
		}
	}
	if info.State == models.OrderFilled && info.FilledSize <= 0 {
		return t.Size, nil
	}
	return min(info.FilledSize, t.Size), nil
}
