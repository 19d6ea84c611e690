package runner

import (
	"context"
	"fmt"
	"math"

	"hybrid_bot/internal/helper"
	"hybrid_bot/internal/ledger"
	"hybrid_bot/internal/metrics"
	"hybrid_bot/internal/models"
	"hybrid_bot/internal/notify"
	"hybrid_bot/pkg/logger"
)

// openEntry: шаг 4, позиции по символу нет.
func (e *Engine) openEntry(ctx context.Context, cfg models.RuntimeConfig, m market) error {
	sig := m.analysis.Signal
	switch sig.Kind {
	case models.SignalTrend:
		return e.openTrend(ctx, cfg, m.symbol, sig.Trend.Entry, sig.Trend.Stop, sig.Trend.Reason, "trend_buy")
	case models.SignalGrid:
		return e.placeGrid(ctx, cfg, m, *sig.Grid)
	default:
		if sig.NoOp != nil {
			logger.Debug("[RECONCILE] %s noop (%s): %s", m.symbol, sig.NoOp.Mode, sig.NoOp.Reason)
		}
		return nil
	}
}

// openTrend ставит лимитку на покупку и открывает сделку в журнале.
func (e *Engine) openTrend(ctx context.Context, cfg models.RuntimeConfig, symbol string, entry, stop float64, reason, kind string) error {
	meta, err := e.ex.GetInstrumentMeta(ctx, symbol)
	if err != nil {
		return fmt.Errorf("instrument meta: %w", err)
	}
	entry = helper.RoundDownToTick(entry, meta.TickSz)
	stop = helper.RoundDownToTick(stop, meta.TickSz)
	if entry <= 0 || stop >= entry {
		logger.Info("[RECONCILE] %s trend skipped: entry=%v stop=%v", symbol, entry, stop)
		return nil
	}

	equity, err := e.ex.GetBalance(ctx, cfg.Quote)
	if err != nil {
		return fmt.Errorf("balance %s: %w", cfg.Quote, err)
	}
	size := calcSize(equity, entry, stop, cfg.Risk.RiskPerTrade, meta, cfg.Risk.MinPositionUSD)
	if size <= 0 {
		logger.Info("[RECONCILE] %s trend skipped: size below minimum (equity=%v)", symbol, equity)
		return nil
	}

	orderID, err := e.ex.PlaceLimitBuy(ctx, symbol, entry, size)
	if err != nil {
		return fmt.Errorf("trend buy: %w", err)
	}
	metrics.Orders.WithLabelValues(kind).Inc()

	var trade models.Trade
	err = e.book.Update(ctx, func(tx *ledger.Tx) error {
		trade = tx.OpenTrade(symbol, models.ModeTrend, entry, stop, size)
		return tx.SetPosition(symbol, models.NewTrendPosition(models.TrendPosition{
			Entry:        entry,
			Stop:         stop,
			Size:         size,
			TradeID:      trade.ID,
			EntryOrderID: orderID,
		}))
	})
	if err != nil {
		return err
	}

	e.notify(ctx, notify.Eventf(notify.EntryOpened, symbol,
		"LONG (trend) entry %s, SL %s, size %s, id=%s. %s",
		helper.FormatNum(entry), helper.FormatNum(stop), helper.FormatNum(size), trade.ID, reason))
	return nil
}

// placeGrid: по лимитке на каждую ступень, прошедшую проверку номинала.
// Риск делится поровну между ступенями.
func (e *Engine) placeGrid(ctx context.Context, cfg models.RuntimeConfig, m market, plan models.GridPlan) error {
	meta, err := e.ex.GetInstrumentMeta(ctx, m.symbol)
	if err != nil {
		return fmt.Errorf("instrument meta: %w", err)
	}
	equity, err := e.ex.GetBalance(ctx, cfg.Quote)
	if err != nil {
		return fmt.Errorf("balance %s: %w", cfg.Quote, err)
	}

	step := helper.RoundDownToTick(plan.StepSize, meta.TickSz)
	if step <= 0 {
		step = plan.StepSize
	}
	legRisk := cfg.Risk.RiskPerTrade / float64(max(1, cfg.Strategy.GridLevels))
	now := e.now().UTC()

	var legs []models.GridLeg
	for i, lv := range plan.Legs {
		buy := helper.RoundDownToTick(lv.Buy, meta.TickSz)
		tp := helper.RoundDownToTick(lv.Sell, meta.TickSz)
		sl := helper.RoundDownToTick(buy-math.Max(0.8*m.atr, step), meta.TickSz)
		if buy <= 0 || sl <= 0 || tp <= buy {
			continue
		}
		size := calcSize(equity, buy, sl, legRisk, meta, cfg.Risk.MinPositionUSD)
		if size <= 0 {
			continue
		}

		orderID, err := e.ex.PlaceLimitBuy(ctx, m.symbol, buy, size)
		if err != nil {
			logger.Error("[RECONCILE] %s grid leg %d buy %v: %v", m.symbol, i+1, buy, err)
			continue
		}
		if orderID == "" {
			continue
		}
		metrics.Orders.WithLabelValues("grid_buy").Inc()
		legs = append(legs, models.GridLeg{
			BuyOrderID:      orderID,
			BuyPrice:        buy,
			TakeProfitPrice: tp,
			StopLossPrice:   sl,
			SizeRequested:   size,
			PlacedAt:        now,
		})
	}
	if len(legs) == 0 {
		logger.Info("[RECONCILE] %s grid: no leg cleared the minimum notional", m.symbol)
		return nil
	}

	pos := models.NewGridPosition(models.GridPosition{StepSize: step, Reason: plan.Reason, Legs: legs})
	if err := e.book.Update(ctx, func(tx *ledger.Tx) error {
		return tx.SetPosition(m.symbol, pos)
	}); err != nil {
		return err
	}

	e.notify(ctx, notify.Eventf(notify.GridPlaced, m.symbol,
		"GRID live: %d buy orders placed (step %s). %s", len(legs), helper.FormatNum(step), plan.Reason))
	return nil
}
