package runner

import (
	"context"
	"fmt"
	"math"
	"sort"

	"hybrid_bot/internal/helper"
	"hybrid_bot/internal/ledger"
	"hybrid_bot/internal/metrics"
	"hybrid_bot/internal/models"
	"hybrid_bot/internal/notify"
)

// handleAlerts: авто-входы по уровням пользователя. Алерты после срабатывания не удаляются.
func (e *Engine) handleAlerts(ctx context.Context, cfg models.RuntimeConfig, m market) error {
	if !cfg.Toggles.AutoDip && !cfg.Toggles.AutoBreakout {
		return nil
	}
	if _, open := e.book.Position(m.symbol); open {
		return nil
	}
	alerts := e.book.AlertsFor(m.symbol)

	if cfg.Toggles.AutoDip {
		if level, ok := lowestAtOrAbove(alerts.Dip, m.last); ok {
			opened, err := e.dipEntry(ctx, cfg, m, level)
			if err != nil || opened {
				return err
			}
		}
	}

	if cfg.Toggles.AutoBreakout {
		if level, ok := lowestAtOrBelow(alerts.Breakout, m.last); ok {
			row := m.analysis.Row
			// одного пробоя мало, нужен подтверждённый тренд
			if !m.analysis.Ready || row.ADX < cfg.Strategy.ADXTrend || row.EMAFast <= row.EMASlow {
				return nil
			}
			stop := m.last - cfg.Risk.ATRMultSL*m.atr
			return e.openTrend(ctx, cfg, m.symbol, m.last, stop,
				fmt.Sprintf("auto breakout above %s", helper.FormatNum(level)), "breakout_buy")
		}
	}
	return nil
}

// dipEntry: лимитка на уровне дипа, позиция-сетка из одной ноги.
// false без ошибки: уровень или объём не годятся, ничего не выставлено.
func (e *Engine) dipEntry(ctx context.Context, cfg models.RuntimeConfig, m market, level float64) (bool, error) {
	meta, err := e.ex.GetInstrumentMeta(ctx, m.symbol)
	if err != nil {
		return false, fmt.Errorf("instrument meta: %w", err)
	}
	level = helper.RoundDownToTick(level, meta.TickSz)
	tp := helper.RoundDownToTick(level+2*m.atr, meta.TickSz)
	sl := helper.RoundDownToTick(math.Max(minPrice, level-1.5*m.atr), meta.TickSz)
	if level <= 0 || sl <= 0 || sl >= level {
		return false, nil
	}

	equity, err := e.ex.GetBalance(ctx, cfg.Quote)
	if err != nil {
		return false, fmt.Errorf("balance %s: %w", cfg.Quote, err)
	}
	size := calcSize(equity, level, sl, cfg.Risk.RiskPerTrade, meta, cfg.Risk.MinPositionUSD)
	if size <= 0 {
		return false, nil
	}

	orderID, err := e.ex.PlaceLimitBuy(ctx, m.symbol, level, size)
	if err != nil {
		return false, fmt.Errorf("dip buy: %w", err)
	}
	metrics.Orders.WithLabelValues("dip_buy").Inc()

	step := helper.RoundDownToTick(m.atr*0.5, meta.TickSz)
	if step <= 0 {
		step = m.atr * 0.5
	}
	pos := models.NewGridPosition(models.GridPosition{
		StepSize: step,
		Reason:   "auto dip",
		Legs: []models.GridLeg{{
			BuyOrderID:      orderID,
			BuyPrice:        level,
			TakeProfitPrice: tp,
			StopLossPrice:   sl,
			SizeRequested:   size,
			PlacedAt:        e.now().UTC(),
		}},
	})
	if err := e.book.Update(ctx, func(tx *ledger.Tx) error {
		return tx.SetPosition(m.symbol, pos)
	}); err != nil {
		return true, err
	}

	e.notify(ctx, notify.Eventf(notify.AlertEntry, m.symbol,
		"AUTO DIP: limit buy %s (TP %s / SL %s) size %s",
		helper.FormatNum(level), helper.FormatNum(tp), helper.FormatNum(sl), helper.FormatNum(size)))
	return true, nil
}

func lowestAtOrAbove(levels []float64, price float64) (float64, bool) {
	var hit []float64
	for _, p := range levels {
		if price <= p {
			hit = append(hit, p)
		}
	}
	if len(hit) == 0 {
		return 0, false
	}
	sort.Float64s(hit)
	return hit[0], true
}

func lowestAtOrBelow(levels []float64, price float64) (float64, bool) {
	var hit []float64
	for _, p := range levels {
		if price >= p {
			hit = append(hit, p)
		}
	}
	if len(hit) == 0 {
		return 0, false
	}
	sort.Float64s(hit)
	return hit[0], true
}
