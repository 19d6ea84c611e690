package runner

import (
	"context"
	"fmt"

	"hybrid_bot/internal/helper"
	"hybrid_bot/internal/ledger"
	"hybrid_bot/internal/metrics"
	"hybrid_bot/internal/models"
	"hybrid_bot/internal/notify"
	"hybrid_bot/pkg/logger"
)

// checkFills: для каждой ноги без OCO, чей buy пропал из pending,
// спрашиваем статус ордера. Исполнен: ставим OCO на фактический объём,
// отменён без исполнения: помечаем брошенной. Ошибка OCO оставляет ногу на следующий тик.
func (e *Engine) checkFills(ctx context.Context, symbol string) error {
	pos, ok := e.book.Position(symbol)
	if !ok || !pos.IsGrid() || !hasUnprotected(pos.Grid.Legs) {
		return nil
	}

	pending, err := e.pendingSet(ctx, symbol)
	if err != nil {
		return err
	}

	changed := false
	for i := range pos.Grid.Legs {
		leg := &pos.Grid.Legs[i]
		if leg.OCOAttached || leg.BuyOrderID == "" || pending[leg.BuyOrderID] {
			continue
		}

		info, err := e.ex.GetOrder(ctx, symbol, leg.BuyOrderID)
		if err != nil {
			logger.Error("[RECONCILE] %s leg %d order %s: %v", symbol, i, leg.BuyOrderID, err)
			continue
		}

		switch {
		case info.FilledSize > 0 && (info.State == models.OrderFilled || info.State == models.OrderCanceled || info.State == models.OrderMMPCanceled):
			price := info.AvgFillPrice
			if price <= 0 {
				price = leg.BuyPrice
			}
			if _, _, known := leg.Filled(); !known {
				leg.RecordFill(info.FilledSize, price)
				changed = true
			}
			if e.protectLeg(ctx, symbol, i, leg, info.FilledSize, price) {
				changed = true
			}

		case info.State == models.OrderLive || info.State == models.OrderPartiallyFilled:
			// pending отстаёт от статуса ордера, посмотрим на следующем тике
			continue

		default:
			if leg.MarkAbandoned() {
				logger.Info("[RECONCILE] %s leg %d buy %s %s without fill, abandoned", symbol, i, leg.BuyOrderID, info.State)
				changed = true
			}
		}
	}

	if !changed {
		return nil
	}
	return e.book.Update(ctx, func(tx *ledger.Tx) error {
		return tx.SetPosition(symbol, pos)
	})
}

func (e *Engine) protectLeg(ctx context.Context, symbol string, i int, leg *models.GridLeg, filled, price float64) bool {
	algoID, err := e.ex.PlaceOCOExit(ctx, symbol, filled, leg.TakeProfitPrice, leg.StopLossPrice)
	if err != nil {
		logger.Error("[RECONCILE] %s leg %d OCO failed: %v", symbol, i, err)
		e.notify(ctx, notify.Eventf(notify.ProtectionFailed, symbol,
			"OCO for buy %s (size %s) failed, retry next tick: %v", leg.BuyOrderID, helper.FormatNum(filled), err))
		return false
	}
	if !leg.MarkProtected(algoID, filled, price) {
		return false
	}
	metrics.Orders.WithLabelValues("oco").Inc()
	logger.Info("[RECONCILE] %s leg %d OCO %s size=%v tp=%v sl=%v", symbol, i, algoID, filled, leg.TakeProfitPrice, leg.StopLossPrice)
	e.notify(ctx, notify.Eventf(notify.GridLegFilled, symbol,
		"grid buy filled %s @ %s, OCO tp %s / sl %s",
		helper.FormatNum(filled), helper.FormatNum(price),
		helper.FormatNum(leg.TakeProfitPrice), helper.FormatNum(leg.StopLossPrice)))
	return true
}

func (e *Engine) pendingSet(ctx context.Context, symbol string) (map[string]bool, error) {
	ids, err := e.ex.ListPendingOrders(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("pending orders: %w", err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func hasUnprotected(legs []models.GridLeg) bool {
	for _, l := range legs {
		if !l.OCOAttached {
			return true
		}
	}
	return false
}
