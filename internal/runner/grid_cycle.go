package runner

import (
	"context"

	"hybrid_bot/internal/ledger"
	"hybrid_bot/internal/notify"
	"hybrid_bot/pkg/logger"
)

// completeGridCycle: шаг 5: все ноги прошли проверку исполнения и ни одна покупка не висит.
func (e *Engine) completeGridCycle(ctx context.Context, symbol string) error {
	pos, ok := e.book.Position(symbol)
	if !ok || !pos.IsGrid() || hasUnprotected(pos.Grid.Legs) {
		return nil
	}

	pending, err := e.pendingSet(ctx, symbol)
	if err != nil {
		return err
	}
	for _, l := range pos.Grid.Legs {
		if l.Exposed() || (l.BuyOrderID != "" && pending[l.BuyOrderID]) {
			return nil
		}
	}

	if err := e.book.Update(ctx, func(tx *ledger.Tx) error {
		tx.RemovePosition(symbol)
		return nil
	}); err != nil {
		return err
	}
	logger.Info("[RECONCILE] %s grid cycle complete, %d legs", symbol, len(pos.Grid.Legs))
	e.notify(ctx, notify.Eventf(notify.GridCycleComplete, symbol,
		"GRID cycle finished (no pending buy orders). Re-evaluating next tick"))
	return nil
}

// expireLegs снимает покупки старше grid_leg_ttl. Ногу бросит checkFills на следующем тике.
func (e *Engine) expireLegs(ctx context.Context, symbol string) error {
	pos, ok := e.book.Position(symbol)
	if !ok || !pos.IsGrid() {
		return nil
	}
	cutoff := e.now().Add(-e.legTTL)

	var stale []string
	for _, l := range pos.Grid.Legs {
		if !l.OCOAttached && l.BuyOrderID != "" && !l.PlacedAt.IsZero() && l.PlacedAt.Before(cutoff) {
			stale = append(stale, l.BuyOrderID)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	pending, err := e.pendingSet(ctx, symbol)
	if err != nil {
		return err
	}
	for _, id := range stale {
		if !pending[id] {
			continue
		}
		if err := e.ex.CancelOrder(ctx, symbol, id); err != nil {
			logger.Error("[RECONCILE] %s expire buy %s: %v", symbol, id, err)
			continue
		}
		logger.Info("[RECONCILE] %s buy %s older than %s canceled", symbol, id, e.legTTL)
	}
	return nil
}
