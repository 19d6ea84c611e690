package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"hybrid_bot/internal/exchange"
	"hybrid_bot/internal/helper"
	"hybrid_bot/internal/ledger"
	"hybrid_bot/internal/models"
	"hybrid_bot/pkg/logger"
)

const (
	MinRisk = 0.001
	MaxRisk = 0.05
)

var (
	ErrNoPosition      = errors.New("no open position")
	ErrRiskOutOfRange  = fmt.Errorf("risk out of range (%.1f%%–%.0f%%)", MinRisk*100, MaxRisk*100)
	ErrEmptySymbol     = errors.New("symbol is empty")
	ErrUnknownMode     = errors.New("mode must be auto, trend or grid")
	ErrCloseIncomplete = errors.New("close incomplete")
)

// Status: снимок для /status.
type Status struct {
	Config    models.RuntimeConfig
	Positions map[string]models.Position
}

func (r *Runner) Status() Status {
	return Status{Config: r.Config(), Positions: r.book.Positions()}
}

// updateConfig собирает новый RuntimeConfig и сохраняет его в state.config.
// Ждёт окончания текущего тика.
func (r *Runner) updateConfig(ctx context.Context, fn func(models.RuntimeConfig) models.RuntimeConfig) (models.RuntimeConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := fn(r.Config())
	if err := r.book.Update(ctx, func(tx *ledger.Tx) error {
		tx.SetSettings(next.Persisted())
		return nil
	}); err != nil {
		logger.Error("[STATE] save settings: %v", err)
		return r.Config(), err
	}
	r.rc.Store(&next)
	if r.health != nil {
		r.health.SetPaused(next.Paused)
	}
	return next, nil
}

func (r *Runner) AddSymbol(ctx context.Context, symbol string) ([]string, error) {
	symbol = models.NormSymbol(symbol)
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	rc, err := r.updateConfig(ctx, func(c models.RuntimeConfig) models.RuntimeConfig { return c.WithSymbol(symbol) })
	return rc.Watchlist, err
}

func (r *Runner) RemoveSymbol(ctx context.Context, symbol string) ([]string, error) {
	symbol = models.NormSymbol(symbol)
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	rc, err := r.updateConfig(ctx, func(c models.RuntimeConfig) models.RuntimeConfig { return c.WithoutSymbol(symbol) })
	return rc.Watchlist, err
}

func (r *Runner) SetMode(ctx context.Context, raw string) (models.StrategyMode, error) {
	mode, ok := models.ParseStrategyMode(raw)
	if !ok {
		return "", ErrUnknownMode
	}
	_, err := r.updateConfig(ctx, func(c models.RuntimeConfig) models.RuntimeConfig { return c.WithMode(mode) })
	return mode, err
}

func (r *Runner) SetRisk(ctx context.Context, v float64) error {
	if v < MinRisk || v > MaxRisk {
		return ErrRiskOutOfRange
	}
	_, err := r.updateConfig(ctx, func(c models.RuntimeConfig) models.RuntimeConfig { return c.WithRisk(v) })
	return err
}

// Pause действует со следующего тика, текущий дорабатывает.
func (r *Runner) Pause(ctx context.Context) error {
	_, err := r.updateConfig(ctx, func(c models.RuntimeConfig) models.RuntimeConfig { return c.WithPaused(true) })
	return err
}

func (r *Runner) Resume(ctx context.Context) error {
	_, err := r.updateConfig(ctx, func(c models.RuntimeConfig) models.RuntimeConfig { return c.WithPaused(false) })
	return err
}

func (r *Runner) SetAutoDip(ctx context.Context, on bool) error {
	_, err := r.updateConfig(ctx, func(c models.RuntimeConfig) models.RuntimeConfig {
		t := c.Toggles
		t.AutoDip = on
		return c.WithToggles(t)
	})
	return err
}

func (r *Runner) SetAutoBreakout(ctx context.Context, on bool) error {
	_, err := r.updateConfig(ctx, func(c models.RuntimeConfig) models.RuntimeConfig {
		t := c.Toggles
		t.AutoBreakout = on
		return c.WithToggles(t)
	})
	return err
}

func (r *Runner) Alerts() map[string]models.Alerts { return r.book.Alerts() }

func (r *Runner) AddAlert(ctx context.Context, symbol string, kind models.AlertKind, price float64) error {
	symbol = models.NormSymbol(symbol)
	if symbol == "" {
		return ErrEmptySymbol
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.book.Update(ctx, func(tx *ledger.Tx) error {
		return tx.AddAlert(symbol, kind, price)
	})
}

func (r *Runner) ClearAlerts(ctx context.Context, symbol string) error {
	symbol = models.NormSymbol(symbol)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.book.Update(ctx, func(tx *ledger.Tx) error {
		tx.ClearAlerts(symbol)
		return nil
	})
}

// CloseResult: итог ручного закрытия.
type CloseResult struct {
	Symbol   string
	Mode     models.PositionMode
	Price    float64
	Trade    *models.Trade
	Canceled int
	Sold     int
}

// Close: ручное закрытие по текущей цене.
// Тренд: продажа и закрытие сделки. Сетка: снимаем висящие покупки,
// по защищённым ногам снимаем OCO и продаём исполненный объём.
func (r *Runner) Close(ctx context.Context, symbol string) (CloseResult, error) {
	symbol = models.NormSymbol(symbol)
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, ok := r.book.Position(symbol)
	if !ok {
		return CloseResult{}, ErrNoPosition
	}
	res := CloseResult{Symbol: symbol, Mode: pos.Mode}

	last, err := r.ex.GetTicker(ctx, symbol)
	if err != nil || last <= 0 {
		if !pos.IsTrend() {
			return res, fmt.Errorf("ticker %s: %w", symbol, exchange.ErrDataUnavailable)
		}
		last = pos.Trend.Entry
	}
	res.Price = last

	if pos.IsTrend() {
		trade, err := r.engine.exitTrend(ctx, symbol, pos, last, "manual close")
		if err != nil {
			return res, r.fatalIfPersistence(err)
		}
		res.Trade = trade
		return res, nil
	}

	if err := r.closeGrid(ctx, symbol, pos, last, &res); err != nil {
		return res, r.fatalIfPersistence(err)
	}
	return res, nil
}

func (r *Runner) closeGrid(ctx context.Context, symbol string, pos models.Position, last float64, res *CloseResult) error {
	pending, err := r.engine.pendingSet(ctx, symbol)
	if err != nil {
		return err
	}
	meta, err := r.ex.GetInstrumentMeta(ctx, symbol)
	if err != nil {
		return fmt.Errorf("instrument meta: %w", err)
	}
	px := helper.RoundDownToTick(last, meta.TickSz)

	var kept []models.GridLeg
	for i, l := range pos.Grid.Legs {
		if l.BuyOrderID != "" && pending[l.BuyOrderID] {
			if err := r.ex.CancelOrder(ctx, symbol, l.BuyOrderID); err != nil {
				logger.Error("[CLOSE] %s leg %d cancel buy: %v", symbol, i, err)
				kept = append(kept, l)
				continue
			}
			res.Canceled++
			continue
		}
		if l.OCOOrderID != nil {
			if err := r.ex.CancelOCO(ctx, symbol, *l.OCOOrderID); err != nil {
				// отказ биржи: OCO уже сработал, продавать нечего
				if errors.Is(err, exchange.ErrRejected) {
					logger.Warn("[CLOSE] %s leg %d OCO %s gone: %v", symbol, i, *l.OCOOrderID, err)
					continue
				}
				logger.Error("[CLOSE] %s leg %d cancel OCO %s: %v", symbol, i, *l.OCOOrderID, err)
				kept = append(kept, l)
				continue
			}
			l.Unwind()
		}
		size, _, ok := l.Filled()
		if !ok {
			continue
		}
		size = helper.RoundDownToLot(size, meta.LotSz)
		if size <= 0 {
			continue
		}
		if _, err := r.ex.PlaceLimitSell(ctx, symbol, px, size); err != nil {
			logger.Error("[CLOSE] %s leg %d sell: %v", symbol, i, err)
			kept = append(kept, l)
			continue
		}
		res.Sold++
	}

	if len(kept) == 0 {
		return r.book.Update(ctx, func(tx *ledger.Tx) error {
			tx.RemovePosition(symbol)
			return nil
		})
	}

	total := len(pos.Grid.Legs)
	pos.Grid.Legs = kept
	if err := r.book.Update(ctx, func(tx *ledger.Tx) error {
		return tx.SetPosition(symbol, pos)
	}); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s, %d of %d grid legs still open", ErrCloseIncomplete, symbol, len(kept), total)
}

// fatalIfPersistence: ордера уже на бирже, без записи состояния продолжать нельзя.
func (r *Runner) fatalIfPersistence(err error) error {
	if errors.Is(err, exchange.ErrPersistence) {
		r.onFatal("[CLOSE] %v", err)
	}
	return err
}

func (r *Runner) Balance(ctx context.Context) (float64, string, error) {
	quote := r.Config().Quote
	v, err := r.ex.GetBalance(ctx, quote)
	return v, quote, err
}

func (r *Runner) Wallet(ctx context.Context) ([]models.Balance, error) {
	return r.wallet.Balances(ctx)
}

// Levels: уровни для /levels вместо графика.
type Levels struct {
	Symbol string
	Price  float64
	Mode   models.PositionMode
	Buys   []float64
	TPs    []float64
	SLs    []float64
	Stop   float64
	Trail  *float64
}

func (r *Runner) Levels(ctx context.Context, symbol string) (Levels, error) {
	symbol = models.NormSymbol(symbol)
	out := Levels{Symbol: symbol}

	last, err := r.ex.GetTicker(ctx, symbol)
	if err != nil {
		return out, err
	}
	out.Price = last

	pos, ok := r.book.Position(symbol)
	if !ok {
		return out, nil
	}
	out.Mode = pos.Mode
	switch {
	case pos.IsTrend():
		out.Stop = pos.Trend.Stop
		out.Trail = pos.Trend.TrailingStop
	case pos.IsGrid():
		for _, l := range pos.Grid.Legs {
			out.Buys = append(out.Buys, l.BuyPrice)
			out.TPs = append(out.TPs, l.TakeProfitPrice)
			out.SLs = append(out.SLs, l.StopLossPrice)
		}
		sort.Float64s(out.Buys)
	}
	return out, nil
}
