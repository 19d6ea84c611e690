package ledger

import (
	"fmt"
	"math"
	"time"

	"hybrid_bot/internal/models"
)

const rEpsilon = 1e-9

// Tx: набор изменений внутри одного Update.
type Tx struct {
	state *models.State
	now   func() time.Time
	newID func() string
	dirty bool
}

func (tx *Tx) Position(symbol string) (models.Position, bool) {
	p, ok := tx.state.OpenPositions[symbol]
	if !ok {
		return models.Position{}, false
	}
	return p.Clone(), true
}

// SetPosition кладёт позицию, только если она валидна.
func (tx *Tx) SetPosition(symbol string, p models.Position) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("position %s: %w", symbol, err)
	}
	tx.state.OpenPositions[symbol] = p.Clone()
	tx.dirty = true
	return nil
}

func (tx *Tx) RemovePosition(symbol string) bool {
	if _, ok := tx.state.OpenPositions[symbol]; !ok {
		return false
	}
	delete(tx.state.OpenPositions, symbol)
	tx.dirty = true
	return true
}

// OpenTrade добавляет открытую сделку и возвращает её.
func (tx *Tx) OpenTrade(symbol string, mode models.PositionMode, entry, stop, size float64) models.Trade {
	t := models.Trade{
		ID:          tx.newID(),
		Symbol:      symbol,
		Mode:        mode,
		Side:        models.SideLong,
		Entry:       entry,
		Stop:        stop,
		Size:        size,
		RiskPerUnit: math.Abs(entry - stop),
		Open:        true,
		OpenedAt:    tx.now().UTC(),
	}
	tx.state.Trades = append(tx.state.Trades, t)
	tx.dirty = true
	return t
}

func (tx *Tx) openTrade(id string) (*models.Trade, error) {
	for i := range tx.state.Trades {
		t := &tx.state.Trades[i]
		if t.ID != id {
			continue
		}
		if !t.Open {
			return t, fmt.Errorf("trade %s: %w", id, ErrTradeClosed)
		}
		return t, nil
	}
	return nil, fmt.Errorf("trade %s: %w", id, ErrTradeClosed)
}

// CloseTrade закрывает сделку ровно один раз на фактически проданный объём.
// Повторное закрытие: ErrTradeClosed, pnl не пересчитывается.
func (tx *Tx) CloseTrade(id string, exitPrice, size float64) (models.Trade, error) {
	t, err := tx.openTrade(id)
	if err != nil {
		if t != nil {
			return *t, err
		}
		return models.Trade{}, err
	}
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return *t, fmt.Errorf("trade %s: close size %v", id, size)
	}
	pnl := (exitPrice - t.Entry) * size
	closedAt := tx.now().UTC()
	exit := exitPrice
	t.Size = size
	t.Open = false
	t.ExitPrice = &exit
	t.PnL = pnl
	t.RMultiple = pnl / math.Max(rEpsilon, t.RiskPerUnit*size)
	t.ClosedAt = &closedAt
	tx.dirty = true
	return *t, nil
}

// ResizeTrade: вход исполнился не полностью, открытая сделка уменьшается до купленного.
func (tx *Tx) ResizeTrade(id string, size float64) error {
	t, err := tx.openTrade(id)
	if err != nil {
		return err
	}
	if size <= 0 {
		return fmt.Errorf("trade %s: resize to %v", id, size)
	}
	t.Size = size
	tx.dirty = true
	return nil
}

// VoidTrade удаляет открытую сделку, вход по которой так и не исполнился.
func (tx *Tx) VoidTrade(id string) bool {
	for i, t := range tx.state.Trades {
		if t.ID == id && t.Open {
			tx.state.Trades = append(tx.state.Trades[:i], tx.state.Trades[i+1:]...)
			tx.dirty = true
			return true
		}
	}
	return false
}

func (tx *Tx) AddAlert(symbol string, kind models.AlertKind, price float64) error {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: price %v", ErrInvalidAlert, price)
	}
	a := tx.state.Alerts[symbol]
	switch kind {
	case models.AlertDip:
		a.Dip = append(a.Dip, price)
	case models.AlertBreakout:
		a.Breakout = append(a.Breakout, price)
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidAlert, kind)
	}
	tx.state.Alerts[symbol] = a
	tx.dirty = true
	return nil
}

func (tx *Tx) ClearAlerts(symbol string) {
	if _, ok := tx.state.Alerts[symbol]; !ok {
		return
	}
	delete(tx.state.Alerts, symbol)
	tx.dirty = true
}

func (tx *Tx) SetToggles(t models.Toggles) {
	tx.state.Config.Toggles = t
	tx.dirty = true
}

// SetSettings заменяет сохранённые рантайм-настройки целиком.
func (tx *Tx) SetSettings(sc models.StateConfig) {
	if sc.Watchlist != nil {
		wl := append([]string{}, *sc.Watchlist...)
		sc.Watchlist = &wl
	}
	tx.state.Config = sc
	tx.dirty = true
}
