// Package ledger: позиции, журнал сделок, алерты и сохранённые настройки.
// Всё лежит в одном снапшоте models.State и пишется в Store целиком после каждой мутации.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"hybrid_bot/internal/exchange"
	"hybrid_bot/internal/models"
)

var (
	ErrTradeClosed  = errors.New("trade already closed or unknown")
	ErrInvalidAlert = errors.New("invalid alert")
)

// Store: долговременное хранилище снапшота.
// Load на пустом хранилище возвращает models.NewState(), а не ошибку.
type Store interface {
	Load(ctx context.Context) (*models.State, error)
	Save(ctx context.Context, st *models.State) error
}

type Book struct {
	store Store
	now   func() time.Time
	newID func() string

	mu    sync.RWMutex
	state *models.State
}

// New читает состояние из хранилища.
func New(ctx context.Context, store Store) (*Book, error) {
	st, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if st == nil {
		st = models.NewState()
	}
	st.Normalize()
	return &Book{
		store: store,
		now:   time.Now,
		newID: shortID,
		state: st,
	}, nil
}

func shortID() string { return uuid.NewString()[:8] }

func (b *Book) Position(symbol string) (models.Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.state.OpenPositions[symbol]
	if !ok {
		return models.Position{}, false
	}
	return p.Clone(), true
}

func (b *Book) Positions() map[string]models.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]models.Position, len(b.state.OpenPositions))
	for k, p := range b.state.OpenPositions {
		out[k] = p.Clone()
	}
	return out
}

// Symbols: символы с открытыми позициями, отсортированы.
func (b *Book) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.state.OpenPositions))
	for k := range b.state.OpenPositions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (b *Book) Trades() []models.Trade {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.Trade(nil), b.state.Trades...)
}

func (b *Book) Alerts() map[string]models.Alerts {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.Clone().Alerts
}

func (b *Book) AlertsFor(symbol string) models.Alerts {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a := b.state.Alerts[symbol]
	return models.Alerts{
		Dip:      append([]float64(nil), a.Dip...),
		Breakout: append([]float64(nil), a.Breakout...),
	}
}

func (b *Book) Settings() models.StateConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.Clone().Config
}

// Update: единственный способ изменить состояние.
// fn работает с копией; если fn вернула ошибку, копия выбрасывается.
// Если fn ничего не поменяла, запись в хранилище не делается.
// Ошибка Store оборачивается в exchange.ErrPersistence, in-memory состояние при этом не меняется.
func (b *Book) Update(ctx context.Context, fn func(tx *Tx) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tx := &Tx{
		state: b.state.Clone(),
		now:   b.now,
		newID: b.newID,
	}
	if err := fn(tx); err != nil {
		return err
	}
	if !tx.dirty {
		return nil
	}

	tx.state.UpdatedAt = b.now().UTC()
	if err := b.store.Save(ctx, tx.state); err != nil {
		return fmt.Errorf("%w: %w", exchange.ErrPersistence, err)
	}
	b.state = tx.state
	return nil
}
