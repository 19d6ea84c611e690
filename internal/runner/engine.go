package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hybrid_bot/internal/exchange"
	"hybrid_bot/internal/ledger"
	"hybrid_bot/internal/metrics"
	"hybrid_bot/internal/models"
	"hybrid_bot/internal/modules/config"
	"hybrid_bot/internal/notify"
	"hybrid_bot/pkg/logger"
)

const (
	defaultCandlesLimit = 300
	atrFallbackFrac     = 0.01
	minPrice            = 1e-9
)

// Analyzer: классификатор режима, на входе свечи.
type Analyzer interface {
	Analyze(candles []models.Candle, cfg models.StrategyConfig) models.Analysis
}

// Engine сверяет одну позицию с биржей за вызов. Состояние только в ledger.
type Engine struct {
	ex       exchange.Exchange
	analyzer Analyzer
	book     *ledger.Book
	n        notify.Notifier

	candlesLimit int
	legTTL       time.Duration
	now          func() time.Time
}

func NewEngine(cfg *config.Config, ex exchange.Exchange, analyzer Analyzer, book *ledger.Book, n notify.Notifier) *Engine {
	limit := cfg.Bot.CandlesLimit
	if limit <= 0 {
		limit = defaultCandlesLimit
	}
	return &Engine{
		ex:           ex,
		analyzer:     analyzer,
		book:         book,
		n:            n,
		candlesLimit: limit,
		legTTL:       cfg.Bot.GridLegTTL,
		now:          time.Now,
	}
}

// market: то, что шаги знают о символе на этом тике.
type market struct {
	symbol   string
	last     float64
	atr      float64
	analysis models.Analysis
}

// ReconcileSymbol: один проход по символу.
// Ошибка шага логируется, шаг пропускается, следующие шаги выполняются.
// Наружу уходят только ошибка данных (символ пропущен целиком) и ErrPersistence.
func (e *Engine) ReconcileSymbol(ctx context.Context, cfg models.RuntimeConfig, symbol string) error {
	m, err := e.loadMarket(ctx, cfg, symbol)
	if err != nil {
		return err
	}

	// 1) fill detection + OCO для лестницы
	if err := e.step("fills", symbol, e.checkFills(ctx, symbol)); err != nil {
		return err
	}
	// 2) авто-входы по алертам
	if err := e.step("alerts", symbol, e.handleAlerts(ctx, cfg, m)); err != nil {
		return err
	}
	// 3) трейлинг и выход тренда
	if err := e.step("trend", symbol, e.manageTrend(ctx, cfg, m)); err != nil {
		return err
	}

	if _, open := e.book.Position(symbol); !open {
		// 4) вход, если флэт
		return e.step("entry", symbol, e.openEntry(ctx, cfg, m))
	}

	// 5) завершение цикла сетки
	if e.legTTL > 0 {
		if err := e.step("expire", symbol, e.expireLegs(ctx, symbol)); err != nil {
			return err
		}
	}
	return e.step("grid_cycle", symbol, e.completeGridCycle(ctx, symbol))
}

func (e *Engine) loadMarket(ctx context.Context, cfg models.RuntimeConfig, symbol string) (market, error) {
	candles, err := e.ex.GetCandles(ctx, symbol, cfg.Strategy.Timeframe, e.candlesLimit)
	if err != nil {
		return market{}, fmt.Errorf("candles %s: %w", symbol, err)
	}
	if len(candles) == 0 {
		return market{}, fmt.Errorf("candles %s: %w", symbol, exchange.ErrDataUnavailable)
	}
	lastClose := candles[len(candles)-1].Close

	m := market{
		symbol:   symbol,
		analysis: e.analyzer.Analyze(candles, cfg.Strategy),
	}

	m.last, err = e.ex.GetTicker(ctx, symbol)
	if err != nil || m.last <= 0 {
		logger.Warn("[RECONCILE] %s ticker unavailable (%v), using last close %v", symbol, err, lastClose)
		m.last = lastClose
	}

	m.atr = m.analysis.Row.ATR
	if !m.analysis.Ready || m.atr <= 0 {
		m.atr = max(minPrice, m.last*atrFallbackFrac)
	}
	return m, nil
}

func (e *Engine) step(name, symbol string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, exchange.ErrPersistence) {
		return err
	}
	metrics.SymbolErrors.WithLabelValues(name).Inc()
	logger.Error("[RECONCILE] %s %s: %v", symbol, name, err)
	return nil
}

func (e *Engine) notify(ctx context.Context, ev notify.Event) {
	if e.n != nil {
		e.n.Notify(ctx, ev)
	}
}
