package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opentracing/opentracing-go"

	"hybrid_bot/internal/exchange"
	"hybrid_bot/internal/ledger"
	"hybrid_bot/internal/metrics"
	"hybrid_bot/internal/models"
	"hybrid_bot/internal/modules/config"
	"hybrid_bot/internal/notify"
	"hybrid_bot/pkg/logger"
)

// Health: куда раннер отмечает тики и паузу.
type Health interface {
	TouchTick(t time.Time)
	SetPaused(v bool)
}

// Runner: единственный воркер: тики по таймеру и команды из чата идут через один мьютекс.
type Runner struct {
	engine *Engine
	ex     exchange.Exchange
	wallet exchange.Wallet
	book   *ledger.Book
	n      notify.Notifier
	health Health

	mu      sync.Mutex
	running atomic.Bool
	rc      atomic.Pointer[models.RuntimeConfig]

	// циклы и запущенные ими тики
	wg     sync.WaitGroup
	cancel context.CancelFunc

	interval time.Duration
	dailyAt  string
	dailyTZ  string

	onFatal func(format string, args ...any)
	now     func() time.Time
}

func NewRunner(
	cfg *config.Config,
	engine *Engine,
	ex exchange.Exchange,
	wallet exchange.Wallet,
	book *ledger.Book,
	n notify.Notifier,
	health Health,
) *Runner {
	r := &Runner{
		engine:   engine,
		ex:       ex,
		wallet:   wallet,
		book:     book,
		n:        n,
		health:   health,
		interval: cfg.Bot.JobInterval,
		dailyAt:  cfg.Bot.DailyPnLAt,
		dailyTZ:  cfg.Bot.DailyPnLTZ,
		onFatal:  logger.Fatal,
		now:      time.Now,
	}
	// сохранённые команды важнее конфига
	rc := cfg.Runtime().Apply(book.Settings())
	r.rc.Store(&rc)
	if health != nil {
		health.SetPaused(rc.Paused)
	}
	return r
}

// Config: текущий снимок рантайм-настроек.
func (r *Runner) Config() models.RuntimeConfig { return *r.rc.Load() }

func (r *Runner) Watchlist() []string {
	return append([]string(nil), r.Config().Watchlist...)
}

// Tick: один проход по watchlist. Если прошлый тик ещё идёт, этот пропускается.
func (r *Runner) Tick(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		metrics.Ticks.WithLabelValues("skipped_overlap").Inc()
		logger.Warn("[TICK] previous tick still running, skipped")
		return
	}
	defer r.running.Store(false)

	r.mu.Lock()
	defer r.mu.Unlock()

	rc := r.Config()
	if rc.Paused {
		metrics.Ticks.WithLabelValues("paused").Inc()
		logger.Info("[TICK] paused")
		return
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "tick")
	defer span.Finish()
	span.SetTag("symbols", len(rc.Watchlist))

	started := r.now()
	for _, sym := range rc.Watchlist {
		if err := r.reconcile(ctx, rc, sym); err != nil {
			r.onFatal("[TICK] %s: %v", sym, err)
			return
		}
	}

	if r.health != nil {
		r.health.TouchTick(r.now())
	}
	r.updateGauges()
	metrics.Ticks.WithLabelValues("done").Inc()
	logger.Info("[TICK] done: %d symbols in %s", len(rc.Watchlist), r.now().Sub(started).Round(time.Millisecond))
}

// reconcile возвращает только фатальные ошибки.
func (r *Runner) reconcile(ctx context.Context, rc models.RuntimeConfig, sym string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "reconcile")
	defer span.Finish()
	span.SetTag("symbol", sym)

	err := r.engine.ReconcileSymbol(ctx, rc, sym)
	if err == nil {
		return nil
	}
	span.SetTag("error", true)
	if errors.Is(err, exchange.ErrPersistence) {
		return err
	}
	metrics.SymbolErrors.WithLabelValues("data").Inc()
	logger.Error("[RECONCILE] %s skipped: %v", sym, err)
	return nil
}

func (r *Runner) updateGauges() {
	counts := map[models.PositionMode]int{models.ModeTrend: 0, models.ModeGrid: 0}
	for _, p := range r.book.Positions() {
		counts[p.Mode]++
	}
	for mode, n := range counts {
		metrics.OpenPositions.WithLabelValues(string(mode)).Set(float64(n))
	}

	realized := 0.0
	for _, t := range r.book.Trades() {
		if !t.Open {
			realized += t.PnL
		}
	}
	metrics.RealizedPnL.Set(realized)
}
