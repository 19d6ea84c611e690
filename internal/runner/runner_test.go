package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hybrid_bot/internal/exchange"
	"hybrid_bot/internal/ledger"
	"hybrid_bot/internal/models"
	"hybrid_bot/internal/notify"
)

func TestTickReconcilesWatchlist(t *testing.T) {
	cfg := testConfig()
	cfg.Bot.Watchlist = []string{"btc-usdt", "ETH-USDT"}
	f := newFixtureWith(t, cfg)
	f.ex.candlesErr["BTC-USDT"] = exchange.ErrTransient

	f.runner.Tick(context.Background())

	// ошибка по BTC не мешает ETH
	assert.Equal(t, 2, f.ex.Calls("candles"))
	assert.Equal(t, 1, f.ex.Calls("ticker"))
	assert.Equal(t, 1, f.health.ticks)
	assert.Empty(t, f.fatal)
}

func TestTickSkippedWhilePreviousRuns(t *testing.T) {
	f := newFixture(t)
	f.runner.running.Store(true)

	f.runner.Tick(context.Background())

	assert.Zero(t, f.ex.Calls("candles"))
	assert.Zero(t, f.health.ticks)
}

func TestTickPaused(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.runner.Pause(context.Background()))
	assert.True(t, f.health.paused)

	f.runner.Tick(context.Background())
	assert.Zero(t, f.ex.Calls("candles"))

	require.NoError(t, f.runner.Resume(context.Background()))
	f.runner.Tick(context.Background())
	assert.Equal(t, 1, f.ex.Calls("candles"))
	assert.False(t, f.health.paused)
}

func TestTickPersistenceFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.store.saveErr = errors.New("read-only fs")
	f.analyzer.a = readyAnalysis(models.IndicatorRow{Close: 100, ATR: 1},
		models.NewTrendSignal(models.TrendSignal{Side: models.SideLong, Entry: 100, Stop: 98}))

	f.runner.Tick(context.Background())

	require.Len(t, f.fatal, 1)
	assert.Contains(t, f.fatal[0], "BTC-USDT")
	assert.Zero(t, f.health.ticks)
}

func TestStopWaitsForRunningTick(t *testing.T) {
	cfg := testConfig()
	cfg.Bot.JobInterval = time.Hour
	f := newFixtureWith(t, cfg)
	f.ex.delay = 50 * time.Millisecond

	f.runner.Start()
	time.Sleep(10 * time.Millisecond)
	f.runner.Stop()

	assert.Equal(t, 1, f.health.ticks, "tick finished before Stop returned")
	assert.False(t, f.runner.running.Load())
}

func TestSavedSettingsOverrideConfig(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mode, err := f.runner.SetMode(ctx, "grid")
	require.NoError(t, err)
	assert.Equal(t, models.StrategyGrid, mode)
	require.NoError(t, f.runner.SetRisk(ctx, 0.02))
	_, err = f.runner.AddSymbol(ctx, " sol-usdt ")
	require.NoError(t, err)

	// рестарт на том же хранилище
	book, err := ledger.New(ctx, f.store)
	require.NoError(t, err)
	r := NewRunner(testConfig(), f.engine, f.ex, f.ex, book, nil, nil)

	rc := r.Config()
	assert.Equal(t, models.StrategyGrid, rc.Strategy.Mode)
	assert.Equal(t, 0.02, rc.Risk.RiskPerTrade)
	assert.Equal(t, []string{"BTC-USDT", "SOL-USDT"}, rc.Watchlist)
}

func TestEmptyWatchlistSurvivesRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wl, err := f.runner.RemoveSymbol(ctx, sym)
	require.NoError(t, err)
	assert.Empty(t, wl)

	book, err := ledger.New(ctx, f.store)
	require.NoError(t, err)
	r := NewRunner(testConfig(), f.engine, f.ex, f.ex, book, nil, nil)

	assert.Empty(t, r.Config().Watchlist)
}

func TestCommandValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.runner.SetRisk(ctx, 0.2), ErrRiskOutOfRange)
	require.ErrorIs(t, f.runner.SetRisk(ctx, 0.0001), ErrRiskOutOfRange)
	_, err := f.runner.SetMode(ctx, "scalp")
	require.ErrorIs(t, err, ErrUnknownMode)
	_, err = f.runner.AddSymbol(ctx, "  ")
	require.ErrorIs(t, err, ErrEmptySymbol)
	require.ErrorIs(t, f.runner.AddAlert(ctx, sym, models.AlertDip, -1), ledger.ErrInvalidAlert)

	wl, err := f.runner.RemoveSymbol(ctx, "btc-usdt")
	require.NoError(t, err)
	assert.Empty(t, wl)
}

func TestCommandPersistenceErrorReturned(t *testing.T) {
	f := newFixture(t)
	f.store.saveErr = errors.New("boom")

	err := f.runner.SetRisk(context.Background(), 0.02)

	require.ErrorIs(t, err, exchange.ErrPersistence)
	assert.Equal(t, 0.01, f.runner.Config().Risk.RiskPerTrade)
}

func TestAlertsCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.runner.AddAlert(ctx, "btc-usdt", models.AlertBreakout, 110))
	require.NoError(t, f.runner.AddAlert(ctx, sym, models.AlertDip, 90))

	al := f.runner.Alerts()[sym]
	assert.Equal(t, []float64{90}, al.Dip)
	assert.Equal(t, []float64{110}, al.Breakout)

	require.NoError(t, f.runner.ClearAlerts(ctx, sym))
	assert.Empty(t, f.runner.Alerts())
}

func TestCloseTrend(t *testing.T) {
	f := newFixture(t)
	seedTrend(t, f, nil)
	f.ex.ticker = 110

	res, err := f.runner.Close(context.Background(), "btc-usdt")

	require.NoError(t, err)
	require.NotNil(t, res.Trade)
	assert.InDelta(t, 20, res.Trade.PnL, 1e-9)
	assert.InDelta(t, 2, res.Trade.RMultiple, 1e-9)
	assert.Equal(t, []placed{{Symbol: sym, Price: 110, Size: 2}}, f.ex.sells)
	_, ok := f.book.Position(sym)
	assert.False(t, ok)

	_, err = f.runner.Close(context.Background(), sym)
	require.ErrorIs(t, err, ErrNoPosition)
}

func TestCloseGrid(t *testing.T) {
	f := newFixture(t)
	legs := gridLegs()
	legs[0].MarkProtected("algo-9", 1.5, 99.8)
	legs[2].MarkAbandoned()
	seedGrid(t, f, legs)
	f.ex.pending = []string{"b2"}
	f.ex.ticker = 101

	res, err := f.runner.Close(context.Background(), sym)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Canceled)
	assert.Equal(t, 1, res.Sold)
	assert.Equal(t, []string{"b2"}, f.ex.canceled)
	assert.Equal(t, []string{"algo-9"}, f.ex.canceledOCO)
	assert.Equal(t, []placed{{Symbol: sym, Price: 101, Size: 1.5}}, f.ex.sells)
	_, ok := f.book.Position(sym)
	assert.False(t, ok)
}

func TestCloseGridSkipsLegWhenOCOGone(t *testing.T) {
	f := newFixture(t)
	legs := gridLegs()[:1]
	legs[0].MarkProtected("algo-9", 1.5, 99.8)
	seedGrid(t, f, legs)
	f.ex.cancelOCOErr = exchange.NewAPIError("cancel algo", "51400", "already triggered")

	res, err := f.runner.Close(context.Background(), sym)

	require.NoError(t, err)
	assert.Zero(t, res.Sold)
	assert.Empty(t, f.ex.sells)
}

func TestCloseGridKeepsLegsWhenCancelFails(t *testing.T) {
	f := newFixture(t)
	seedGrid(t, f, gridLegs())
	f.ex.pending = []string{"b1", "b2", "b3"}
	f.ex.cancelErr = exchange.NewAPIError("cancel order", "50011", "too many requests")

	res, err := f.runner.Close(context.Background(), sym)

	require.ErrorIs(t, err, ErrCloseIncomplete)
	assert.Zero(t, res.Canceled)
	assert.Empty(t, f.fatal)
	pos, ok := f.book.Position(sym)
	require.True(t, ok)
	assert.Equal(t, gridLegs(), pos.Grid.Legs)
	assert.Equal(t, []string{"b1", "b2", "b3"}, f.ex.pending)
}

func TestCloseGridRetriesFailedSell(t *testing.T) {
	f := newFixture(t)
	legs := gridLegs()[:2]
	legs[0].MarkProtected("algo-9", 1.5, 99.8)
	seedGrid(t, f, legs)
	f.ex.pending = []string{"b2"}
	f.ex.sellErr = exchange.NewAPIError("place order", "51008", "insufficient balance")
	f.ex.ticker = 101

	res, err := f.runner.Close(context.Background(), sym)

	require.ErrorIs(t, err, ErrCloseIncomplete)
	assert.Equal(t, 1, res.Canceled)
	assert.Equal(t, []string{"algo-9"}, f.ex.canceledOCO)
	pos, ok := f.book.Position(sym)
	require.True(t, ok)
	require.Len(t, pos.Grid.Legs, 1)
	assert.True(t, pos.Grid.Legs[0].Exposed())

	// тик не считает цикл завершённым, пока купленное не продано
	f.reconcile(t, sym)
	_, ok = f.book.Position(sym)
	require.True(t, ok)

	f.ex.sellErr = nil
	res, err = f.runner.Close(context.Background(), sym)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Sold)
	assert.Equal(t, []string{"algo-9"}, f.ex.canceledOCO, "OCO is not canceled twice")
	assert.Equal(t, []placed{{Symbol: sym, Price: 101, Size: 1.5}}, f.ex.sells)
	_, ok = f.book.Position(sym)
	assert.False(t, ok)
}

func TestCloseGridKeepsLegOnTransientOCOCancelError(t *testing.T) {
	f := newFixture(t)
	legs := gridLegs()[:1]
	legs[0].MarkProtected("algo-9", 1.5, 99.8)
	seedGrid(t, f, legs)
	f.ex.cancelOCOErr = exchange.NewAPIError("cancel algo", "50011", "too many requests")

	_, err := f.runner.Close(context.Background(), sym)

	require.ErrorIs(t, err, ErrCloseIncomplete)
	assert.Empty(t, f.ex.sells)
	pos, ok := f.book.Position(sym)
	require.True(t, ok)
	require.NotNil(t, pos.Grid.Legs[0].OCOOrderID)
	assert.Equal(t, "algo-9", *pos.Grid.Legs[0].OCOOrderID)
}

func TestCloseTrendWithUnfilledEntry(t *testing.T) {
	f := newFixture(t)
	seedTrend(t, f, nil)
	f.ex.orders["e1"] = models.OrderInfo{OrderID: "e1", State: models.OrderLive}

	res, err := f.runner.Close(context.Background(), sym)

	require.NoError(t, err)
	assert.Nil(t, res.Trade)
	assert.Equal(t, []string{"e1"}, f.ex.canceled)
	assert.Empty(t, f.ex.sells)
	assert.Empty(t, f.book.Trades())
	_, ok := f.book.Position(sym)
	assert.False(t, ok)
}

func TestClosePersistenceFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	seedTrend(t, f, nil)
	f.store.saveErr = errors.New("boom")

	_, err := f.runner.Close(context.Background(), sym)

	require.ErrorIs(t, err, exchange.ErrPersistence)
	assert.Len(t, f.fatal, 1)
}

func TestLevels(t *testing.T) {
	f := newFixture(t)
	seedGrid(t, f, gridLegs())

	lv, err := f.runner.Levels(context.Background(), sym)

	require.NoError(t, err)
	assert.Equal(t, models.ModeGrid, lv.Mode)
	assert.Equal(t, []float64{98, 99, 100}, lv.Buys)
	assert.Len(t, lv.SLs, 3)
}

func TestPnLReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, func(tx *ledger.Tx) error {
		tr := tx.OpenTrade("ETH-USDT", models.ModeTrend, 100, 90, 1)
		_, err := tx.CloseTrade(tr.ID, 120, 1)
		return err
	})
	seedTrend(t, f, nil)
	f.ex.ticker = 105

	rep := f.runner.PnLReport(ctx)

	assert.InDelta(t, 20, rep.Realized, 1e-9)
	assert.InDelta(t, 2, rep.RRealized, 1e-9)
	require.Len(t, rep.Lines, 1)
	// (105-100)*2 / (5*2)
	assert.InDelta(t, 10, rep.Unrealized, 1e-9)
	assert.InDelta(t, 1, rep.RUnrealized, 1e-9)

	s := rep.String()
	assert.Contains(t, s, "Daily PnL & R Summary")
	assert.Contains(t, s, "BTC-USDT trend")
	assert.Contains(t, s, "Realized: 20.00 USDT")
}

func TestPnLReportGridLegsAndMissingPrice(t *testing.T) {
	f := newFixture(t)
	legs := gridLegs()
	legs[0].MarkProtected("algo-1", 1, 100)
	seedGrid(t, f, legs)
	f.ex.ticker = 102

	rep := f.runner.PnLReport(context.Background())
	require.Len(t, rep.Lines, 1)
	assert.Equal(t, "grid leg", rep.Lines[0].Kind)
	assert.InDelta(t, 2, rep.Lines[0].PnL, 1e-9)
	assert.InDelta(t, 1, rep.Lines[0].R, 1e-9)

	f.ex.tickerErr = exchange.ErrDataUnavailable
	rep = f.runner.PnLReport(context.Background())
	assert.Equal(t, []string{sym}, rep.Missing)
	assert.Contains(t, rep.String(), "no price")
}

func TestSendReportNotifies(t *testing.T) {
	f := newFixture(t)
	f.runner.SendReport(context.Background())
	assert.Equal(t, []notify.Kind{notify.Report}, f.notes.Kinds())
}

func TestNextDaily(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	// летом Лондон = UTC+1
	now := time.Date(2024, 7, 1, 19, 30, 0, 0, time.UTC)
	next := nextDaily(now, 21, 0, loc)
	assert.Equal(t, time.Date(2024, 7, 1, 20, 0, 0, 0, time.UTC), next.UTC())

	now = time.Date(2024, 7, 1, 20, 0, 0, 0, time.UTC)
	next = nextDaily(now, 21, 0, loc)
	assert.Equal(t, time.Date(2024, 7, 2, 20, 0, 0, 0, time.UTC), next.UTC())
}

func TestParseHHMM(t *testing.T) {
	hh, mm, err := parseHHMM("07:05")
	require.NoError(t, err)
	assert.Equal(t, 7, hh)
	assert.Equal(t, 5, mm)

	_, _, err = parseHHMM("25:00")
	require.Error(t, err)
}
