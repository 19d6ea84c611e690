package service

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hybrid_bot/internal/exchange"
	"hybrid_bot/internal/models"
	"hybrid_bot/internal/runner"
	"hybrid_bot/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitNop()
	os.Exit(m.Run())
}

type fakeCommands struct {
	rc        models.RuntimeConfig
	positions map[string]models.Position
	alerts    map[string]models.Alerts
	closeRes  runner.CloseResult
	closeErr  error
	levels    runner.Levels
	wallet    []models.Balance
	err       error

	risk   float64
	added  []string
	alert  []any
	autoOn map[string]bool
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{
		rc: models.RuntimeConfig{
			Strategy:  models.DefaultStrategyConfig(),
			Risk:      models.DefaultRiskConfig(),
			Watchlist: []string{"BTC-USDT"},
			Quote:     "USDT",
		},
		positions: map[string]models.Position{},
		alerts:    map[string]models.Alerts{},
		autoOn:    map[string]bool{},
	}
}

func (f *fakeCommands) Status() runner.Status {
	return runner.Status{Config: f.rc, Positions: f.positions}
}
func (f *fakeCommands) Watchlist() []string { return f.rc.Watchlist }
func (f *fakeCommands) AddSymbol(_ context.Context, s string) ([]string, error) {
	f.rc = f.rc.WithSymbol(s)
	return f.rc.Watchlist, f.err
}
func (f *fakeCommands) RemoveSymbol(_ context.Context, s string) ([]string, error) {
	f.rc = f.rc.WithoutSymbol(s)
	return f.rc.Watchlist, f.err
}
func (f *fakeCommands) SetMode(_ context.Context, raw string) (models.StrategyMode, error) {
	m, ok := models.ParseStrategyMode(raw)
	if !ok {
		return "", runner.ErrUnknownMode
	}
	return m, f.err
}
func (f *fakeCommands) SetRisk(_ context.Context, v float64) error {
	if v < runner.MinRisk || v > runner.MaxRisk {
		return runner.ErrRiskOutOfRange
	}
	f.risk = v
	return f.err
}
func (f *fakeCommands) Pause(context.Context) error      { return f.err }
func (f *fakeCommands) Resume(context.Context) error     { return f.err }
func (f *fakeCommands) Alerts() map[string]models.Alerts { return f.alerts }
func (f *fakeCommands) AddAlert(_ context.Context, s string, k models.AlertKind, p float64) error {
	f.alert = []any{s, k, p}
	return f.err
}
func (f *fakeCommands) ClearAlerts(context.Context, string) error { return f.err }
func (f *fakeCommands) SetAutoDip(_ context.Context, on bool) error {
	f.autoOn["dip"] = on
	return f.err
}
func (f *fakeCommands) SetAutoBreakout(_ context.Context, on bool) error {
	f.autoOn["breakout"] = on
	return f.err
}
func (f *fakeCommands) Close(context.Context, string) (runner.CloseResult, error) {
	return f.closeRes, f.closeErr
}
func (f *fakeCommands) PnLReport(context.Context) runner.PnLReport {
	return runner.PnLReport{Quote: "USDT", Realized: 12.5}
}
func (f *fakeCommands) Balance(context.Context) (float64, string, error) {
	return 1234.567, "USDT", f.err
}
func (f *fakeCommands) Wallet(context.Context) ([]models.Balance, error) { return f.wallet, f.err }
func (f *fakeCommands) Levels(context.Context, string) (runner.Levels, error) {
	return f.levels, f.err
}

func newTestTelegram(cmd Commands) *Telegram {
	return &Telegram{cmd: cmd, env: "demo", simulated: true}
}

func TestDispatchUsage(t *testing.T) {
	tg := newTestTelegram(newFakeCommands())
	ctx := context.Background()

	assert.Equal(t, "Usage: /add SYMBOL-USDT", tg.dispatch(ctx, "add", nil))
	assert.Equal(t, "Usage: /alert SYMBOL dip|breakout PRICE", tg.dispatch(ctx, "alert", []string{"BTC-USDT", "dip"}))
	assert.Equal(t, "Usage: /auto_dip on|off", tg.dispatch(ctx, "auto_dip", []string{"maybe"}))
	assert.Equal(t, "Usage: /mode auto|trend|grid", tg.dispatch(ctx, "mode", []string{"scalp"}))
	assert.Empty(t, tg.dispatch(ctx, "plot", nil))
	assert.Contains(t, tg.dispatch(ctx, "start", nil), "simulated=true")
}

func TestDispatchRisk(t *testing.T) {
	cmd := newFakeCommands()
	tg := newTestTelegram(cmd)
	ctx := context.Background()

	assert.Equal(t, "Invalid number", tg.dispatch(ctx, "risk", []string{"abc"}))
	assert.Equal(t, "Out of range (0.1%–5%)", tg.dispatch(ctx, "risk", []string{"0.2"}))
	assert.Equal(t, "Risk per trade set to 1.50%", tg.dispatch(ctx, "risk", []string{"0,015"}))
	assert.Equal(t, 0.015, cmd.risk)
}

func TestDispatchAlert(t *testing.T) {
	cmd := newFakeCommands()
	tg := newTestTelegram(cmd)
	ctx := context.Background()

	assert.Equal(t, "Kind must be dip or breakout", tg.dispatch(ctx, "alert", []string{"btc-usdt", "pump", "1"}))
	assert.Equal(t, "Price must be a number", tg.dispatch(ctx, "alert", []string{"btc-usdt", "dip", "x"}))

	out := tg.dispatch(ctx, "alert", []string{"btc-usdt", "DIP", "61500.5"})
	assert.Equal(t, "Alert added: BTC-USDT dip 61500.5", out)
	assert.Equal(t, []any{"btc-usdt", models.AlertDip, 61500.5}, cmd.alert)

	assert.Equal(t, "Auto BREAKOUT set to on", tg.dispatch(ctx, "auto_breakout", []string{"on"}))
	assert.True(t, cmd.autoOn["breakout"])
}

func TestDispatchWatchlist(t *testing.T) {
	tg := newTestTelegram(newFakeCommands())
	ctx := context.Background()

	assert.Equal(t, "Added ETH-USDT. Now: BTC-USDT, ETH-USDT", tg.dispatch(ctx, "add", []string{"eth-usdt"}))
	assert.Equal(t, "Removed BTC-USDT. Now: ETH-USDT", tg.dispatch(ctx, "rm", []string{"btc-usdt"}))
	assert.Equal(t, "Watchlist: ETH-USDT", tg.dispatch(ctx, "watchlist", nil))
}

func TestDispatchClose(t *testing.T) {
	cmd := newFakeCommands()
	tg := newTestTelegram(cmd)
	ctx := context.Background()

	cmd.closeErr = runner.ErrNoPosition
	assert.Equal(t, "No open position", tg.dispatch(ctx, "close", []string{"BTC-USDT"}))

	cmd.closeErr = nil
	cmd.closeRes = runner.CloseResult{Symbol: "BTC-USDT", Price: 110, Trade: &models.Trade{PnL: 20, RMultiple: 2}}
	assert.Equal(t, "Closed BTC-USDT at 110. R≈2.00 PnL≈20.00 USDT", tg.dispatch(ctx, "close", []string{"BTC-USDT"}))

	cmd.closeRes = runner.CloseResult{Symbol: "BTC-USDT", Price: 101, Canceled: 2, Sold: 1}
	assert.Equal(t, "Closed BTC-USDT grid at 101: 2 buys canceled, 1 legs sold", tg.dispatch(ctx, "close", []string{"BTC-USDT"}))

	cmd.closeRes = runner.CloseResult{Symbol: "BTC-USDT", Mode: models.ModeTrend, Price: 101}
	assert.Equal(t, "Closed BTC-USDT: entry never filled, order canceled", tg.dispatch(ctx, "close", []string{"BTC-USDT"}))

	cmd.closeErr = fmt.Errorf("%w: BTC-USDT, 3 of 3 grid legs still open", runner.ErrCloseIncomplete)
	assert.Equal(t, "❗️ close incomplete: BTC-USDT, 3 of 3 grid legs still open", tg.dispatch(ctx, "close", []string{"BTC-USDT"}))
}

func TestDispatchErrors(t *testing.T) {
	cmd := newFakeCommands()
	cmd.err = exchange.ErrPersistence
	tg := newTestTelegram(cmd)

	assert.Equal(t, "❗️ state persistence failed", tg.dispatch(context.Background(), "pause", nil))
	assert.Equal(t, "Failed to fetch wallet.", tg.dispatch(context.Background(), "wallet", nil))
}

func TestFormatStatus(t *testing.T) {
	trail := 98.5
	oco := "algo-1"
	st := runner.Status{
		Config: models.RuntimeConfig{
			Strategy:  models.StrategyConfig{Mode: models.StrategyGrid},
			Risk:      models.RiskConfig{RiskPerTrade: 0.01},
			Watchlist: []string{"BTC-USDT", "ETH-USDT"},
			Paused:    true,
			Toggles:   models.Toggles{AutoDip: true},
		},
		Positions: map[string]models.Position{
			"ETH-USDT": models.NewTrendPosition(models.TrendPosition{Entry: 100, Stop: 95, Size: 2, TrailingStop: &trail}),
			"BTC-USDT": models.NewGridPosition(models.GridPosition{StepSize: 0.5, Legs: []models.GridLeg{
				{BuyOrderID: "b1", OCOAttached: true, OCOOrderID: &oco},
				{BuyOrderID: "b2"},
			}}),
		},
	}

	want := "Mode: grid (paused)\n" +
		"Risk: 1.00%\n" +
		"Auto: dip=on breakout=off\n" +
		"Watchlist: BTC-USDT, ETH-USDT\n" +
		"Positions:\n" +
		"• BTC-USDT GRID orders=2 protected=1 step=0.5\n" +
		"• ETH-USDT long TREND size=2 entry=100 stop=95 trail=98.5"
	assert.Equal(t, want, formatStatus(st))
}

func TestFormatAlertsAndWallet(t *testing.T) {
	assert.Equal(t, "Alerts:\n(none)", formatAlerts(nil))
	assert.Equal(t, "Alerts:\nBTC-USDT: dip=[60000] breakout=[70000, 71000.5]",
		formatAlerts(map[string]models.Alerts{"BTC-USDT": {Dip: []float64{60000}, Breakout: []float64{70000, 71000.5}}}))

	assert.Equal(t, "Wallet empty.", formatWallet([]models.Balance{{Ccy: "BTC", Avail: 0}}))
	assert.Equal(t, "💰 Wallet:\nUSDT: 10.500000", formatWallet([]models.Balance{{Ccy: "USDT", Avail: 10.5}, {Ccy: "BTC"}}))
}

func TestFormatLevels(t *testing.T) {
	out := formatLevels(runner.Levels{Symbol: "BTC-USDT", Price: 100, Mode: models.ModeGrid,
		Buys: []float64{98, 99}, TPs: []float64{101, 100}, SLs: []float64{97, 96}})
	assert.Equal(t, "BTC-USDT price 100\nGRID buys: [98, 99]\ntp: [101, 100]\nsl: [97, 96]", out)

	out = formatLevels(runner.Levels{Symbol: "ETH-USDT", Price: 10})
	assert.Equal(t, "ETH-USDT price 10\nno open position", out)
}

func TestParseHelpers(t *testing.T) {
	v, ok := parseFloat("1,25")
	require.True(t, ok)
	assert.Equal(t, 1.25, v)
	_, ok = parseFloat("NaN")
	assert.False(t, ok)

	on, ok := parseOnOff("ON")
	assert.True(t, ok)
	assert.True(t, on)
	_, ok = parseOnOff("yes")
	assert.False(t, ok)

	_, ok = parseAlertKind("pump")
	assert.False(t, ok)
}
