package service

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hybrid_bot/internal/models"
)

func series(n int, closeAt func(i int) float64) []models.Candle {
	out := make([]models.Candle, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		c := closeAt(i)
		out[i] = models.Candle{
			Start: start.Add(time.Duration(i) * time.Hour),
			Open:  c,
			High:  c + 0.5,
			Low:   c - 0.5,
			Close: c,
		}
	}
	return out
}

func TestAnalyzeInsufficientHistory(t *testing.T) {
	cfg := models.DefaultStrategyConfig()
	a := NewAnalyzer().Analyze(series(cfg.MinBars()-1, func(i int) float64 { return 100 }), cfg)

	assert.False(t, a.Ready)
	assert.Equal(t, models.SignalNoOp, a.Signal.Kind)
	require.NotNil(t, a.Signal.NoOp)
	assert.Contains(t, a.Signal.NoOp.Reason, "insufficient history")
}

func TestAnalyzeEmptySeries(t *testing.T) {
	a := NewAnalyzer().Analyze(nil, models.DefaultStrategyConfig())
	assert.Equal(t, models.SignalNoOp, a.Signal.Kind)
}

func TestAnalyzeAcceleratingUptrendIsTrend(t *testing.T) {
	cfg := models.DefaultStrategyConfig()
	candles := series(200, func(i int) float64 { return 100 + 0.05*float64(i*i) })

	a := NewAnalyzer().Analyze(candles, cfg)
	require.True(t, a.Ready)
	require.Equal(t, models.SignalTrend, a.Signal.Kind, "%+v", a.Signal.NoOp)

	s := a.Signal.Trend
	last := candles[len(candles)-1].Close
	assert.Equal(t, last, s.Entry)
	assert.LessOrEqual(t, s.Stop, s.Entry-2*a.Row.ATR)
	assert.Equal(t, models.SideLong, s.Side)
	assert.Contains(t, s.Reason, "breakout")
	assert.Nil(t, a.Signal.Grid)
}

func TestAnalyzeForcedGrid(t *testing.T) {
	cfg := models.DefaultStrategyConfig()
	cfg.Mode = models.StrategyGrid
	candles := series(120, func(i int) float64 { return 100 + 0.3*math.Sin(float64(i)/3) })

	a := NewAnalyzer().Analyze(candles, cfg)
	require.True(t, a.Ready)
	require.Equal(t, models.SignalGrid, a.Signal.Kind)

	plan := a.Signal.Grid
	require.Len(t, plan.Legs, cfg.GridLevels)
	assert.InDelta(t, math.Max(a.Row.ATR*cfg.GridStepATR, minGridStep), plan.StepSize, 1e-12)
	for i, leg := range plan.Legs {
		assert.InDelta(t, plan.MidPrice-float64(i+1)*plan.StepSize, leg.Buy, 1e-9)
		assert.InDelta(t, leg.Buy+cfg.GridTPMult*plan.StepSize, leg.Sell, 1e-9)
	}
}

func TestDetectRegime(t *testing.T) {
	cfg := models.DefaultStrategyConfig()
	tests := []struct {
		name string
		mode models.StrategyMode
		row  models.IndicatorRow
		want models.StrategyMode
	}{
		{"forced grid wins over strong trend", models.StrategyGrid, models.IndicatorRow{ADX: 40, Close: 110, EMASlow: 100}, models.StrategyGrid},
		{"forced trend wins over range", models.StrategyTrend, models.IndicatorRow{ADX: 10, BBWidth: 0.01}, models.StrategyTrend},
		{"strong adx above slow ema", models.StrategyAuto, models.IndicatorRow{ADX: 22, Close: 101, EMASlow: 100}, models.StrategyTrend},
		{"narrow bands weak adx", models.StrategyAuto, models.IndicatorRow{ADX: 15, BBWidth: 0.06, Close: 99, EMASlow: 100}, models.StrategyGrid},
		{"strong adx below slow ema falls to default", models.StrategyAuto, models.IndicatorRow{ADX: 30, BBWidth: 0.02, Close: 90, EMASlow: 100}, models.StrategyTrend},
		{"wide bands weak adx falls to default", models.StrategyAuto, models.IndicatorRow{ADX: 10, BBWidth: 0.2}, models.StrategyTrend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			c.Mode = tt.mode
			assert.Equal(t, tt.want, DetectRegime(tt.row, c))
		})
	}
}

func flatIndicators(n int) Indicators {
	ind := Indicators{}
	for i := 0; i < n; i++ {
		ind.High = append(ind.High, 101)
		ind.Low = append(ind.Low, 99)
		ind.Close = append(ind.Close, 100)
		ind.EMAFast = append(ind.EMAFast, 100)
		ind.EMASlow = append(ind.EMASlow, 95)
		ind.MACD = append(ind.MACD, 1)
		ind.MACDSignal = append(ind.MACDSignal, 0.5)
		ind.RSI = append(ind.RSI, 55)
		ind.ATR = append(ind.ATR, 1)
		ind.ADX = append(ind.ADX, 30)
		ind.BBUpper = append(ind.BBUpper, 104)
		ind.BBMid = append(ind.BBMid, 100)
		ind.BBLower = append(ind.BBLower, 96)
	}
	return ind
}

func TestTrendPullbackReclaim(t *testing.T) {
	cfg := models.DefaultStrategyConfig()
	ind := flatIndicators(60)
	n := len(ind.Close)
	// предыдущая свеча закрылась под EMA, последняя вернулась выше
	ind.Close[n-2] = 99.5
	ind.Close[n-1] = 100.5
	ind.Low[n-5] = 97

	sig := Classify(ind, cfg)
	require.Equal(t, models.SignalTrend, sig.Kind)
	assert.Equal(t, 100.5, sig.Trend.Entry)
	// swing low 97 ниже entry-2*ATR=98.5
	assert.Equal(t, 97.0, sig.Trend.Stop)
	assert.Contains(t, sig.Trend.Reason, "pullback")
}

func TestTrendStopFlooredByATR(t *testing.T) {
	cfg := models.DefaultStrategyConfig()
	ind := flatIndicators(60)
	n := len(ind.Close)
	ind.Close[n-1] = 102 // пробой максимума 101
	ind.ATR[n-1] = 3

	sig := Classify(ind, cfg)
	require.Equal(t, models.SignalTrend, sig.Kind)
	assert.Equal(t, 96.0, sig.Trend.Stop) // min(99, 102-6)
}

func TestTrendNoTrigger(t *testing.T) {
	cfg := models.DefaultStrategyConfig()
	ind := flatIndicators(60)

	sig := Classify(ind, cfg)
	assert.Equal(t, models.SignalNoOp, sig.Kind)
	assert.Equal(t, models.StrategyTrend, sig.NoOp.Mode)
}

func TestTrendNotAligned(t *testing.T) {
	cfg := models.DefaultStrategyConfig()
	ind := flatIndicators(60)
	n := len(ind.Close)
	ind.Close[n-1] = 102
	ind.RSI[n-1] = 45

	sig := Classify(ind, cfg)
	assert.Equal(t, models.SignalNoOp, sig.Kind)
}
