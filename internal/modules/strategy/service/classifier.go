package service

import (
	"fmt"
	"math"

	"hybrid_bot/internal/models"
)

const minGridStep = 1e-7

// Analyzer: классификатор режима рынка. Состояния нет.
type Analyzer struct{}

func NewAnalyzer() *Analyzer { return &Analyzer{} }

// Analyze считает индикаторы и выдаёт сигнал.
func (a *Analyzer) Analyze(candles []models.Candle, cfg models.StrategyConfig) models.Analysis {
	if len(candles) < cfg.MinBars() {
		return models.Analysis{
			Signal: models.NewNoOp(cfg.Mode, fmt.Sprintf("insufficient history: %d < %d bars", len(candles), cfg.MinBars())),
		}
	}
	ind := ComputeIndicators(candles, cfg)
	row := ind.Last()
	if !finite(row.Close, row.EMAFast, row.EMASlow, row.MACD, row.MACDSignal, row.RSI, row.ATR, row.ADX, row.BBMid, row.BBWidth) {
		return models.Analysis{Signal: models.NewNoOp(cfg.Mode, "indicators not finite")}
	}
	return models.Analysis{
		Signal: Classify(ind, cfg),
		Row:    row,
		Ready:  true,
	}
}

// DetectRegime: принудительный режим > тренд > флэт > по умолчанию тренд.
func DetectRegime(row models.IndicatorRow, cfg models.StrategyConfig) models.StrategyMode {
	switch cfg.Mode {
	case models.StrategyTrend, models.StrategyGrid:
		return cfg.Mode
	}
	if row.ADX >= cfg.ADXTrend && row.Close > row.EMASlow {
		return models.StrategyTrend
	}
	if row.BBWidth <= cfg.BBWidthMax && row.ADX < cfg.ADXTrend {
		return models.StrategyGrid
	}
	return models.StrategyTrend
}

// Classify выбирает режим и строит сигнал по готовым индикаторам.
func Classify(ind Indicators, cfg models.StrategyConfig) models.Signal {
	row := ind.Last()
	switch DetectRegime(row, cfg) {
	case models.StrategyGrid:
		return gridPlan(row, cfg)
	default:
		return trendSignal(ind, row, cfg)
	}
}

func trendSignal(ind Indicators, row models.IndicatorRow, cfg models.StrategyConfig) models.Signal {
	upTrend := row.EMAFast > row.EMASlow && row.MACD > row.MACDSignal && row.RSI >= rsiNeutral
	if !upTrend {
		return models.NewNoOp(models.StrategyTrend, fmt.Sprintf(
			"trend not aligned: ema %.4f/%.4f macd %.4f/%.4f rsi %.1f",
			row.EMAFast, row.EMASlow, row.MACD, row.MACDSignal, row.RSI))
	}

	breakout := row.Close > ind.priorHigh(donchianN)
	reclaim := row.PrevClose < row.PrevEMA && row.Close > row.EMAFast
	if !breakout && !reclaim {
		return models.NewNoOp(models.StrategyTrend, "trend aligned, no trigger")
	}

	entry := row.Close
	// стоп не ближе 2 ATR от входа
	stop := math.Min(ind.recentLow(swingLowN), entry-2*row.ATR)

	trigger := "pullback"
	if breakout {
		trigger = "breakout"
	}
	return models.NewTrendSignal(models.TrendSignal{
		Side:   models.SideLong,
		Entry:  entry,
		Stop:   stop,
		Reason: "EMA/MACD/RSI aligned; trigger=" + trigger,
	})
}

func gridPlan(row models.IndicatorRow, cfg models.StrategyConfig) models.Signal {
	step := math.Max(row.ATR*cfg.GridStepATR, minGridStep)
	legs := make([]models.GridLevel, 0, cfg.GridLevels)
	for i := 1; i <= cfg.GridLevels; i++ {
		buy := row.BBMid - float64(i)*step
		legs = append(legs, models.GridLevel{Buy: buy, Sell: buy + cfg.GridTPMult*step})
	}
	return models.NewGridSignal(models.GridPlan{
		MidPrice: row.BBMid,
		StepSize: step,
		Legs:     legs,
		Reason:   fmt.Sprintf("range: bb_width=%.3f adx=%.1f", row.BBWidth, row.ADX),
	})
}
