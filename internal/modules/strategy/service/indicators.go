package service

import (
	"math"

	"github.com/markcheno/go-talib"

	"hybrid_bot/internal/models"
)

const (
	bbPeriod   = 20
	bbDev      = 2.0
	donchianN  = 20
	swingLowN  = 20
	rsiNeutral = 50.0
)

// Indicators: серии индикаторов той же длины, что и свечи.
type Indicators struct {
	High       []float64
	Low        []float64
	Close      []float64
	EMAFast    []float64
	EMASlow    []float64
	MACD       []float64
	MACDSignal []float64
	RSI        []float64
	ATR        []float64
	ADX        []float64
	BBUpper    []float64
	BBMid      []float64
	BBLower    []float64
}

// ComputeIndicators считает всё, что нужно классификатору.
// Вызывающий гарантирует len(candles) >= cfg.MinBars().
func ComputeIndicators(candles []models.Candle, cfg models.StrategyConfig) Indicators {
	n := len(candles)
	ind := Indicators{
		High:  make([]float64, n),
		Low:   make([]float64, n),
		Close: make([]float64, n),
	}
	for i, c := range candles {
		ind.High[i] = c.High
		ind.Low[i] = c.Low
		ind.Close[i] = c.Close
	}

	ind.EMAFast = talib.Ema(ind.Close, cfg.EMAFast)
	ind.EMASlow = talib.Ema(ind.Close, cfg.EMASlow)
	ind.MACD, ind.MACDSignal, _ = talib.Macd(ind.Close, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	ind.RSI = talib.Rsi(ind.Close, cfg.RSILen)
	ind.ATR = talib.Atr(ind.High, ind.Low, ind.Close, cfg.ATRLen)
	ind.ADX = talib.Adx(ind.High, ind.Low, ind.Close, cfg.ATRLen)
	ind.BBUpper, ind.BBMid, ind.BBLower = talib.BBands(ind.Close, bbPeriod, bbDev, bbDev, talib.SMA)
	return ind
}

// Last: строка индикаторов на последней свече.
func (ind Indicators) Last() models.IndicatorRow {
	n := len(ind.Close)
	if n < 2 {
		return models.IndicatorRow{}
	}
	i := n - 1
	row := models.IndicatorRow{
		Close:      ind.Close[i],
		PrevClose:  ind.Close[i-1],
		EMAFast:    ind.EMAFast[i],
		PrevEMA:    ind.EMAFast[i-1],
		EMASlow:    ind.EMASlow[i],
		MACD:       ind.MACD[i],
		MACDSignal: ind.MACDSignal[i],
		RSI:        ind.RSI[i],
		ATR:        ind.ATR[i],
		ADX:        ind.ADX[i],
		BBMid:      ind.BBMid[i],
	}
	if ind.Close[i] != 0 {
		row.BBWidth = (ind.BBUpper[i] - ind.BBLower[i]) / ind.Close[i]
	}
	return row
}

// priorHigh: максимум high за n свечей перед последней.
func (ind Indicators) priorHigh(n int) float64 {
	end := len(ind.High) - 1
	start := max(end-n, 0)
	hi := math.Inf(-1)
	for _, v := range ind.High[start:end] {
		hi = math.Max(hi, v)
	}
	return hi
}

// recentLow: минимум low за последние n свечей, включая последнюю.
func (ind Indicators) recentLow(n int) float64 {
	start := max(len(ind.Low)-n, 0)
	lo := math.Inf(1)
	for _, v := range ind.Low[start:] {
		lo = math.Min(lo, v)
	}
	return lo
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
