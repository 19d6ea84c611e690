package helper

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NormTF приводит таймфрейм к виду OKX: 1m/5m/15m/30m/1H/4H/1D...
func NormTF(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(strings.ToLower(s), "candle")
	if s == "" {
		return "1H"
	}
	switch s {
	case "60m":
		return "1H"
	case "1m", "3m", "5m", "15m", "30m":
		return s
	}
	// часы/дни/недели у OKX в верхнем регистре
	last := s[len(s)-1]
	switch last {
	case 'h', 'd', 'w':
		return s[:len(s)-1] + strings.ToUpper(string(last))
	}
	return strings.ToUpper(s)
}

// RoundDownToTick: цена вниз к шагу. tick <= 0, без изменений.
func RoundDownToTick(px, tick float64) float64 {
	return floorToStep(px, tick)
}

// RoundDownToLot: объём вниз к шагу лота.
func RoundDownToLot(sz, lot float64) float64 {
	return floorToStep(sz, lot)
}

func floorToStep(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	d := decimal.NewFromFloat(v)
	s := decimal.NewFromFloat(step)
	out, _ := d.Div(s).Floor().Mul(s).Float64()
	return out
}

// FormatNum: строка для OKX без экспоненты и хвостовых нулей.
func FormatNum(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// F2: для сообщений в чат.
func F2(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
