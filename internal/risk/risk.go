package risk

import (
	"math"

	"hybrid_bot/internal/models"
)

// PositionSize: объём в базовой валюте, при котором убыток по стопу равен equity*riskFraction.
// entry == stop: 0, торговать нельзя.
func PositionSize(equity, entry, stop, riskFraction float64) float64 {
	dist := math.Abs(entry - stop)
	if dist <= 0 || math.IsNaN(dist) || math.IsInf(dist, 0) {
		return 0
	}
	if equity < 0 {
		equity = 0
	}
	if riskFraction < 0 {
		riskFraction = 0
	}
	size := equity * riskFraction / dist
	if size < 0 || math.IsNaN(size) {
		return 0
	}
	return size
}

// ATRTrailingStop: уровень трейла от последнего close.
func ATRTrailingStop(close, atr, mult float64, side models.PositionSide) float64 {
	if side == models.SideLong {
		return close - mult*atr
	}
	return close + mult*atr
}

// Ratchet двигает трейл только в сторону прибыли.
func Ratchet(current *float64, next float64, side models.PositionSide) float64 {
	if current == nil {
		return next
	}
	if side == models.SideLong {
		return math.Max(*current, next)
	}
	return math.Min(*current, next)
}

// StopBreached: для лонга цена на или ниже max(trail, stop).
func StopBreached(price, stop float64, trail *float64) bool {
	level := stop
	if trail != nil && *trail > level {
		level = *trail
	}
	return price <= level
}
