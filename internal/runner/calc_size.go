package runner

import (
	"hybrid_bot/internal/helper"
	"hybrid_bot/internal/models"
	"hybrid_bot/internal/risk"
)

// calcSize: объём по риску, вниз к шагу лота.
// 0: ордер не ставим: ниже minSz или ниже минимального номинала.
func calcSize(equity, entry, stop, riskFraction float64, meta models.InstrumentMeta, minNotional float64) float64 {
	size := helper.RoundDownToLot(risk.PositionSize(equity, entry, stop, riskFraction), meta.LotSz)
	if size <= 0 {
		return 0
	}
	if meta.MinSz > 0 && size < meta.MinSz {
		return 0
	}
	if size*entry < minNotional {
		return 0
	}
	return size
}
