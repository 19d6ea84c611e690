package runner

import (
	"context"
	"fmt"
	"math"
	"strings"

	"hybrid_bot/internal/helper"
	"hybrid_bot/pkg/logger"
)

const rDenomFloor = 1e-9

// PnLLine: одна открытая позиция или нога сетки в отчёте.
type PnLLine struct {
	Symbol string
	Kind   string // trend | grid leg
	Qty    float64
	Entry  float64
	PnL    float64
	R      float64
}

// PnLReport: реализованный итог по журналу + переоценка открытого по текущей цене.
type PnLReport struct {
	Quote       string
	Lines       []PnLLine
	Missing     []string // символы без цены
	Realized    float64
	RRealized   float64
	Unrealized  float64
	RUnrealized float64
}

func (r *Runner) PnLReport(ctx context.Context) PnLReport {
	rep := PnLReport{Quote: r.Config().Quote}

	for _, t := range r.book.Trades() {
		if t.Open {
			continue
		}
		rep.Realized += t.PnL
		rep.RRealized += t.RMultiple
	}

	positions := r.book.Positions()
	for _, sym := range r.book.Symbols() {
		pos := positions[sym]
		last, err := r.ex.GetTicker(ctx, sym)
		if err != nil || last <= 0 {
			logger.Warn("[PNL] %s ticker: %v", sym, err)
			rep.Missing = append(rep.Missing, sym)
			continue
		}

		switch {
		case pos.IsTrend():
			t := pos.Trend
			pnl := (last - t.Entry) * t.Size
			risk := math.Max(rDenomFloor, math.Abs(t.Entry-t.Stop)*math.Max(rDenomFloor, t.Size))
			rep.add(PnLLine{Symbol: sym, Kind: "trend", Qty: t.Size, Entry: t.Entry, PnL: pnl, R: pnl / risk})

		case pos.IsGrid():
			for _, l := range pos.Grid.Legs {
				qty, px, ok := l.Filled()
				if !ok || l.StopLossPrice <= 0 {
					continue
				}
				pnl := (last - px) * qty
				risk := math.Max(rDenomFloor, (px-l.StopLossPrice)*qty)
				rep.add(PnLLine{Symbol: sym, Kind: "grid leg", Qty: qty, Entry: px, PnL: pnl, R: pnl / risk})
			}
		}
	}
	return rep
}

func (rep *PnLReport) add(l PnLLine) {
	rep.Lines = append(rep.Lines, l)
	rep.Unrealized += l.PnL
	rep.RUnrealized += l.R
}

func (rep PnLReport) String() string {
	var b strings.Builder
	b.WriteString("Daily PnL & R Summary\n")
	for _, l := range rep.Lines {
		fmt.Fprintf(&b, "• %s %s: qty=%s entry≈%s PnL≈%s %s | R≈%.2f\n",
			l.Symbol, l.Kind, helper.FormatNum(l.Qty), helper.FormatNum(l.Entry), helper.F2(l.PnL), rep.Quote, l.R)
	}
	for _, s := range rep.Missing {
		fmt.Fprintf(&b, "• %s: no price\n", s)
	}
	fmt.Fprintf(&b, "— Realized: %s %s | ΣR=%.2f\n", helper.F2(rep.Realized), rep.Quote, rep.RRealized)
	fmt.Fprintf(&b, "— Unrealized: %s %s | ΣR=%.2f", helper.F2(rep.Unrealized), rep.Quote, rep.RUnrealized)
	return b.String()
}
