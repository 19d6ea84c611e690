package service

import (
	"fmt"
	"sort"
	"strings"

	"hybrid_bot/internal/helper"
	"hybrid_bot/internal/models"
	"hybrid_bot/internal/runner"
)

func formatStatus(st runner.Status) string {
	var b strings.Builder
	c := st.Config
	fmt.Fprintf(&b, "Mode: %s", c.Strategy.Mode)
	if c.Paused {
		b.WriteString(" (paused)")
	}
	fmt.Fprintf(&b, "\nRisk: %.2f%%\n", c.Risk.RiskPerTrade*100)
	fmt.Fprintf(&b, "Auto: dip=%s breakout=%s\n", onOff(c.Toggles.AutoDip), onOff(c.Toggles.AutoBreakout))
	fmt.Fprintf(&b, "Watchlist: %s\n", joinOrNone(c.Watchlist))
	b.WriteString("Positions:\n")

	if len(st.Positions) == 0 {
		b.WriteString("(none)")
		return b.String()
	}
	syms := make([]string, 0, len(st.Positions))
	for s := range st.Positions {
		syms = append(syms, s)
	}
	sort.Strings(syms)

	lines := make([]string, 0, len(syms))
	for _, s := range syms {
		p := st.Positions[s]
		switch {
		case p.IsTrend():
			trail := "-"
			if p.Trend.TrailingStop != nil {
				trail = helper.FormatNum(*p.Trend.TrailingStop)
			}
			lines = append(lines, fmt.Sprintf("• %s %s TREND size=%s entry=%s stop=%s trail=%s",
				s, p.Side, helper.FormatNum(p.Trend.Size), helper.FormatNum(p.Trend.Entry),
				helper.FormatNum(p.Trend.Stop), trail))
		case p.IsGrid():
			protected := 0
			for _, l := range p.Grid.Legs {
				if l.OCOOrderID != nil {
					protected++
				}
			}
			lines = append(lines, fmt.Sprintf("• %s GRID orders=%d protected=%d step=%s",
				s, len(p.Grid.Legs), protected, helper.FormatNum(p.Grid.StepSize)))
		}
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

func formatAlerts(alerts map[string]models.Alerts) string {
	if len(alerts) == 0 {
		return "Alerts:\n(none)"
	}
	syms := make([]string, 0, len(alerts))
	for s := range alerts {
		syms = append(syms, s)
	}
	sort.Strings(syms)

	var b strings.Builder
	b.WriteString("Alerts:")
	for _, s := range syms {
		a := alerts[s]
		fmt.Fprintf(&b, "\n%s: dip=%s breakout=%s", s, nums(a.Dip), nums(a.Breakout))
	}
	return b.String()
}

func formatClose(res runner.CloseResult, quote string) string {
	if res.Trade != nil {
		return fmt.Sprintf("Closed %s at %s. R≈%.2f PnL≈%s %s",
			res.Symbol, helper.FormatNum(res.Price), res.Trade.RMultiple, helper.F2(res.Trade.PnL), quote)
	}
	if res.Mode == models.ModeTrend {
		return fmt.Sprintf("Closed %s: entry never filled, order canceled", res.Symbol)
	}
	return fmt.Sprintf("Closed %s grid at %s: %d buys canceled, %d legs sold",
		res.Symbol, helper.FormatNum(res.Price), res.Canceled, res.Sold)
}

func formatWallet(bals []models.Balance) string {
	var lines []string
	for _, b := range bals {
		if b.Avail > 0 {
			lines = append(lines, fmt.Sprintf("%s: %.6f", b.Ccy, b.Avail))
		}
	}
	if len(lines) == 0 {
		return "Wallet empty."
	}
	return "💰 Wallet:\n" + strings.Join(lines, "\n")
}

// formatLevels: текстом то, что раньше рисовалось на графике.
func formatLevels(lv runner.Levels) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s price %s", lv.Symbol, helper.FormatNum(lv.Price))
	switch lv.Mode {
	case models.ModeTrend:
		fmt.Fprintf(&b, "\nTREND stop %s", helper.FormatNum(lv.Stop))
		if lv.Trail != nil {
			fmt.Fprintf(&b, " trail %s", helper.FormatNum(*lv.Trail))
		}
	case models.ModeGrid:
		fmt.Fprintf(&b, "\nGRID buys: %s\ntp: %s\nsl: %s", nums(lv.Buys), nums(lv.TPs), nums(lv.SLs))
	default:
		b.WriteString("\nno open position")
	}
	return b.String()
}

func nums(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = helper.FormatNum(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
