package models

import "strings"

// RuntimeConfig: снимок рантайм-настроек, передаётся в тик по значению.
// Команды не мутируют его, а собирают новый через With*.
type RuntimeConfig struct {
	Strategy  StrategyConfig
	Risk      RiskConfig
	Watchlist []string
	Paused    bool
	Toggles   Toggles
	Quote     string
}

func (c RuntimeConfig) clone() RuntimeConfig {
	c.Watchlist = append([]string(nil), c.Watchlist...)
	return c
}

func (c RuntimeConfig) WithMode(m StrategyMode) RuntimeConfig {
	out := c.clone()
	out.Strategy.Mode = m
	return out
}

func (c RuntimeConfig) WithRisk(r float64) RuntimeConfig {
	out := c.clone()
	out.Risk.RiskPerTrade = r
	return out
}

func (c RuntimeConfig) WithPaused(p bool) RuntimeConfig {
	out := c.clone()
	out.Paused = p
	return out
}

func (c RuntimeConfig) WithToggles(t Toggles) RuntimeConfig {
	out := c.clone()
	out.Toggles = t
	return out
}

func (c RuntimeConfig) WithSymbol(sym string) RuntimeConfig {
	out := c.clone()
	sym = NormSymbol(sym)
	for _, s := range out.Watchlist {
		if s == sym {
			return out
		}
	}
	out.Watchlist = append(out.Watchlist, sym)
	return out
}

func (c RuntimeConfig) WithoutSymbol(sym string) RuntimeConfig {
	out := c.clone()
	sym = NormSymbol(sym)
	list := out.Watchlist[:0]
	for _, s := range out.Watchlist {
		if s != sym {
			list = append(list, s)
		}
	}
	out.Watchlist = list
	return out
}

// Persisted: часть настроек, которая пишется в state.config.
func (c RuntimeConfig) Persisted() StateConfig {
	mode := c.Strategy.Mode
	risk := c.Risk.RiskPerTrade
	wl := append([]string{}, c.Watchlist...)
	return StateConfig{
		Toggles:   c.Toggles,
		Mode:      &mode,
		Risk:      &risk,
		Paused:    c.Paused,
		Watchlist: &wl,
	}
}

// Apply накладывает сохранённые настройки поверх дефолтов из конфига.
func (c RuntimeConfig) Apply(sc StateConfig) RuntimeConfig {
	out := c.clone()
	out.Toggles = sc.Toggles
	out.Paused = sc.Paused
	if sc.Mode != nil {
		out.Strategy.Mode = *sc.Mode
	}
	if sc.Risk != nil {
		out.Risk.RiskPerTrade = *sc.Risk
	}
	if sc.Watchlist != nil {
		out.Watchlist = append([]string{}, *sc.Watchlist...)
	}
	return out
}

func NormSymbol(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
