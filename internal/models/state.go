package models

import "time"

// Alerts: пользовательские уровни по символу.
type Alerts struct {
	Dip      []float64 `json:"dip"`
	Breakout []float64 `json:"breakout"`
}

type AlertKind string

const (
	AlertDip      AlertKind = "dip"
	AlertBreakout AlertKind = "breakout"
)

// Toggles: флаги авто-входов по алертам.
type Toggles struct {
	AutoDip      bool `json:"auto_dip"`
	AutoBreakout bool `json:"auto_breakout"`
}

// StateConfig: то, что переживает рестарт из рантайм-настроек.
type StateConfig struct {
	Toggles
	Mode      *StrategyMode `json:"mode,omitempty"`
	Risk      *float64      `json:"risk,omitempty"`
	Paused    bool          `json:"paused,omitempty"`
	Watchlist *[]string     `json:"watchlist,omitempty"` // nil: берём из конфига, пустой: пользователь всё удалил
}

// State: весь персистентный снапшот, пишется целиком.
type State struct {
	OpenPositions map[string]Position `json:"openPositions"`
	Trades        []Trade             `json:"trades"`
	Alerts        map[string]Alerts   `json:"alerts"`
	Config        StateConfig         `json:"config"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

func NewState() *State {
	return &State{
		OpenPositions: make(map[string]Position),
		Trades:        []Trade{},
		Alerts:        make(map[string]Alerts),
	}
}

// Normalize чинит nil-мапы после декодирования.
func (s *State) Normalize() {
	if s.OpenPositions == nil {
		s.OpenPositions = make(map[string]Position)
	}
	if s.Trades == nil {
		s.Trades = []Trade{}
	}
	if s.Alerts == nil {
		s.Alerts = make(map[string]Alerts)
	}
}

func (s *State) Clone() *State {
	out := &State{
		OpenPositions: make(map[string]Position, len(s.OpenPositions)),
		Trades:        make([]Trade, len(s.Trades)),
		Alerts:        make(map[string]Alerts, len(s.Alerts)),
		Config:        s.Config,
		UpdatedAt:     s.UpdatedAt,
	}
	for k, p := range s.OpenPositions {
		out.OpenPositions[k] = p.Clone()
	}
	copy(out.Trades, s.Trades)
	for k, a := range s.Alerts {
		out.Alerts[k] = Alerts{
			Dip:      append([]float64(nil), a.Dip...),
			Breakout: append([]float64(nil), a.Breakout...),
		}
	}
	if s.Config.Mode != nil {
		m := *s.Config.Mode
		out.Config.Mode = &m
	}
	if s.Config.Risk != nil {
		r := *s.Config.Risk
		out.Config.Risk = &r
	}
	if s.Config.Watchlist != nil {
		wl := append([]string{}, *s.Config.Watchlist...)
		out.Config.Watchlist = &wl
	}
	return out
}
