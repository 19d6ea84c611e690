package models

import (
	"errors"
	"fmt"
)

// PositionMode: вариант позиции.
type PositionMode string

const (
	ModeTrend PositionMode = "trend"
	ModeGrid  PositionMode = "grid"
)

// PositionSide: пока только лонг, спот.
type PositionSide string

const (
	SideLong PositionSide = "long"
)

var (
	ErrPositionNoVariant    = errors.New("position has no variant")
	ErrPositionBothVariants = errors.New("position has both trend and grid variants")
)

// Position: одна позиция на символ: либо тренд, либо сетка.
type Position struct {
	Mode  PositionMode   `json:"mode"`
	Side  PositionSide   `json:"side"`
	Trend *TrendPosition `json:"trend,omitempty"`
	Grid  *GridPosition  `json:"grid,omitempty"`
}

type TrendPosition struct {
	Entry        float64  `json:"entry"`
	Stop         float64  `json:"stop"`
	Size         float64  `json:"size"`
	TrailingStop *float64 `json:"trailingStop,omitempty"`
	TradeID      string   `json:"tradeId"`
	EntryOrderID string   `json:"entryOrderId,omitempty"`
}

type GridPosition struct {
	StepSize float64   `json:"stepSize"`
	Reason   string    `json:"reason,omitempty"`
	Legs     []GridLeg `json:"legs"`
}

func NewTrendPosition(t TrendPosition) Position {
	return Position{Mode: ModeTrend, Side: SideLong, Trend: &t}
}

func NewGridPosition(g GridPosition) Position {
	return Position{Mode: ModeGrid, Side: SideLong, Grid: &g}
}

// Validate проверяет, что заполнен ровно один вариант и он соответствует Mode.
func (p Position) Validate() error {
	switch {
	case p.Trend != nil && p.Grid != nil:
		return ErrPositionBothVariants
	case p.Trend == nil && p.Grid == nil:
		return ErrPositionNoVariant
	}
	switch p.Mode {
	case ModeTrend:
		if p.Trend == nil {
			return fmt.Errorf("mode %s without trend fields", p.Mode)
		}
	case ModeGrid:
		if p.Grid == nil {
			return fmt.Errorf("mode %s without grid fields", p.Mode)
		}
	default:
		return fmt.Errorf("unknown position mode %q", p.Mode)
	}
	if p.Side != SideLong {
		return fmt.Errorf("unsupported side %q", p.Side)
	}
	return nil
}

func (p Position) IsTrend() bool { return p.Mode == ModeTrend && p.Trend != nil }
func (p Position) IsGrid() bool  { return p.Mode == ModeGrid && p.Grid != nil }

// Clone: глубокая копия, ledger отдаёт наружу только копии.
func (p Position) Clone() Position {
	out := Position{Mode: p.Mode, Side: p.Side}
	if p.Trend != nil {
		t := *p.Trend
		if p.Trend.TrailingStop != nil {
			v := *p.Trend.TrailingStop
			t.TrailingStop = &v
		}
		out.Trend = &t
	}
	if p.Grid != nil {
		g := *p.Grid
		g.Legs = make([]GridLeg, len(p.Grid.Legs))
		for i, l := range p.Grid.Legs {
			g.Legs[i] = l.clone()
		}
		out.Grid = &g
	}
	return out
}
