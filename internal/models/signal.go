package models

// SignalKind: какой из вариантов заполнен в Signal.
type SignalKind string

const (
	SignalTrend SignalKind = "trend"
	SignalGrid  SignalKind = "grid"
	SignalNoOp  SignalKind = "noop"
)

type TrendSignal struct {
	Side   PositionSide
	Entry  float64
	Stop   float64
	Reason string
}

type GridLevel struct {
	Buy  float64
	Sell float64
}

type GridPlan struct {
	MidPrice float64
	StepSize float64
	Legs     []GridLevel
	Reason   string
}

type NoOp struct {
	Mode   StrategyMode
	Reason string
}

// Signal: результат классификатора, заполнен ровно один вариант.
type Signal struct {
	Kind  SignalKind
	Trend *TrendSignal
	Grid  *GridPlan
	NoOp  *NoOp
}

func NewTrendSignal(s TrendSignal) Signal { return Signal{Kind: SignalTrend, Trend: &s} }
func NewGridSignal(p GridPlan) Signal     { return Signal{Kind: SignalGrid, Grid: &p} }
func NewNoOp(mode StrategyMode, reason string) Signal {
	return Signal{Kind: SignalNoOp, NoOp: &NoOp{Mode: mode, Reason: reason}}
}

// IndicatorRow: значения индикаторов на последней свече.
type IndicatorRow struct {
	Close      float64
	PrevClose  float64
	EMAFast    float64
	PrevEMA    float64 // EMA fast на предыдущей свече
	EMASlow    float64
	MACD       float64
	MACDSignal float64
	RSI        float64
	ATR        float64
	ADX        float64
	BBMid      float64
	BBWidth    float64
}

// Analysis: сигнал плюс строка индикаторов, из которой он получен.
// Ready=false: истории мало, Row не заполнена.
type Analysis struct {
	Signal Signal
	Row    IndicatorRow
	Ready  bool
}
