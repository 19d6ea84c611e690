package models

// StrategyMode: режим выбора стратегии.
type StrategyMode string

const (
	StrategyAuto  StrategyMode = "auto"
	StrategyTrend StrategyMode = "trend"
	StrategyGrid  StrategyMode = "grid"
)

func ParseStrategyMode(s string) (StrategyMode, bool) {
	switch StrategyMode(s) {
	case StrategyAuto, StrategyTrend, StrategyGrid:
		return StrategyMode(s), true
	}
	return "", false
}

// StrategyConfig: параметры классификатора.
type StrategyConfig struct {
	Timeframe   string       `yaml:"timeframe"`
	Mode        StrategyMode `yaml:"mode"`
	ADXTrend    float64      `yaml:"adx_trend"`
	BBWidthMax  float64      `yaml:"bb_width_max"`
	EMAFast     int          `yaml:"ema_fast"`
	EMASlow     int          `yaml:"ema_slow"`
	MACDFast    int          `yaml:"macd_fast"`
	MACDSlow    int          `yaml:"macd_slow"`
	MACDSignal  int          `yaml:"macd_signal"`
	RSILen      int          `yaml:"rsi_len"`
	ATRLen      int          `yaml:"atr_len"`
	GridLevels  int          `yaml:"grid_levels"`
	GridStepATR float64      `yaml:"grid_step_atr"`
	GridTPMult  float64      `yaml:"grid_tp_mult"`
}

func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		Timeframe:   "1H",
		Mode:        StrategyAuto,
		ADXTrend:    22,
		BBWidthMax:  0.06,
		EMAFast:     20,
		EMASlow:     50,
		MACDFast:    12,
		MACDSlow:    26,
		MACDSignal:  9,
		RSILen:      14,
		ATRLen:      14,
		GridLevels:  5,
		GridStepATR: 0.5,
		GridTPMult:  2.0,
	}
}

// MinBars: сколько свечей нужно, чтобы индикаторы успели прогреться.
func (c StrategyConfig) MinBars() int {
	n := c.EMASlow
	if c.ATRLen > n {
		n = c.ATRLen
	}
	if c.MACDSlow > n {
		n = c.MACDSlow
	}
	return n + 5
}

// RiskConfig: параметры риска и выходов.
type RiskConfig struct {
	RiskPerTrade   float64 `yaml:"risk_per_trade"`
	ATRMultSL      float64 `yaml:"atr_mult_sl"`
	ATRMultTrail   float64 `yaml:"atr_mult_trail"`
	MinPositionUSD float64 `yaml:"min_position_usd"`
}

func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		RiskPerTrade:   0.01,
		ATRMultSL:      2.0,
		ATRMultTrail:   2.5,
		MinPositionUSD: 20,
	}
}
