package models

import "time"

// Candle: закрытая свеча, порядок в срезе от старой к новой.
type Candle struct {
	Start  time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// InstrumentMeta: шаги цены и объёма инструмента.
type InstrumentMeta struct {
	InstID  string
	TickSz  float64
	LotSz   float64
	MinSz   float64
	Default bool
}

type OrderState string

const (
	OrderLive            OrderState = "live"
	OrderPartiallyFilled OrderState = "partially_filled"
	OrderFilled          OrderState = "filled"
	OrderCanceled        OrderState = "canceled"
	OrderMMPCanceled     OrderState = "mmp_canceled"
)

// OrderInfo: статус ордера с биржи.
type OrderInfo struct {
	OrderID      string
	State        OrderState
	FilledSize   float64
	AvgFillPrice float64
	CreatedAt    time.Time
}

type Balance struct {
	Ccy   string
	Avail float64
}
