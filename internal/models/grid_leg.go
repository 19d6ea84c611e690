package models

import "time"

// GridLeg: одна ступень лестницы: лимитка на покупку + OCO после исполнения.
type GridLeg struct {
	BuyOrderID      string    `json:"buyOrderId"`
	BuyPrice        float64   `json:"buyPrice"`
	TakeProfitPrice float64   `json:"takeProfitPrice"`
	StopLossPrice   float64   `json:"stopLossPrice"`
	SizeRequested   float64   `json:"sizeRequested"`
	PlacedAt        time.Time `json:"placedAt"`

	OCOAttached bool     `json:"ocoAttached"`
	OCOOrderID  *string  `json:"ocoOrderId"`
	FilledSize  *float64 `json:"filledSize,omitempty"`
	FillPrice   *float64 `json:"fillPrice,omitempty"`
}

// MarkProtected: buy исполнен, OCO выставлен. Повторный вызов ничего не меняет.
func (l *GridLeg) MarkProtected(ocoID string, filled, price float64) bool {
	if l.OCOAttached {
		return false
	}
	l.OCOAttached = true
	l.OCOOrderID = &ocoID
	l.FilledSize = &filled
	l.FillPrice = &price
	return true
}

// MarkAbandoned: buy отменён/истёк, защищать нечего.
func (l *GridLeg) MarkAbandoned() bool {
	if l.OCOAttached {
		return false
	}
	l.OCOAttached = true
	l.OCOOrderID = nil
	return true
}

// RecordFill запоминает исполнение до того, как OCO удалось поставить.
func (l *GridLeg) RecordFill(filled, price float64) {
	l.FilledSize = &filled
	l.FillPrice = &price
}

// Unwind: OCO снят вручную, купленное ещё не продано.
func (l *GridLeg) Unwind() {
	l.OCOOrderID = nil
}

// Exposed: куплено, но OCO уже нет. Такая нога ждёт ручной продажи.
func (l GridLeg) Exposed() bool {
	_, _, ok := l.Filled()
	return ok && l.OCOAttached && l.OCOOrderID == nil
}

func (l GridLeg) Filled() (size, price float64, ok bool) {
	if l.FilledSize == nil || l.FillPrice == nil || *l.FilledSize <= 0 || *l.FillPrice <= 0 {
		return 0, 0, false
	}
	return *l.FilledSize, *l.FillPrice, true
}

func (l GridLeg) clone() GridLeg {
	out := l
	if l.OCOOrderID != nil {
		v := *l.OCOOrderID
		out.OCOOrderID = &v
	}
	if l.FilledSize != nil {
		v := *l.FilledSize
		out.FilledSize = &v
	}
	if l.FillPrice != nil {
		v := *l.FillPrice
		out.FillPrice = &v
	}
	return out
}
