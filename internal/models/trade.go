package models

import "time"

// Trade: запись в журнале сделок. После закрытия не меняется.
type Trade struct {
	ID          string       `json:"id"`
	Symbol      string       `json:"symbol"`
	Mode        PositionMode `json:"mode"`
	Side        PositionSide `json:"side"`
	Entry       float64      `json:"entry"`
	Stop        float64      `json:"stop"`
	Size        float64      `json:"size"`
	RiskPerUnit float64      `json:"riskPerUnit"`
	Open        bool         `json:"open"`
	ExitPrice   *float64     `json:"exitPrice"`
	PnL         float64      `json:"pnl"`
	RMultiple   float64      `json:"rMultiple"`
	OpenedAt    time.Time    `json:"openedAt"`
	ClosedAt    *time.Time   `json:"closedAt,omitempty"`
}
