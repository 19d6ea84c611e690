package service

import (
	"context"
	"fmt"
	"net/http"

	"hybrid_bot/internal/exchange"
	"hybrid_bot/internal/helper"
)

// PlaceOCOExit: продажа по TP или SL, что сработает первым. Возвращает algoId.
func (c *Client) PlaceOCOExit(ctx context.Context, symbol string, size, takeProfit, stopLoss float64) (string, error) {
	const op = "PlaceOCOExit"

	if size <= 0 {
		return "", exchange.NewAPIError(op, "local", fmt.Sprintf("size <= 0: %v", size))
	}
	if takeProfit <= 0 || stopLoss <= 0 || stopLoss >= takeProfit {
		return "", exchange.NewAPIError(op, "local", fmt.Sprintf("bad tp/sl: tp=%v sl=%v", takeProfit, stopLoss))
	}

	body := map[string]string{
		"instId":          symbol,
		"tdMode":          "cash",
		"side":            "sell",
		"ordType":         "oco",
		"sz":              helper.FormatNum(size),
		"tpTriggerPx":     helper.FormatNum(takeProfit),
		"tpOrdPx":         "-1",
		"tpTriggerPxType": "last",
		"slTriggerPx":     helper.FormatNum(stopLoss),
		"slOrdPx":         "-1",
		"slTriggerPxType": "last",
	}

	var r ackResponse
	if err := c.call(ctx, op, http.MethodPost, "/api/v5/trade/order-algo", nil, body, true, &r); err != nil {
		return "", err
	}
	a, err := firstAck(op, r.Data)
	if err != nil {
		return "", err
	}
	if a.AlgoID == "" {
		return "", exchange.NewAPIError(op, "empty", "empty algoId")
	}
	return a.AlgoID, nil
}
