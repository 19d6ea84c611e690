package service

import (
	"context"
	"net/http"
)

// CancelOrder: снять лимитку.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	const op = "CancelOrder"
	body := map[string]string{"instId": symbol, "ordId": orderID}

	var r ackResponse
	if err := c.call(ctx, op, http.MethodPost, "/api/v5/trade/cancel-order", nil, body, true, &r); err != nil {
		return err
	}
	_, err := firstAck(op, r.Data)
	return err
}

// CancelOCO: снять алго-ордер.
func (c *Client) CancelOCO(ctx context.Context, symbol, algoID string) error {
	const op = "CancelOCO"
	body := []map[string]string{{"instId": symbol, "algoId": algoID}}

	var r ackResponse
	if err := c.call(ctx, op, http.MethodPost, "/api/v5/trade/cancel-algos", nil, body, true, &r); err != nil {
		return err
	}
	_, err := firstAck(op, r.Data)
	return err
}
