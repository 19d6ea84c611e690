package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"hybrid_bot/internal/exchange"
	"hybrid_bot/internal/helper"
	"hybrid_bot/internal/models"
)

func (c *Client) PlaceLimitBuy(ctx context.Context, symbol string, price, size float64) (string, error) {
	return c.placeLimit(ctx, "PlaceLimitBuy", symbol, "buy", price, size)
}

func (c *Client) PlaceLimitSell(ctx context.Context, symbol string, price, size float64) (string, error) {
	return c.placeLimit(ctx, "PlaceLimitSell", symbol, "sell", price, size)
}

func (c *Client) placeLimit(ctx context.Context, op, symbol, side string, price, size float64) (string, error) {
	if size <= 0 {
		return "", exchange.NewAPIError(op, "local", fmt.Sprintf("size <= 0: %v", size))
	}
	if price <= 0 {
		return "", exchange.NewAPIError(op, "local", fmt.Sprintf("price <= 0: %v", price))
	}

	body := map[string]string{
		"instId":  symbol,
		"tdMode":  "cash",
		"side":    side,
		"ordType": "limit",
		"px":      helper.FormatNum(price),
		"sz":      helper.FormatNum(size),
	}

	var r ackResponse
	if err := c.call(ctx, op, http.MethodPost, "/api/v5/trade/order", nil, body, true, &r); err != nil {
		return "", err
	}
	a, err := firstAck(op, r.Data)
	if err != nil {
		return "", err
	}
	if a.OrdID == "" {
		return "", exchange.NewAPIError(op, "empty", "empty ordId")
	}
	return a.OrdID, nil
}

// GetOrder: состояние ордера и исполненный объём.
func (c *Client) GetOrder(ctx context.Context, symbol, orderID string) (models.OrderInfo, error) {
	q := url.Values{}
	q.Set("instId", symbol)
	q.Set("ordId", orderID)

	var r orderResponse
	if err := c.call(ctx, "GetOrder", http.MethodGet, "/api/v5/trade/order", q, nil, true, &r); err != nil {
		return models.OrderInfo{}, err
	}
	if len(r.Data) == 0 {
		return models.OrderInfo{}, exchange.NewAPIError("GetOrder", "empty", "order "+orderID+" not found")
	}
	d := r.Data[0]
	filled, _ := strconv.ParseFloat(d.AccFillSz, 64)
	avg, _ := strconv.ParseFloat(d.AvgPx, 64)
	info := models.OrderInfo{
		OrderID:      d.OrdID,
		State:        models.OrderState(d.State),
		FilledSize:   filled,
		AvgFillPrice: avg,
	}
	if ms, err := strconv.ParseInt(d.CTime, 10, 64); err == nil {
		info.CreatedAt = time.UnixMilli(ms).UTC()
	}
	return info, nil
}

// ListPendingOrders: id всех висящих ордеров по инструменту.
func (c *Client) ListPendingOrders(ctx context.Context, symbol string) ([]string, error) {
	q := url.Values{}
	q.Set("instType", "SPOT")
	q.Set("instId", symbol)

	var r pendingResponse
	if err := c.call(ctx, "ListPendingOrders", http.MethodGet, "/api/v5/trade/orders-pending", q, nil, true, &r); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(r.Data))
	for _, d := range r.Data {
		ids = append(ids, d.OrdID)
	}
	return ids, nil
}
