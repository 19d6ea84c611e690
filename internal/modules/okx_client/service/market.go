package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"hybrid_bot/internal/exchange"
	"hybrid_bot/internal/helper"
	"hybrid_bot/internal/models"
)

// GetCandles: свечи от старой к новой. Последняя может быть ещё не закрыта.
func (c *Client) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	if limit <= 0 || limit > 300 {
		limit = 300
	}
	q := url.Values{}
	q.Set("instId", symbol)
	q.Set("bar", helper.NormTF(timeframe))
	q.Set("limit", strconv.Itoa(limit))

	var r candlesResponse
	if err := c.call(ctx, "GetCandles", http.MethodGet, "/api/v5/market/candles", q, nil, false, &r); err != nil {
		return nil, err
	}

	out := make([]models.Candle, 0, len(r.Data))
	// OKX отдаёт свежие первыми: разворачиваем
	for i := len(r.Data) - 1; i >= 0; i-- {
		row := r.Data[i]
		if len(row) < 6 {
			continue
		}
		ts, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		o, err1 := strconv.ParseFloat(row[1], 64)
		h, err2 := strconv.ParseFloat(row[2], 64)
		l, err3 := strconv.ParseFloat(row[3], 64)
		cl, err4 := strconv.ParseFloat(row[4], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		vol, _ := strconv.ParseFloat(row[5], 64)
		out = append(out, models.Candle{
			Start:  time.UnixMilli(ts).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  cl,
			Volume: vol,
		})
	}
	if len(out) == 0 {
		return nil, errors.Wrapf(exchange.ErrDataUnavailable, "GetCandles %s %s: empty series", symbol, timeframe)
	}
	return out, nil
}

// GetTicker: сначала кэш websocket, потом REST.
func (c *Client) GetTicker(ctx context.Context, symbol string) (float64, error) {
	if c.prices != nil {
		if px, ok := c.prices.LastPrice(symbol); ok && px > 0 {
			return px, nil
		}
	}
	return c.restTicker(ctx, symbol)
}

func (c *Client) restTicker(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("instId", symbol)

	var r tickerResponse
	if err := c.call(ctx, "GetTicker", http.MethodGet, "/api/v5/market/ticker", q, nil, false, &r); err != nil {
		return 0, err
	}
	if len(r.Data) == 0 {
		return 0, errors.Wrapf(exchange.ErrDataUnavailable, "GetTicker %s: no data", symbol)
	}
	px, err := strconv.ParseFloat(r.Data[0].Last, 64)
	if err != nil || px <= 0 {
		return 0, errors.Wrapf(exchange.ErrDataUnavailable, "GetTicker %s: bad last %q", symbol, r.Data[0].Last)
	}
	return px, nil
}
