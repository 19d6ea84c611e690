package service

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"hybrid_bot/internal/models"
)

// GetBalance: доступный остаток по валюте, 0 если её нет на счёте.
func (c *Client) GetBalance(ctx context.Context, ccy string) (float64, error) {
	ccy = strings.ToUpper(ccy)
	q := url.Values{}
	q.Set("ccy", ccy)

	var r balanceResponse
	if err := c.call(ctx, "GetBalance", http.MethodGet, "/api/v5/account/balance", q, nil, true, &r); err != nil {
		return 0, err
	}
	for _, acc := range r.Data {
		for _, d := range acc.Details {
			if strings.EqualFold(d.Ccy, ccy) {
				v, _ := strconv.ParseFloat(d.AvailBal, 64)
				return v, nil
			}
		}
	}
	return 0, nil
}

// Balances: ненулевые остатки по всем валютам.
func (c *Client) Balances(ctx context.Context) ([]models.Balance, error) {
	var r balanceResponse
	if err := c.call(ctx, "Balances", http.MethodGet, "/api/v5/account/balance", nil, nil, true, &r); err != nil {
		return nil, err
	}
	var out []models.Balance
	for _, acc := range r.Data {
		for _, d := range acc.Details {
			v, _ := strconv.ParseFloat(d.AvailBal, 64)
			if v > 0 {
				out = append(out, models.Balance{Ccy: d.Ccy, Avail: v})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ccy < out[j].Ccy })
	return out, nil
}
