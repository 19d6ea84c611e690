package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"hybrid_bot/internal/models"
	"hybrid_bot/pkg/logger"
)

const (
	fallbackTickSz = 0.01
	fallbackLotSz  = 0.000001
)

// GetInstrumentMeta: шаги цены/объёма из кэша, при первом обращении идём на биржу.
func (c *Client) GetInstrumentMeta(ctx context.Context, symbol string) (models.InstrumentMeta, error) {
	return c.instruments.Get(ctx, symbol)
}

func (c *Client) fetchInstrument(ctx context.Context, instID string) (models.InstrumentMeta, error) {
	q := url.Values{}
	q.Set("instType", "SPOT")
	q.Set("instId", instID)

	var r instrumentsResponse
	if err := c.call(ctx, "GetInstrumentMeta", http.MethodGet, "/api/v5/public/instruments", q, nil, false, &r); err != nil {
		return models.InstrumentMeta{}, err
	}

	for _, inst := range r.Data {
		if inst.InstID != instID {
			continue
		}
		return parseInstrument(inst)
	}

	// инструмента нет в списке: работаем на дефолтных шагах
	logger.Warn("[OKX] instrument %s not listed, fallback tick=%v lot=%v", instID, fallbackTickSz, fallbackLotSz)
	return models.InstrumentMeta{
		InstID:  instID,
		TickSz:  fallbackTickSz,
		LotSz:   fallbackLotSz,
		Default: true,
	}, nil
}

func parseInstrument(inst Instrument) (models.InstrumentMeta, error) {
	parsePos := func(name, s string) (float64, error) {
		if s == "" {
			return 0, fmt.Errorf("%s empty", name)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("%s parse: %v (%q)", name, err, s)
		}
		return v, nil
	}

	tickSz, err := parsePos("tickSz", inst.TickSz)
	if err != nil {
		return models.InstrumentMeta{}, err
	}
	lotSz, err := parsePos("lotSz", inst.LotSz)
	if err != nil {
		return models.InstrumentMeta{}, err
	}
	minSz, _ := strconv.ParseFloat(inst.MinSz, 64)

	return models.InstrumentMeta{
		InstID: inst.InstID,
		TickSz: tickSz,
		LotSz:  lotSz,
		MinSz:  minSz,
	}, nil
}
