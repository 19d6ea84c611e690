package exchange

import (
	"context"

	"hybrid_bot/internal/models"
)

// Exchange: то, что движку нужно от биржи. Все вызовы блокирующие.
type Exchange interface {
	GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)
	GetTicker(ctx context.Context, symbol string) (float64, error)
	GetBalance(ctx context.Context, ccy string) (float64, error)
	GetInstrumentMeta(ctx context.Context, symbol string) (models.InstrumentMeta, error)

	PlaceLimitBuy(ctx context.Context, symbol string, price, size float64) (string, error)
	PlaceLimitSell(ctx context.Context, symbol string, price, size float64) (string, error)
	PlaceOCOExit(ctx context.Context, symbol string, size, takeProfit, stopLoss float64) (string, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	CancelOCO(ctx context.Context, symbol, algoID string) error

	GetOrder(ctx context.Context, symbol, orderID string) (models.OrderInfo, error)
	ListPendingOrders(ctx context.Context, symbol string) ([]string, error)
}

// Wallet: балансы по всем валютам, нужен только фронту.
type Wallet interface {
	Balances(ctx context.Context) ([]models.Balance, error)
}
