package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"hybrid_bot/internal/exchange"
	"hybrid_bot/internal/metrics"
	"hybrid_bot/internal/modules/config"
	"hybrid_bot/pkg/logger"
)

const tsLayout = "2006-01-02T15:04:05.000Z"

// PriceSource: кэш последних цен (websocket). Может ничего не знать про символ.
type PriceSource interface {
	LastPrice(symbol string) (float64, bool)
}

type Options struct {
	BaseURL      string
	APIKey       string
	APISecret    string
	Passphrase   string
	Simulated    bool
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client: REST-клиент OKX для спота.
type Client struct {
	http    *http.Client
	baseURL string

	apiKey    string
	apiSecret string
	passph    string
	simulated bool

	maxRetries   int
	retryBackoff time.Duration

	prices      PriceSource
	instruments *InstrumentCache
	now         func() time.Time
}

var _ exchange.Exchange = (*Client)(nil)

func New(opts Options, prices PriceSource) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.okx.com"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	c := &Client{
		http:         &http.Client{Timeout: opts.Timeout},
		baseURL:      opts.BaseURL,
		apiKey:       opts.APIKey,
		apiSecret:    opts.APISecret,
		passph:       opts.Passphrase,
		simulated:    opts.Simulated,
		maxRetries:   opts.MaxRetries,
		retryBackoff: opts.RetryBackoff,
		prices:       prices,
		now:          time.Now,
	}
	c.instruments = NewInstrumentCache(c.fetchInstrument)
	return c
}

func NewClient(cfg *config.Config, prices PriceSource) *Client {
	return New(Options{
		BaseURL:      cfg.OKX.BaseURL,
		APIKey:       cfg.OKX.APIKey,
		APISecret:    cfg.OKX.APISecret,
		Passphrase:   cfg.OKX.Passphrase,
		Simulated:    cfg.OKX.Simulated(),
		Timeout:      cfg.OKX.Timeout,
		MaxRetries:   cfg.OKX.MaxRetries,
		RetryBackoff: cfg.OKX.RetryBackoff,
	}, prices)
}

func (c *Client) sign(ts, method, requestPath, body string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(ts + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// netError: запрос не дошёл или ответ не прочитан. Для POST непонятно, принят ли ордер.
type netError struct {
	op  string
	err error
}

func (e *netError) Error() string { return fmt.Sprintf("%s: %v", e.op, e.err) }
func (e *netError) Unwrap() error { return exchange.ErrTransient }

type envelope struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

type ack struct {
	OrdID  string `json:"ordId"`
	AlgoID string `json:"algoId"`
	SCode  string `json:"sCode"`
	SMsg   string `json:"sMsg"`
}

// call выполняет запрос с ретраями и декодирует ответ в out.
func (c *Client) call(
	ctx context.Context,
	op string,
	method string,
	path string,
	query url.Values,
	body any,
	auth bool,
	out any,
) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = sonic.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "%s marshal", op)
		}
	}

	requestPath := path
	if len(query) > 0 {
		requestPath += "?" + query.Encode()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryBackoff
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(max(c.maxRetries, 0))), ctx)

	var raw []byte
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		var err error
		raw, err = c.doOnce(ctx, op, method, requestPath, payload, auth)
		if err == nil {
			return nil
		}
		if !retryable(method, err) {
			return backoff.Permanent(err)
		}
		logger.Warn("[OKX] %s attempt %d: %v", op, attempt, err)
		return err
	}, policy)

	metrics.ExchangeRequests.WithLabelValues(op, outcome(err)).Inc()
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "%s decode: body=%s", op, string(raw))
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, op, method, requestPath string, payload []byte, auth bool) ([]byte, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, rd)
	if err != nil {
		return nil, errors.Wrapf(err, "%s new request", op)
	}

	req.Header.Set("Content-Type", "application/json")
	if auth {
		ts := c.now().UTC().Format(tsLayout)
		req.Header.Set("OK-ACCESS-KEY", c.apiKey)
		req.Header.Set("OK-ACCESS-SIGN", c.sign(ts, method, requestPath, string(payload)))
		req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
		req.Header.Set("OK-ACCESS-PASSPHRASE", c.passph)
	}
	if c.simulated {
		req.Header.Set("x-simulated-trading", "1")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "%s do", op)
		}
		return nil, &netError{op: op, err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &netError{op: op, err: err}
	}

	var env envelope
	_ = sonic.Unmarshal(data, &env)

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode/100 == 5 {
		return nil, &exchange.APIError{
			Op:   op,
			Code: fmt.Sprintf("http %d", resp.StatusCode),
			Msg:  string(data),
			Err:  exchange.ErrTransient,
		}
	}

	if env.Code != "" && env.Code != "0" {
		return nil, detailedError(op, env, data)
	}
	if resp.StatusCode/100 != 2 {
		return nil, exchange.NewAPIError(op, fmt.Sprintf("http %d", resp.StatusCode), string(data))
	}
	return data, nil
}

// detailedError: у торговых эндпоинтов причина лежит в data[0].sCode.
func detailedError(op string, env envelope, raw []byte) error {
	var r struct {
		Data []ack `json:"data"`
	}
	if err := sonic.Unmarshal(raw, &r); err == nil && len(r.Data) > 0 && r.Data[0].SCode != "" && r.Data[0].SCode != "0" {
		return exchange.NewAPIError(op, r.Data[0].SCode, r.Data[0].SMsg)
	}
	return exchange.NewAPIError(op, env.Code, env.Msg)
}

func retryable(method string, err error) bool {
	var ne *netError
	if errors.As(err, &ne) {
		// ордер мог дойти до биржи, повтор даст дубль
		return method == http.MethodGet
	}
	return exchange.IsTransient(err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case exchange.IsTransient(err):
		return "transient"
	case exchange.IsRejected(err):
		return "rejected"
	default:
		return "error"
	}
}

// firstAck проверяет подтверждение торговой операции.
func firstAck(op string, acks []ack) (ack, error) {
	if len(acks) == 0 {
		return ack{}, exchange.NewAPIError(op, "empty", "no data in response")
	}
	a := acks[0]
	if a.SCode != "" && a.SCode != "0" {
		return ack{}, exchange.NewAPIError(op, a.SCode, a.SMsg)
	}
	return a, nil
}
