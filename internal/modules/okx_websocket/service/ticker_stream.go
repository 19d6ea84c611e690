package service

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"hybrid_bot/internal/modules/config"
	"hybrid_bot/pkg/logger"
)

// ConnState: куда сообщать о состоянии соединения (health).
type ConnState interface {
	SetWSConnected(v bool)
}

type quote struct {
	px float64
	at time.Time
}

// TickerStream держит последние цены по каналу tickers публичного WS OKX.
type TickerStream struct {
	url     string
	enabled bool
	dialer  *websocket.Dialer
	conn    ConnState
	maxAge  time.Duration
	now     func() time.Time

	mu     sync.RWMutex
	prices map[string]quote

	cancel context.CancelFunc
	done   chan struct{}
}

func NewTickerStream(cfg *config.Config, conn ConnState) *TickerStream {
	return &TickerStream{
		url:     cfg.OKX.WSURL,
		enabled: cfg.OKX.TickerStream,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		conn:    conn,
		maxAge:  time.Minute,
		now:     time.Now,
		prices:  make(map[string]quote),
	}
}

// LastPrice: свежая цена из стрима, если она не старше maxAge.
func (s *TickerStream) LastPrice(symbol string) (float64, bool) {
	s.mu.RLock()
	q, ok := s.prices[symbol]
	s.mu.RUnlock()
	if !ok || s.now().Sub(q.at) > s.maxAge {
		return 0, false
	}
	return q.px, true
}

func (s *TickerStream) store(symbol string, px float64) {
	s.mu.Lock()
	s.prices[symbol] = quote{px: px, at: s.now()}
	s.mu.Unlock()
}

// Start запускает стрим. symbols вызывается при каждом переподключении
// и раз в 20с: если список изменился, соединение пересоздаётся.
func (s *TickerStream) Start(ctx context.Context, symbols func() []string) {
	if !s.enabled {
		logger.Info("[WS] ticker stream disabled")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.run(ctx, symbols)
	}()
}

func (s *TickerStream) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *TickerStream) run(ctx context.Context, symbols func() []string) {
	for {
		subscribed := slices.Clone(symbols())
		if len(subscribed) == 0 {
			if !sleepCtx(ctx, 5*time.Second) {
				return
			}
			continue
		}

		err := s.session(ctx, subscribed, symbols)
		s.setConnected(false)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warn("[WS] tickers session: %v", err)
		}
		if !sleepCtx(ctx, time.Second) {
			return
		}
	}
}

// session: одно соединение. Возвращается при ошибке чтения или смене списка.
func (s *TickerStream) session(ctx context.Context, subscribed []string, symbols func() []string) error {
	logger.Info("[WS] connect tickers %d symbols", len(subscribed))
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	args := make([]map[string]string, 0, len(subscribed))
	for _, id := range subscribed {
		args = append(args, map[string]string{"channel": "tickers", "instId": id})
	}
	if err := conn.WriteJSON(map[string]any{"op": "subscribe", "args": args}); err != nil {
		return err
	}
	s.setConnected(true)

	// keepalive: без трафика OKX рвёт соединение через ~30с
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		t := time.NewTicker(20 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-stop:
				return
			case <-t.C:
				if !slices.Equal(subscribed, symbols()) {
					logger.Info("[WS] watchlist changed, resubscribing")
					_ = conn.Close()
					return
				}
				_ = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		for _, u := range parseTickerFrame(msg) {
			s.store(u.instID, u.last)
		}
	}
}

func (s *TickerStream) setConnected(v bool) {
	if s.conn != nil {
		s.conn.SetWSConnected(v)
	}
}

type tickerUpdate struct {
	instID string
	last   float64
}

// parseTickerFrame разбирает push канала tickers. pong и event-кадры пропускаются.
func parseTickerFrame(msg []byte) []tickerUpdate {
	if string(msg) == "pong" {
		return nil
	}
	var frame struct {
		Arg struct {
			Channel string `json:"channel"`
		} `json:"arg"`
		Data []struct {
			InstID string `json:"instId"`
			Last   string `json:"last"`
		} `json:"data"`
	}
	if err := sonic.Unmarshal(msg, &frame); err != nil {
		return nil
	}
	if frame.Arg.Channel != "tickers" {
		return nil
	}
	out := make([]tickerUpdate, 0, len(frame.Data))
	for _, d := range frame.Data {
		px, err := strconv.ParseFloat(d.Last, 64)
		if err != nil || px <= 0 {
			continue
		}
		out = append(out, tickerUpdate{instID: d.InstID, last: px})
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
