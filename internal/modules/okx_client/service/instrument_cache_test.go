package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hybrid_bot/internal/models"
)

func TestInstrumentCacheMemoizes(t *testing.T) {
	var calls atomic.Int32
	cache := NewInstrumentCache(func(ctx context.Context, s string) (models.InstrumentMeta, error) {
		calls.Add(1)
		return models.InstrumentMeta{InstID: s, TickSz: 0.01, LotSz: 0.0001}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := cache.Get(context.Background(), "ETH-USDT")
			assert.NoError(t, err)
			assert.Equal(t, 0.01, m.TickSz)
		}()
	}
	wg.Wait()

	_, err := cache.Get(context.Background(), "ETH-USDT")
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestInstrumentCacheDoesNotCacheErrors(t *testing.T) {
	fail := true
	cache := NewInstrumentCache(func(ctx context.Context, s string) (models.InstrumentMeta, error) {
		if fail {
			return models.InstrumentMeta{}, errors.New("boom")
		}
		return models.InstrumentMeta{InstID: s, TickSz: 0.1, LotSz: 1}, nil
	})

	_, err := cache.Get(context.Background(), "BTC-USDT")
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	fail = false
	m, err := cache.Get(context.Background(), "BTC-USDT")
	require.NoError(t, err)
	assert.Equal(t, 0.1, m.TickSz)
}

func TestFetchInstrumentFallback(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SPOT", r.URL.Query().Get("instType"))
		_, _ = w.Write([]byte(`{"code":"0","msg":"","data":[]}`))
	})

	m, err := c.GetInstrumentMeta(context.Background(), "FOO-USDT")
	require.NoError(t, err)
	assert.True(t, m.Default)
	assert.Equal(t, fallbackTickSz, m.TickSz)
	assert.Equal(t, fallbackLotSz, m.LotSz)
}

func TestFetchInstrumentParses(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"0","msg":"","data":[{"instId":"ETH-USDT","instType":"SPOT","tickSz":"0.01","lotSz":"0.000001","minSz":"0.001","state":"live"}]}`))
	})

	m, err := c.GetInstrumentMeta(context.Background(), "ETH-USDT")
	require.NoError(t, err)
	assert.False(t, m.Default)
	assert.Equal(t, 0.01, m.TickSz)
	assert.Equal(t, 0.000001, m.LotSz)
	assert.Equal(t, 0.001, m.MinSz)
}
