package service

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"hybrid_bot/internal/models"
)

type fetchFunc func(ctx context.Context, symbol string) (models.InstrumentMeta, error)

// InstrumentCache: шаги инструментов на всё время жизни процесса, без инвалидации.
// Ошибки загрузки не кэшируются.
type InstrumentCache struct {
	fetch fetchFunc

	mu    sync.RWMutex
	metas map[string]models.InstrumentMeta
	group singleflight.Group
}

func NewInstrumentCache(fetch fetchFunc) *InstrumentCache {
	return &InstrumentCache{
		fetch: fetch,
		metas: make(map[string]models.InstrumentMeta),
	}
}

func (c *InstrumentCache) Get(ctx context.Context, symbol string) (models.InstrumentMeta, error) {
	c.mu.RLock()
	meta, ok := c.metas[symbol]
	c.mu.RUnlock()
	if ok {
		return meta, nil
	}

	v, err, _ := c.group.Do(symbol, func() (any, error) {
		c.mu.RLock()
		meta, ok := c.metas[symbol]
		c.mu.RUnlock()
		if ok {
			return meta, nil
		}

		meta, err := c.fetch(ctx, symbol)
		if err != nil {
			return models.InstrumentMeta{}, err
		}
		c.mu.Lock()
		c.metas[symbol] = meta
		c.mu.Unlock()
		return meta, nil
	})
	if err != nil {
		return models.InstrumentMeta{}, err
	}
	return v.(models.InstrumentMeta), nil
}

func (c *InstrumentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.metas)
}
