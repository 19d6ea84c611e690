package service

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"hybrid_bot/internal/exchange"
)

// ограничитель параллелизма, чтобы не словить rate limit
const warmupParallel = 4

// Report: итог прогрева.
type Report struct {
	Loaded   []string
	Fallback []string // инструмента нет в листинге, торгуем на дефолтных шагах
	Failed   map[string]error
}

// Warmuper заполняет кэш инструментов до первого тика.
type Warmuper struct {
	ex exchange.Exchange
}

func NewWarmuper(ex exchange.Exchange) *Warmuper {
	return &Warmuper{ex: ex}
}

// Warmup не прерывается на ошибке символа, ошибка попадает в Report.
func (w *Warmuper) Warmup(ctx context.Context, symbols []string) Report {
	rep := Report{Failed: map[string]error{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupParallel)
	for _, sym := range symbols {
		g.Go(func() error {
			meta, err := w.ex.GetInstrumentMeta(gctx, sym)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				rep.Failed[sym] = err
			case meta.Default:
				rep.Fallback = append(rep.Fallback, sym)
			default:
				rep.Loaded = append(rep.Loaded, sym)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(rep.Loaded)
	sort.Strings(rep.Fallback)
	return rep
}
