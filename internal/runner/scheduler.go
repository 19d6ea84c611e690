package runner

import (
	"context"
	"fmt"
	"time"

	"hybrid_bot/internal/notify"
	"hybrid_bot/pkg/logger"
)

// Start запускает цикл тиков и дневной отчёт.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		r.RunInterval(ctx)
	}()
	go func() {
		defer r.wg.Done()
		r.RunDaily(ctx)
	}()
}

// Stop отменяет циклы и ждёт, пока доработает начатый тик.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// RunInterval: тик сразу и дальше каждые interval. Блокирует до отмены ctx.
func (r *Runner) RunInterval(ctx context.Context) {
	logger.Info("[TICK] interval loop every %s", r.interval)
	r.Tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// тик в своей горутине, чтобы перекрытие было видно и пропускалось
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				r.Tick(ctx)
			}()
		}
	}
}

// RunDaily: отчёт PnL раз в сутки в заданное время и зоне.
func (r *Runner) RunDaily(ctx context.Context) {
	hh, mm, err := parseHHMM(r.dailyAt)
	if err != nil {
		logger.Error("[PNL] daily report disabled: %v", err)
		return
	}
	loc, err := time.LoadLocation(r.dailyTZ)
	if err != nil {
		logger.Warn("[PNL] timezone %q: %v, using UTC", r.dailyTZ, err)
		loc = time.UTC
	}

	for {
		next := nextDaily(r.now(), hh, mm, loc)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			r.SendReport(ctx)
		}
	}
}

// SendReport: отчёт в нотифайер.
func (r *Runner) SendReport(ctx context.Context) {
	rep := r.PnLReport(ctx)
	r.engine.notify(ctx, notify.Event{Kind: notify.Report, Text: rep.String()})
}

func nextDaily(now time.Time, hh, mm int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hh, mm, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hh, mm, 0, 0, loc)
	}
	return next
}

func parseHHMM(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("daily time %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}
