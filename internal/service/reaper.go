package service

import (
	"context"
	"log/slog"
	"time"
)

// Reaper периодически удаляет протухшие location-сэмплы. Журнал участий им не
// трогается. Запускается один раз на старте, дальше по тикеру; ошибка свипа
// логируется, следующий тик просто пробует снова.
type Reaper struct {
	samples   Samples
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

func NewReaper(samples Samples, retention, interval time.Duration) *Reaper {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Reaper{samples: samples, retention: retention, interval: interval, now: time.Now}
}

func (r *Reaper) Run(ctx context.Context) {
	slog.Info("reaper: started", "retention", r.retention, "interval", r.interval)

	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("reaper: stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	cutoff := r.now().Add(-r.retention)
	n, err := r.samples.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Warn("reaper: sweep failed", "err", err)
		return
	}
	if n > 0 {
		slog.Info("reaper: stale samples deleted", "count", n, "cutoff", cutoff)
	}
}
