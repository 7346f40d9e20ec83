package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/kstaniek/go-cansock/internal/metrics"
)

// logMetrics periodically logs the local counter mirror until ctx is done.
func logMetrics(ctx context.Context, interval time.Duration, l *slog.Logger) error {
	if interval <= 0 {
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			snap := metrics.Snap()
			l.Info("metrics_snapshot",
				"rx", snap.Rx,
				"tx", snap.Tx,
				"truncated", snap.Truncated,
				"hub_drops", snap.HubDrops,
				"hub_kicks", snap.HubKicks,
				"subscribers", snap.Subscribers,
				"errors", snap.Errors,
			)
		case <-ctx.Done():
			return nil
		}
	}
}
