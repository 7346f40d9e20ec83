package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kstaniek/go-cansock/internal/can"
	"github.com/kstaniek/go-cansock/internal/hub"
	"github.com/kstaniek/go-cansock/internal/metrics"
	"github.com/kstaniek/go-cansock/internal/socketcan"
)

// rxLoop reads frames from dev into the hub until ctx is done. Read timeouts
// only give the loop a chance to observe ctx; other errors back off
// exponentially between rxBackoffMin and rxBackoffMax.
func rxLoop(ctx context.Context, dev socketcan.Dev, h *hub.Hub, l *slog.Logger) error {
	defer l.Debug("rx_end")
	backoff := rxBackoffMin
	for {
		if ctx.Err() != nil {
			return nil
		}
		var fr can.Frame
		if err := dev.ReadFrame(&fr); err != nil {
			if ctx.Err() != nil { // shutting down
				return nil
			}
			if socketcan.IsTimeout(err) {
				backoff = rxBackoffMin
				continue
			}
			if errors.Is(err, socketcan.ErrProtocolViolation) {
				metrics.IncError(metrics.ErrProtocol)
			} else {
				metrics.IncError(metrics.ErrRead)
			}
			l.Warn("rx_error", "error", err, "backoff", backoff)
			sleepFn(backoff)
			backoff = min(backoff*2, rxBackoffMax)
			continue
		}
		metrics.IncRx()
		h.Broadcast(fr)
		backoff = rxBackoffMin
	}
}
