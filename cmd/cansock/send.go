package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/kstaniek/go-cansock/internal/can"
	"github.com/kstaniek/go-cansock/internal/config"
	"github.com/kstaniek/go-cansock/internal/socketcan"
)

// openDevice is a hook for tests (overridden in unit tests).
var openDevice = func(iface string) (socketcan.Dev, error) {
	d, err := socketcan.Open(iface)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func sendCmd(a *app) *cobra.Command {
	var (
		count    int
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "send IFACE ID#DATA",
		Short: "Send a classic CAN frame, e.g. 123#11.22.33 or 1ABCDE00#R",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return errors.New("--count must be >= 1")
			}
			fr, err := can.ParseFrame(args[1])
			if err != nil {
				return err
			}
			dev, err := openDevice(args[0])
			if err != nil {
				return fmt.Errorf("socketcan open %s: %w", args[0], err)
			}
			defer dev.Close()
			a.log.Debug("socketcan_open", "if", args[0])
			if count == 1 {
				if err := dev.WriteFrame(fr); err != nil {
					return fmt.Errorf("send %s: %w", fr, err)
				}
				a.log.Info("tx_frame", "if", args[0], "id", can.FormatID(fr.CANID), "len", fr.Len)
				return nil
			}
			return sendBurst(cmd.Context(), a, dev, fr, count, interval)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of frames to send")
	cmd.Flags().DurationVarP(&interval, "interval", "i", 0, "Gap between frames of a burst")
	cmd.Flags().Int("queue", config.DefaultConfig().TX.Queue, "TX queue size in frames for bursts")
	return cmd
}

// sendBurst writes count copies of fr through a TXWriter. A full queue
// makes it wait for room, so every frame is either written or reported.
func sendBurst(ctx context.Context, a *app, dev socketcan.Dev, fr can.Frame, count int, interval time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	w := socketcan.NewTXWriter(ctx, dev, a.cfg.TX.Queue)
	defer w.Close()
	queued := 0
	for queued < count {
		for w.Pending() >= w.Cap() && ctx.Err() == nil {
			sleepFn(txDrainPoll)
		}
		if ctx.Err() != nil {
			break
		}
		if err := w.SendFrame(fr); err != nil {
			return fmt.Errorf("queue frame %d of %d: %w", queued+1, count, err)
		}
		queued++
		if interval > 0 && queued < count {
			sleepFn(interval)
		}
	}
	for w.Pending() > 0 && ctx.Err() == nil {
		sleepFn(txDrainPoll)
	}
	w.Close()

	written := int(w.Written())
	lvl := slog.LevelInfo
	if written != count {
		lvl = slog.LevelWarn
	}
	a.log.Log(context.Background(), lvl, "tx_burst_done", "id", can.FormatID(fr.CANID), "requested", count, "written", written)
	if err := w.Err(); err != nil {
		return fmt.Errorf("send %s: wrote %d of %d frames: %w", fr, written, count, err)
	}
	if written != count {
		return fmt.Errorf("send %s: wrote %d of %d frames: %w", fr, written, count, context.Cause(ctx))
	}
	return nil
}
