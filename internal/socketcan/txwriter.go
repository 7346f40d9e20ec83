package socketcan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kstaniek/go-cansock/internal/can"
	"github.com/kstaniek/go-cansock/internal/metrics"
	"github.com/kstaniek/go-cansock/internal/transport"
)

var ErrTxOverflow = errors.New("socketcan tx overflow")

// Dev is the minimal frame I/O surface used by the CLI and TXWriter.
// Implemented by *Device in production and by fakes in tests.
type Dev interface {
	transport.FrameSource
	WriteFrame(can.Frame) error
	Close() error
}

var _ transport.FrameSink = (*TXWriter)(nil)

// TXWriter funnels all writes to a Dev through a single goroutine.
type TXWriter struct {
	base    *transport.AsyncTx[can.Frame]
	written atomic.Uint64

	mu       sync.Mutex
	failed   int
	firstErr error
}

// NewTXWriter creates a TXWriter with a buffered queue of size buf.
func NewTXWriter(parent context.Context, dev Dev, buf int) *TXWriter {
	w := &TXWriter{}
	hooks := transport.Hooks{
		OnError: func(err error) {
			metrics.IncError(metrics.ErrWrite)
			w.recordErr(err)
		},
		OnAfter: func() {
			metrics.IncTx()
			w.written.Add(1)
		},
		OnDrop: func() error {
			metrics.IncError(metrics.ErrTxOverflow)
			return ErrTxOverflow
		},
	}
	w.base = transport.NewAsyncTx(parent, buf, dev.WriteFrame, hooks)
	return w
}

func (w *TXWriter) recordErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failed == 0 {
		w.firstErr = err
	}
	w.failed++
}

// SendFrame queues a frame (drops with ErrTxOverflow if the queue is full).
func (w *TXWriter) SendFrame(fr can.Frame) error { return w.base.Send(fr) }

// Pending reports queued frames not yet written.
func (w *TXWriter) Pending() int { return w.base.Pending() }

// Cap reports the queue size.
func (w *TXWriter) Cap() int { return w.base.Cap() }

// Written reports frames the device accepted.
func (w *TXWriter) Written() uint64 { return w.written.Load() }

// Err returns nil if every dequeued frame was written, otherwise the first
// device error and the number of failed writes.
func (w *TXWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.failed {
	case 0:
		return nil
	case 1:
		return w.firstErr
	}
	return fmt.Errorf("%d writes failed, first: %w", w.failed, w.firstErr)
}

// Close stops the writer and waits for the worker goroutine to finish.
// Frames still queued are discarded.
func (w *TXWriter) Close() { w.base.Close() }
