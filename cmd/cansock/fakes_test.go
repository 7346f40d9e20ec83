package main

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/kstaniek/go-cansock/internal/can"
	"github.com/kstaniek/go-cansock/internal/config"
	"github.com/kstaniek/go-cansock/internal/links"
)

// fakeDev replays frames, then calls onEmpty and returns err (io.EOF if nil).
type fakeDev struct {
	mu      sync.Mutex
	frames  []can.Frame
	err     error
	onEmpty func()
	reads   int
	written []can.Frame
	closed  bool
	ifi     can.Interface

	writeDelay time.Duration
	writeErr   error
}

func (f *fakeDev) ReadFrame(fr *can.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if len(f.frames) > 0 {
		*fr = f.frames[0]
		f.frames = f.frames[1:]
		return nil
	}
	if f.onEmpty != nil {
		f.onEmpty()
	}
	if f.err != nil {
		return f.err
	}
	return io.EOF
}

func (f *fakeDev) WriteFrame(fr can.Frame) error {
	if f.writeDelay > 0 {
		time.Sleep(f.writeDelay)
	}
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	f.written = append(f.written, fr)
	f.mu.Unlock()
	return nil
}

func (f *fakeDev) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeDev) Interface() can.Interface { return f.ifi }

func (f *fakeDev) writtenFrames() []can.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]can.Frame(nil), f.written...)
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "resource temporarily unavailable" }
func (timeoutErr) Timeout() bool { return true }

func testApp() *app {
	return &app{cfg: config.DefaultConfig(), log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func stubLinks(ls ...links.Link) func() {
	prev := listLinks
	listLinks = func() ([]links.Link, error) { return ls, nil }
	return func() { listLinks = prev }
}
