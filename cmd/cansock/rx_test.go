package main

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/kstaniek/go-cansock/internal/can"
	"github.com/kstaniek/go-cansock/internal/hub"
)

func TestRxLoopBackoffProgression(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []time.Duration
	sleepFn = func(d time.Duration) {
		mu.Lock()
		if len(seen) < 8 {
			seen = append(seen, d)
			if len(seen) == 8 {
				cancel()
			}
		}
		mu.Unlock()
	}
	defer func() { sleepFn = time.Sleep }()

	dev := &fakeDev{err: io.ErrNoProgress}
	if err := rxLoop(ctx, dev, hub.New(), testApp().log); err != nil {
		t.Fatalf("rxLoop: %v", err)
	}

	if seen[0] != rxBackoffMin {
		t.Fatalf("expected first backoff %v got %v", rxBackoffMin, seen[0])
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("backoff decreased at %d: prev=%v cur=%v", i, seen[i-1], seen[i])
		}
		if seen[i] > rxBackoffMax {
			t.Fatalf("backoff exceeded max at %d: %v > %v", i, seen[i], rxBackoffMax)
		}
	}
	if seen[len(seen)-1] != rxBackoffMax {
		t.Fatalf("expected backoff to saturate at %v, got %v", rxBackoffMax, seen[len(seen)-1])
	}
}

func TestRxLoopTimeoutsDoNotBackOff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sleepFn = func(d time.Duration) { t.Errorf("unexpected backoff sleep %v", d) }
	defer func() { sleepFn = time.Sleep }()

	dev := &fakeDev{err: timeoutErr{}}
	dev.onEmpty = func() {
		if dev.reads >= 20 {
			cancel()
		}
	}
	if err := rxLoop(ctx, dev, hub.New(), testApp().log); err != nil {
		t.Fatalf("rxLoop: %v", err)
	}
	if dev.reads < 20 {
		t.Fatalf("expected at least 20 reads, got %d", dev.reads)
	}
}

func TestRxLoopBroadcastsFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := hub.New()
	sub := h.Subscribe(8, nil)
	defer h.Remove(sub)

	dev := &fakeDev{
		frames:  []can.Frame{{Ifindex: 4, CANID: 0x1}, {Ifindex: 4, CANID: 0x2}},
		onEmpty: cancel,
	}
	if err := rxLoop(ctx, dev, h, testApp().log); err != nil {
		t.Fatalf("rxLoop: %v", err)
	}
	if len(sub.Out) != 2 {
		t.Fatalf("expected 2 frames broadcast, got %d", len(sub.Out))
	}
	if fr := <-sub.Out; fr.CANID != 0x1 {
		t.Fatalf("unexpected first frame %s", fr)
	}
}
