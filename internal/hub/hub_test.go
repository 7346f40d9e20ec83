package hub

import (
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/kstaniek/go-cansock/internal/can"
)

func TestMain(m *testing.M) { goleak.VerifyTestMain(m) }

func TestHub_Broadcast_DropDoesNotBlock(t *testing.T) {
	h := New()
	cl := h.Subscribe(4, nil)
	defer h.Remove(cl)

	// Never read from cl.Out to simulate a slow subscriber.
	start := time.Now()
	for i := 0; i < 1000; i++ {
		h.Broadcast(can.Frame{CANID: 0x123 | can.CAN_EFF_FLAG})
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Broadcast took too long: %s", elapsed)
	}
	if len(cl.Out) != cap(cl.Out) {
		t.Fatalf("expected client buffer to be full, got len=%d cap=%d", len(cl.Out), cap(cl.Out))
	}
}

func TestHub_Broadcast_DropKeepsOthersFlowing(t *testing.T) {
	h := New()
	slow := h.Subscribe(1, nil)
	fast := h.Subscribe(16, nil)
	defer h.Remove(slow)
	defer h.Remove(fast)

	h.Broadcast(can.Frame{CANID: 0x1})
	for i := 0; i < 10; i++ {
		h.Broadcast(can.Frame{CANID: 0x2})
	}
	if got := len(fast.Out); got != 11 {
		t.Fatalf("fast subscriber expected 11 frames, got %d", got)
	}
	if got := len(slow.Out); got != 1 {
		t.Fatalf("slow subscriber expected 1 frame, got %d", got)
	}
}

func TestHub_KickClosesSlowSubscriber(t *testing.T) {
	h := New()
	h.Policy = PolicyKick
	slow := h.Subscribe(1, nil)
	defer h.Remove(slow)

	h.Broadcast(can.Frame{CANID: 0x10})
	h.Broadcast(can.Frame{CANID: 0x11})
	select {
	case <-slow.Closed:
	default:
		t.Fatalf("expected slow subscriber to be kicked")
	}
	if !slow.Kicked() {
		t.Fatalf("expected Kicked() after overflow")
	}
	// Kicked clients are skipped until removed.
	if n := h.Broadcast(can.Frame{CANID: 0x12}); n != 0 {
		t.Fatalf("expected no delivery to kicked client, got %d", n)
	}
}

func TestHub_FilterSelectsFrames(t *testing.T) {
	h := New()
	only123 := h.Subscribe(8, IDFilter(can.Filter{ID: 0x123, Mask: can.CAN_SFF_MASK}))
	all := h.Subscribe(8, nil)
	defer h.CloseAll()

	h.Broadcast(can.Frame{CANID: 0x123})
	h.Broadcast(can.Frame{CANID: 0x124})
	if len(only123.Out) != 1 || len(all.Out) != 2 {
		t.Fatalf("filtered=%d all=%d, want 1 and 2", len(only123.Out), len(all.Out))
	}
	if fr := <-only123.Out; fr.CANID != 0x123 {
		t.Fatalf("unexpected frame %s", fr)
	}
}

func TestIDFilterEmptyAcceptsAll(t *testing.T) {
	if IDFilter() != nil {
		t.Fatalf("expected nil filter for no rules")
	}
}

func TestHub_RemoveNotKicked(t *testing.T) {
	h := New()
	h.Policy = PolicyKick
	c := h.Subscribe(1, nil)
	h.Remove(c)
	if c.Kicked() {
		t.Fatalf("Remove must not mark the client kicked")
	}
}

func TestHub_RemoveIdempotent(t *testing.T) {
	h := New()
	c := h.Subscribe(1, nil)
	h.Remove(c)
	h.Remove(c)
	if h.Count() != 0 {
		t.Fatalf("expected 0 clients, got %d", h.Count())
	}
	select {
	case <-c.Closed:
	default:
		t.Fatalf("expected client closed")
	}
}

func TestParsePolicy(t *testing.T) {
	for s, want := range map[string]BackpressurePolicy{"drop": PolicyDrop, "kick": PolicyKick} {
		p, err := ParsePolicy(s)
		if err != nil || p != want {
			t.Fatalf("ParsePolicy(%q) = %v, %v", s, p, err)
		}
		if p.String() != s {
			t.Fatalf("String() = %q, want %q", p.String(), s)
		}
	}
	if _, err := ParsePolicy("block"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
