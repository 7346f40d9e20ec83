// Package hub fans received CAN frames out to subscribers without ever
// blocking the receive loop.
package hub

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kstaniek/go-cansock/internal/can"
	"github.com/kstaniek/go-cansock/internal/logging"
	"github.com/kstaniek/go-cansock/internal/metrics"
)

type BackpressurePolicy int

const (
	PolicyDrop BackpressurePolicy = iota
	PolicyKick
)

func (p BackpressurePolicy) String() string {
	if p == PolicyKick {
		return "kick"
	}
	return "drop"
}

// ParsePolicy maps "drop" or "kick" to a BackpressurePolicy.
func ParsePolicy(s string) (BackpressurePolicy, error) {
	switch s {
	case "drop":
		return PolicyDrop, nil
	case "kick":
		return PolicyKick, nil
	}
	return PolicyDrop, fmt.Errorf("unknown backpressure policy %q", s)
}

// Filter selects frames for a subscriber; nil accepts everything.
type Filter func(can.Frame) bool

// IDFilter matches frames the way a CAN_RAW filter does:
// id&mask == f.ID&mask.
func IDFilter(filters ...can.Filter) Filter {
	if len(filters) == 0 {
		return nil
	}
	return func(fr can.Frame) bool {
		for _, f := range filters {
			if fr.CANID&f.Mask == f.ID&f.Mask {
				return true
			}
		}
		return false
	}
}

type Client struct {
	Out       chan can.Frame
	Closed    chan struct{}
	filter    Filter
	closeOnce sync.Once
	kicked    atomic.Bool
}

// Kicked reports whether the hub closed the client for falling behind.
func (c *Client) Kicked() bool { return c.kicked.Load() }

// Close signals the client is closed (idempotent).
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.Closed)
	})
}

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	Policy  BackpressurePolicy
}

// New creates a Hub with the drop policy.
func New() *Hub { return &Hub{clients: make(map[*Client]struct{})} }

// Subscribe registers a client with an Out queue of buf frames.
func (h *Hub) Subscribe(buf int, filter Filter) *Client {
	c := &Client{
		Out:    make(chan can.Frame, buf),
		Closed: make(chan struct{}),
		filter: filter,
	}
	h.Add(c)
	return c
}

// Add registers an existing client.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	cur := len(h.clients)
	h.mu.Unlock()
	metrics.SetHubSubscribers(cur)
	if cur == 1 {
		logging.L().Debug("hub_first_subscriber")
	}
}

// Remove unregisters a client and closes it; safe to call multiple times.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	cur := len(h.clients)
	h.mu.Unlock()
	c.Close()
	metrics.SetHubSubscribers(cur)
	if existed && cur == 0 {
		logging.L().Debug("hub_last_subscriber_gone")
	}
}

// Broadcast delivers fr to every matching client honoring the backpressure
// policy. It never blocks. It returns the number of clients that got the frame.
func (h *Hub) Broadcast(fr can.Frame) int {
	delivered := 0
	for _, c := range h.Snapshot() {
		if c.filter != nil && !c.filter(fr) {
			continue
		}
		select {
		case <-c.Closed:
			continue
		default:
		}
		select {
		case c.Out <- fr:
			delivered++
		default:
			if h.Policy == PolicyKick {
				metrics.IncHubKick()
				c.kicked.Store(true)
				c.Close() // owner observes Closed and calls Remove
			} else {
				metrics.IncHubDrop()
			}
		}
	}
	return delivered
}

// Snapshot returns a slice copy of current clients (read-only use).
func (h *Hub) Snapshot() []*Client {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	return clients
}

// Count returns the number of registered clients.
func (h *Hub) Count() int { h.mu.RLock(); n := len(h.clients); h.mu.RUnlock(); return n }

// CloseAll removes every client.
func (h *Hub) CloseAll() {
	for _, c := range h.Snapshot() {
		h.Remove(c)
	}
}
