package hub

import (
	"context"
	"sync"
	"time"

	"github.com/Shepherdphiri/z-radio/internal/metrics"
	pkglog "github.com/Shepherdphiri/z-radio/pkg/log"
)

// Config tunes the per-connection pumps.
type Config struct {
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

// Hub tracks every open client.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*Client
	closing bool
	drained chan struct{}

	config  Config
	metrics *metrics.Metrics
}

// NewHub creates a new Hub. m may be nil.
func NewHub(cfg Config, m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		drained: make(chan struct{}),
		config:  cfg,
		metrics: m,
	}
}

// Register adds a client. It reports false once shutdown has begun.
func (h *Hub) Register(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closing {
		return false
	}
	h.clients[client.id] = client
	if h.metrics != nil {
		h.metrics.ConnectionsActive.Inc()
	}
	l := pkglog.L()
	l.Debug().Str(pkglog.FieldSessionID, client.id).Msg("client registered")
	return true
}

// Unregister removes a client. Unknown clients are ignored.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.id]; !ok {
		return
	}
	delete(h.clients, client.id)
	if h.metrics != nil {
		h.metrics.ConnectionsActive.Dec()
	}
	if h.closing && len(h.clients) == 0 {
		close(h.drained)
	}
	l := pkglog.L()
	l.Debug().Str(pkglog.FieldSessionID, client.id).Msg("client unregistered")
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll closes every client and waits until each one has run its
// disconnect cleanup, or ctx expires.
func (h *Hub) CloseAll(ctx context.Context) error {
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		return nil
	}
	h.closing = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	if len(clients) == 0 {
		close(h.drained)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}

	select {
	case <-h.drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
