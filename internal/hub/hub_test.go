package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Shepherdphiri/z-radio/internal/domain"
	"github.com/Shepherdphiri/z-radio/internal/membership"
	"github.com/Shepherdphiri/z-radio/internal/metrics"
	"github.com/Shepherdphiri/z-radio/internal/registry"
	"github.com/Shepherdphiri/z-radio/internal/relay"
)

const testRoom = "room1"

type harness struct {
	hub     *Hub
	relay   *relay.Relay
	metrics *metrics.Metrics
	server  *httptest.Server

	clients chan *Client
	gone    chan string
}

// newHarness serves websockets whose clients join testRoom on arrival. The
// write loop only runs when startWriter is set.
func newHarness(t *testing.T, cfg Config, startWriter bool) *harness {
	t.Helper()

	m := metrics.New()
	store := registry.NewMemoryStore()
	h := &harness{
		hub:     NewHub(cfg, m),
		relay:   relay.New(membership.NewTable(), store, registry.SyncCountWriter{Store: store}, nil, m),
		metrics: m,
		clients: make(chan *Client, 1),
		gone:    make(chan string, 1),
	}

	upgrader := websocket.Upgrader{}
	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ctx := context.Background()
		c := NewClient(h.hub, conn, domain.NewSession(uuid.New().String()))
		h.hub.Register(c)
		c.SetDisconnectHandler(func(c *Client) {
			h.relay.Disconnect(ctx, c)
			h.gone <- c.ID()
		})

		h.relay.HandleMessage(ctx, c, []byte(`{"type":"join-room","roomId":"`+testRoom+`"}`))
		if startWriter {
			go c.WritePump()
		}
		go c.ReadPump(func(c *Client, msg []byte) {
			h.relay.HandleMessage(ctx, c, msg)
		})
		h.clients <- c
	}))
	t.Cleanup(h.server.Close)
	return h
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (h *harness) waitGone(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case <-h.gone:
	case <-time.After(within):
		t.Fatal("disconnect cleanup did not run")
	}
}

func waitFor(t *testing.T, within time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(within)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestClient_FullSendQueueDisconnectsSlowConsumer(t *testing.T) {
	h := newHarness(t, Config{
		PingInterval: time.Minute,
		PongWait:     time.Minute,
		WriteWait:    time.Second,
		SendBuffer:   1,
	}, false)
	h.dial(t)
	c := <-h.clients

	if size := h.relay.RoomSize(testRoom); size != 1 {
		t.Fatalf("room size %d, want 1", size)
	}

	// The join's room-update holds the only slot; nothing drains it.
	if c.Send([]byte(`{"type":"pong"}`)) {
		t.Fatal("Send on a full queue reported success")
	}
	h.waitGone(t, 2*time.Second)

	if size := h.relay.RoomSize(testRoom); size != 0 {
		t.Fatalf("room size %d after slow consumer dropped", size)
	}
	waitFor(t, time.Second, func() bool { return h.hub.Count() == 0 })
	if v := testutil.ToFloat64(h.metrics.SlowConsumerDisconnects); v != 1 {
		t.Fatalf("slow_consumer_disconnects_total=%v, want 1", v)
	}
	if c.Send([]byte(`{"type":"pong"}`)) {
		t.Fatal("Send after disconnect reported success")
	}
}

func TestClient_SilentPeerTimesOut(t *testing.T) {
	h := newHarness(t, Config{
		PingInterval: 50 * time.Millisecond,
		PongWait:     200 * time.Millisecond,
		WriteWait:    time.Second,
		SendBuffer:   8,
	}, true)

	conn := h.dial(t)
	// Pings are read and swallowed, so no pong ever goes back.
	conn.SetPingHandler(func(string) error { return nil })
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	<-h.clients

	h.waitGone(t, 3*time.Second)
	if size := h.relay.RoomSize(testRoom); size != 0 {
		t.Fatalf("room size %d after pong timeout", size)
	}
	waitFor(t, time.Second, func() bool { return h.hub.Count() == 0 })
	if v := testutil.ToFloat64(h.metrics.SlowConsumerDisconnects); v != 0 {
		t.Fatalf("timeout counted as slow consumer: %v", v)
	}
}

func TestClient_AnsweringPeerStaysConnected(t *testing.T) {
	h := newHarness(t, Config{
		PingInterval: 50 * time.Millisecond,
		PongWait:     200 * time.Millisecond,
		WriteWait:    time.Second,
		SendBuffer:   8,
	}, true)

	conn := h.dial(t)
	// The default ping handler answers with a pong while this loop reads.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	<-h.clients

	select {
	case <-h.gone:
		t.Fatal("peer answering pings was disconnected")
	case <-time.After(600 * time.Millisecond):
	}
	if size := h.relay.RoomSize(testRoom); size != 1 {
		t.Fatalf("room size %d, want 1", size)
	}
}

func TestHub_RegisterAfterCloseAllIsRefused(t *testing.T) {
	h := NewHub(Config{}, nil)
	if err := h.CloseAll(context.Background()); err != nil {
		t.Fatalf("CloseAll on empty hub: %v", err)
	}

	c := &Client{id: "late", hub: h, send: make(chan []byte, 1), done: make(chan struct{})}
	if h.Register(c) {
		t.Fatal("Register accepted a client during shutdown")
	}
	if h.Count() != 0 {
		t.Fatalf("count %d", h.Count())
	}
}
