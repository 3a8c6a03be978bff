package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Shepherdphiri/z-radio/internal/domain"
	"github.com/Shepherdphiri/z-radio/internal/hub"
	"github.com/Shepherdphiri/z-radio/internal/membership"
	"github.com/Shepherdphiri/z-radio/internal/metrics"
	"github.com/Shepherdphiri/z-radio/internal/registry"
	"github.com/Shepherdphiri/z-radio/internal/relay"
	"github.com/Shepherdphiri/z-radio/internal/service"
	"github.com/Shepherdphiri/z-radio/pkg/response"
)

type testEnv struct {
	engine *gin.Engine
	server *httptest.Server
	hub    *hub.Hub
	relay  *relay.Relay
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := registry.NewMemoryStore()
	m := metrics.New()
	r := relay.New(membership.NewTable(), store, registry.SyncCountWriter{Store: store}, nil, m)
	h := hub.NewHub(hub.Config{
		PingInterval:   time.Second,
		PongWait:       5 * time.Second,
		WriteWait:      time.Second,
		MaxMessageSize: 65536,
		SendBuffer:     64,
	}, m)
	svc := service.NewBroadcastService(store, r, nil, "good")

	engine := gin.New()
	NewHandler(svc).RegisterRoutes(engine)
	NewWSHandler(h, r).RegisterRoutes(engine)

	srv := httptest.NewServer(engine)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		h.CloseAll(ctx)
		srv.Close()
	})
	return &testEnv{engine: engine, server: srv, hub: h, relay: r}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, response.Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.engine.ServeHTTP(rr, req)

	var resp response.Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, rr.Body.String(), err)
	}
	return rr.Code, resp
}

func decodeData(t *testing.T, resp response.Response, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) dial(t *testing.T) (*websocket.Conn, string) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	var hello domain.ConnectedMessage
	readJSON(t, conn, &hello)
	if hello.Type != domain.MsgTypeConnected || hello.SessionID == "" {
		t.Fatalf("unexpected greeting: %+v", hello)
	}
	return conn, hello.SessionID
}

func readRaw(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func readJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(readRaw(t, conn), v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func readUpdate(t *testing.T, conn *websocket.Conn) domain.RoomUpdateMessage {
	t.Helper()
	var msg domain.RoomUpdateMessage
	readJSON(t, conn, &msg)
	if msg.Type != domain.MsgTypeRoomUpdate {
		t.Fatalf("expected room-update, got %+v", msg)
	}
	return msg
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestEndToEnd_BroadcastLifecycle(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodPost, "/api/v1/broadcasts", `{"roomId":"abc123","title":"Morning Show","audioQuality":"high"}`)
	if code != http.StatusCreated || !resp.Success {
		t.Fatalf("create: %d %+v", code, resp)
	}
	var created domain.Broadcast
	decodeData(t, resp, &created)

	// Broadcaster joins.
	bc, _ := env.dial(t)
	send(t, bc, `{"type":"join-room","roomId":"abc123"}`)
	if got := readUpdate(t, bc); got.ListenerCount != 1 || !got.IsActive {
		t.Fatalf("broadcaster join: %+v", got)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/stats", "")
	var stats domain.Stats
	decodeData(t, resp, &stats)
	if stats.ActiveStreams != 1 || stats.TotalListeners != 1 {
		t.Fatalf("stats after broadcaster join: %+v", stats)
	}

	// Listener joins.
	ln, _ := env.dial(t)
	send(t, ln, `{"type":"join-room","roomId":"abc123"}`)
	if got := readUpdate(t, ln); got.ListenerCount != 2 {
		t.Fatalf("listener saw %d", got.ListenerCount)
	}
	if got := readUpdate(t, bc); got.ListenerCount != 2 {
		t.Fatalf("broadcaster saw %d", got.ListenerCount)
	}

	// Offer is relayed verbatim.
	offer := `{"type":"offer","roomId":"abc123","data":{"type":"offer","sdp":"v=0\r\no=- 1 2 IN IP4 127.0.0.1\r\n"}}`
	send(t, bc, offer)
	if got := string(readRaw(t, ln)); got != offer {
		t.Fatalf("relayed offer differs:\n got %s\nwant %s", got, offer)
	}

	// Listener vanishes without a close frame.
	ln.UnderlyingConn().Close()
	if got := readUpdate(t, bc); got.ListenerCount != 1 {
		t.Fatalf("after drop broadcaster saw %d", got.ListenerCount)
	}

	// Stop.
	code, resp = env.do(t, http.MethodPatch, "/api/v1/broadcasts/"+created.ID, `{"isActive":false}`)
	if code != http.StatusOK {
		t.Fatalf("stop: %d %+v", code, resp)
	}
	if got := readUpdate(t, bc); got.IsActive {
		t.Fatalf("stop not announced: %+v", got)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/stats", "")
	decodeData(t, resp, &stats)
	if stats.ActiveStreams != 0 {
		t.Fatalf("stopped broadcast counted: %+v", stats)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/broadcasts/abc123", "")
	var got domain.Broadcast
	decodeData(t, resp, &got)
	if got.IsActive || got.ListenerCount != 1 {
		t.Fatalf("final record: %+v", got)
	}
}

func TestWebSocket_AnomaliesGetNoReply(t *testing.T) {
	env := newTestEnv(t)
	conn, _ := env.dial(t)

	send(t, conn, `{"type":"teleport"}`)
	send(t, conn, `not json`)
	send(t, conn, `{"type":"offer","data":{}}`)
	send(t, conn, `{"type":"ping"}`)

	var pong domain.PongMessage
	readJSON(t, conn, &pong)
	if pong.Type != domain.MsgTypePong {
		t.Fatalf("expected pong first, got %+v", pong)
	}
}

func TestWebSocket_CloseAllRunsCleanup(t *testing.T) {
	env := newTestEnv(t)
	a, _ := env.dial(t)
	b, _ := env.dial(t)
	send(t, a, `{"type":"join-room","roomId":"room"}`)
	readUpdate(t, a)
	send(t, b, `{"type":"join-room","roomId":"room"}`)
	readUpdate(t, b)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := env.hub.CloseAll(ctx); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	if env.hub.Count() != 0 || env.relay.RoomSize("room") != 0 {
		t.Fatalf("leftovers: clients=%d room=%d", env.hub.Count(), env.relay.RoomSize("room"))
	}
}

func TestREST_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"missing title", http.MethodPost, "/api/v1/broadcasts", `{"roomId":"x"}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad quality", http.MethodPost, "/api/v1/broadcasts", `{"title":"t","audioQuality":"ultra"}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad json", http.MethodPost, "/api/v1/broadcasts", `{`, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown room", http.MethodGet, "/api/v1/broadcasts/nope", "", http.StatusNotFound, "NOT_FOUND"},
		{"patch unknown", http.MethodPatch, "/api/v1/broadcasts/nope", `{"title":"t"}`, http.StatusNotFound, "NOT_FOUND"},
		{"patch empty", http.MethodPatch, "/api/v1/broadcasts/nope", `{}`, http.StatusBadRequest, "BAD_REQUEST"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, resp := env.do(t, tc.method, tc.path, tc.body)
			if code != tc.status {
				t.Fatalf("status %d, want %d", code, tc.status)
			}
			if resp.Success || resp.Error == nil || resp.Error.Code != tc.code {
				t.Fatalf("unexpected envelope: %+v", resp)
			}
		})
	}
}

func TestREST_DuplicateAndList(t *testing.T) {
	env := newTestEnv(t)

	body := `{"roomId":"dup","title":"One"}`
	if code, _ := env.do(t, http.MethodPost, "/api/v1/broadcasts", body); code != http.StatusCreated {
		t.Fatalf("first create: %d", code)
	}
	code, resp := env.do(t, http.MethodPost, "/api/v1/broadcasts", body)
	if code != http.StatusConflict || resp.Error.Code != "CONFLICT" {
		t.Fatalf("duplicate: %d %+v", code, resp)
	}

	code, resp = env.do(t, http.MethodPost, "/api/v1/broadcasts", `{"title":"Generated"}`)
	if code != http.StatusCreated {
		t.Fatalf("generated create: %d", code)
	}
	var generated domain.Broadcast
	decodeData(t, resp, &generated)
	if generated.RoomID == "" || generated.AudioQuality != domain.AudioQualityHigh {
		t.Fatalf("generated broadcast: %+v", generated)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/broadcasts", "")
	var list []domain.Broadcast
	decodeData(t, resp, &list)
	if len(list) != 2 {
		t.Fatalf("expected 2 active broadcasts, got %d", len(list))
	}
}
