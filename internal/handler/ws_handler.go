package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Shepherdphiri/z-radio/internal/domain"
	"github.com/Shepherdphiri/z-radio/internal/hub"
	"github.com/Shepherdphiri/z-radio/internal/relay"
	pkglog "github.com/Shepherdphiri/z-radio/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // connections are anonymous; any origin may listen
	},
}

// WSHandler handles WebSocket connections.
type WSHandler struct {
	hub   *hub.Hub
	relay *relay.Relay
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(h *hub.Hub, r *relay.Relay) *WSHandler {
	return &WSHandler{
		hub:   h,
		relay: r,
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", func(c *gin.Context) {
		h.HandleWebSocket(c.Writer, c.Request)
	})
}

// HandleWebSocket upgrades the request and runs the client's pumps.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	l := pkglog.Ctx(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	session := domain.NewSession(uuid.New().String())
	client := hub.NewClient(h.hub, conn, session)

	// The connection outlives the request; keep its logger, drop its cancellation.
	ctx := pkglog.WithSession(pkglog.WithLogger(context.Background(), l), session.ID)

	if !h.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	client.SetDisconnectHandler(func(c *hub.Client) {
		h.relay.Disconnect(ctx, c)
	})

	h.relay.Connect(ctx, client)

	go client.WritePump()
	go client.ReadPump(func(c *hub.Client, message []byte) {
		h.relay.HandleMessage(ctx, c, message)
	})

	cl := pkglog.Ctx(ctx)
	cl.Info().Msg("client connected")
}
