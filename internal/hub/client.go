package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Shepherdphiri/z-radio/internal/domain"
	pkglog "github.com/Shepherdphiri/z-radio/pkg/log"
)

// DisconnectHandler is called once when a client's read loop ends.
type DisconnectHandler func(*Client)

// MessageHandler handles one inbound frame.
type MessageHandler func(*Client, []byte)

// Client represents a connected WebSocket client.
type Client struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	session *domain.Session

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	disconnectHandler DisconnectHandler
}

// NewClient wraps conn. The session id doubles as the client id.
func NewClient(h *Hub, conn *websocket.Conn, session *domain.Session) *Client {
	size := h.config.SendBuffer
	if size <= 0 {
		size = 256
	}
	return &Client{
		id:      session.ID,
		hub:     h,
		conn:    conn,
		session: session,
		send:    make(chan []byte, size),
		done:    make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) Session() *domain.Session { return c.session }

// SetDisconnectHandler sets the handler to be called on disconnect.
func (c *Client) SetDisconnectHandler(handler DisconnectHandler) {
	c.disconnectHandler = handler
}

// Send queues msg without blocking. A client whose queue is full is
// disconnected and Send reports false.
func (c *Client) Send(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		c.abort()
		return false
	}
}

// Close asks the write loop to send a close frame and shut the connection.
func (c *Client) Close() {
	c.shutdown()
}

func (c *Client) shutdown() bool {
	first := false
	c.closeOnce.Do(func() {
		close(c.done)
		first = true
	})
	return first
}

// abort drops a slow consumer immediately.
func (c *Client) abort() {
	if !c.shutdown() {
		return
	}
	l := pkglog.L()
	l.Warn().Str(pkglog.FieldSessionID, c.id).Msg("send queue full, disconnecting slow consumer")
	if c.hub.metrics != nil {
		c.hub.metrics.SlowConsumerDisconnects.Inc()
	}
	c.conn.Close()
}

// ReadPump pumps messages from the WebSocket connection to handler.
// Returning runs the disconnect handler, then unregisters the client.
func (c *Client) ReadPump(handler MessageHandler) {
	defer func() {
		if c.disconnectHandler != nil {
			c.disconnectHandler(c)
		}
		c.hub.Unregister(c)
		c.Close()
	}()

	cfg := c.hub.config
	if cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(cfg.MaxMessageSize)
	}
	c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				l := pkglog.L()
				l.Warn().Err(err).Str(pkglog.FieldSessionID, c.id).Msg("websocket read error")
			}
			return
		}

		c.session.Touch()
		c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		handler(c, message)
	}
}

// WritePump pumps queued messages to the WebSocket connection.
func (c *Client) WritePump() {
	cfg := c.hub.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.shutdown()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}

		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(cfg.WriteWait))
			return
		}
	}
}
