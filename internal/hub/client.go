package hub

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"hearth/internal/logging"
	"hearth/internal/user"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

var clientIDCounter atomic.Uint64

// Client binds one websocket connection to one resolved identity. The sender
// display fields are snapshotted at handshake time and stamped onto outgoing
// chat messages.
type Client struct {
	id     uint64
	userID uuid.UUID
	name   string
	avatar string

	hub  *Hub
	conn *websocket.Conn
	send chan OutboundMessage
	done chan struct{}
}

func newClient(h *Hub, conn *websocket.Conn, u *user.User) *Client {
	return &Client{
		id:     clientIDCounter.Add(1),
		userID: u.ID,
		name:   u.DisplayName,
		avatar: u.AvatarURL,
		hub:    h,
		conn:   conn,
		send:   make(chan OutboundMessage, sendBuffer),
		done:   make(chan struct{}),
	}
}

// trySend queues a message without blocking. A full buffer means the peer is
// too slow to keep up; the message is dropped for this connection only.
func (c *Client) trySend(msg OutboundMessage) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// readPump reads inbound frames and hands them to the hub dispatcher. Events
// from one connection are dispatched to completion in arrival order.
func (c *Client) readPump() {
	defer func() {
		c.hub.disconnect(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logging.Warn().Err(err).Str("user_id", c.userID.String()).Msg("unexpected websocket close")
			}
			return
		}
		c.hub.dispatch(c, raw)
	}
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) start() {
	go c.writePump()
	go c.readPump()
}
