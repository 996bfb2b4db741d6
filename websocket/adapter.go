package websocket

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay-server/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// Conn adapts a gorilla/websocket connection to domain.Connection: a read
// pump feeding the message handler and a write pump draining the send
// buffer, with ping/pong keepalive.
type Conn struct {
	id        string
	ws        *websocket.Conn
	send      chan []byte
	handler   domain.MessageHandler
	readLimit int64
}

func NewConn(id string, ws *websocket.Conn, handler domain.MessageHandler, readLimit int64) *Conn {
	return &Conn{
		id:        id,
		ws:        ws,
		send:      make(chan []byte, sendBufferSize),
		handler:   handler,
		readLimit: readLimit,
	}
}

func (c *Conn) ID() string { return c.id }

// Send queues a frame without blocking. A full buffer means the client is
// not draining; report it so the broker can evict the connection.
func (c *Conn) Send(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

func (c *Conn) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Conn) readPump() {
	defer func() {
		c.handler.Disconnected(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(c.readLimit)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("read error", "clientId", c.id, "error", err)
			}
			return
		}

		c.handler.Handle(c, data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
