package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/whatease/backend/internal/service/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

var (
	errClientClosed = errors.New("client closed")
	errBufferFull   = errors.New("send buffer full")
)

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// client adapts one websocket connection to the session.Channel contract.
// Frames are queued on a buffered channel and written by a single write
// pump; Push never blocks.
type client struct {
	conn      *websocket.Conn
	send      chan any
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan any, sendBuffer),
		done: make(chan struct{}),
	}
}

// Push queues env for delivery. A closed client or a full buffer reports an
// error so the registry can drop the channel.
func (c *client) Push(env session.Envelope) error {
	return c.enqueue(env)
}

func (c *client) sendError(message string) {
	// Best effort; a client too far behind to receive errors is about to
	// be dropped anyway.
	_ = c.enqueue(errorFrame{Type: "error", Error: message})
}

func (c *client) enqueue(v any) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- v:
		return nil
	default:
		return errBufferFull
	}
}

// writePump serializes all writes to the connection and keeps it alive with
// periodic pings. It exits when the client closes or a write fails.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		case v := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(v); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close shuts the client down exactly once. The underlying connection close
// also unblocks the read loop.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
