package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"planning-poker/domain/event"
	"planning-poker/errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one websocket connection. It is the event sink of its session:
// Consume only queues the frame, the write pump owns the socket writes.
type Client struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	limiter   *rate.Limiter
	log       *slog.Logger
}

func newClient(log *slog.Logger, id string, conn *websocket.Conn, sendBuffer int, limiter *rate.Limiter) *Client {
	return &Client{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		closed:  make(chan struct{}),
		limiter: limiter,
		log:     log.With("connection", id),
	}
}

func (c *Client) ID() string { return c.id }

// Consume never blocks. A client that cannot keep up is disconnected, the
// room goes on without it.
func (c *Client) Consume(_ context.Context, e event.DomainEvent) error {
	payload, err := json.Marshal(event.NewEnvelope(e))
	if err != nil {
		return err
	}
	select {
	case <-c.closed:
		return errors.ErrConnectionClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		c.log.Warn("Send buffer full, closing connection", "event", e.EventName())
		c.Close()
		return errors.ErrSlowConsumer
	}
}

// Close is idempotent. Closing the socket ends the read pump, which then
// runs the disconnect of the session.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}

// readPump hands every text frame to onMessage, in order, until the socket
// fails. Frames over the rate limit are answered with an error and dropped.
func (c *Client) readPump(readLimit int64, onMessage func(raw []byte), onRejected func()) {
	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn("Websocket read error", "error", err)
			} else {
				c.log.Debug("Websocket closed", "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if c.limiter != nil && !c.limiter.Allow() {
			onRejected()
			_ = c.Consume(context.Background(), event.Error{Message: errors.Public(errors.ErrTooManyRequests)})
			continue
		}
		onMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.closed:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("Failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Failed to send ping", "error", err)
				return
			}
		}
	}
}
