package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/BelikovArtem/voteroom/internal/event"
	"github.com/BelikovArtem/voteroom/internal/hub"
	"github.com/BelikovArtem/voteroom/internal/types"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Capacity of the outbound buffer of each connection.
	sendBufferSize = 192
)

var (
	ErrClosed         = errors.New("connection is closed")
	ErrSendBufferFull = errors.New("send buffer is full")
)

/*
client manages the connection lifecycle and provides methods for reading,
writing and handling WebSocket messages.

The reason for the send channel is that events must be written sequentially,
since the Gorilla WebSocket library allows only one concurrent writer to a
connection at a time.  The channel is never closed: the done channel signals
the end of the connection instead, so Send is safe to call at any time.
*/
type client struct {
	id   string
	hub  Hub
	conn *websocket.Conn
	// send receives raw events so a broadcast is encoded only once.
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	limiter   *rate.Limiter
	pongWait  time.Duration
}

/*
newClient creates a new client and sets the WebSocket connection properties.
*/
func newClient(id string, h Hub, conn *websocket.Conn, cfg Config) *client {
	c := &client{
		id:       id,
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		limiter:  rate.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		pongWait: cfg.PongWait,
	}

	if conn != nil {
		c.conn.SetReadLimit(cfg.MaxMessageSize)
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		})
	}

	return c
}

func (c *client) ID() string {
	return c.id
}

/*
Send queues the event without blocking.  A client which cannot keep up is
closed rather than slowing the hub down.
*/
func (c *client) Send(raw []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- raw:
		return nil
	default:
		log.Warn().Str("client", c.id).Msg("send buffer is full, closing connection")
		c.Close()
		return ErrSendBufferFull
	}
}

// Close signals the write pump to close the connection.  Safe to call twice.
func (c *client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

/*
read reads events from the connection sequentially (one at a time) and forwards
them to the hub.  Events over the rate limit are answered with an error and
dropped.  If the connection cannot be read, it is unregistered.
*/
func (c *client) read() {
	defer c.cleanup()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("client", c.id).Msg("connection closed")
			}
			return
		}

		// Malformed events count against the limit too.
		var e event.ClientEvent
		decodeErr := json.Unmarshal(raw, &e)

		if !c.limiter.Allow() {
			c.reject(e.Action, hub.CodeRateLimited, "too many events")
			continue
		}
		if decodeErr != nil {
			c.reject("", hub.CodeMalformedPayload, "event must be a JSON object")
			continue
		}

		e.ClientId = c.id
		c.hub.Forward(e)
	}
}

/*
write takes the events from the send channel and writes them to the connection
sequentially (one at a time).

Automatically sends ping messages to maintain a heartbeat.
*/
func (c *client) write() {
	// Must be less than pongWait.
	pingTicker := time.NewTicker(c.pongWait * 9 / 10)
	defer func() {
		pingTicker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case raw := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				c.Close()
				return
			}

		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *client) reject(a event.Action, code, msg string) {
	c.Send(event.Encode(event.Error, types.Error{
		Action:  string(a),
		Code:    code,
		Message: msg,
	}))
}

/*
cleanup stops the write pump and unregisters the client from the hub.
*/
func (c *client) cleanup() {
	c.Close()
	c.conn.Close()
	c.hub.Unregister(c)
}
