/*
Package ws adapts WebSocket connections to the hub.  Each connection gets an
id, a read pump forwarding client events and a write pump draining its
outbound buffer.
*/
package ws

import (
	"net/http"
	"slices"
	"time"

	"github.com/BelikovArtem/voteroom/internal/event"
	"github.com/BelikovArtem/voteroom/internal/hub"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Hub is the part of [hub.Hub] the transport talks to.
type Hub interface {
	Register(c hub.Conn) error
	Unregister(c hub.Conn)
	Forward(e event.ClientEvent)
}

// Config holds the connection parameters.
type Config struct {
	// Origins allowed to open a connection.  "*" allows any origin.
	AllowedOrigins []string
	// Maximum message size allowed from peer.
	MaxMessageSize int64
	// Time allowed to read the next pong message from the peer.
	PongWait time.Duration
	// Inbound events per second and burst per connection.
	RateLimit rate.Limit
	RateBurst int
}

/*
Handler upgrades HTTP requests to WebSocket connections and registers them in
the hub.  It is safe for concurrent use.
*/
type Handler struct {
	hub      Hub
	cfg      Config
	upgrader websocket.Upgrader
}

func NewHandler(h Hub, cfg Config) *Handler {
	return &Handler{
		hub: h,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if slices.Contains(allowed, "*") {
			return true
		}
		origin := r.Header.Get("Origin")
		// Non-browser clients don't send an origin.
		return origin == "" || slices.Contains(allowed, origin)
	}
}

func (h *Handler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		// The upgrader has already replied with an HTTP error.
		log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("cannot upgrade connection")
		return
	}

	c := newClient(uuid.NewString(), h.hub, conn, h.cfg)
	if err := h.hub.Register(c); err != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server is shutting down"))
		conn.Close()
		return
	}

	go c.write()
	go c.read()
}
