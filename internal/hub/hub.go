/*
Package hub coordinates connections, rooms and ballots.

All shared state is owned by a single goroutine started with [Hub.Run].
Connections, disconnections, client events and read requests all arrive
through channels and are handled sequentially (one at a time), so a command
never observes a room mid-mutation and no locks are needed.
*/
package hub

import (
	"context"
	"time"

	"github.com/BelikovArtem/voteroom/internal/event"
	"github.com/BelikovArtem/voteroom/internal/identity"
	"github.com/BelikovArtem/voteroom/internal/room"
	"github.com/BelikovArtem/voteroom/internal/types"

	"github.com/rs/zerolog/log"
)

/*
Conn is a live client connection as seen by the hub.  Send must not block: the
hub writes to every member of a room from its routing goroutine.
*/
type Conn interface {
	ID() string
	Send(raw []byte) error
	// Close terminates the connection.  The transport still unregisters it
	// afterwards.
	Close()
}

/*
Mirror receives a copy of every room and global broadcast.  Publish must not
block.
*/
type Mirror interface {
	Publish(routingKey string, raw []byte)
}

type noMirror struct{}

func (noMirror) Publish(string, []byte) {}

// dropCounter is implemented by mirrors which may discard events.
type dropCounter interface {
	Dropped() uint64
}

type Hub struct {
	identities *identity.Registry
	rooms      *room.Registry
	subs       *subman
	// Room id to the principals allowed to join it.  See [Hub.grant].
	grants     map[string]map[string]struct{}
	mirror     Mirror
	register   chan Conn
	unregister chan Conn
	bus        chan event.ClientEvent
	requests   chan func()
	// Closed when Run returns.
	done chan struct{}
	now  func() time.Time
}

/*
New creates a hub.  The mirror may be nil.  The hub does nothing until Run is
called.
*/
func New(m Mirror) *Hub {
	if m == nil {
		m = noMirror{}
	}

	return &Hub{
		identities: identity.NewRegistry(),
		rooms:      room.NewRegistry(),
		subs:       newSubman(),
		grants:     make(map[string]map[string]struct{}),
		mirror:     m,
		register:   make(chan Conn),
		unregister: make(chan Conn),
		bus:        make(chan event.ClientEvent),
		requests:   make(chan func()),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

/*
Run consequentially (one at a time) receives incoming events from the hub
channels and forwards them to the corresponding handlers.  Returns when the
context is cancelled, after closing every live connection.
*/
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.handleRegister(c)

		case c := <-h.unregister:
			h.handleUnregister(c)

		case e := <-h.bus:
			h.route(e)

		case fn := <-h.requests:
			fn()

		case <-ctx.Done():
			for _, c := range h.subs.conns {
				c.Close()
			}
			log.Info().Int("clients", h.subs.clients()).Msg("hub stopped")
			return
		}
	}
}

// Register hands a new connection to the hub.
func (h *Hub) Register(c Conn) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrStopped
	}
}

// Unregister notifies the hub that the connection is closed.
func (h *Hub) Unregister(c Conn) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

/*
Forward passes a client event to the hub.  ClientId must be set by the
transport.
*/
func (h *Hub) Forward(e event.ClientEvent) {
	select {
	case h.bus <- e:
	case <-h.done:
	}
}

/*
do runs fn on the routing goroutine and waits for it to finish.  The context
only bounds the wait for the hub to accept the request: once accepted, fn
always runs to completion before do returns.
*/
func (h *Hub) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	req := func() {
		fn()
		close(finished)
	}

	select {
	case h.requests <- req:
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// Run calls req before receiving anything else.
	<-finished
	return nil
}

// Stats returns the number of live rooms and connections.
func (h *Hub) Stats(ctx context.Context) (types.Stats, error) {
	var s types.Stats
	err := h.do(ctx, func() {
		s = types.Stats{
			Rooms:   h.rooms.Len(),
			Clients: h.identities.Len(),
		}
		if d, ok := h.mirror.(dropCounter); ok {
			s.MirrorDropped = d.Dropped()
		}
	})
	return s, err
}

// Rooms returns the same ordered room summaries as the room-list event.
func (h *Hub) Rooms(ctx context.Context) ([]types.RoomSummary, error) {
	var list []types.RoomSummary
	err := h.do(ctx, func() {
		list = h.roomList()
	})
	return list, err
}

/*
route decodes the event and dispatches it to the handler of the command.
Events from connections which are already gone have no effect.
*/
func (h *Hub) route(e event.ClientEvent) {
	if _, live := h.subs.conn(e.ClientId); !live {
		log.Debug().Str("client", e.ClientId).Str("action", string(e.Action)).
			Msg("event from a closed connection")
		return
	}

	cmd, err := event.Decode(e)
	if err != nil {
		h.fail(e.ClientId, e.Action, err)
		return
	}

	id := e.ClientId
	switch c := cmd.(type) {
	case event.LobbyCmd:
		h.handleLobby(id)
	case event.GetRoomListCmd:
		h.handleGetRoomList(id)
	case event.SetNicknameCmd:
		h.handleSetNickname(id, c)
	case event.CreateRoomCmd:
		h.handleCreateRoom(id, c)
	case event.JoinRequestRoomCmd:
		h.handleJoinRequestRoom(id, c)
	case event.JoinRoomCmd:
		h.handleJoinRoom(id, c)
	case event.GetRoomInfoCmd:
		h.handleGetRoomInfo(id, c)
	case event.SetRoomSubjectCmd:
		h.handleSetRoomSubject(id, c)
	case event.SetRoomRulesCmd:
		h.handleSetRoomRules(id, c)
	case event.VoteCmd:
		h.handleVote(id, c)
	case event.VoteStartCmd:
		h.handleVoteStart(id, c)
	case event.VoteAddOptionCmd:
		h.handleVoteAddOption(id, c)
	case event.RegisterClientCmd:
		h.handleRegisterClient(id, c)
	}
}

// send writes the event to a single connection.
func (h *Hub) send(id string, a event.Action, payload any) {
	c, exists := h.subs.conn(id)
	if !exists {
		return
	}
	if err := c.Send(event.Encode(a, payload)); err != nil {
		log.Debug().Err(err).Str("client", id).Str("action", string(a)).
			Msg("cannot send event")
	}
}

// broadcastRoom writes the event to every member of the room.
func (h *Hub) broadcastRoom(roomId string, a event.Action, payload any) {
	raw := event.Encode(a, payload)
	for _, id := range h.subs.byRoom[roomId] {
		if err := h.subs.conns[id].Send(raw); err != nil {
			log.Debug().Err(err).Str("client", id).Str("room", roomId).
				Msg("cannot send event")
		}
	}
	h.mirror.Publish("room."+roomId+"."+string(a), raw)
}

// broadcastAll writes the event to every live connection.
func (h *Hub) broadcastAll(a event.Action, payload any) {
	raw := event.Encode(a, payload)
	for id, c := range h.subs.conns {
		if err := c.Send(raw); err != nil {
			log.Debug().Err(err).Str("client", id).Msg("cannot send event")
		}
	}
	h.mirror.Publish("global."+string(a), raw)
}

/*
fail sends exactly one error event to the requester.  Errors of the join flow
are reported with a dedicated event the clients render as a form error.
*/
func (h *Hub) fail(id string, a event.Action, err error) {
	code := Code(err)
	log.Debug().Err(err).Str("client", id).Str("action", string(a)).
		Str("code", code).Msg("command rejected")

	if a == event.JoinRequestRoom || a == event.JoinRoom {
		if code == CodeRoomNotFound || code == CodeWrongPassword {
			h.send(id, event.JoinRoomError, types.JoinRoomError{Reason: code})
			return
		}
	}

	h.send(id, event.Error, types.Error{
		Action:  string(a),
		Code:    code,
		Message: err.Error(),
	})
}

func (h *Hub) user(id string) types.User {
	return types.User{Id: id, Nickname: h.identities.Nickname(id)}
}

// users returns the room roster in join order.
func (h *Hub) users(roomId string) []types.User {
	members := h.subs.byRoom[roomId]
	users := make([]types.User, len(members))
	for i, id := range members {
		users[i] = h.user(id)
	}
	return users
}

func (h *Hub) roomList() []types.RoomSummary {
	return h.rooms.List(h.subs.count)
}
