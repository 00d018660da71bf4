package hub

import (
	"github.com/BelikovArtem/voteroom/internal/event"
	"github.com/BelikovArtem/voteroom/internal/room"
	"github.com/BelikovArtem/voteroom/internal/types"
	"github.com/BelikovArtem/voteroom/internal/vote"

	"github.com/rs/zerolog/log"
)

const maxClientTokenLength = 128

/*
handleRegister registers a new connection with a default identity and greets
it with its id.
*/
func (h *Hub) handleRegister(c Conn) {
	h.subs.addClient(c)
	id := h.identities.Register(c.ID())

	h.send(c.ID(), event.Welcome, types.Welcome{
		User: types.User{Id: id.ConnectionId, Nickname: id.Nickname},
	})

	log.Info().Str("client", c.ID()).Int("clients", h.subs.clients()).
		Msg("client registered")
}

/*
handleUnregister tears down a closed connection.  Connections which were
already evicted by a reconnection are ignored.
*/
func (h *Hub) handleUnregister(c Conn) {
	if live, exists := h.subs.conn(c.ID()); !exists || live != c {
		return
	}

	h.depart(c.ID())
	h.broadcastAll(event.RoomList, h.roomList())

	log.Info().Str("client", c.ID()).Int("clients", h.subs.clients()).
		Msg("client unregistered")
}

/*
depart runs the leave sequence for every room of the connection and forgets
it.  Grants keyed by the connection id die with it.
*/
func (h *Hub) depart(id string) {
	for _, roomId := range h.subs.rooms(id) {
		h.leave(id, roomId)
	}
	h.subs.removeClient(id)
	h.identities.Remove(id)

	for _, principals := range h.grants {
		delete(principals, id)
	}
}

/*
leave unsubscribes the connection from the room.  If the connection was the
admin, the earliest-joined remaining member becomes the new one.  If nobody is
left, the room is deleted instead.
*/
func (h *Hub) leave(id, roomId string) {
	if !h.subs.unsubscribe(id, roomId) {
		return
	}
	log.Info().Str("client", id).Str("room", roomId).Msg("client unsubscribed")

	rm, err := h.rooms.Find(roomId)
	if err != nil {
		return
	}

	if h.rooms.RemoveIfEmpty(roomId, h.subs.count(roomId)) {
		delete(h.grants, roomId)
		log.Info().Str("room", roomId).Msg("room removed")
		return
	}

	adminChanged := false
	if rm.Creator.Id == id {
		rm.Creator = h.user(h.subs.byRoom[roomId][0])
		adminChanged = true
		log.Info().Str("room", roomId).Str("from", id).Str("to", rm.Creator.Id).
			Msg("admin changed")
	}

	h.broadcastRoom(roomId, event.RoomUsers, types.RoomUsers{
		Users:        h.users(roomId),
		Creator:      rm.Creator,
		AdminChanged: adminChanged,
	})
}

// handleLobby moves the connection out of all its rooms.
func (h *Hub) handleLobby(id string) {
	for _, roomId := range h.subs.rooms(id) {
		h.leave(id, roomId)
	}
	h.broadcastAll(event.RoomList, h.roomList())
}

func (h *Hub) handleGetRoomList(id string) {
	h.send(id, event.RoomList, h.roomList())
}

/*
handleSetNickname echoes the new nickname to the sender and refreshes the
roster of every room the sender is in.
*/
func (h *Hub) handleSetNickname(id string, c event.SetNicknameCmd) {
	if err := h.identities.SetNickname(id, c.Nickname); err != nil {
		h.fail(id, event.SetNickname, err)
		return
	}
	h.send(id, event.Nickname, types.NicknamePayload{Nickname: c.Nickname})

	creatorRenamed := false
	for _, roomId := range h.subs.rooms(id) {
		rm, err := h.rooms.Find(roomId)
		if err != nil {
			continue
		}
		if rm.Creator.Id == id {
			rm.Creator.Nickname = c.Nickname
			creatorRenamed = true
		}
		h.broadcastRoom(roomId, event.RoomUsers, types.RoomUsers{
			Users:   h.users(roomId),
			Creator: rm.Creator,
		})
	}

	if creatorRenamed {
		h.broadcastAll(event.RoomList, h.roomList())
	}
}

/*
handleCreateRoom creates a room with the sender as its admin and only member.
*/
func (h *Hub) handleCreateRoom(id string, c event.CreateRoomCmd) {
	rm, err := h.rooms.Create(c.Name, c.Password, h.user(id))
	if err != nil {
		h.fail(id, event.CreateRoom, err)
		return
	}

	h.grant(id, rm.Id)
	h.subs.subscribe(id, rm.Id)

	log.Info().Str("client", id).Str("room", rm.Id).Msg("room created")

	h.send(id, event.JoinedRoom, types.JoinedRoom{RoomId: rm.Id})
	h.broadcastAll(event.RoomList, h.roomList())
}

/*
handleJoinRequestRoom checks the room password without joining.  On success the
sender is granted admission to the room.
*/
func (h *Hub) handleJoinRequestRoom(id string, c event.JoinRequestRoomCmd) {
	rm, err := h.rooms.TryJoin(c.RoomId, c.Password)
	if err != nil {
		h.fail(id, event.JoinRequestRoom, err)
		return
	}

	h.grant(id, rm.Id)
	h.send(id, event.JoinedRoom, types.JoinedRoom{RoomId: rm.Id})
}

/*
handleJoinRoom commits the membership.  Only connections holding a grant for
the room are admitted.  Joining a room twice resends the roster to the sender
only.
*/
func (h *Hub) handleJoinRoom(id string, c event.JoinRoomCmd) {
	if _, err := h.rooms.Find(c.RoomId); err != nil {
		h.fail(id, event.JoinRoom, err)
		return
	}

	if h.subs.isMember(id, c.RoomId) {
		h.send(id, event.JoinRoom, types.JoinRoom{
			User:  h.user(id),
			Users: h.users(c.RoomId),
		})
		return
	}

	if !h.granted(id, c.RoomId) {
		h.fail(id, event.JoinRoom, room.ErrWrongPassword)
		return
	}

	h.subs.subscribe(id, c.RoomId)
	log.Info().Str("client", id).Str("room", c.RoomId).Msg("client subscribed")

	h.broadcastRoom(c.RoomId, event.JoinRoom, types.JoinRoom{
		User:  h.user(id),
		Users: h.users(c.RoomId),
	})
	h.broadcastAll(event.RoomList, h.roomList())
}

func (h *Hub) handleGetRoomInfo(id string, c event.GetRoomInfoCmd) {
	rm, err := h.rooms.Find(c.RoomId)
	if err != nil {
		h.fail(id, event.GetRoomInfo, err)
		return
	}
	if !h.subs.isMember(id, rm.Id) {
		h.fail(id, event.GetRoomInfo, ErrNotMember)
		return
	}

	h.send(id, event.RoomInfo, types.RoomInfo{
		Room:  rm.Snapshot(h.now()),
		Users: h.users(rm.Id),
	})
}

func (h *Hub) handleSetRoomSubject(id string, c event.SetRoomSubjectCmd) {
	rm, err := h.adminRoom(id, c.RoomId)
	if rm == nil {
		h.failIf(id, event.SetRoomSubject, err)
		return
	}

	rm.Subject = c.Subject
	h.broadcastRoom(rm.Id, event.SetRoomSubject, types.RoomSubject{Subject: c.Subject})
}

/*
handleSetRoomRules replaces the rules.  A change of the vote type clears the
options and the round, which is signalled with the reset flag.
*/
func (h *Hub) handleSetRoomRules(id string, c event.SetRoomRulesCmd) {
	rm, err := h.adminRoom(id, c.RoomId)
	if rm == nil {
		h.failIf(id, event.SetRoomRules, err)
		return
	}

	wasMultiple := rm.Ballot.Rules().MultipleChoice
	reset, err := rm.Ballot.SetRules(c.Rules)
	if err != nil {
		h.fail(id, event.SetRoomRules, err)
		return
	}

	h.broadcastRoom(rm.Id, event.SetRoomRules, types.RoomRules{
		Rules: rm.Ballot.Rules(),
		Reset: reset,
	})

	// Ballots were narrowed to a single option.
	if !reset && wasMultiple && !c.Rules.MultipleChoice {
		h.broadcastRoom(rm.Id, event.Vote, types.Vote{
			Vote:  rm.Ballot.Serialize(),
			Tally: rm.Ballot.Tally(),
		})
	}
}

/*
handleVote replaces the sender's ballot and broadcasts the new vote state.
*/
func (h *Hub) handleVote(id string, c event.VoteCmd) {
	rm, err := h.memberRoom(id, c.RoomId)
	if rm == nil {
		h.failIf(id, event.Vote, err)
		return
	}

	applied, err := rm.Ballot.Cast(id, c.Options)
	if err != nil {
		h.fail(id, event.Vote, err)
		return
	}

	h.broadcastRoom(rm.Id, event.Vote, types.Vote{
		Vote:    rm.Ballot.Serialize(),
		Tally:   rm.Ballot.Tally(),
		Options: applied,
	})
}

/*
handleVoteStart starts a new round with the given options.  In user mode an
empty option list means the nicknames of the current members.
*/
func (h *Hub) handleVoteStart(id string, c event.VoteStartCmd) {
	rm, err := h.adminRoom(id, c.RoomId)
	if rm == nil {
		h.failIf(id, event.VoteStart, err)
		return
	}

	options := c.Options
	if len(options) == 0 && rm.Ballot.Rules().VoteType == vote.TypeUser {
		for _, u := range h.users(rm.Id) {
			options = append(options, u.Nickname)
		}
	}

	if err := rm.Ballot.SetOptions(options, h.now()); err != nil {
		h.fail(id, event.VoteStart, err)
		return
	}

	log.Info().Str("room", rm.Id).Strs("options", rm.Ballot.Options()).
		Msg("round started")
	h.broadcastRoom(rm.Id, event.VoteStart, types.VoteStart{})
}

// handleVoteAddOption is only allowed in custom mode.
func (h *Hub) handleVoteAddOption(id string, c event.VoteAddOptionCmd) {
	rm, err := h.memberRoom(id, c.RoomId)
	if rm == nil {
		h.failIf(id, event.VoteAddOption, err)
		return
	}

	if rm.Ballot.Rules().VoteType != vote.TypeCustom {
		h.fail(id, event.VoteAddOption, ErrWrongVoteType)
		return
	}
	if err := rm.Ballot.AddOption(c.Option); err != nil {
		h.fail(id, event.VoteAddOption, err)
		return
	}

	h.broadcastRoom(rm.Id, event.VoteAddOption, types.VoteAddOption{Option: c.Option})
}

/*
handleRegisterClient binds a durable client token to the connection.  If the
token is held by another live connection, that connection is treated as
departed: it leaves all its rooms and is closed before the token moves over.
*/
func (h *Hub) handleRegisterClient(id string, c event.RegisterClientCmd) {
	if len(c.ClientToken) > maxClientTokenLength {
		h.fail(id, event.RegisterClient, ErrInvalidClientToken)
		return
	}

	if holder, exists := h.identities.Holder(c.ClientToken); exists && holder != id {
		if old, live := h.subs.conn(holder); live {
			h.depart(holder)
			old.Close()
			h.broadcastAll(event.RoomList, h.roomList())

			log.Info().Str("client", id).Str("evicted", holder).
				Msg("client reconnected")
		}
	}

	// Grants follow the durable identity.
	for _, principals := range h.grants {
		if _, exists := principals[id]; exists {
			delete(principals, id)
			principals[c.ClientToken] = struct{}{}
		}
	}

	h.identities.BindClientToken(id, c.ClientToken)
	h.send(id, event.ClientRegistered, types.ClientRegistered{ClientToken: c.ClientToken})
}

/*
grant allows the connection's durable identity to join the room.  The client
token is used when one is bound, so the grant survives a reconnection.
*/
func (h *Hub) grant(id, roomId string) {
	principals, exists := h.grants[roomId]
	if !exists {
		principals = make(map[string]struct{})
		h.grants[roomId] = principals
	}
	principals[h.identities.Principal(id)] = struct{}{}
}

func (h *Hub) granted(id, roomId string) bool {
	_, exists := h.grants[roomId][h.identities.Principal(id)]
	return exists
}

/*
memberRoom returns the room if the connection is one of its members.  A room
which doesn't exist yields neither a room nor an error: such commands are
ignored.
*/
func (h *Hub) memberRoom(id, roomId string) (*room.Room, error) {
	rm, err := h.rooms.Find(roomId)
	if err != nil {
		log.Debug().Str("client", id).Str("room", roomId).
			Msg("command for a room which doesn't exist")
		return nil, nil
	}
	if !h.subs.isMember(id, roomId) {
		return nil, ErrNotMember
	}
	return rm, nil
}

// adminRoom is like memberRoom but also requires the connection to be admin.
func (h *Hub) adminRoom(id, roomId string) (*room.Room, error) {
	rm, err := h.memberRoom(id, roomId)
	if rm == nil {
		return nil, err
	}
	if rm.Creator.Id != id {
		return nil, ErrUnauthorized
	}
	return rm, nil
}

func (h *Hub) failIf(id string, a event.Action, err error) {
	if err != nil {
		h.fail(id, a, err)
	}
}
