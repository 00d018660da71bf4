package event

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

/*
ServerEvent represents an event emitted by the hub.  Depending on the scope
chosen by the hub it is written to a single connection, to every member of a
room, or to every connected client.
*/
type ServerEvent struct {
	Payload json.RawMessage `json:"p"`
	Action  Action          `json:"a"`
}

/*
ClientEvent represents an event emitted by a client.  The transport fills in
ClientId before forwarding the event into the hub; it is never trusted from
the wire.
*/
type ClientEvent struct {
	Payload json.RawMessage `json:"p"`
	// Sender id.
	ClientId string `json:"-"`
	Action   Action `json:"a"`
}

/*
Action is a domain of possible event names.  Inbound and outbound events share
the namespace: several outbound events reuse the name of the command that
caused them, which is what clients subscribe to.
*/
type Action string

const (
	// Client events.
	Lobby           Action = "lobby"
	GetRoomList     Action = "get-room-list"
	SetNickname     Action = "set-nickname"
	CreateRoom      Action = "create-room"
	JoinRequestRoom Action = "join-request-room"
	JoinRoom        Action = "join-room"
	GetRoomInfo     Action = "get-room-info"
	SetRoomSubject  Action = "set-room-subject"
	SetRoomRules    Action = "set-room-rules"
	Vote            Action = "vote"
	VoteStart       Action = "vote-start"
	VoteAddOption   Action = "vote-add-option"
	RegisterClient  Action = "register-client"

	// Server events.
	Welcome          Action = "welcome"
	Nickname         Action = "nickname"
	RoomList         Action = "room-list"
	JoinedRoom       Action = "joined-room"
	JoinRoomError    Action = "join-room-error"
	RoomUsers        Action = "room-users"
	RoomInfo         Action = "room-info"
	ClientRegistered Action = "client-registered"
	Error            Action = "error"
)

/*
EncodeOrPanic is a helper function to encode a JSON payload on the fly skipping
the error check.  If the error occurs, the panic will be arised.
*/
func EncodeOrPanic(v any) []byte {
	p, err := json.Marshal(v)
	if err != nil {
		log.Panic().Err(err).Interface("payload", v).Msg("cannot encode payload")
	}
	return p
}

/*
Encode builds a raw server event ready to be written to the connections.
*/
func Encode(a Action, payload any) []byte {
	return EncodeOrPanic(ServerEvent{
		Action:  a,
		Payload: EncodeOrPanic(payload),
	})
}
