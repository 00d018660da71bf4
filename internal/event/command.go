package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BelikovArtem/voteroom/internal/vote"
)

var (
	ErrUnknownAction      = errors.New("unknown action")
	ErrMalformedPayload   = errors.New("malformed payload")
	errMissingRoomId      = errors.New("roomId is required")
	errMissingClientToken = errors.New("clientToken is required")
)

/*
Command is a closed set of inbound commands.  Every client event is decoded into
exactly one of the types below, so the hub can dispatch with a type switch and
the compiler keeps the set of handlers honest.
*/
type Command interface {
	command()
}

type (
	LobbyCmd       struct{}
	GetRoomListCmd struct{}

	SetNicknameCmd struct {
		Nickname string `json:"nickname"`
	}

	CreateRoomCmd struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}

	JoinRequestRoomCmd struct {
		RoomId   string `json:"roomId"`
		Password string `json:"password"`
	}

	JoinRoomCmd struct {
		RoomId string `json:"roomId"`
	}

	GetRoomInfoCmd struct {
		RoomId string `json:"roomId"`
	}

	SetRoomSubjectCmd struct {
		RoomId  string `json:"roomId"`
		Subject string `json:"subject"`
	}

	SetRoomRulesCmd struct {
		RoomId string     `json:"roomId"`
		Rules  vote.Rules `json:"rules"`
	}

	VoteCmd struct {
		RoomId  string   `json:"roomId"`
		Options []string `json:"options"`
	}

	VoteStartCmd struct {
		RoomId  string   `json:"roomId"`
		Options []string `json:"options"`
	}

	VoteAddOptionCmd struct {
		RoomId string `json:"roomId"`
		Option string `json:"option"`
	}

	RegisterClientCmd struct {
		ClientToken string `json:"clientToken"`
	}
)

func (LobbyCmd) command() {}
func (GetRoomListCmd) command() {}
func (SetNicknameCmd) command() {}
func (CreateRoomCmd) command() {}
func (JoinRequestRoomCmd) command() {}
func (JoinRoomCmd) command() {}
func (GetRoomInfoCmd) command() {}
func (SetRoomSubjectCmd) command() {}
func (SetRoomRulesCmd) command() {}
func (VoteCmd) command() {}
func (VoteStartCmd) command() {}
func (VoteAddOptionCmd) command() {}
func (RegisterClientCmd) command() {}

/*
Decode converts a client event into a command.  Payloads may be omitted for
commands that take no arguments.
*/
func Decode(e ClientEvent) (Command, error) {
	switch e.Action {
	case Lobby:
		return LobbyCmd{}, nil
	case GetRoomList:
		return GetRoomListCmd{}, nil
	case SetNickname:
		return decodeInto[SetNicknameCmd](e.Payload)
	case CreateRoom:
		return decodeInto[CreateRoomCmd](e.Payload)
	case JoinRequestRoom:
		return decodeRoomScoped[JoinRequestRoomCmd](e.Payload, func(c JoinRequestRoomCmd) string { return c.RoomId })
	case JoinRoom:
		return decodeRoomScoped[JoinRoomCmd](e.Payload, func(c JoinRoomCmd) string { return c.RoomId })
	case GetRoomInfo:
		return decodeRoomScoped[GetRoomInfoCmd](e.Payload, func(c GetRoomInfoCmd) string { return c.RoomId })
	case SetRoomSubject:
		return decodeRoomScoped[SetRoomSubjectCmd](e.Payload, func(c SetRoomSubjectCmd) string { return c.RoomId })
	case SetRoomRules:
		return decodeRoomScoped[SetRoomRulesCmd](e.Payload, func(c SetRoomRulesCmd) string { return c.RoomId })
	case Vote:
		return decodeRoomScoped[VoteCmd](e.Payload, func(c VoteCmd) string { return c.RoomId })
	case VoteStart:
		return decodeRoomScoped[VoteStartCmd](e.Payload, func(c VoteStartCmd) string { return c.RoomId })
	case VoteAddOption:
		return decodeRoomScoped[VoteAddOptionCmd](e.Payload, func(c VoteAddOptionCmd) string { return c.RoomId })
	case RegisterClient:
		c, err := decodeInto[RegisterClientCmd](e.Payload)
		if err == nil && c.ClientToken == "" {
			err = fmt.Errorf("%w: %w", ErrMalformedPayload, errMissingClientToken)
		}
		return c, err
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, e.Action)
}

func decodeInto[T Command](raw json.RawMessage) (T, error) {
	var c T
	if len(raw) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return c, nil
}

func decodeRoomScoped[T Command](raw json.RawMessage, roomId func(T) string) (T, error) {
	c, err := decodeInto[T](raw)
	if err == nil && roomId(c) == "" {
		err = fmt.Errorf("%w: %w", ErrMalformedPayload, errMissingRoomId)
	}
	return c, err
}
