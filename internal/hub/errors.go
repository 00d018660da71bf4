package hub

import (
	"errors"

	"github.com/BelikovArtem/voteroom/internal/event"
	"github.com/BelikovArtem/voteroom/internal/identity"
	"github.com/BelikovArtem/voteroom/internal/room"
	"github.com/BelikovArtem/voteroom/internal/vote"
)

var (
	ErrUnauthorized       = errors.New("only the room admin can do this")
	ErrNotMember          = errors.New("not a member of the room")
	ErrWrongVoteType      = errors.New("not allowed by the room vote type")
	ErrInvalidClientToken = errors.New("client token must be at most 128 characters long")
	ErrStopped            = errors.New("hub is stopped")
)

// Codes sent to the clients in error events.
const (
	CodeRoomNotFound       = "room-not-found"
	CodeWrongPassword      = "room-password-wrong"
	CodeUnauthorized       = "unauthorized"
	CodeNotMember          = "not-member"
	CodeInvalidNickname    = "invalid-nickname"
	CodeInvalidRoomName    = "invalid-room-name"
	CodeInvalidPassword    = "invalid-room-password"
	CodeInvalidOption      = "invalid-option"
	CodeDuplicateOption    = "duplicate-option"
	CodeInvalidRules       = "invalid-rules"
	CodeTooManyChoices     = "too-many-choices"
	CodeWrongVoteType      = "wrong-vote-type"
	CodeMalformedPayload   = "malformed-payload"
	CodeUnknownAction      = "unknown-action"
	CodeRateLimited        = "rate-limited"
	CodeInvalidClientToken = "invalid-client-token"
	codeInternal           = "internal"
)

var codes = []struct {
	err  error
	code string
}{
	{room.ErrRoomNotFound, CodeRoomNotFound},
	{room.ErrWrongPassword, CodeWrongPassword},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrNotMember, CodeNotMember},
	{identity.ErrInvalidNickname, CodeInvalidNickname},
	{room.ErrInvalidName, CodeInvalidRoomName},
	{room.ErrInvalidPassword, CodeInvalidPassword},
	{vote.ErrInvalidOption, CodeInvalidOption},
	{vote.ErrDuplicateOption, CodeDuplicateOption},
	{vote.ErrInvalidRules, CodeInvalidRules},
	{vote.ErrTooManyChoices, CodeTooManyChoices},
	{ErrWrongVoteType, CodeWrongVoteType},
	{event.ErrMalformedPayload, CodeMalformedPayload},
	{event.ErrUnknownAction, CodeUnknownAction},
	{ErrInvalidClientToken, CodeInvalidClientToken},
}

// Code maps an error to the code sent to the client.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return codeInternal
}
