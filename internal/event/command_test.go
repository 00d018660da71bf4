package event

import (
	"encoding/json"
	"testing"

	"github.com/BelikovArtem/voteroom/internal/vote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	testcases := []struct {
		action  Action
		payload string
		want    Command
	}{
		{Lobby, ``, LobbyCmd{}},
		{GetRoomList, `{}`, GetRoomListCmd{}},
		{SetNickname, `{"nickname":"alice"}`, SetNicknameCmd{Nickname: "alice"}},
		{CreateRoom, `{"name":"Movie Night","password":"1234"}`, CreateRoomCmd{Name: "Movie Night", Password: "1234"}},
		{JoinRequestRoom, `{"roomId":"r","password":"1234"}`, JoinRequestRoomCmd{RoomId: "r", Password: "1234"}},
		{JoinRoom, `{"roomId":"r"}`, JoinRoomCmd{RoomId: "r"}},
		{GetRoomInfo, `{"roomId":"r"}`, GetRoomInfoCmd{RoomId: "r"}},
		{SetRoomSubject, `{"roomId":"r","subject":"Films"}`, SetRoomSubjectCmd{RoomId: "r", Subject: "Films"}},
		{
			SetRoomRules,
			`{"roomId":"r","rules":{"voteType":"custom","anonymity":true,"limitTime":30,"multiple":true,"notifyWhenVoteChanged":true}}`,
			SetRoomRulesCmd{RoomId: "r", Rules: vote.Rules{
				VoteType:           vote.TypeCustom,
				Anonymity:          true,
				LimitTime:          30,
				MultipleChoice:     true,
				NotifyOnVoteChange: true,
			}},
		},
		{Vote, `{"roomId":"r","options":["a","b"]}`, VoteCmd{RoomId: "r", Options: []string{"a", "b"}}},
		{VoteStart, `{"roomId":"r","options":["a"]}`, VoteStartCmd{RoomId: "r", Options: []string{"a"}}},
		{VoteAddOption, `{"roomId":"r","option":"c"}`, VoteAddOptionCmd{RoomId: "r", Option: "c"}},
		{RegisterClient, `{"clientToken":"tok"}`, RegisterClientCmd{ClientToken: "tok"}},
	}

	for _, tc := range testcases {
		t.Run(string(tc.action), func(t *testing.T) {
			got, err := Decode(ClientEvent{Action: tc.action, Payload: json.RawMessage(tc.payload)})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	testcases := []struct {
		name    string
		action  Action
		payload string
		err     error
	}{
		{"unknown action", "dance", `{}`, ErrUnknownAction},
		{"server action", Welcome, `{}`, ErrUnknownAction},
		{"wrong type", Vote, `{"roomId":"r","options":"a"}`, ErrMalformedPayload},
		{"missing room", VoteStart, `{"options":["a"]}`, ErrMalformedPayload},
		{"missing token", RegisterClient, `{}`, ErrMalformedPayload},
		{"not json", CreateRoom, `name=x`, ErrMalformedPayload},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(ClientEvent{Action: tc.action, Payload: json.RawMessage(tc.payload)})
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestEncode(t *testing.T) {
	raw := Encode(JoinedRoom, map[string]string{"roomId": "r"})

	assert.JSONEq(t, `{"a":"joined-room","p":{"roomId":"r"}}`, string(raw))
}

func TestEncodeOrPanic(t *testing.T) {
	assert.Panics(t, func() { EncodeOrPanic(make(chan int)) })
}
