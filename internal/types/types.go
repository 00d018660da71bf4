package types

import (
	"encoding/json"
	"time"

	"github.com/BelikovArtem/voteroom/internal/vote"
)

// isoLayout matches the output of JavaScript's Date.prototype.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z"

/*
Time is transmitted as an ISO-8601 string in UTC.  A nil *Time encodes as null,
which is how an idle round is represented.
*/
type Time struct {
	time.Time
}

func NewTime(t time.Time) Time {
	return Time{t}
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(isoLayout))
}

func (t *Time) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

/*
User represents a connected identity as the clients see it.
*/
type User struct {
	Id       string `json:"id"`
	Nickname string `json:"nickname"`
}

/*
RoomSummary represents a single entry of the room list.  The password is never
part of it.
*/
type RoomSummary struct {
	Id        string     `json:"id"`
	Name      string     `json:"name"`
	Subject   string     `json:"subject"`
	Creator   User       `json:"creator"`
	Rules     vote.Rules `json:"rules"`
	CreatedAt Time       `json:"createdAt"`
	UserCount int        `json:"userCount"`
}

/*
Room represents the full room state sent to a member.  Vote sets are
transmitted as ordered arrays of voter ids.
*/
type Room struct {
	Id            string              `json:"id"`
	Name          string              `json:"name"`
	Subject       string              `json:"subject"`
	Creator       User                `json:"creator"`
	Rules         vote.Rules          `json:"rules"`
	Vote          map[string][]string `json:"vote"`
	Tally         vote.Tally          `json:"tally"`
	CreatedAt     Time                `json:"createdAt"`
	VoteStartedAt *Time               `json:"voteStartedAt"`
	// Running is true while the round started at VoteStartedAt has not expired.
	Running bool `json:"running"`
}

// VoteSets rebuilds the voter sets from their wire form.
func VoteSets(v map[string][]string) map[string]map[string]struct{} {
	sets := make(map[string]map[string]struct{}, len(v))
	for option, voters := range v {
		s := make(map[string]struct{}, len(voters))
		for _, id := range voters {
			s[id] = struct{}{}
		}
		sets[option] = s
	}
	return sets
}

// Payloads of the server events.

type Welcome struct {
	User
}

type NicknamePayload struct {
	Nickname string `json:"nickname"`
}

type JoinedRoom struct {
	RoomId string `json:"roomId"`
}

type JoinRoomError struct {
	Reason string `json:"reason"`
}

type JoinRoom struct {
	User  User   `json:"user"`
	Users []User `json:"users"`
}

type RoomUsers struct {
	Users        []User `json:"users"`
	Creator      User   `json:"creator"`
	AdminChanged bool   `json:"adminChanged"`
}

type RoomInfo struct {
	Room  Room   `json:"room"`
	Users []User `json:"users"`
}

type RoomSubject struct {
	Subject string `json:"subject"`
}

type RoomRules struct {
	Rules vote.Rules `json:"rules"`
	// Reset is true when the rule change cleared the vote.
	Reset bool `json:"reset"`
}

type Vote struct {
	Vote  map[string][]string `json:"vote"`
	Tally vote.Tally          `json:"tally"`
	// Options selected by the voter who caused the change.
	Options []string `json:"options"`
}

type VoteStart struct{}

type VoteAddOption struct {
	Option string `json:"option"`
}

type ClientRegistered struct {
	ClientToken string `json:"clientToken"`
}

type Error struct {
	Action  string `json:"action"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

/*
Stats represents the counters exposed over HTTP.
*/
type Stats struct {
	Rooms   int `json:"rooms"`
	Clients int `json:"clients"`
	// Broadcasts the mirror discarded because its buffer was full.
	MirrorDropped uint64 `json:"mirrorDropped"`
}
