/*
Package room stores the live rooms.  A room only knows its own state; who is in
it is answered by the hub's subscription manager at call time.
*/
package room

import (
	"cmp"
	"errors"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/BelikovArtem/voteroom/internal/types"
	"github.com/BelikovArtem/voteroom/internal/vote"

	"github.com/google/uuid"
)

const (
	minNameLength     = 1
	maxNameLength     = 30
	minPasswordLength = 4
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrWrongPassword   = errors.New("wrong room password")
	ErrInvalidName     = errors.New("room name must be 1 to 30 characters long")
	ErrInvalidPassword = errors.New("room password must be at least 4 characters long")
)

/*
Room represents a single voting room.  Creator is the admin; it is reassigned by
the hub when the admin leaves.
*/
type Room struct {
	CreatedAt time.Time
	Ballot    *vote.Ballot
	Creator   types.User
	Id        string
	Name      string
	Subject   string
	Password  string
	// Creation sequence number.  Breaks ties between rooms created within the
	// same clock tick.
	seq uint64
}

// Snapshot builds the full room state sent to members as of now.
func (r *Room) Snapshot(now time.Time) types.Room {
	s := types.Room{
		Id:        r.Id,
		Name:      r.Name,
		Subject:   r.Subject,
		Creator:   r.Creator,
		Rules:     r.Ballot.Rules(),
		Vote:      r.Ballot.Serialize(),
		Tally:     r.Ballot.Tally(),
		CreatedAt: types.NewTime(r.CreatedAt),
		Running:   r.Ballot.Running(now),
	}
	if at, ok := r.Ballot.StartedAt(); ok {
		t := types.NewTime(at)
		s.VoteStartedAt = &t
	}
	return s
}

// Summary builds the room list entry.  The password is never part of it.
func (r *Room) Summary(userCount int) types.RoomSummary {
	return types.RoomSummary{
		Id:        r.Id,
		Name:      r.Name,
		Subject:   r.Subject,
		Creator:   r.Creator,
		Rules:     r.Ballot.Rules(),
		CreatedAt: types.NewTime(r.CreatedAt),
		UserCount: userCount,
	}
}

/*
Registry is not safe for concurrent use.  The hub owns it and accesses it from
its routing goroutine only.
*/
type Registry struct {
	rooms map[string]*Room
	seq   uint64
	// Injected for tests.
	now func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		now:   time.Now,
	}
}

/*
Create stores a new room with default rules and an idle ballot.  Adding the
creator to the room's members is up to the caller.
*/
func (r *Registry) Create(name, password string, creator types.User) (*Room, error) {
	if n := utf8.RuneCountInString(name); n < minNameLength || n > maxNameLength {
		return nil, ErrInvalidName
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, ErrInvalidPassword
	}

	r.seq++
	rm := &Room{
		CreatedAt: r.now(),
		Ballot:    vote.NewBallot(uuid.NewString()),
		Creator:   creator,
		Id:        uuid.NewString(),
		Name:      name,
		Password:  password,
		seq:       r.seq,
	}
	r.rooms[rm.Id] = rm
	return rm, nil
}

func (r *Registry) Find(id string) (*Room, error) {
	rm, exists := r.rooms[id]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return rm, nil
}

/*
TryJoin checks that the room exists and the password matches.  It does not add
the caller to the room.
*/
func (r *Registry) TryJoin(id, password string) (*Room, error) {
	rm, err := r.Find(id)
	if err != nil {
		return nil, err
	}
	if rm.Password != password {
		return nil, ErrWrongPassword
	}
	return rm, nil
}

/*
List returns the room summaries ordered by creation time.  count is called for
every room to obtain its live member count.
*/
func (r *Registry) List(count func(roomId string) int) []types.RoomSummary {
	rooms := make([]*Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	slices.SortFunc(rooms, func(a, b *Room) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	list := make([]types.RoomSummary, len(rooms))
	for i, rm := range rooms {
		list[i] = rm.Summary(count(rm.Id))
	}
	return list
}

/*
RemoveIfEmpty deletes the room when it has no members left.  Reports whether
the room was deleted.
*/
func (r *Registry) RemoveIfEmpty(id string, members int) bool {
	if _, exists := r.rooms[id]; !exists || members > 0 {
		return false
	}
	delete(r.rooms, id)
	return true
}

func (r *Registry) Len() int {
	return len(r.rooms)
}
