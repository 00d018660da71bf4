package room

import (
	"strings"
	"testing"
	"time"

	"github.com/BelikovArtem/voteroom/internal/types"
	"github.com/BelikovArtem/voteroom/internal/vote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = types.User{Id: "c1", Nickname: "alice"}

// frozen makes every room share the same creation time.
func frozen(r *Registry) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return at }
}

func TestCreate(t *testing.T) {
	testcases := []struct {
		name     string
		room     string
		password string
		err      error
	}{
		{"valid", "Movie Night", "1234", nil},
		{"longest name", strings.Repeat("x", 30), "1234", nil},
		{"empty name", "", "1234", ErrInvalidName},
		{"name too long", strings.Repeat("x", 31), "1234", ErrInvalidName},
		{"short password", "Movie Night", "123", ErrInvalidPassword},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRegistry()

			rm, err := r.Create(tc.room, tc.password, alice)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				assert.Zero(t, r.Len())
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, rm.Id)
			assert.Equal(t, alice, rm.Creator)
			assert.Equal(t, vote.DefaultRules(), rm.Ballot.Rules())
			_, running := rm.Ballot.StartedAt()
			assert.False(t, running)
		})
	}
}

func TestCreateGeneratesUniqueIds(t *testing.T) {
	r := NewRegistry()

	a, err := r.Create("a", "1234", alice)
	require.NoError(t, err)
	b, err := r.Create("a", "1234", alice)
	require.NoError(t, err)

	assert.NotEqual(t, a.Id, b.Id)
	assert.Equal(t, 2, r.Len())
}

func TestTryJoin(t *testing.T) {
	r := NewRegistry()
	rm, err := r.Create("Movie Night", "1234", alice)
	require.NoError(t, err)

	_, err = r.TryJoin(rm.Id, "0000")
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, err = r.TryJoin("missing", "1234")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	got, err := r.TryJoin(rm.Id, "1234")
	require.NoError(t, err)
	assert.Same(t, rm, got)
}

func TestListOrder(t *testing.T) {
	r := NewRegistry()
	frozen(r)

	first, _ := r.Create("first", "1234", alice)
	second, _ := r.Create("second", "1234", alice)
	third, _ := r.Create("third", "1234", alice)

	counts := map[string]int{first.Id: 1, second.Id: 3}
	list := r.List(func(id string) int { return counts[id] })

	require.Len(t, list, 3)
	assert.Equal(t, []string{first.Id, second.Id, third.Id},
		[]string{list[0].Id, list[1].Id, list[2].Id})
	assert.Equal(t, 1, list[0].UserCount)
	assert.Equal(t, 3, list[1].UserCount)
	assert.Zero(t, list[2].UserCount)
}

func TestListIsEmptyNotNil(t *testing.T) {
	r := NewRegistry()

	list := r.List(func(string) int { return 0 })

	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestRemoveIfEmpty(t *testing.T) {
	r := NewRegistry()
	rm, _ := r.Create("Movie Night", "1234", alice)

	assert.False(t, r.RemoveIfEmpty(rm.Id, 1))
	_, err := r.Find(rm.Id)
	require.NoError(t, err)

	assert.True(t, r.RemoveIfEmpty(rm.Id, 0))
	_, err = r.Find(rm.Id)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	assert.False(t, r.RemoveIfEmpty(rm.Id, 0))
}

func TestSnapshot(t *testing.T) {
	r := NewRegistry()
	frozen(r)
	rm, _ := r.Create("Movie Night", "1234", alice)

	idle := rm.Snapshot(rm.CreatedAt)
	assert.Nil(t, idle.VoteStartedAt)
	assert.False(t, idle.Running)
	assert.Empty(t, idle.Vote)

	start := time.Date(2025, 3, 1, 12, 1, 0, 0, time.UTC)
	require.NoError(t, rm.Ballot.SetOptions([]string{"Inception", "Arrival"}, start))
	_, err := rm.Ballot.Cast("c2", []string{"Inception"})
	require.NoError(t, err)

	s := rm.Snapshot(start)
	assert.True(t, s.Running)
	require.NotNil(t, s.VoteStartedAt)
	assert.True(t, start.Equal(s.VoteStartedAt.Time))
	assert.Equal(t, map[string][]string{"Inception": {"c2"}, "Arrival": {}}, s.Vote)
	assert.Equal(t, []string{"Inception"}, s.Tally.Winners)

	expired := rm.Snapshot(start.Add(rm.Ballot.Rules().Limit()))
	assert.False(t, expired.Running)
	assert.NotNil(t, expired.VoteStartedAt)
}
