package vote

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newRunningBallot(t *testing.T, options ...string) *Ballot {
	t.Helper()
	b := NewBallot("salt")
	require.NoError(t, b.SetOptions(options, epoch))
	return b
}

func TestNewBallotIsIdle(t *testing.T) {
	b := NewBallot("salt")

	_, started := b.StartedAt()
	assert.False(t, started)
	assert.False(t, b.Running(epoch))
	assert.Equal(t, DefaultRules(), b.Rules())
	assert.Empty(t, b.Options())
}

func TestSetOptions(t *testing.T) {
	testcases := []struct {
		name    string
		options []string
		want    []string
		err     error
	}{
		{"distinct", []string{"Inception", "Arrival"}, []string{"Inception", "Arrival"}, nil},
		{"repeated labels collapse", []string{"a", "b", "a"}, []string{"a", "b"}, nil},
		{"empty clears", []string{}, []string{}, nil},
		{"empty label", []string{"a", ""}, nil, ErrInvalidOption},
		{"label too long", []string{"abcdefghijklmnopqrstu"}, nil, ErrInvalidOption},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBallot("salt")
			err := b.SetOptions(tc.options, epoch)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				_, started := b.StartedAt()
				assert.False(t, started)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, b.Options())
			startedAt, started := b.StartedAt()
			assert.True(t, started)
			assert.Equal(t, epoch, startedAt)
		})
	}
}

func TestSetOptionsResetsVoters(t *testing.T) {
	b := newRunningBallot(t, "a", "b")
	_, err := b.Cast("v1", []string{"a"})
	require.NoError(t, err)

	later := epoch.Add(time.Minute)
	require.NoError(t, b.SetOptions([]string{"a", "c"}, later))

	assert.Empty(t, b.Voters("a"))
	assert.Empty(t, b.Voters("b"))
	startedAt, _ := b.StartedAt()
	assert.Equal(t, later, startedAt)
}

func TestAddOption(t *testing.T) {
	b := newRunningBallot(t, "a")

	require.NoError(t, b.AddOption("b"))
	assert.ErrorIs(t, b.AddOption("a"), ErrDuplicateOption)
	assert.ErrorIs(t, b.AddOption(""), ErrInvalidOption)
	assert.Equal(t, []string{"a", "b"}, b.Options())
	assert.Empty(t, b.Voters("b"))
}

func TestCast(t *testing.T) {
	testcases := []struct {
		name     string
		multiple bool
		casts    [][]string
		want     map[string][]string
		applied  []string
		err      error
	}{
		{
			name:    "single choice",
			casts:   [][]string{{"Inception"}},
			want:    map[string][]string{"Inception": {"v"}, "Arrival": {}},
			applied: []string{"Inception"},
		},
		{
			name:    "revote moves the voter",
			casts:   [][]string{{"Inception"}, {"Arrival"}},
			want:    map[string][]string{"Inception": {}, "Arrival": {"v"}},
			applied: []string{"Arrival"},
		},
		{
			name:    "empty selection withdraws",
			casts:   [][]string{{"Inception"}, {}},
			want:    map[string][]string{"Inception": {}, "Arrival": {}},
			applied: []string{},
		},
		{
			name:    "unknown labels are skipped",
			casts:   [][]string{{"Tenet", "Arrival"}},
			want:    map[string][]string{"Inception": {}, "Arrival": {"v"}},
			applied: []string{"Arrival"},
		},
		{
			name:     "multiple choice",
			multiple: true,
			casts:    [][]string{{"Arrival", "Inception"}},
			want:     map[string][]string{"Inception": {"v"}, "Arrival": {"v"}},
			applied:  []string{"Inception", "Arrival"},
		},
		{
			name:  "several options under single choice",
			casts: [][]string{{"Inception"}, {"Inception", "Arrival"}},
			want:  map[string][]string{"Inception": {"v"}, "Arrival": {}},
			err:   ErrTooManyChoices,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			b := newRunningBallot(t, "Inception", "Arrival")
			r := b.Rules()
			r.MultipleChoice = tc.multiple
			_, err := b.SetRules(r)
			require.NoError(t, err)

			var applied []string
			for _, c := range tc.casts {
				applied, err = b.Cast("v", c)
			}

			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.applied, applied)
			}
			if diff := cmp.Diff(tc.want, b.Serialize()); diff != "" {
				t.Errorf("unexpected vote state (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCastIsIdempotent(t *testing.T) {
	once := newRunningBallot(t, "a", "b", "c")
	twice := newRunningBallot(t, "a", "b", "c")
	for _, b := range []*Ballot{once, twice} {
		_, err := b.SetRules(Rules{VoteType: TypeUser, LimitTime: 15, MultipleChoice: true})
		require.NoError(t, err)
		_, err = b.Cast("other", []string{"b"})
		require.NoError(t, err)
	}

	_, err := once.Cast("v", []string{"a", "c"})
	require.NoError(t, err)
	_, err = twice.Cast("v", []string{"a", "c"})
	require.NoError(t, err)
	_, err = twice.Cast("v", []string{"a", "c"})
	require.NoError(t, err)

	if diff := cmp.Diff(once.Tally(), twice.Tally()); diff != "" {
		t.Errorf("tally differs after repeated cast (-once +twice):\n%s", diff)
	}
}

func TestSetRules(t *testing.T) {
	t.Run("vote type change clears the round", func(t *testing.T) {
		for _, from := range []Type{TypeUser, TypeCustom} {
			b := NewBallot("salt")
			_, err := b.SetRules(Rules{VoteType: from, LimitTime: 30})
			require.NoError(t, err)
			require.NoError(t, b.SetOptions([]string{"x", "y"}, epoch))
			_, err = b.Cast("v", []string{"x"})
			require.NoError(t, err)

			to := TypeCustom
			if from == TypeCustom {
				to = TypeUser
			}
			reset, err := b.SetRules(Rules{VoteType: to, LimitTime: 30})
			require.NoError(t, err)

			assert.True(t, reset)
			assert.Empty(t, b.Serialize())
			_, started := b.StartedAt()
			assert.False(t, started)
		}
	})

	t.Run("same vote type keeps the round", func(t *testing.T) {
		b := newRunningBallot(t, "x")
		_, err := b.Cast("v", []string{"x"})
		require.NoError(t, err)

		reset, err := b.SetRules(Rules{VoteType: TypeUser, LimitTime: 60, Anonymity: true})
		require.NoError(t, err)

		assert.False(t, reset)
		assert.Len(t, b.Voters("x"), 1)
		assert.Equal(t, 60, b.Rules().LimitTime)
	})

	t.Run("single choice keeps the first option", func(t *testing.T) {
		b := NewBallot("salt")
		multiple := Rules{VoteType: TypeCustom, LimitTime: 30, MultipleChoice: true}
		_, err := b.SetRules(multiple)
		require.NoError(t, err)
		require.NoError(t, b.SetOptions([]string{"x", "y", "z"}, epoch))
		_, err = b.Cast("a", []string{"y", "x"})
		require.NoError(t, err)
		_, err = b.Cast("b", []string{"z", "y"})
		require.NoError(t, err)
		_, err = b.Cast("c", []string{"z"})
		require.NoError(t, err)

		single := multiple
		single.MultipleChoice = false
		reset, err := b.SetRules(single)
		require.NoError(t, err)

		assert.False(t, reset)
		assert.Equal(t, []string{"a"}, b.Voters("x"))
		assert.Equal(t, []string{"b"}, b.Voters("y"))
		assert.Equal(t, []string{"c"}, b.Voters("z"))
		assert.Equal(t, []string{"x", "y", "z"}, b.Options())
	})

	t.Run("invalid rules are rejected", func(t *testing.T) {
		b := newRunningBallot(t, "x")

		for _, r := range []Rules{
			{VoteType: "ranked", LimitTime: 15},
			{VoteType: TypeCustom, LimitTime: 0},
			{VoteType: TypeCustom, LimitTime: 3601},
		} {
			_, err := b.SetRules(r)
			assert.ErrorIs(t, err, ErrInvalidRules)
		}
		assert.Equal(t, DefaultRules(), b.Rules())
		assert.Equal(t, []string{"x"}, b.Options())
	})
}

func TestRunning(t *testing.T) {
	b := newRunningBallot(t, "x")

	assert.True(t, b.Running(epoch))
	assert.True(t, b.Running(epoch.Add(14*time.Second)))
	assert.False(t, b.Running(epoch.Add(15*time.Second)))
}
