/*
Package vote implements the per-room ballot: the configured rules, the open
options, the voters currently selecting each option and the round start time.

A round is Idle until the options are set and Running while its start time plus
the rules' limit lies in the future.  There is no explicit end: a round is
superseded by the next one or cleared by a change of the rule family.
*/
package vote

import (
	"errors"
	"slices"
	"time"
	"unicode/utf8"
)

const (
	minOptionLength = 1
	maxOptionLength = 20
)

var (
	ErrInvalidOption   = errors.New("option must be 1 to 20 characters long")
	ErrDuplicateOption = errors.New("option already exists")
	ErrTooManyChoices  = errors.New("multiple choice is disabled")
)

/*
Ballot is not safe for concurrent use.  The hub owns every ballot and mutates
it from its routing goroutine only.
*/
type Ballot struct {
	rules Rules
	// Option labels in insertion order.  Labels are unique.
	options []string
	// Voters per option, in the order they selected it.
	voters map[string][]string
	// Zero when no round was started.
	startedAt time.Time
	// Key for voter pseudonyms in anonymous rooms.
	salt string
}

// NewBallot creates an idle ballot with the default rules.
func NewBallot(salt string) *Ballot {
	return &Ballot{
		rules:  DefaultRules(),
		voters: make(map[string][]string),
		salt:   salt,
	}
}

func (b *Ballot) Rules() Rules {
	return b.rules
}

/*
SetRules replaces the rules.  If the vote type changes, the options and the
round are cleared since an option of one family means nothing in the other.
Reports whether that reset happened.

Switching from multiple to single choice keeps every voter on the first of
their options in option order.
*/
func (b *Ballot) SetRules(r Rules) (bool, error) {
	if err := r.Validate(); err != nil {
		return false, err
	}

	reset := r.VoteType != b.rules.VoteType
	narrowed := b.rules.MultipleChoice && !r.MultipleChoice
	b.rules = r
	switch {
	case reset:
		b.options = nil
		b.voters = make(map[string][]string)
		b.startedAt = time.Time{}
	case narrowed:
		b.keepFirstChoice()
	}
	return reset, nil
}

func (b *Ballot) keepFirstChoice() {
	chosen := make(map[string]struct{})
	for _, o := range b.options {
		kept := make([]string, 0, len(b.voters[o]))
		for _, v := range b.voters[o] {
			if _, exists := chosen[v]; exists {
				continue
			}
			chosen[v] = struct{}{}
			kept = append(kept, v)
		}
		b.voters[o] = kept
	}
}

/*
SetOptions replaces the option set with empty voter sets and stamps the round
start.  Repeated labels are collapsed to their first occurrence.
*/
func (b *Ballot) SetOptions(options []string, now time.Time) error {
	for _, o := range options {
		if !validOption(o) {
			return ErrInvalidOption
		}
	}

	b.options = make([]string, 0, len(options))
	b.voters = make(map[string][]string, len(options))
	for _, o := range options {
		if _, exists := b.voters[o]; exists {
			continue
		}
		b.options = append(b.options, o)
		b.voters[o] = []string{}
	}
	b.startedAt = now
	return nil
}

/*
AddOption appends a single option with no voters.  Which rule family may add
options is decided by the caller.
*/
func (b *Ballot) AddOption(option string) error {
	if !validOption(option) {
		return ErrInvalidOption
	}
	if _, exists := b.voters[option]; exists {
		return ErrDuplicateOption
	}

	b.options = append(b.options, option)
	b.voters[option] = []string{}
	return nil
}

/*
Cast replaces the voter's ballot: the voter is removed from every option and
then added to each selected one.  Unknown labels are skipped.  Casting the same
selection twice leaves the state unchanged.

Returns the options the voter ended up selecting, in option order.
*/
func (b *Ballot) Cast(voter string, selected []string) ([]string, error) {
	picked := make(map[string]struct{}, len(selected))
	for _, o := range selected {
		if _, exists := b.voters[o]; exists {
			picked[o] = struct{}{}
		}
	}
	if !b.rules.MultipleChoice && len(picked) > 1 {
		return nil, ErrTooManyChoices
	}

	applied := make([]string, 0, len(picked))
	for _, o := range b.options {
		_, want := picked[o]
		i := slices.Index(b.voters[o], voter)

		switch {
		case want && i == -1:
			b.voters[o] = append(b.voters[o], voter)
		case !want && i != -1:
			b.voters[o] = slices.Delete(b.voters[o], i, i+1)
		}

		if want {
			applied = append(applied, o)
		}
	}
	return applied, nil
}

// Options returns a copy of the option labels in insertion order.
func (b *Ballot) Options() []string {
	return slices.Clone(b.options)
}

// Voters returns a copy of the raw voter ids selecting the option.
func (b *Ballot) Voters(option string) []string {
	return slices.Clone(b.voters[option])
}

// StartedAt returns the round start and false when no round was started.
func (b *Ballot) StartedAt() (time.Time, bool) {
	return b.startedAt, !b.startedAt.IsZero()
}

// Running reports whether the current round has not expired at now.
func (b *Ballot) Running(now time.Time) bool {
	if b.startedAt.IsZero() {
		return false
	}
	return now.Before(b.startedAt.Add(b.rules.Limit()))
}

func validOption(o string) bool {
	n := utf8.RuneCountInString(o)
	return n >= minOptionLength && n <= maxOptionLength
}
