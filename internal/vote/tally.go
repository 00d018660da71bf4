package vote

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

type OptionTally struct {
	Option string   `json:"option"`
	Count  int      `json:"count"`
	Voters []string `json:"voters"`
}

/*
Tally is the read model broadcast after every ballot change.  Winners are the
options sharing the maximum non-zero count, in option order.
*/
type Tally struct {
	Options []OptionTally `json:"options"`
	Winners []string      `json:"winners"`
	Total   int           `json:"total"`
}

/*
Tally computes the current counts.  Voter ids are masked when the rules ask
for anonymity.
*/
func (b *Ballot) Tally() Tally {
	t := Tally{
		Options: make([]OptionTally, 0, len(b.options)),
		Winners: []string{},
	}

	top := 0
	for _, o := range b.options {
		n := len(b.voters[o])
		t.Options = append(t.Options, OptionTally{
			Option: o,
			Count:  n,
			Voters: b.visible(b.voters[o]),
		})
		t.Total += n
		if n > top {
			top = n
		}
	}

	if top == 0 {
		return t
	}
	for _, ot := range t.Options {
		if ot.Count == top {
			t.Winners = append(t.Winners, ot.Option)
		}
	}
	return t
}

/*
Serialize converts the voter sets into ordered arrays keyed by option, which is
the form the clients rebuild their sets from.  Voter ids are masked when the
rules ask for anonymity.
*/
func (b *Ballot) Serialize() map[string][]string {
	m := make(map[string][]string, len(b.options))
	for _, o := range b.options {
		m[o] = b.visible(b.voters[o])
	}
	return m
}

func (b *Ballot) visible(voters []string) []string {
	out := make([]string, len(voters))
	for i, v := range voters {
		if b.rules.Anonymity {
			v = Pseudonym(v, b.salt)
		}
		out[i] = v
	}
	return out
}

/*
Pseudonym creates a one-way, salted alias of a voter id.  The same voter keeps
the same alias within a room, so clients still see one entry per voter.
*/
func Pseudonym(voter, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(voter))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}
