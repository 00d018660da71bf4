package vote

import (
	"errors"
	"fmt"
	"time"
)

// Type is the rule family deciding what an option means.
type Type string

const (
	// Options are the nicknames of the room members.
	TypeUser Type = "user"
	// Options are labels added by the members.
	TypeCustom Type = "custom"
)

const (
	defaultLimitTime = 15
	maxLimitTime     = 3600
)

var ErrInvalidRules = errors.New("invalid rules")

/*
Rules configure a room's ballot.  JSON names follow the ones the web client
already sends.
*/
type Rules struct {
	VoteType           Type `json:"voteType"`
	Anonymity          bool `json:"anonymity"`
	LimitTime          int  `json:"limitTime"`
	MultipleChoice     bool `json:"multiple"`
	NotifyOnVoteChange bool `json:"notifyWhenVoteChanged"`
}

func DefaultRules() Rules {
	return Rules{
		VoteType:  TypeUser,
		LimitTime: defaultLimitTime,
	}
}

func (r Rules) Validate() error {
	if r.VoteType != TypeUser && r.VoteType != TypeCustom {
		return fmt.Errorf("%w: unknown vote type %q", ErrInvalidRules, r.VoteType)
	}
	if r.LimitTime < 1 || r.LimitTime > maxLimitTime {
		return fmt.Errorf("%w: limitTime must be within [1, %d]", ErrInvalidRules, maxLimitTime)
	}
	return nil
}

// Limit is the length of a round.
func (r Rules) Limit() time.Duration {
	return time.Duration(r.LimitTime) * time.Second
}
