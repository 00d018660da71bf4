/*
Package identity keeps the display identity of every live connection and the
map from durable client tokens to the connection currently holding them.
*/
package identity

import (
	"errors"
	"unicode/utf8"
)

const (
	DefaultNickname = "Anonymous"

	minNicknameLength = 2
	maxNicknameLength = 10
)

var ErrInvalidNickname = errors.New("nickname must be 2 to 10 characters long")

type Identity struct {
	ConnectionId string
	Nickname     string
	// Empty until the client registers a durable token.
	ClientToken string
}

/*
Registry is not safe for concurrent use.  It is owned by the hub and accessed
from its routing goroutine only.
*/
type Registry struct {
	byConnection map[string]*Identity
	// Client-to-Connection map.
	byToken map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byConnection: make(map[string]*Identity),
		byToken:      make(map[string]string),
	}
}

// Register creates the default identity for a new connection.
func (r *Registry) Register(connectionId string) Identity {
	id := &Identity{
		ConnectionId: connectionId,
		Nickname:     DefaultNickname,
	}
	r.byConnection[connectionId] = id
	return *id
}

/*
Nickname returns the connection's nickname, or the default one for unknown
connections.
*/
func (r *Registry) Nickname(connectionId string) string {
	if id, exists := r.byConnection[connectionId]; exists {
		return id.Nickname
	}
	return DefaultNickname
}

/*
SetNickname validates and stores the nickname.  Nicknames are not required to
be unique.
*/
func (r *Registry) SetNickname(connectionId, nickname string) error {
	n := utf8.RuneCountInString(nickname)
	if n < minNicknameLength || n > maxNicknameLength {
		return ErrInvalidNickname
	}

	id, exists := r.byConnection[connectionId]
	if !exists {
		return nil
	}
	id.Nickname = nickname
	return nil
}

/*
Holder returns the live connection currently bound to the token.
*/
func (r *Registry) Holder(token string) (string, bool) {
	connectionId, exists := r.byToken[token]
	return connectionId, exists
}

/*
BindClientToken binds the token to the connection.  A previous holder, if any,
loses the token; evicting that connection is up to the caller, see [Registry.Holder].
*/
func (r *Registry) BindClientToken(connectionId, token string) {
	id, exists := r.byConnection[connectionId]
	if !exists {
		return
	}

	if previous := r.byToken[token]; previous != connectionId {
		if prev, ok := r.byConnection[previous]; ok {
			prev.ClientToken = ""
		}
	}

	// A connection holds at most one token.
	if id.ClientToken != "" && id.ClientToken != token {
		delete(r.byToken, id.ClientToken)
	}

	id.ClientToken = token
	r.byToken[token] = connectionId
}

/*
Principal returns the durable key of a connection: its client token when one is
bound, otherwise the connection id.
*/
func (r *Registry) Principal(connectionId string) string {
	if id, exists := r.byConnection[connectionId]; exists && id.ClientToken != "" {
		return id.ClientToken
	}
	return connectionId
}

// Remove destroys the identity and releases its token.
func (r *Registry) Remove(connectionId string) {
	id, exists := r.byConnection[connectionId]
	if !exists {
		return
	}
	if id.ClientToken != "" && r.byToken[id.ClientToken] == connectionId {
		delete(r.byToken, id.ClientToken)
	}
	delete(r.byConnection, connectionId)
}

// Len returns the number of live identities.
func (r *Registry) Len() int {
	return len(r.byConnection)
}
