package hub

import "slices"

/*
subman stores the live connections and two maps of room subscriptions.

By maintaining both mappings, these requirements are satisfied:
 1. Fast addition and removal of connections and subscriptions;
 2. Lookup of all members of a room in the order they joined;
 3. Lookup of all rooms a connection is subscribed to.

Room membership is never stored anywhere else, so a room's member list is
always the set of live connections subscribed to it.
*/
type subman struct {
	conns    map[string]Conn
	byRoom   map[string][]string
	byClient map[string][]string
}

func newSubman() *subman {
	return &subman{
		conns:    make(map[string]Conn),
		byRoom:   make(map[string][]string),
		byClient: make(map[string][]string),
	}
}

func (s *subman) addClient(c Conn) {
	s.conns[c.ID()] = c
	s.byClient[c.ID()] = nil
}

/*
removeClient unsubscribes the connection from every room and forgets it.
Returns the rooms it was subscribed to, in join order.
*/
func (s *subman) removeClient(id string) []string {
	rooms := s.byClient[id]
	for _, roomId := range rooms {
		s.dropMember(roomId, id)
	}
	delete(s.byClient, id)
	delete(s.conns, id)
	return rooms
}

// conn returns the live connection with the given id.
func (s *subman) conn(id string) (Conn, bool) {
	c, exists := s.conns[id]
	return c, exists
}

// subscribe reports false if the connection is unknown or already subscribed.
func (s *subman) subscribe(id, roomId string) bool {
	if _, exists := s.conns[id]; !exists || s.isMember(id, roomId) {
		return false
	}
	s.byRoom[roomId] = append(s.byRoom[roomId], id)
	s.byClient[id] = append(s.byClient[id], roomId)
	return true
}

// unsubscribe reports false if the connection was not subscribed.
func (s *subman) unsubscribe(id, roomId string) bool {
	i := slices.Index(s.byClient[id], roomId)
	if i == -1 {
		return false
	}
	s.byClient[id] = slices.Delete(s.byClient[id], i, i+1)
	s.dropMember(roomId, id)
	return true
}

func (s *subman) dropMember(roomId, id string) {
	members := s.byRoom[roomId]
	if i := slices.Index(members, id); i != -1 {
		members = slices.Delete(members, i, i+1)
	}
	if len(members) == 0 {
		delete(s.byRoom, roomId)
		return
	}
	s.byRoom[roomId] = members
}

func (s *subman) isMember(id, roomId string) bool {
	return slices.Contains(s.byRoom[roomId], id)
}

// members returns a copy of the room's member ids in join order.
func (s *subman) members(roomId string) []string {
	return slices.Clone(s.byRoom[roomId])
}

func (s *subman) count(roomId string) int {
	return len(s.byRoom[roomId])
}

// rooms returns a copy of the connection's rooms in join order.
func (s *subman) rooms(id string) []string {
	return slices.Clone(s.byClient[id])
}

func (s *subman) clients() int {
	return len(s.conns)
}
