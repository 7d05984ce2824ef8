package ws

import "sync"

// Room is a named, join-ordered collection of clients. Membership is unique
// by Client identity; usernames may repeat.
type Room struct {
	name string

	mu      sync.RWMutex
	members []*Client
	closed  bool // set when the last member leaves; the hub drops closed rooms
}

func newRoom(name string) *Room { return &Room{name: name} }

// add appends c if the room is still live. Reports success; a false return
// means the caller raced a concurrent close and must retry on a fresh room.
func (r *Room) add(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.members = append(r.members, c)
	return true
}

// remove deletes c by identity, preserving join order of the rest.
// Reports whether c was present and whether the room emptied out.
func (r *Room) remove(c *Client) (removed, emptied bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.members {
		if m == c {
			r.members = append(r.members[:i], r.members[i+1:]...)
			removed = true
			break
		}
	}
	if removed && len(r.members) == 0 {
		r.closed = true
		emptied = true
	}
	return removed, emptied
}

// snapshot copies the member list for iteration outside the lock.
func (r *Room) snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, len(r.members))
	copy(out, r.members)
	return out
}

// usernames returns the roster in join order.
func (r *Room) usernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]string, 0, len(r.members))
	for _, m := range r.members {
		users = append(users, m.Username)
	}
	return users
}
