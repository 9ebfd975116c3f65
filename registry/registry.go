// Package registry tracks which live push connections belong to which user.
// The mapping is process-local and rebuilt from scratch as clients reconnect;
// nothing here is persisted.
package registry

import (
	"sync"

	"notification-service/domain"
)

// Registry maps a user id to the set of channels feeding that user's live
// push connections. A user may have any number of simultaneous connections
// (multiple tabs or devices), all of which share one room.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]map[chan domain.Notification]struct{}
	owners map[chan domain.Notification]string
}

func New() *Registry {
	return &Registry{
		rooms:  make(map[string]map[chan domain.Notification]struct{}),
		owners: make(map[chan domain.Notification]string),
	}
}

// Bind joins ch to the room for userID. Binding an already-bound channel is
// a no-op; a channel belongs to at most one room.
func (r *Registry) Bind(userID string, ch chan domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, bound := r.owners[ch]; bound {
		return
	}
	room, ok := r.rooms[userID]
	if !ok {
		room = make(map[chan domain.Notification]struct{})
		r.rooms[userID] = room
	}
	room[ch] = struct{}{}
	r.owners[ch] = userID
}

// Unbind removes ch from whatever room it is in. Channels that were never
// bound are ignored.
func (r *Registry) Unbind(ch chan domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, bound := r.owners[ch]
	if !bound {
		return
	}
	delete(r.owners, ch)
	room := r.rooms[userID]
	delete(room, ch)
	if len(room) == 0 {
		delete(r.rooms, userID)
	}
}

// Publish delivers n to every connection bound to userID and reports how
// many received it. A user with no live connections is not an error; the
// notification is simply dropped. Sends never block: a connection whose
// buffer is full misses this notification.
func (r *Registry) Publish(userID string, n domain.Notification) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delivered := 0
	for ch := range r.rooms[userID] {
		select {
		case ch <- n:
			delivered++
		default:
		}
	}
	return delivered
}

// Connections reports how many connections are currently bound to userID.
func (r *Registry) Connections(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[userID])
}
