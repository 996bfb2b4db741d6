package broker

import (
	"sort"
	"strings"

	"chat-relay-server/domain"
)

// room holds membership and the bounded replayable history. Rooms are
// created on demand and persist for the broker's lifetime.
type room struct {
	id      string
	name    string
	members map[string]struct{}
	history []domain.Message
}

func newRoom(id, name string) *room {
	return &room{
		id:      id,
		name:    name,
		members: make(map[string]struct{}),
	}
}

// RoomID derives a room id from a display name: lower-cased, whitespace
// runs collapsed to hyphens.
func RoomID(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// CreateRoom ensures a room with the derived id exists and returns that id.
// Creating an already existing room is a no-op, not an error; the room-list
// broadcast only fires when a room was actually created.
func (b *Broker) CreateRoom(name string) (string, error) {
	id := RoomID(name)
	if id == "" {
		return "", domain.ErrMalformedPayload
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.rooms[id]; ok {
		return id, nil
	}

	b.rooms[id] = newRoom(id, name)
	b.broadcastRoomsLocked()
	return id, nil
}

// SwitchRoom moves a connection to another room as one atomic transition:
// leave the old membership, join the new one, replay the target's history to
// the switcher, then broadcast fresh presence snapshots. The history replay
// happens under the lock, so the switcher never misses a message appended
// right after the switch.
func (b *Broker) SwitchRoom(connID, roomID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[connID]
	if !ok {
		return domain.ErrUnregisteredSender
	}
	r, ok := b.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}

	if u.room != "" {
		if old, ok := b.rooms[u.room]; ok {
			delete(old.members, connID)
		}
	}
	r.members[connID] = struct{}{}
	u.room = roomID

	if conn, ok := b.conns[connID]; ok {
		b.sendLocked(conn, frame(domain.KindMessageHistory, r.snapshot()))
	}

	b.broadcastUsersLocked()
	b.broadcastRoomsLocked()
	return nil
}

// Members returns the sorted membership of a room, empty if the room is
// unknown.
func (b *Broker) Members(roomID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.rooms[roomID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Rooms returns the current room directory.
func (b *Broker) Rooms() []domain.RoomSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.roomListLocked()
}

// append adds a message to the history, evicting the oldest entry once the
// limit is reached.
func (r *room) append(msg domain.Message, limit int) {
	if len(r.history) >= limit {
		r.history = r.history[len(r.history)-limit+1:]
	}
	r.history = append(r.history, msg)
}

// snapshot copies the history so delivery works on a value, not a live
// reference.
func (r *room) snapshot() []domain.Message {
	out := make([]domain.Message, len(r.history))
	copy(out, r.history)
	return out
}
