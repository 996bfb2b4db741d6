// Package broker is the core of the relay: it owns connection identity,
// room membership, per-room history and the typing set. All state lives
// behind one mutex; handlers mutate under it and push outbound frames to
// the connections' non-blocking send buffers, so per-room delivery order
// matches processing order.
package broker

import (
	"log/slog"
	"sync"

	"chat-relay-server/domain"
)

const (
	// DefaultRoomID is the room every connection is placed in on join.
	// It exists for the broker's lifetime.
	DefaultRoomID = "general"

	defaultRoomName     = "General Chat"
	defaultHistoryLimit = 100

	anonymousName = "Anonymous"
)

// Options configures a Broker. Zero values fall back to defaults;
// MaxAttachmentBytes == 0 means unlimited.
type Options struct {
	HistoryLimit       int
	MaxAttachmentBytes int64
}

// Broker is an explicitly owned instance: construct one per process (or per
// test) and hand it to every connection handler.
type Broker struct {
	mu     sync.Mutex
	conns  map[string]domain.Connection
	users  map[string]*user
	rooms  map[string]*room
	typing map[string]string

	historyLimit  int
	maxAttachment int64
}

type user struct {
	name string
	room string
}

// New creates a broker with the default room already present.
func New(opts Options) *Broker {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	b := &Broker{
		conns:         make(map[string]domain.Connection),
		users:         make(map[string]*user),
		rooms:         make(map[string]*room),
		typing:        make(map[string]string),
		historyLimit:  opts.HistoryLimit,
		maxAttachment: opts.MaxAttachmentBytes,
	}
	b.rooms[DefaultRoomID] = newRoom(DefaultRoomID, defaultRoomName)
	return b
}

// Join registers a connection under a display name and places it in the
// default room.
func (b *Broker) Join(conn domain.Connection, username string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := conn.ID()
	if _, ok := b.users[id]; ok {
		return domain.ErrDuplicateJoin
	}

	b.conns[id] = conn
	b.users[id] = &user{name: username, room: DefaultRoomID}
	b.rooms[DefaultRoomID].members[id] = struct{}{}

	b.broadcastUsersLocked()
	b.broadcastRoomsLocked()
	b.broadcastAllLocked(frame(domain.KindUserJoined, domain.User{ID: id, Username: username}))

	slog.Info("user joined", "clientId", id, "username", username, "users", len(b.users))
	return nil
}

// Leave removes a connection from all shared state. Idempotent: leaving a
// connection that never joined is a no-op, covering late or duplicate
// disconnect signals.
func (b *Broker) Leave(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[connID]
	if !ok {
		return
	}

	delete(b.users, connID)
	delete(b.conns, connID)
	if u.room != "" {
		if r, ok := b.rooms[u.room]; ok {
			delete(r.members, connID)
		}
	}
	_, wasTyping := b.typing[connID]
	delete(b.typing, connID)

	b.broadcastAllLocked(frame(domain.KindUserLeft, domain.User{ID: connID, Username: u.name}))
	b.broadcastUsersLocked()
	b.broadcastRoomsLocked()
	if wasTyping {
		b.broadcastTypingLocked()
	}

	slog.Info("user left", "clientId", connID, "username", u.name, "users", len(b.users))
}

// DisplayName resolves a connection's display name, falling back to
// "Anonymous" for unregistered connections (covers races between a
// disconnect and in-flight events).
func (b *Broker) DisplayName(connID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.displayNameLocked(connID)
}

func (b *Broker) displayNameLocked(connID string) string {
	if u, ok := b.users[connID]; ok {
		return u.name
	}
	return anonymousName
}

// Stats reports the current room and connection counts.
func (b *Broker) Stats() (rooms, clients int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rooms), len(b.conns)
}

// sendLocked pushes a frame to one connection. A failed push means the
// connection's buffer is gone or full; treat it as an implicit disconnect.
// The cleanup runs in a goroutine because Leave needs the lock we hold.
func (b *Broker) sendLocked(conn domain.Connection, data []byte) {
	if data == nil {
		return
	}
	if err := conn.Send(data); err != nil {
		slog.Warn("send failed, dropping connection", "clientId", conn.ID(), "error", err)
		go func(c domain.Connection) {
			b.Leave(c.ID())
			c.Close()
		}(conn)
	}
}

func (b *Broker) broadcastAllLocked(data []byte) {
	for _, conn := range b.conns {
		b.sendLocked(conn, data)
	}
}

func (b *Broker) broadcastRoomLocked(r *room, data []byte) {
	for id := range r.members {
		if conn, ok := b.conns[id]; ok {
			b.sendLocked(conn, data)
		}
	}
}

// frame encodes an outbound envelope. Encoding our own types cannot fail in
// practice; if it does, log and deliver nothing.
func frame(kind domain.Kind, payload any) []byte {
	data, err := domain.Encode(kind, payload)
	if err != nil {
		slog.Error("encode frame", "kind", kind, "error", err)
		return nil
	}
	return data
}
