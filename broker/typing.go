package broker

import (
	"sort"

	"chat-relay-server/domain"
)

// SetTyping updates the broker-wide typing set and broadcasts the full
// current snapshot to every connection. High-frequency typing toggles thus
// coalesce into the latest state; clients only ever see the whole set.
// Unregistered senders are ignored.
func (b *Broker) SetTyping(connID string, isTyping bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[connID]
	if !ok {
		return
	}

	if isTyping {
		b.typing[connID] = u.name
	} else {
		delete(b.typing, connID)
	}
	b.broadcastTypingLocked()
}

func (b *Broker) broadcastTypingLocked() {
	names := make([]string, 0, len(b.typing))
	for _, name := range b.typing {
		names = append(names, name)
	}
	sort.Strings(names)
	b.broadcastAllLocked(frame(domain.KindTypingUsers, names))
}
