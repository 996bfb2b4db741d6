package broker

import (
	"time"

	"github.com/google/uuid"

	"chat-relay-server/domain"
)

// SendMessage routes a room-scoped text message: stamp it, append it to the
// sender's current room history, then deliver to every current member
// (sender included). History is mutated before delivery so a concurrent
// joiner's replay and this delivery agree on ordering.
func (b *Broker) SendMessage(connID, body string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[connID]
	if !ok {
		return domain.ErrUnregisteredSender
	}
	r, ok := b.rooms[u.room]
	if !ok {
		// A registered sender without a room should not happen post-join;
		// drop rather than fail so one malformed client cannot disturb
		// delivery for others.
		return nil
	}

	msg := domain.Message{
		ID:        uuid.NewString(),
		Sender:    u.name,
		SenderID:  connID,
		Room:      r.id,
		Body:      body,
		Timestamp: time.Now().UTC(),
	}
	r.append(msg, b.historyLimit)
	b.broadcastRoomLocked(r, frame(domain.KindReceiveMessage, msg))
	return nil
}

// PrivateMessage delivers to exactly {sender, recipient}, independent of
// either party's current room. Private traffic never touches any room
// history.
func (b *Broker) PrivateMessage(connID, to, body string) error {
	if to == "" {
		return domain.ErrMalformedPayload
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	msg := domain.Message{
		ID:        uuid.NewString(),
		Sender:    b.displayNameLocked(connID),
		SenderID:  connID,
		To:        to,
		Body:      body,
		IsPrivate: true,
		Timestamp: time.Now().UTC(),
	}
	b.deliverPairLocked(connID, to, frame(domain.KindPrivateMessage, msg))
	return nil
}

// SendAttachment routes a file payload, room-scoped by default or private
// when a recipient is given. Room attachments join the history like text
// messages; private ones do not.
func (b *Broker) SendAttachment(connID string, att domain.Attachment, to string) error {
	if len(att.Data) == 0 {
		return domain.ErrMalformedPayload
	}
	if b.maxAttachment > 0 && int64(len(att.Data)) > b.maxAttachment {
		return domain.ErrPayloadTooLarge
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[connID]
	if !ok {
		return domain.ErrUnregisteredSender
	}

	msg := domain.Message{
		ID:         uuid.NewString(),
		Sender:     u.name,
		SenderID:   connID,
		Attachment: &att,
		Timestamp:  time.Now().UTC(),
	}

	if to != "" {
		msg.To = to
		msg.IsPrivate = true
		b.deliverPairLocked(connID, to, frame(domain.KindReceiveAttachment, msg))
		return nil
	}

	r, ok := b.rooms[u.room]
	if !ok {
		return nil
	}
	msg.Room = r.id
	r.append(msg, b.historyLimit)
	b.broadcastRoomLocked(r, frame(domain.KindReceiveAttachment, msg))
	return nil
}

func (b *Broker) deliverPairLocked(senderID, to string, data []byte) {
	if conn, ok := b.conns[to]; ok {
		b.sendLocked(conn, data)
	}
	if to == senderID {
		return
	}
	if conn, ok := b.conns[senderID]; ok {
		b.sendLocked(conn, data)
	}
}
