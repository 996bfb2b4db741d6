package domain

import (
	"encoding/json"
	"time"
)

// Kind tags every frame exchanged with a client. The inbound set is closed:
// the protocol handler dispatches over exactly these values and drops
// anything else.
type Kind string

// Inbound event kinds (client -> broker).
const (
	KindJoin           Kind = "join"
	KindCreateRoom     Kind = "create_room"
	KindJoinRoom       Kind = "join_room"
	KindSendMessage    Kind = "send_message"
	KindSendAttachment Kind = "send_attachment"
	KindPrivateMessage Kind = "private_message"
	KindTyping         Kind = "typing"
)

// Outbound event kinds (broker -> client). KindPrivateMessage is used in
// both directions.
const (
	KindUserList          Kind = "user_list"
	KindRoomList          Kind = "room_list"
	KindUserJoined        Kind = "user_joined"
	KindUserLeft          Kind = "user_left"
	KindMessageHistory    Kind = "message_history"
	KindReceiveMessage    Kind = "receive_message"
	KindReceiveAttachment Kind = "receive_attachment"
	KindTypingUsers       Kind = "typing_users"
)

// Envelope is the wire framing: a kind tag plus a kind-specific payload.
type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode wraps a payload in an Envelope and marshals the whole frame.
func Encode(kind Kind, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: kind, Payload: raw})
}

// Message is the unit of delivery. Immutable once the broker has stamped it.
type Message struct {
	ID         string      `json:"id"`
	Sender     string      `json:"sender"`
	SenderID   string      `json:"senderId"`
	Room       string      `json:"roomId,omitempty"`
	To         string      `json:"to,omitempty"`
	Body       string      `json:"message,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
	IsPrivate  bool        `json:"isPrivate,omitempty"`
	IsSystem   bool        `json:"isSystem,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Attachment carries a file payload inline. Data is base64 on the wire.
type Attachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// User is the presence view of one connection.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// RoomSummary is one entry of the room directory broadcast.
type RoomSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Users int    `json:"users"`
}

// Inbound payloads, one per kind in the closed set above.
type (
	JoinPayload struct {
		Username string `json:"username"`
	}

	CreateRoomPayload struct {
		Name string `json:"name"`
	}

	JoinRoomPayload struct {
		Room string `json:"room"`
	}

	SendMessagePayload struct {
		Message string `json:"message"`
	}

	SendAttachmentPayload struct {
		Filename string `json:"filename"`
		MimeType string `json:"mimeType"`
		Data     []byte `json:"data"`
		To       string `json:"to,omitempty"`
	}

	PrivateMessagePayload struct {
		To      string `json:"to"`
		Message string `json:"message"`
	}

	TypingPayload struct {
		IsTyping bool `json:"isTyping"`
	}
)

// Connection is one live transport session. Owned by the transport layer;
// the broker only holds references. Send must not block.
type Connection interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// MessageHandler consumes raw inbound frames and the transport's disconnect
// signal for one connection.
type MessageHandler interface {
	Handle(conn Connection, data []byte)
	Disconnected(conn Connection)
}
