package protocol

import (
	"encoding/json"
	"log/slog"

	"chat-relay-server/domain"
)

// Core is the broker surface the handler drives. Defined here so tests can
// substitute a mock.
type Core interface {
	Join(conn domain.Connection, username string) error
	Leave(connID string)
	CreateRoom(name string) (string, error)
	SwitchRoom(connID, roomID string) error
	SendMessage(connID, body string) error
	SendAttachment(connID string, att domain.Attachment, to string) error
	PrivateMessage(connID, to, body string) error
	SetTyping(connID string, isTyping bool)
}

// Handler decodes inbound frames and dispatches on the closed event-kind
// set. Errors are local: log, drop the event, keep serving. Nothing is
// surfaced back to the sender.
type Handler struct {
	core Core
}

func NewHandler(core Core) *Handler {
	return &Handler{core: core}
}

func (h *Handler) Handle(conn domain.Connection, data []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		h.drop(conn, env.Type, domain.ErrMalformedPayload)
		return
	}

	if err := h.dispatch(conn, env); err != nil {
		h.drop(conn, env.Type, err)
	}
}

// Disconnected handles the transport-driven disconnect; cleanup is
// unconditional and idempotent.
func (h *Handler) Disconnected(conn domain.Connection) {
	h.core.Leave(conn.ID())
}

func (h *Handler) dispatch(conn domain.Connection, env domain.Envelope) error {
	switch env.Type {
	case domain.KindJoin:
		var p domain.JoinPayload
		if err := decode(env.Payload, &p); err != nil {
			return err
		}
		return h.core.Join(conn, p.Username)

	case domain.KindCreateRoom:
		var p domain.CreateRoomPayload
		if err := decode(env.Payload, &p); err != nil {
			return err
		}
		_, err := h.core.CreateRoom(p.Name)
		return err

	case domain.KindJoinRoom:
		var p domain.JoinRoomPayload
		if err := decode(env.Payload, &p); err != nil {
			return err
		}
		return h.core.SwitchRoom(conn.ID(), p.Room)

	case domain.KindSendMessage:
		var p domain.SendMessagePayload
		if err := decode(env.Payload, &p); err != nil {
			return err
		}
		return h.core.SendMessage(conn.ID(), p.Message)

	case domain.KindSendAttachment:
		var p domain.SendAttachmentPayload
		if err := decode(env.Payload, &p); err != nil {
			return err
		}
		att := domain.Attachment{Filename: p.Filename, MimeType: p.MimeType, Data: p.Data}
		return h.core.SendAttachment(conn.ID(), att, p.To)

	case domain.KindPrivateMessage:
		var p domain.PrivateMessagePayload
		if err := decode(env.Payload, &p); err != nil {
			return err
		}
		return h.core.PrivateMessage(conn.ID(), p.To, p.Message)

	case domain.KindTyping:
		var p domain.TypingPayload
		if err := decode(env.Payload, &p); err != nil {
			return err
		}
		h.core.SetTyping(conn.ID(), p.IsTyping)
		return nil

	default:
		return domain.ErrMalformedPayload
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return domain.ErrMalformedPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return domain.ErrMalformedPayload
	}
	return nil
}

func (h *Handler) drop(conn domain.Connection, kind domain.Kind, err error) {
	slog.Warn("event dropped", "clientId", conn.ID(), "kind", kind, "error", err)
}
