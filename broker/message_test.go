package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-relay-server/domain"
)

func TestBroker_RoomScopedDelivery(t *testing.T) {
	b := New(Options{})
	alice := join(t, b, "a", "alice")
	bob := join(t, b, "b", "bob")
	carol := join(t, b, "c", "carol")

	side, err := b.CreateRoom("Side Room")
	require.NoError(t, err)
	require.NoError(t, b.SwitchRoom("a", side))
	require.NoError(t, b.SwitchRoom("b", side))

	require.NoError(t, b.SendMessage("a", "side only"))

	// delivery set is the room membership at processing time, sender included
	assert.Len(t, payloads[domain.Message](t, alice, domain.KindReceiveMessage), 1)
	assert.Len(t, payloads[domain.Message](t, bob, domain.KindReceiveMessage), 1)
	assert.Empty(t, payloads[domain.Message](t, carol, domain.KindReceiveMessage))

	// bob leaves just before the next message: he must not receive it,
	// carol joins just before: she must
	require.NoError(t, b.SwitchRoom("b", DefaultRoomID))
	require.NoError(t, b.SwitchRoom("c", side))
	require.NoError(t, b.SendMessage("a", "after the shuffle"))

	assert.Len(t, payloads[domain.Message](t, bob, domain.KindReceiveMessage), 1)
	carolMsgs := payloads[domain.Message](t, carol, domain.KindReceiveMessage)
	require.Len(t, carolMsgs, 1)
	assert.Equal(t, "after the shuffle", carolMsgs[0].Body)
	assert.Equal(t, side, carolMsgs[0].Room)
	assert.Equal(t, "alice", carolMsgs[0].Sender)
	assert.NotEmpty(t, carolMsgs[0].ID)
}

func TestBroker_PrivateMessage(t *testing.T) {
	b := New(Options{})
	alice := join(t, b, "a", "alice")
	bob := join(t, b, "b", "bob")
	carol := join(t, b, "c", "carol")

	// parties in different rooms: private delivery ignores rooms
	side, err := b.CreateRoom("Side Room")
	require.NoError(t, err)
	require.NoError(t, b.SwitchRoom("b", side))

	require.NoError(t, b.PrivateMessage("a", "b", "psst"))

	for _, conn := range []*mockConn{alice, bob} {
		msgs := payloads[domain.Message](t, conn, domain.KindPrivateMessage)
		require.Len(t, msgs, 1)
		assert.Equal(t, "psst", msgs[0].Body)
		assert.Equal(t, "alice", msgs[0].Sender)
		assert.Equal(t, "b", msgs[0].To)
		assert.True(t, msgs[0].IsPrivate)
	}
	assert.Empty(t, payloads[domain.Message](t, carol, domain.KindPrivateMessage))

	// never appears in any room history
	late := join(t, b, "d", "dave")
	require.NoError(t, b.SwitchRoom("d", DefaultRoomID))
	require.NoError(t, b.SwitchRoom("d", side))
	for _, replay := range payloads[[]domain.Message](t, late, domain.KindMessageHistory) {
		assert.Empty(t, replay)
	}

	assert.ErrorIs(t, b.PrivateMessage("a", "", "no recipient"), domain.ErrMalformedPayload)
}

func TestBroker_PrivateMessageAnonymousSender(t *testing.T) {
	b := New(Options{})
	bob := join(t, b, "b", "bob")

	// in-flight private message racing a disconnect: sender already gone
	require.NoError(t, b.PrivateMessage("ghost", "b", "late echo"))

	msgs := payloads[domain.Message](t, bob, domain.KindPrivateMessage)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Anonymous", msgs[0].Sender)
}

func TestBroker_Attachment(t *testing.T) {
	b := New(Options{})
	alice := join(t, b, "a", "alice")
	bob := join(t, b, "b", "bob")

	att := domain.Attachment{Filename: "notes.txt", MimeType: "text/plain", Data: []byte("hello")}
	require.NoError(t, b.SendAttachment("a", att, ""))

	for _, conn := range []*mockConn{alice, bob} {
		got := payloads[domain.Message](t, conn, domain.KindReceiveAttachment)
		require.Len(t, got, 1)
		require.NotNil(t, got[0].Attachment)
		assert.Equal(t, "notes.txt", got[0].Attachment.Filename)
		assert.Equal(t, []byte("hello"), got[0].Attachment.Data)
		assert.False(t, got[0].IsPrivate)
	}

	// room attachments are part of the replayable history
	late := join(t, b, "c", "carol")
	require.NoError(t, b.SwitchRoom("c", DefaultRoomID))
	replays := payloads[[]domain.Message](t, late, domain.KindMessageHistory)
	require.Len(t, replays, 1)
	require.Len(t, replays[0], 1)
	assert.Equal(t, "notes.txt", replays[0][0].Attachment.Filename)
}

func TestBroker_PrivateAttachment(t *testing.T) {
	b := New(Options{})
	join(t, b, "a", "alice")
	bob := join(t, b, "b", "bob")
	carol := join(t, b, "c", "carol")

	att := domain.Attachment{Filename: "secret.png", MimeType: "image/png", Data: []byte{1, 2, 3}}
	require.NoError(t, b.SendAttachment("a", att, "b"))

	got := payloads[domain.Message](t, bob, domain.KindReceiveAttachment)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsPrivate)
	assert.Equal(t, "b", got[0].To)
	assert.Empty(t, payloads[domain.Message](t, carol, domain.KindReceiveAttachment))

	// not in history
	late := join(t, b, "d", "dave")
	require.NoError(t, b.SwitchRoom("d", DefaultRoomID))
	replays := payloads[[]domain.Message](t, late, domain.KindMessageHistory)
	require.Len(t, replays, 1)
	assert.Empty(t, replays[0])
}

func TestBroker_AttachmentLimits(t *testing.T) {
	b := New(Options{MaxAttachmentBytes: 4})
	alice := join(t, b, "a", "alice")
	join(t, b, "b", "bob")

	big := domain.Attachment{Filename: "big.bin", MimeType: "application/octet-stream", Data: []byte("12345")}
	assert.ErrorIs(t, b.SendAttachment("a", big, ""), domain.ErrPayloadTooLarge)

	empty := domain.Attachment{Filename: "empty.bin", MimeType: "application/octet-stream"}
	assert.ErrorIs(t, b.SendAttachment("a", empty, ""), domain.ErrMalformedPayload)

	assert.Empty(t, payloads[domain.Message](t, alice, domain.KindReceiveAttachment))

	ok := domain.Attachment{Filename: "ok.bin", MimeType: "application/octet-stream", Data: []byte("1234")}
	require.NoError(t, b.SendAttachment("a", ok, ""))
	assert.Len(t, payloads[domain.Message](t, alice, domain.KindReceiveAttachment), 1)
}
