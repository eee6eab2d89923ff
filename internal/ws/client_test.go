package ws

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/condovia/condovia-backend/internal/common"
	"github.com/condovia/condovia-backend/internal/domain"
)

func TestHandleFrame_InvalidJSON(t *testing.T) {
	hub := startHub(t)
	alice := newTestClient(hub, 1, 10, "alice", nil, nil)
	bob := newTestClient(hub, 1, 20, "bob", nil, nil)
	hub.Register(alice)
	hub.Register(bob)

	alice.handleFrame([]byte("{not json"))

	frame := recvEvent(t, alice)
	assert.Equal(t, EventError, frame.Type)
	var errData ErrorData
	assert.NoError(t, json.Unmarshal(frame.Data, &errData))
	assert.Equal(t, CodeInvalidJSON, errData.Code)

	// The error goes to the offending session only
	sendMarker(hub, 1)
	assert.Equal(t, "test.marker", recvEvent(t, bob).Type)
}

func TestHandleFrame_UnknownType(t *testing.T) {
	hub := startHub(t)
	alice := newTestClient(hub, 1, 10, "alice", nil, nil)
	hub.Register(alice)

	alice.handleFrame([]byte(`{"type":"message.explode","data":{}}`))

	frame := recvEvent(t, alice)
	assert.Equal(t, EventError, frame.Type)
	var errData ErrorData
	assert.NoError(t, json.Unmarshal(frame.Data, &errData))
	assert.Equal(t, CodeInvalidMessageType, errData.Code)
}

func TestHandleMessageSend_EmptyOnlyToSender(t *testing.T) {
	hub := startHub(t)
	chat := &stubChatService{err: common.ErrEmptyMessage}
	alice := newTestClient(hub, 1, 10, "alice", chat, nil)
	bob := newTestClient(hub, 1, 20, "bob", nil, nil)
	hub.Register(alice)
	hub.Register(bob)

	alice.handleFrame([]byte(`{"type":"message.send","data":{"text":"   "}}`))

	frame := recvEvent(t, alice)
	assert.Equal(t, EventError, frame.Type)
	var errData ErrorData
	assert.NoError(t, json.Unmarshal(frame.Data, &errData))
	assert.Equal(t, CodeEmptyMessage, errData.Code)

	// Nothing reached the room
	sendMarker(hub, 1)
	assert.Equal(t, "test.marker", recvEvent(t, bob).Type)
}

func TestHandleMessageSend_InvalidTypeOnlyToSender(t *testing.T) {
	hub := startHub(t)
	chat := &stubChatService{err: common.ErrInvalidInput}
	alice := newTestClient(hub, 1, 10, "alice", chat, nil)
	bob := newTestClient(hub, 1, 20, "bob", nil, nil)
	hub.Register(alice)
	hub.Register(bob)

	alice.handleFrame([]byte(`{"type":"message.send","data":{"text":"hola","type":"VIDEO"}}`))

	// Bad content type reuses the unknown-frame code
	frame := recvEvent(t, alice)
	assert.Equal(t, EventError, frame.Type)
	var errData ErrorData
	assert.NoError(t, json.Unmarshal(frame.Data, &errData))
	assert.Equal(t, CodeInvalidMessageType, errData.Code)

	sendMarker(hub, 1)
	assert.Equal(t, "test.marker", recvEvent(t, bob).Type)
}

func TestHandleMessageSend_PersistFailure(t *testing.T) {
	hub := startHub(t)
	chat := &stubChatService{err: errors.New("db gone")}
	alice := newTestClient(hub, 1, 10, "alice", chat, nil)
	hub.Register(alice)

	alice.handleFrame([]byte(`{"type":"message.send","data":{"text":"hola"}}`))

	frame := recvEvent(t, alice)
	assert.Equal(t, EventError, frame.Type)
	var errData ErrorData
	assert.NoError(t, json.Unmarshal(frame.Data, &errData))
	assert.Equal(t, CodePersistFailed, errData.Code)
}

func TestHandleMessageSend_BroadcastsToWholeRoom(t *testing.T) {
	hub := startHub(t)
	chat := &stubChatService{msg: &domain.Message{
		ID:             42,
		ConversationID: 1,
		SenderID:       10,
		Sender:         domain.Resident{ID: 10, Username: "alice", FullName: "Alice Pérez"},
		Type:           domain.MessageText,
		Text:           "hola vecinos",
		CreatedAt:      time.Now(),
	}}
	alice := newTestClient(hub, 1, 10, "alice", chat, nil)
	bob := newTestClient(hub, 1, 20, "bob", nil, nil)
	hub.Register(alice)
	hub.Register(bob)

	alice.handleFrame([]byte(`{"type":"message.send","data":{"text":"hola vecinos"}}`))

	// The sender receives its own message.new: that is the delivery ack
	for _, c := range []*Client{alice, bob} {
		frame := recvEvent(t, c)
		assert.Equal(t, EventMessageNew, frame.Type)
		var msg domain.MessageResponse
		assert.NoError(t, json.Unmarshal(frame.Data, &msg))
		assert.Equal(t, uint(42), msg.ID)
		assert.Equal(t, "hola vecinos", msg.Text)
		assert.Equal(t, "alice", msg.Sender.Username)
	}
}

func TestHandleMessageRead_DuplicateBroadcastsTwice(t *testing.T) {
	hub := startHub(t)
	readAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	receipts := &stubReadReceiptService{readAt: readAt}
	alice := newTestClient(hub, 1, 10, "alice", nil, receipts)
	bob := newTestClient(hub, 1, 20, "bob", nil, nil)
	hub.Register(alice)
	hub.Register(bob)

	// Marking twice is idempotent at the storage layer but each mark still
	// produces a broadcast carrying the same persisted timestamp.
	alice.handleFrame([]byte(`{"type":"message.read","data":{"message_id":42}}`))
	alice.handleFrame([]byte(`{"type":"message.read","data":{"message_id":42}}`))

	for i := 0; i < 2; i++ {
		frame := recvEvent(t, bob)
		assert.Equal(t, EventMessageRead, frame.Type)
		var receipt ReadReceiptData
		assert.NoError(t, json.Unmarshal(frame.Data, &receipt))
		assert.Equal(t, uint(42), receipt.MessageID)
		assert.Equal(t, uint(10), receipt.UserID)
		assert.True(t, readAt.Equal(receipt.ReadAt))
	}
	assert.Equal(t, 2, receipts.calls)
}

func TestHandleMessageRead_UnknownMessageSilent(t *testing.T) {
	hub := startHub(t)
	receipts := &stubReadReceiptService{err: common.ErrMessageNotFound}
	alice := newTestClient(hub, 1, 10, "alice", nil, receipts)
	hub.Register(alice)

	alice.handleFrame([]byte(`{"type":"message.read","data":{"message_id":999}}`))
	alice.handleFrame([]byte(`{"type":"message.read","data":{}}`))

	sendMarker(hub, 1)
	assert.Equal(t, "test.marker", recvEvent(t, alice).Type)
	// MessageID 0 never reaches the service
	assert.Equal(t, 1, receipts.calls)
}

func TestHandleMessageRead_ForeignMessageSilent(t *testing.T) {
	hub := startHub(t)
	// A message from a conversation the reader does not belong to is
	// indistinguishable from an unknown one.
	receipts := &stubReadReceiptService{err: common.ErrNotParticipant}
	alice := newTestClient(hub, 1, 10, "alice", nil, receipts)
	hub.Register(alice)

	alice.handleFrame([]byte(`{"type":"message.read","data":{"message_id":77}}`))

	sendMarker(hub, 1)
	assert.Equal(t, "test.marker", recvEvent(t, alice).Type)
	assert.Equal(t, 1, receipts.calls)
}

func TestHandleFrame_TypingExcludesSelf(t *testing.T) {
	hub := startHub(t)
	alice := newTestClient(hub, 1, 10, "alice", nil, nil)
	bob := newTestClient(hub, 1, 20, "bob", nil, nil)
	hub.Register(alice)
	hub.Register(bob)

	alice.handleFrame([]byte(`{"type":"typing.start","data":{}}`))
	alice.handleFrame([]byte(`{"type":"typing.stop","data":{}}`))
	sendMarker(hub, 1)

	start := recvEvent(t, bob)
	assert.Equal(t, EventTypingStart, start.Type)
	var presence PresenceData
	assert.NoError(t, json.Unmarshal(start.Data, &presence))
	assert.Equal(t, uint(10), presence.UserID)
	assert.Equal(t, "alice", presence.Username)

	stop := recvEvent(t, bob)
	assert.Equal(t, EventTypingStop, stop.Type)

	// The typist sees neither event
	assert.Equal(t, "test.marker", recvEvent(t, alice).Type)
}
