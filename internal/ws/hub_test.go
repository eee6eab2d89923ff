package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/condovia/condovia-backend/internal/domain"
	"github.com/condovia/condovia-backend/internal/service"
)

// stubChatService returns a canned message or error
type stubChatService struct {
	msg   *domain.Message
	err   error
	calls int
}

func (s *stubChatService) SendMessage(conversationID, senderID uint, text, msgType string, attachment *service.Attachment) (*domain.Message, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.msg, nil
}

// stubReadReceiptService returns a canned read timestamp
type stubReadReceiptService struct {
	readAt time.Time
	err    error
	calls  int
}

func (s *stubReadReceiptService) MarkRead(messageID, readerID uint) (time.Time, error) {
	s.calls++
	return s.readAt, s.err
}

func (s *stubReadReceiptService) MarkAllRead(conversationID, readerID uint) error {
	return nil
}

func (s *stubReadReceiptService) UnreadCount(conversationID, viewerID uint) (int64, error) {
	return 0, nil
}

// newTestClient builds a session without a live websocket connection; the
// pumps are never started, events are read straight from the send channel.
func newTestClient(hub *Hub, conversationID, userID uint, username string, chat service.ChatService, readReceipts service.ReadReceiptService) *Client {
	return &Client{
		hub:            hub,
		send:           make(chan []byte, sendBufferSize),
		sessionID:      uuid.New().String(),
		conversationID: conversationID,
		userID:         userID,
		username:       username,
		chat:           chat,
		readReceipts:   readReceipts,
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func recvEvent(t *testing.T, c *Client) *Frame {
	t.Helper()
	select {
	case data := <-c.send:
		var frame Frame
		assert.NoError(t, json.Unmarshal(data, &frame))
		return &frame
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

// sendMarker broadcasts a sentinel to the whole room; once every session has
// received it, all earlier broadcasts have been delivered too.
func sendMarker(hub *Hub, conversationID uint) {
	hub.Broadcast(conversationID, &Event{Type: "test.marker"}, "")
}

func TestHub_BroadcastReachesWholeRoom(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, 1, 10, "alice", nil, nil)
	bob := newTestClient(hub, 1, 20, "bob", nil, nil)
	carol := newTestClient(hub, 2, 30, "carol", nil, nil)
	hub.Register(alice)
	hub.Register(bob)
	hub.Register(carol)

	hub.Broadcast(1, &Event{Type: EventMessageNew, Data: map[string]any{"id": 1}}, "")

	assert.Equal(t, EventMessageNew, recvEvent(t, alice).Type)
	assert.Equal(t, EventMessageNew, recvEvent(t, bob).Type)

	// Carol is in another conversation and must see nothing
	sendMarker(hub, 2)
	assert.Equal(t, "test.marker", recvEvent(t, carol).Type)
	assert.Empty(t, carol.send)
}

func TestHub_ExcludeSession(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, 1, 10, "alice", nil, nil)
	bob := newTestClient(hub, 1, 20, "bob", nil, nil)
	hub.Register(alice)
	hub.Register(bob)

	hub.Broadcast(1, &Event{Type: EventTypingStart}, alice.sessionID)
	sendMarker(hub, 1)

	assert.Equal(t, EventTypingStart, recvEvent(t, bob).Type)
	// Alice skips the typing event and sees only the marker
	assert.Equal(t, "test.marker", recvEvent(t, alice).Type)
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, 1, 10, "alice", nil, nil)
	bob := newTestClient(hub, 1, 20, "bob", nil, nil)
	hub.Register(alice)
	hub.Register(bob)

	sendMarker(hub, 1)
	recvEvent(t, alice)
	recvEvent(t, bob)
	assert.Equal(t, 2, hub.RoomSize(1))

	hub.Unregister(alice)
	sendMarker(hub, 1)
	recvEvent(t, bob)
	assert.Equal(t, 1, hub.RoomSize(1))

	// Unregister closed the channel
	_, open := <-alice.send
	assert.False(t, open)
}

func TestHub_EmptyRoomCleanedUp(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, 7, 10, "alice", nil, nil)
	hub.Register(alice)
	hub.Unregister(alice)

	sendMarker(hub, 7)
	// Force the marker through the loop via a second room
	bob := newTestClient(hub, 8, 20, "bob", nil, nil)
	hub.Register(bob)
	sendMarker(hub, 8)
	recvEvent(t, bob)

	assert.Equal(t, 0, hub.RoomSize(7))
}

func TestClient_AnnounceOnlineExcludesSelf(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, 1, 10, "alice", nil, nil)
	bob := newTestClient(hub, 1, 20, "bob", nil, nil)
	hub.Register(alice)
	hub.Register(bob)

	alice.AnnounceOnline()
	sendMarker(hub, 1)

	frame := recvEvent(t, bob)
	assert.Equal(t, EventUserOnline, frame.Type)
	var presence PresenceData
	assert.NoError(t, json.Unmarshal(frame.Data, &presence))
	assert.Equal(t, uint(10), presence.UserID)
	assert.Equal(t, "alice", presence.Username)

	assert.Equal(t, "test.marker", recvEvent(t, alice).Type)
}
