package ws

import (
	"encoding/json"
	"time"
)

// Wire event types. Client frames and server events share the
// {type, data} envelope.
const (
	EventMessageSend = "message.send"
	EventMessageNew  = "message.new"
	EventMessageRead = "message.read"
	EventTypingStart = "typing.start"
	EventTypingStop  = "typing.stop"
	EventUserOnline  = "user.online"
	EventUserOffline = "user.offline"
	EventError       = "error"
)

// Protocol error codes. Protocol errors go only to the offending session and
// never terminate it.
const (
	CodeEmptyMessage       = "EMPTY_MESSAGE"
	CodeInvalidMessageType = "INVALID_MESSAGE_TYPE"
	CodeInvalidJSON        = "INVALID_JSON"
	CodePersistFailed      = "PERSIST_FAILED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// CloseNotParticipant is the close code for a failed membership check
const CloseNotParticipant = 4001

// Event is a server-to-client protocol event
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Frame is a client-to-server protocol frame; Data stays raw until the
// event-specific handler decodes it.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SendMessageData is the payload of a message.send frame
type SendMessageData struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// ReadMessageData is the payload of a message.read frame
type ReadMessageData struct {
	MessageID uint `json:"message_id"`
}

// PresenceData is the payload of typing.* and user.* events
type PresenceData struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username,omitempty"`
}

// ReadReceiptData is the payload of an outbound message.read event.
// ReadAt is the persisted timestamp, read back from storage before emission.
type ReadReceiptData struct {
	MessageID uint      `json:"message_id"`
	UserID    uint      `json:"user_id"`
	ReadAt    time.Time `json:"read_at"`
}

// ErrorData is the payload of an error event
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
