package ws

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/condovia/condovia-backend/internal/common"
	"github.com/condovia/condovia-backend/internal/service"
	pkglogger "github.com/condovia/condovia-backend/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// Client is one live chat session: a single resident connected to a single
// conversation. A session reaches this type only after authentication and
// the membership check have passed; from here the only exits are transport
// disconnect and explicit close. Protocol errors never terminate a session.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	sessionID      string
	conversationID uint
	userID         uint
	username       string

	chat         service.ChatService
	readReceipts service.ReadReceiptService
}

// NewClient creates a new chat session
func NewClient(hub *Hub, conn *websocket.Conn, conversationID, userID uint, username string, chat service.ChatService, readReceipts service.ReadReceiptService) *Client {
	return &Client{
		hub:            hub,
		conn:           conn,
		send:           make(chan []byte, sendBufferSize),
		sessionID:      uuid.New().String(),
		conversationID: conversationID,
		userID:         userID,
		username:       username,
		chat:           chat,
		readReceipts:   readReceipts,
	}
}

// AnnounceOnline tells the other room members this session joined.
// The joining session itself never receives its own presence event.
func (c *Client) AnnounceOnline() {
	c.hub.Broadcast(c.conversationID, &Event{
		Type: EventUserOnline,
		Data: PresenceData{UserID: c.userID, Username: c.username},
	}, c.sessionID)
}

// announceOffline mirrors AnnounceOnline on teardown
func (c *Client) announceOffline() {
	c.hub.Broadcast(c.conversationID, &Event{
		Type: EventUserOffline,
		Data: PresenceData{UserID: c.userID},
	}, c.sessionID)
}

// ReadPump consumes inbound frames until the transport closes. Event
// handlers run on this goroutine, so a slow database call stalls only this
// session's inbox, never delivery to the rest of the room.
func (c *Client) ReadPump() {
	defer func() {
		c.announceOffline()
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		c.handleFrame(data)
	}
}

// WritePump sends queued events to the WebSocket
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message) //nolint:errcheck
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame dispatches one inbound protocol frame. Every failure path
// reports to this session only and leaves it joined.
func (c *Client) handleFrame(data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.sendError(CodeInvalidJSON, "JSON inválido")
		return
	}

	switch frame.Type {
	case EventMessageSend:
		c.handleMessageSend(frame.Data)
	case EventTypingStart:
		c.hub.Broadcast(c.conversationID, &Event{
			Type: EventTypingStart,
			Data: PresenceData{UserID: c.userID, Username: c.username},
		}, c.sessionID)
	case EventTypingStop:
		c.hub.Broadcast(c.conversationID, &Event{
			Type: EventTypingStop,
			Data: PresenceData{UserID: c.userID},
		}, c.sessionID)
	case EventMessageRead:
		c.handleMessageRead(frame.Data)
	default:
		c.sendError(CodeInvalidMessageType, "Tipo de mensaje inválido")
	}
}

// handleMessageSend persists the message and, only after the row is durable,
// broadcasts it to the whole room including the sender.
func (c *Client) handleMessageSend(raw json.RawMessage) {
	var payload SendMessageData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			c.sendError(CodeInvalidJSON, "JSON inválido")
			return
		}
	}

	msg, err := c.chat.SendMessage(c.conversationID, c.userID, payload.Text, payload.Type, nil)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrEmptyMessage):
			c.sendError(CodeEmptyMessage, "El mensaje no puede estar vacío")
		case errors.Is(err, common.ErrInvalidInput):
			c.sendError(CodeInvalidMessageType, "Tipo de mensaje inválido")
		default:
			log := pkglogger.WithConversationID(c.conversationID)
			log.Error().Err(err).Uint("sender_id", c.userID).Msg("message persist failed")
			c.sendError(CodePersistFailed, "No se pudo guardar el mensaje")
		}
		return
	}

	c.hub.Broadcast(c.conversationID, &Event{
		Type: EventMessageNew,
		Data: msg.ToResponse(false),
	}, "")
}

// handleMessageRead records the receipt and broadcasts it with the persisted
// read timestamp. Unknown or missing message IDs are ignored silently.
func (c *Client) handleMessageRead(raw json.RawMessage) {
	var payload ReadMessageData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			c.sendError(CodeInvalidJSON, "JSON inválido")
			return
		}
	}
	if payload.MessageID == 0 {
		return
	}

	readAt, err := c.readReceipts.MarkRead(payload.MessageID, c.userID)
	if err != nil {
		// Messages outside the reader's conversations look the same as
		// unknown ones, so both stay silent.
		if errors.Is(err, common.ErrMessageNotFound) || errors.Is(err, common.ErrNotParticipant) {
			return
		}
		c.sendError(CodeInternalError, err.Error())
		return
	}

	c.hub.Broadcast(c.conversationID, &Event{
		Type: EventMessageRead,
		Data: ReadReceiptData{
			MessageID: payload.MessageID,
			UserID:    c.userID,
			ReadAt:    readAt,
		},
	}, "")
}

// sendError queues an error event for this session only
func (c *Client) sendError(code, message string) {
	data, err := json.Marshal(&Event{
		Type: EventError,
		Data: ErrorData{Code: code, Message: message},
	})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		droppedTotal.Inc()
	}
}
