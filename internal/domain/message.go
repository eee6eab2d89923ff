package domain

import "time"

// Message types
const (
	MessageText   = "TEXT"
	MessageImage  = "IMAGE"
	MessageFile   = "FILE"
	MessageSystem = "SYSTEM"
)

// Message is a single message inside a conversation. Creation timestamp is
// immutable and defines the canonical order within the conversation.
type Message struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	ConversationID uint         `gorm:"not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	Conversation   Conversation `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	SenderID       uint         `gorm:"not null;index" json:"sender_id"`
	Sender         Resident     `gorm:"foreignKey:SenderID" json:"-"`

	Type string `gorm:"size:10;default:TEXT" json:"type"`
	Text string `gorm:"type:text" json:"text"`

	AttachmentURL  string `gorm:"size:500" json:"attachment_url,omitempty"`
	AttachmentName string `gorm:"size:255" json:"attachment_name,omitempty"`
	AttachmentSize *int64 `json:"attachment_size,omitempty"`

	CreatedAt time.Time  `gorm:"index:idx_messages_conversation_created,priority:2" json:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	IsDeleted bool       `gorm:"default:false" json:"is_deleted"`
}

func (Message) TableName() string {
	return "messages"
}

// ValidMessageType reports whether t is a known message type
func ValidMessageType(t string) bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageSystem:
		return true
	}
	return false
}

// MessageReadStatus records that a resident has read a message.
// At most one row exists per (message, resident) pair.
type MessageReadStatus struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MessageID  uint      `gorm:"not null;uniqueIndex:idx_read_status_message_resident,priority:1" json:"message_id"`
	Message    Message   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ResidentID uint      `gorm:"not null;uniqueIndex:idx_read_status_message_resident,priority:2" json:"resident_id"`
	Resident   Resident  `gorm:"foreignKey:ResidentID" json:"-"`
	ReadAt     time.Time `json:"read_at"`
}

func (MessageReadStatus) TableName() string {
	return "message_read_statuses"
}

// SendMessageRequest is the payload for sending a message over REST
type SendMessageRequest struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// MessageSenderResponse is the sender shape embedded in message responses
type MessageSenderResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// MessageResponse is the message shape for API responses and the wire protocol
type MessageResponse struct {
	ID             uint                   `json:"id"`
	ConversationID uint                   `json:"conversation_id"`
	Sender         *MessageSenderResponse `json:"sender"`
	Type           string                 `json:"type"`
	Text           string                 `json:"text"`
	Attachment     *AttachmentResponse    `json:"attachment"`
	CreatedAt      time.Time              `json:"created_at"`
	EditedAt       *time.Time             `json:"edited_at"`
	IsDeleted      bool                   `json:"is_deleted"`
	IsRead         bool                   `json:"is_read"`
}

// AttachmentResponse describes a message attachment
type AttachmentResponse struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
	Size *int64 `json:"size,omitempty"`
}

// ToResponse converts a Message (with Sender preloaded) to its API shape
func (m *Message) ToResponse(isRead bool) *MessageResponse {
	resp := &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Type:           m.Type,
		Text:           m.Text,
		CreatedAt:      m.CreatedAt,
		EditedAt:       m.EditedAt,
		IsDeleted:      m.IsDeleted,
		IsRead:         isRead,
	}

	fullName := m.Sender.FullName
	if fullName == "" {
		fullName = m.Sender.Username
	}
	resp.Sender = &MessageSenderResponse{
		ID:       m.SenderID,
		Username: m.Sender.Username,
		FullName: fullName,
	}

	if m.AttachmentURL != "" {
		resp.Attachment = &AttachmentResponse{
			URL:  m.AttachmentURL,
			Name: m.AttachmentName,
			Size: m.AttachmentSize,
		}
	}

	return resp
}
