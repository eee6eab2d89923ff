package domain

import "time"

// Conversation types
const (
	ConversationDirect = "DIRECT"
	ConversationGroup  = "GROUP"
)

// PreviewMaxLen caps the denormalized last-message preview
const PreviewMaxLen = 200

// Conversation is a persistent container of ordered messages among a set of
// participants, either direct (two residents) or a group.
type Conversation struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Type        string `gorm:"size:10;index" json:"type"` // DIRECT or GROUP
	Name        string `gorm:"size:200" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	Participants []Resident `gorm:"many2many:conversation_participants;" json:"participants"`
	CreatedByID  *uint      `json:"created_by_id,omitempty"`
	CreatedBy    *Resident  `gorm:"foreignKey:CreatedByID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Denormalized metadata for cheap list-view sorting
	LastMessageAt      *time.Time `gorm:"index:idx_conversations_last_message_at,sort:desc" json:"last_message_at,omitempty"`
	LastMessagePreview string     `gorm:"size:200" json:"last_message_preview"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// PreviewFor derives the last-message preview for a message.
// TEXT and SYSTEM use the text body, attachments use a placeholder label.
func PreviewFor(msg *Message) string {
	switch msg.Type {
	case MessageImage:
		return "📷 Imagen"
	case MessageFile:
		return "📎 " + msg.AttachmentName
	default:
		return truncate(msg.Text, PreviewMaxLen)
	}
}

// ApplyLastMessage updates the denormalized preview fields from a message
func (c *Conversation) ApplyLastMessage(msg *Message) {
	at := msg.CreatedAt
	c.LastMessageAt = &at
	c.LastMessagePreview = truncate(PreviewFor(msg), PreviewMaxLen)
}

// OtherParticipant returns the counterpart in a DIRECT conversation
func (c *Conversation) OtherParticipant(currentID uint) *Resident {
	if c.Type != ConversationDirect {
		return nil
	}
	for i := range c.Participants {
		if c.Participants[i].ID != currentID {
			return &c.Participants[i]
		}
	}
	return nil
}

// HasParticipant reports whether a resident is in the loaded participant set
func (c *Conversation) HasParticipant(residentID uint) bool {
	for i := range c.Participants {
		if c.Participants[i].ID == residentID {
			return true
		}
	}
	return false
}

// ParticipantIDs returns the IDs of the loaded participant set
func (c *Conversation) ParticipantIDs() []uint {
	ids := make([]uint, 0, len(c.Participants))
	for i := range c.Participants {
		ids = append(ids, c.Participants[i].ID)
	}
	return ids
}

// truncate cuts a string to at most n runes
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// CreateConversationRequest is the payload for creating a conversation
type CreateConversationRequest struct {
	Type           string `json:"type" binding:"required,oneof=DIRECT GROUP"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	ParticipantIDs []uint `json:"participant_ids" binding:"required,min=1"`
}

// AddParticipantRequest is the payload for adding a participant to a group
type AddParticipantRequest struct {
	ResidentID uint `json:"resident_id" binding:"required"`
}

// ConversationResponse is the conversation shape for list and detail views
type ConversationResponse struct {
	ID                 uint                `json:"id"`
	Type               string              `json:"type"`
	Name               string              `json:"name"`
	Description        string              `json:"description,omitempty"`
	Participants       []*ResidentResponse `json:"participants"`
	CreatedAt          time.Time           `json:"created_at"`
	LastMessageAt      *time.Time          `json:"last_message_at,omitempty"`
	LastMessagePreview string              `json:"last_message_preview"`
	UnreadCount        int64               `json:"unread_count"`
}

// ToResponse converts a Conversation to its API shape
func (c *Conversation) ToResponse(unreadCount int64) *ConversationResponse {
	participants := make([]*ResidentResponse, len(c.Participants))
	for i := range c.Participants {
		participants[i] = c.Participants[i].ToResponse()
	}

	return &ConversationResponse{
		ID:                 c.ID,
		Type:               c.Type,
		Name:               c.Name,
		Description:        c.Description,
		Participants:       participants,
		CreatedAt:          c.CreatedAt,
		LastMessageAt:      c.LastMessageAt,
		LastMessagePreview: c.LastMessagePreview,
		UnreadCount:        unreadCount,
	}
}
