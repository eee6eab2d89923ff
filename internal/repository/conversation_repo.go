package repository

import (
	"time"

	"github.com/condovia/condovia-backend/internal/domain"
	"gorm.io/gorm"
)

// ConversationRepository conversation data access interface
type ConversationRepository interface {
	Create(conv *domain.Conversation) error
	FindByID(id uint) (*domain.Conversation, error)
	FindByParticipant(residentID uint, page, limit int) ([]*domain.Conversation, int64, error)
	IsParticipant(conversationID, residentID uint) (bool, error)
	AddParticipant(conversationID, residentID uint) error
	RemoveParticipant(conversationID, residentID uint) error
	UpdateLastMessage(conversationID uint, at time.Time, preview string) error
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// Create persists a conversation together with its participant set
func (r *conversationRepository) Create(conv *domain.Conversation) error {
	return r.db.Create(conv).Error
}

// FindByID loads a conversation with its participants
func (r *conversationRepository) FindByID(id uint) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.Preload("Participants").First(&conv, id).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindByParticipant returns conversations the resident belongs to,
// most recently active first.
func (r *conversationRepository) FindByParticipant(residentID uint, page, limit int) ([]*domain.Conversation, int64, error) {
	var conversations []*domain.Conversation
	var total int64

	base := r.db.Model(&domain.Conversation{}).
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.resident_id = ?", residentID)

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := base.
		Preload("Participants").
		Order("conversations.last_message_at IS NULL, conversations.last_message_at DESC").
		Offset(offset).Limit(limit).
		Find(&conversations).Error
	return conversations, total, err
}

// IsParticipant is the membership guard query: a pure read, re-evaluated on
// every connection attempt, never cached.
func (r *conversationRepository) IsParticipant(conversationID, residentID uint) (bool, error) {
	var count int64
	err := r.db.Table("conversation_participants").
		Where("conversation_id = ? AND resident_id = ?", conversationID, residentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddParticipant inserts a membership row (no-op if already present)
func (r *conversationRepository) AddParticipant(conversationID, residentID uint) error {
	return r.db.Exec(
		"INSERT IGNORE INTO conversation_participants (conversation_id, resident_id) VALUES (?, ?)",
		conversationID, residentID,
	).Error
}

// RemoveParticipant deletes a membership row
func (r *conversationRepository) RemoveParticipant(conversationID, residentID uint) error {
	result := r.db.Exec(
		"DELETE FROM conversation_participants WHERE conversation_id = ? AND resident_id = ?",
		conversationID, residentID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateLastMessage writes the denormalized preview columns in one statement
func (r *conversationRepository) UpdateLastMessage(conversationID uint, at time.Time, preview string) error {
	return r.db.Model(&domain.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"last_message_at":      at,
			"last_message_preview": preview,
		}).Error
}
