package repository

import (
	"time"

	"github.com/condovia/condovia-backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository message and read-status data access interface
type MessageRepository interface {
	Create(msg *domain.Message) error
	FindByID(id uint) (*domain.Message, error)
	FindByConversation(conversationID uint, page, limit int) ([]*domain.Message, int64, error)
	CountUnread(conversationID, viewerID uint) (int64, error)
	MarkRead(messageID, residentID uint) (*domain.MessageReadStatus, error)
	MarkAllRead(conversationID, residentID uint) error
	IsReadBy(messageID, residentID uint) (bool, error)
	FindReadIDs(messageIDs []uint, residentID uint) ([]uint, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create inserts a message row
func (r *messageRepository) Create(msg *domain.Message) error {
	return r.db.Create(msg).Error
}

// FindByID loads a message with its sender
func (r *messageRepository) FindByID(id uint) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.Preload("Sender").First(&msg, id).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindByConversation returns the conversation history in creation order
func (r *messageRepository) FindByConversation(conversationID uint, page, limit int) ([]*domain.Message, int64, error) {
	var messages []*domain.Message
	var total int64

	r.db.Model(&domain.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&total)

	offset := (page - 1) * limit
	err := r.db.Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Offset(offset).Limit(limit).
		Find(&messages).Error
	return messages, total, err
}

// CountUnread counts messages in a conversation that the viewer did not send
// and has no read-status row for.
func (r *messageRepository) CountUnread(conversationID, viewerID uint) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Message{}).
		Where("conversation_id = ? AND sender_id <> ?", conversationID, viewerID).
		Where("NOT EXISTS (SELECT 1 FROM message_read_statuses rs WHERE rs.message_id = messages.id AND rs.resident_id = ?)", viewerID).
		Count(&count).Error
	return count, err
}

// MarkRead records a read receipt. The insert is idempotent: the unique
// (message_id, resident_id) index absorbs repeated marks, and the persisted
// row is read back so callers broadcast the real read_at, not a placeholder.
func (r *messageRepository) MarkRead(messageID, residentID uint) (*domain.MessageReadStatus, error) {
	status := &domain.MessageReadStatus{
		MessageID:  messageID,
		ResidentID: residentID,
		ReadAt:     time.Now(),
	}

	err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(status).Error
	if err != nil {
		return nil, err
	}

	var persisted domain.MessageReadStatus
	err = r.db.Where("message_id = ? AND resident_id = ?", messageID, residentID).
		First(&persisted).Error
	if err != nil {
		return nil, err
	}
	return &persisted, nil
}

// MarkAllRead inserts read receipts for every message in the conversation not
// authored by the resident, skipping pairs that already exist.
func (r *messageRepository) MarkAllRead(conversationID, residentID uint) error {
	return r.db.Exec(`
		INSERT IGNORE INTO message_read_statuses (message_id, resident_id, read_at)
		SELECT m.id, ?, ? FROM messages m
		WHERE m.conversation_id = ? AND m.sender_id <> ?`,
		residentID, time.Now(), conversationID, residentID,
	).Error
}

// FindReadIDs returns which of the given messages the resident has read
func (r *messageRepository) FindReadIDs(messageIDs []uint, residentID uint) ([]uint, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	var ids []uint
	err := r.db.Model(&domain.MessageReadStatus{}).
		Where("message_id IN ? AND resident_id = ?", messageIDs, residentID).
		Pluck("message_id", &ids).Error
	return ids, err
}

// IsReadBy reports whether a read-status row exists for the pair
func (r *messageRepository) IsReadBy(messageID, residentID uint) (bool, error) {
	var count int64
	err := r.db.Model(&domain.MessageReadStatus{}).
		Where("message_id = ? AND resident_id = ?", messageID, residentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
