package service

import (
	"context"
	"errors"
	"strings"

	"github.com/condovia/condovia-backend/internal/common"
	"github.com/condovia/condovia-backend/internal/domain"
	"github.com/condovia/condovia-backend/internal/repository"
	pkgcache "github.com/condovia/condovia-backend/pkg/cache"
	pkglogger "github.com/condovia/condovia-backend/pkg/logger"
	"gorm.io/gorm"
)

// Attachment carries upload metadata for IMAGE/FILE messages
type Attachment struct {
	URL  string
	Name string
	Size *int64
}

// ChatService validates and persists inbound messages and maintains the
// conversation's denormalized last-message metadata. Broadcasting is the
// caller's job and must happen only after SendMessage returns successfully.
type ChatService interface {
	SendMessage(conversationID, senderID uint, text, msgType string, attachment *Attachment) (*domain.Message, error)
}

type chatService struct {
	messageRepo      repository.MessageRepository
	conversationRepo repository.ConversationRepository
	cache            pkgcache.Service
}

// NewChatService creates a new ChatService
func NewChatService(messageRepo repository.MessageRepository, conversationRepo repository.ConversationRepository, cache pkgcache.Service) ChatService {
	return &chatService{
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		cache:            cache,
	}
}

// SendMessage persists a message and updates the conversation preview.
// TEXT messages must have a non-empty body after trimming.
func (s *chatService) SendMessage(conversationID, senderID uint, text, msgType string, attachment *Attachment) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if msgType == "" {
		msgType = domain.MessageText
	}
	if !domain.ValidMessageType(msgType) {
		return nil, common.ErrInvalidInput
	}
	if msgType == domain.MessageText && text == "" {
		return nil, common.ErrEmptyMessage
	}

	conv, err := s.conversationRepo.FindByID(conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrConversationNotFound
		}
		return nil, err
	}

	msg := &domain.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Type:           msgType,
		Text:           text,
	}
	if attachment != nil {
		msg.AttachmentURL = attachment.URL
		msg.AttachmentName = attachment.Name
		msg.AttachmentSize = attachment.Size
	}

	if err := s.messageRepo.Create(msg); err != nil {
		return nil, err
	}

	// Denormalized list-view metadata follows every accepted message. The
	// message row is already durable at this point, so a failed preview
	// update must not fail the send.
	preview := domain.PreviewFor(msg)
	if err := s.conversationRepo.UpdateLastMessage(conversationID, msg.CreatedAt, preview); err != nil {
		log := pkglogger.WithConversationID(conversationID)
		log.Error().Err(err).Uint("message_id", msg.ID).Msg("last-message preview update failed")
	}

	s.invalidateCaches(conv, senderID)

	// Hydrate the sender for serialization
	return s.messageRepo.FindByID(msg.ID)
}

// invalidateCaches drops unread counts and list caches for the other
// participants; a failed invalidation only delays freshness by one TTL.
func (s *chatService) invalidateCaches(conv *domain.Conversation, senderID uint) {
	if s.cache == nil || !s.cache.IsAvailable() {
		return
	}

	ctx := context.Background()
	others := make([]uint, 0, len(conv.Participants))
	for _, id := range conv.ParticipantIDs() {
		if id != senderID {
			others = append(others, id)
		}
	}
	_ = s.cache.InvalidateUnread(ctx, conv.ID, others...)
	_ = s.cache.InvalidateConversationList(ctx, conv.ParticipantIDs()...)
}
