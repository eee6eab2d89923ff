package service

import (
	"context"
	"io"
	"strings"

	"github.com/condovia/condovia-backend/internal/common"
	"github.com/condovia/condovia-backend/internal/domain"
	"github.com/condovia/condovia-backend/internal/repository"
	"github.com/condovia/condovia-backend/pkg/storage"
)

// AttachmentService uploads a chat attachment and records it as an
// IMAGE or FILE message in the conversation.
type AttachmentService interface {
	Upload(ctx context.Context, conversationID, senderID uint, filename, contentType string, size int64, body io.Reader) (*domain.Message, error)
}

type attachmentService struct {
	s3               *storage.S3Client
	chat             ChatService
	conversationRepo repository.ConversationRepository
}

// NewAttachmentService creates a new AttachmentService
func NewAttachmentService(s3 *storage.S3Client, chat ChatService, conversationRepo repository.ConversationRepository) AttachmentService {
	return &attachmentService{
		s3:               s3,
		chat:             chat,
		conversationRepo: conversationRepo,
	}
}

// Upload stores the file and creates the corresponding message. The message
// row is only created after the object is durably stored.
func (s *attachmentService) Upload(ctx context.Context, conversationID, senderID uint, filename, contentType string, size int64, body io.Reader) (*domain.Message, error) {
	if s.s3 == nil {
		return nil, common.ErrInvalidInput
	}

	ok, err := s.conversationRepo.IsParticipant(conversationID, senderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrNotParticipant
	}

	key := storage.GenerateAttachmentKey(conversationID, filename)
	result, err := s.s3.Upload(ctx, key, body, contentType, size)
	if err != nil {
		return nil, err
	}

	msgType := domain.MessageFile
	if strings.HasPrefix(contentType, "image/") {
		msgType = domain.MessageImage
	}

	url := result.URL
	if result.CDNURL != "" {
		url = result.CDNURL
	}

	return s.chat.SendMessage(conversationID, senderID, "", msgType, &Attachment{
		URL:  url,
		Name: filename,
		Size: &size,
	})
}
