package service

import (
	"context"
	"errors"
	"time"

	"github.com/condovia/condovia-backend/internal/common"
	"github.com/condovia/condovia-backend/internal/repository"
	pkgcache "github.com/condovia/condovia-backend/pkg/cache"
	"gorm.io/gorm"
)

// ReadReceiptService records read events idempotently and answers unread
// counts. Repeated marks for the same (message, reader) pair are no-ops.
type ReadReceiptService interface {
	MarkRead(messageID, readerID uint) (time.Time, error)
	MarkAllRead(conversationID, readerID uint) error
	UnreadCount(conversationID, viewerID uint) (int64, error)
}

type readReceiptService struct {
	messageRepo      repository.MessageRepository
	conversationRepo repository.ConversationRepository
	cache            pkgcache.Service
}

// NewReadReceiptService creates a new ReadReceiptService
func NewReadReceiptService(messageRepo repository.MessageRepository, conversationRepo repository.ConversationRepository, cache pkgcache.Service) ReadReceiptService {
	return &readReceiptService{
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		cache:            cache,
	}
}

// MarkRead records that the reader has seen the message and returns the
// persisted read timestamp. The timestamp is read back from storage so the
// broadcast carries the stored value, not the caller's clock. Only
// participants of the message's conversation may mark it.
func (s *readReceiptService) MarkRead(messageID, readerID uint) (time.Time, error) {
	msg, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, common.ErrMessageNotFound
		}
		return time.Time{}, err
	}

	ok, err := s.conversationRepo.IsParticipant(msg.ConversationID, readerID)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, common.ErrNotParticipant
	}

	status, err := s.messageRepo.MarkRead(messageID, readerID)
	if err != nil {
		return time.Time{}, err
	}

	if s.cache != nil && s.cache.IsAvailable() {
		_ = s.cache.InvalidateUnread(context.Background(), msg.ConversationID, readerID)
	}

	return status.ReadAt, nil
}

// MarkAllRead marks every message in the conversation not authored by the
// reader as read. Already-read pairs are skipped.
func (s *readReceiptService) MarkAllRead(conversationID, readerID uint) error {
	if err := s.messageRepo.MarkAllRead(conversationID, readerID); err != nil {
		return err
	}

	if s.cache != nil && s.cache.IsAvailable() {
		_ = s.cache.InvalidateUnread(context.Background(), conversationID, readerID)
	}
	return nil
}

// UnreadCount returns how many messages the viewer has not read, never
// counting the viewer's own messages. Counts are served from cache when warm.
func (s *readReceiptService) UnreadCount(conversationID, viewerID uint) (int64, error) {
	if s.cache != nil && s.cache.IsAvailable() {
		if count, ok := s.cache.GetUnreadCount(context.Background(), conversationID, viewerID); ok {
			return count, nil
		}
	}

	count, err := s.messageRepo.CountUnread(conversationID, viewerID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil && s.cache.IsAvailable() {
		_ = s.cache.SetUnreadCount(context.Background(), conversationID, viewerID, count)
	}
	return count, nil
}
