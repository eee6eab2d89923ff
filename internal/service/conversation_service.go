package service

import (
	"errors"
	"fmt"

	"github.com/condovia/condovia-backend/internal/common"
	"github.com/condovia/condovia-backend/internal/domain"
	"github.com/condovia/condovia-backend/internal/repository"
	"gorm.io/gorm"
)

// ConversationService business logic for the conversation CRUD surface
type ConversationService interface {
	List(viewerID uint, page, limit int) ([]*domain.ConversationResponse, *common.Meta, error)
	Create(creatorID uint, req *domain.CreateConversationRequest) (*domain.ConversationResponse, error)
	Get(id, viewerID uint) (*domain.ConversationResponse, error)
	Messages(conversationID, viewerID uint, page, limit int) ([]*domain.MessageResponse, *common.Meta, error)
	AddParticipant(conversationID, viewerID, residentID uint) error
	RemoveParticipant(conversationID, viewerID, residentID uint) error
	IsParticipant(conversationID, residentID uint) (bool, error)
}

type conversationService struct {
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	residentRepo     repository.ResidentRepository
	readReceipts     ReadReceiptService
}

// NewConversationService creates a new ConversationService
func NewConversationService(
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	residentRepo repository.ResidentRepository,
	readReceipts ReadReceiptService,
) ConversationService {
	return &conversationService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		residentRepo:     residentRepo,
		readReceipts:     readReceipts,
	}
}

// List returns the viewer's conversations with unread counts, most recently
// active first.
func (s *conversationService) List(viewerID uint, page, limit int) ([]*domain.ConversationResponse, *common.Meta, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	conversations, total, err := s.conversationRepo.FindByParticipant(viewerID, page, limit)
	if err != nil {
		return nil, nil, err
	}

	responses := make([]*domain.ConversationResponse, len(conversations))
	for i, conv := range conversations {
		unread, err := s.readReceipts.UnreadCount(conv.ID, viewerID)
		if err != nil {
			unread = 0
		}
		responses[i] = conv.ToResponse(unread)
	}

	meta := &common.Meta{Page: page, Limit: limit, Total: total}
	return responses, meta, nil
}

// Create creates a conversation. The creator is always part of the
// participant set; DIRECT conversations require exactly two participants.
func (s *conversationService) Create(creatorID uint, req *domain.CreateConversationRequest) (*domain.ConversationResponse, error) {
	ids := make(map[uint]bool, len(req.ParticipantIDs)+1)
	for _, id := range req.ParticipantIDs {
		ids[id] = true
	}
	ids[creatorID] = true

	participantIDs := make([]uint, 0, len(ids))
	for id := range ids {
		participantIDs = append(participantIDs, id)
	}

	switch req.Type {
	case domain.ConversationDirect:
		if len(participantIDs) != 2 {
			return nil, common.ErrDirectParticipants
		}
	case domain.ConversationGroup:
		if req.Name == "" {
			return nil, common.ErrGroupNameRequired
		}
	default:
		return nil, common.ErrInvalidInput
	}

	participants, err := s.residentRepo.FindByIDs(participantIDs)
	if err != nil {
		return nil, err
	}
	if len(participants) != len(participantIDs) {
		return nil, common.ErrResidentNotFound
	}

	conv := &domain.Conversation{
		Type:        req.Type,
		Name:        req.Name,
		Description: req.Description,
		CreatedByID: &creatorID,
	}
	for _, p := range participants {
		conv.Participants = append(conv.Participants, *p)
	}

	if err := s.conversationRepo.Create(conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return conv.ToResponse(0), nil
}

// Get returns a conversation if the viewer is a participant
func (s *conversationService) Get(id, viewerID uint) (*domain.ConversationResponse, error) {
	conv, err := s.findAuthorized(id, viewerID)
	if err != nil {
		return nil, err
	}

	unread, err := s.readReceipts.UnreadCount(conv.ID, viewerID)
	if err != nil {
		unread = 0
	}
	return conv.ToResponse(unread), nil
}

// Messages returns the paged history with per-viewer read flags
func (s *conversationService) Messages(conversationID, viewerID uint, page, limit int) ([]*domain.MessageResponse, *common.Meta, error) {
	if _, err := s.findAuthorized(conversationID, viewerID); err != nil {
		return nil, nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	messages, total, err := s.messageRepo.FindByConversation(conversationID, page, limit)
	if err != nil {
		return nil, nil, err
	}

	messageIDs := make([]uint, len(messages))
	for i, m := range messages {
		messageIDs[i] = m.ID
	}
	readIDs, err := s.messageRepo.FindReadIDs(messageIDs, viewerID)
	if err != nil {
		return nil, nil, err
	}
	read := make(map[uint]bool, len(readIDs))
	for _, id := range readIDs {
		read[id] = true
	}

	responses := make([]*domain.MessageResponse, len(messages))
	for i, m := range messages {
		// Own messages count as read for the viewer
		responses[i] = m.ToResponse(m.SenderID == viewerID || read[m.ID])
	}

	meta := &common.Meta{Page: page, Limit: limit, Total: total}
	return responses, meta, nil
}

// AddParticipant adds a resident to a GROUP conversation
func (s *conversationService) AddParticipant(conversationID, viewerID, residentID uint) error {
	conv, err := s.findAuthorized(conversationID, viewerID)
	if err != nil {
		return err
	}
	if conv.Type != domain.ConversationGroup {
		return common.ErrInvalidInput
	}

	if _, err := s.residentRepo.FindByID(residentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrResidentNotFound
		}
		return err
	}

	return s.conversationRepo.AddParticipant(conversationID, residentID)
}

// RemoveParticipant removes a resident from a GROUP conversation
func (s *conversationService) RemoveParticipant(conversationID, viewerID, residentID uint) error {
	conv, err := s.findAuthorized(conversationID, viewerID)
	if err != nil {
		return err
	}
	if conv.Type != domain.ConversationGroup {
		return common.ErrInvalidInput
	}

	err = s.conversationRepo.RemoveParticipant(conversationID, residentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.ErrResidentNotFound
	}
	return err
}

// IsParticipant exposes the membership guard to the websocket handler
func (s *conversationService) IsParticipant(conversationID, residentID uint) (bool, error) {
	return s.conversationRepo.IsParticipant(conversationID, residentID)
}

// findAuthorized loads a conversation and checks the viewer's membership
func (s *conversationService) findAuthorized(id, viewerID uint) (*domain.Conversation, error) {
	conv, err := s.conversationRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrConversationNotFound
		}
		return nil, err
	}
	if !conv.HasParticipant(viewerID) {
		return nil, common.ErrNotParticipant
	}
	return conv, nil
}
