package service

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/condovia/condovia-backend/internal/domain"
)

// MockMessageRepository is a mock implementation of MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(msg *domain.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockMessageRepository) FindByID(id uint) (*domain.Message, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) FindByConversation(conversationID uint, page, limit int) ([]*domain.Message, int64, error) {
	args := m.Called(conversationID, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Message), args.Get(1).(int64), args.Error(2)
}

func (m *MockMessageRepository) CountUnread(conversationID, viewerID uint) (int64, error) {
	args := m.Called(conversationID, viewerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageRepository) MarkRead(messageID, residentID uint) (*domain.MessageReadStatus, error) {
	args := m.Called(messageID, residentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageReadStatus), args.Error(1)
}

func (m *MockMessageRepository) MarkAllRead(conversationID, residentID uint) error {
	args := m.Called(conversationID, residentID)
	return args.Error(0)
}

func (m *MockMessageRepository) IsReadBy(messageID, residentID uint) (bool, error) {
	args := m.Called(messageID, residentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessageRepository) FindReadIDs(messageIDs []uint, residentID uint) ([]uint, error) {
	args := m.Called(messageIDs, residentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

// MockConversationRepository is a mock implementation of ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Create(conv *domain.Conversation) error {
	args := m.Called(conv)
	return args.Error(0)
}

func (m *MockConversationRepository) FindByID(id uint) (*domain.Conversation, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) FindByParticipant(residentID uint, page, limit int) ([]*domain.Conversation, int64, error) {
	args := m.Called(residentID, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Conversation), args.Get(1).(int64), args.Error(2)
}

func (m *MockConversationRepository) IsParticipant(conversationID, residentID uint) (bool, error) {
	args := m.Called(conversationID, residentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockConversationRepository) AddParticipant(conversationID, residentID uint) error {
	args := m.Called(conversationID, residentID)
	return args.Error(0)
}

func (m *MockConversationRepository) RemoveParticipant(conversationID, residentID uint) error {
	args := m.Called(conversationID, residentID)
	return args.Error(0)
}

func (m *MockConversationRepository) UpdateLastMessage(conversationID uint, at time.Time, preview string) error {
	args := m.Called(conversationID, at, preview)
	return args.Error(0)
}

// MockResidentRepository is a mock implementation of ResidentRepository
type MockResidentRepository struct {
	mock.Mock
}

func (m *MockResidentRepository) FindByID(id uint) (*domain.Resident, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resident), args.Error(1)
}

func (m *MockResidentRepository) FindByIDs(ids []uint) ([]*domain.Resident, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Resident), args.Error(1)
}

func (m *MockResidentRepository) FindByUsername(username string) (*domain.Resident, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resident), args.Error(1)
}

// Test fixtures shared across service tests

func testConversation(id uint, participants ...uint) *domain.Conversation {
	conv := &domain.Conversation{
		ID:   id,
		Type: domain.ConversationDirect,
	}
	for _, pid := range participants {
		conv.Participants = append(conv.Participants, domain.Resident{ID: pid})
	}
	return conv
}

func testMessage(id, conversationID, senderID uint, text string) *domain.Message {
	return &domain.Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Sender:         domain.Resident{ID: senderID, Username: "resident"},
		Type:           domain.MessageText,
		Text:           text,
		CreatedAt:      time.Now(),
	}
}
