package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/condovia/condovia-backend/internal/common"
	"github.com/condovia/condovia-backend/internal/domain"
)

func TestSendMessage_EmptyText(t *testing.T) {
	svc := NewChatService(new(MockMessageRepository), new(MockConversationRepository), nil)

	_, err := svc.SendMessage(1, 1, "   ", domain.MessageText, nil)
	assert.ErrorIs(t, err, common.ErrEmptyMessage)
}

func TestSendMessage_WhitespaceOnlyText(t *testing.T) {
	svc := NewChatService(new(MockMessageRepository), new(MockConversationRepository), nil)

	_, err := svc.SendMessage(1, 1, "\n\t  \n", "", nil)
	assert.ErrorIs(t, err, common.ErrEmptyMessage)
}

func TestSendMessage_InvalidType(t *testing.T) {
	svc := NewChatService(new(MockMessageRepository), new(MockConversationRepository), nil)

	_, err := svc.SendMessage(1, 1, "hola", "VIDEO", nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestSendMessage_ConversationNotFound(t *testing.T) {
	messageRepo := new(MockMessageRepository)
	conversationRepo := new(MockConversationRepository)
	conversationRepo.On("FindByID", uint(99)).Return(nil, gorm.ErrRecordNotFound)

	svc := NewChatService(messageRepo, conversationRepo, nil)

	_, err := svc.SendMessage(99, 1, "hola", domain.MessageText, nil)
	assert.ErrorIs(t, err, common.ErrConversationNotFound)
	messageRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestSendMessage_PersistsAndUpdatesPreview(t *testing.T) {
	messageRepo := new(MockMessageRepository)
	conversationRepo := new(MockConversationRepository)

	conv := testConversation(1, 10, 20)
	conversationRepo.On("FindByID", uint(1)).Return(conv, nil)

	messageRepo.On("Create", mock.AnythingOfType("*domain.Message")).Run(func(args mock.Arguments) {
		msg := args.Get(0).(*domain.Message)
		msg.ID = 5
	}).Return(nil)

	// Preview follows the accepted message text
	conversationRepo.On("UpdateLastMessage", uint(1), mock.Anything, "hola vecino").Return(nil)

	saved := testMessage(5, 1, 10, "hola vecino")
	messageRepo.On("FindByID", uint(5)).Return(saved, nil)

	svc := NewChatService(messageRepo, conversationRepo, nil)

	msg, err := svc.SendMessage(1, 10, "  hola vecino  ", domain.MessageText, nil)
	assert.NoError(t, err)
	assert.Equal(t, "hola vecino", msg.Text)
	assert.Equal(t, uint(5), msg.ID)
	conversationRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestSendMessage_PreviewFailureDoesNotFailSend(t *testing.T) {
	messageRepo := new(MockMessageRepository)
	conversationRepo := new(MockConversationRepository)

	conversationRepo.On("FindByID", uint(1)).Return(testConversation(1, 10, 20), nil)
	messageRepo.On("Create", mock.AnythingOfType("*domain.Message")).Run(func(args mock.Arguments) {
		msg := args.Get(0).(*domain.Message)
		msg.ID = 5
	}).Return(nil)

	// The row is durable once Create returns; a stale preview only affects
	// the list view until the next accepted message.
	conversationRepo.On("UpdateLastMessage", uint(1), mock.Anything, "hola vecino").
		Return(errors.New("deadlock"))
	messageRepo.On("FindByID", uint(5)).Return(testMessage(5, 1, 10, "hola vecino"), nil)

	svc := NewChatService(messageRepo, conversationRepo, nil)

	msg, err := svc.SendMessage(1, 10, "hola vecino", domain.MessageText, nil)
	assert.NoError(t, err)
	assert.Equal(t, uint(5), msg.ID)
	messageRepo.AssertExpectations(t)
}

func TestSendMessage_DefaultsToText(t *testing.T) {
	messageRepo := new(MockMessageRepository)
	conversationRepo := new(MockConversationRepository)

	conversationRepo.On("FindByID", uint(1)).Return(testConversation(1, 10, 20), nil)
	messageRepo.On("Create", mock.AnythingOfType("*domain.Message")).Run(func(args mock.Arguments) {
		msg := args.Get(0).(*domain.Message)
		assert.Equal(t, domain.MessageText, msg.Type)
		msg.ID = 7
	}).Return(nil)
	conversationRepo.On("UpdateLastMessage", uint(1), mock.Anything, "hola").Return(nil)
	messageRepo.On("FindByID", uint(7)).Return(testMessage(7, 1, 10, "hola"), nil)

	svc := NewChatService(messageRepo, conversationRepo, nil)

	_, err := svc.SendMessage(1, 10, "hola", "", nil)
	assert.NoError(t, err)
}

func TestSendMessage_ImagePreview(t *testing.T) {
	messageRepo := new(MockMessageRepository)
	conversationRepo := new(MockConversationRepository)

	size := int64(2048)
	conversationRepo.On("FindByID", uint(1)).Return(testConversation(1, 10, 20), nil)
	messageRepo.On("Create", mock.AnythingOfType("*domain.Message")).Run(func(args mock.Arguments) {
		args.Get(0).(*domain.Message).ID = 8
	}).Return(nil)
	conversationRepo.On("UpdateLastMessage", uint(1), mock.Anything, "📷 Imagen").Return(nil)

	saved := testMessage(8, 1, 10, "")
	saved.Type = domain.MessageImage
	saved.AttachmentURL = "https://cdn.example.com/foto.jpg"
	messageRepo.On("FindByID", uint(8)).Return(saved, nil)

	svc := NewChatService(messageRepo, conversationRepo, nil)

	msg, err := svc.SendMessage(1, 10, "", domain.MessageImage, &Attachment{
		URL:  "https://cdn.example.com/foto.jpg",
		Name: "foto.jpg",
		Size: &size,
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.MessageImage, msg.Type)
	conversationRepo.AssertExpectations(t)
}
