package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/condovia/condovia-backend/internal/handler"
	"github.com/condovia/condovia-backend/internal/middleware"
	"github.com/condovia/condovia-backend/pkg/jwt"
)

// Setup configures all API routes
func Setup(
	router *gin.Engine,
	chatHandler *handler.ChatHandler,
	wsHandler *handler.WSHandler,
	jwtManager *jwt.Manager,
) {
	api := router.Group("/api/v1", middleware.JWTAuth(jwtManager))

	conversations := api.Group("/conversations")
	{
		conversations.GET("", chatHandler.ListConversations)
		conversations.POST("", chatHandler.CreateConversation)
		conversations.GET("/:id", chatHandler.GetConversation)

		conversations.GET("/:id/messages", chatHandler.ListMessages)
		conversations.POST("/:id/messages", chatHandler.CreateMessage)
		conversations.POST("/:id/attachments", chatHandler.UploadAttachment)
		conversations.POST("/:id/read-all", chatHandler.MarkAllRead)

		conversations.POST("/:id/participants", chatHandler.AddParticipant)
		conversations.DELETE("/:id/participants/:resident_id", chatHandler.RemoveParticipant)
	}

	messages := api.Group("/messages")
	{
		messages.POST("/:id/read", chatHandler.MarkMessageRead)
	}

	// WebSocket endpoint authenticates itself (token query param or header)
	router.GET("/ws/chat/:conversation_id", wsHandler.Connect)
}
