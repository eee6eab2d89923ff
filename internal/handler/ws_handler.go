package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/condovia/condovia-backend/internal/service"
	"github.com/condovia/condovia-backend/internal/ws"
	"github.com/condovia/condovia-backend/pkg/jwt"
	pkglogger "github.com/condovia/condovia-backend/pkg/logger"
)

// WSHandler upgrades chat connections and runs the pre-join checks:
// authentication first, then the membership guard. Only a session that
// passes both is ever registered with the hub.
type WSHandler struct {
	hub            *ws.Hub
	conversations  service.ConversationService
	chat           service.ChatService
	readReceipts   service.ReadReceiptService
	jwtManager     *jwt.Manager
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(
	hub *ws.Hub,
	conversations service.ConversationService,
	chat service.ChatService,
	readReceipts service.ReadReceiptService,
	jwtManager *jwt.Manager,
	allowedOrigins string,
) *WSHandler {
	h := &WSHandler{
		hub:            hub,
		conversations:  conversations,
		chat:           chat,
		readReceipts:   readReceipts,
		jwtManager:     jwtManager,
		allowedOrigins: parseOrigins(allowedOrigins),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// parseOrigins parses comma-separated origins string
func parseOrigins(origins string) []string {
	if origins == "" {
		return nil
	}
	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// checkOrigin validates the request origin against allowed origins
func (h *WSHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // same-origin requests don't carry an Origin header
	}

	// No configured origins means development mode, allow all
	if len(h.allowedOrigins) == 0 {
		return true
	}

	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}

	return false
}

// Connect handles GET /ws/chat/:conversation_id and upgrades to WebSocket
// @Summary Sesión de chat en tiempo real
// @Tags chat
// @Param conversation_id path int true "ID de la conversación"
// @Param token query string false "JWT (alternativa al header Authorization)"
// @Router /ws/chat/{conversation_id} [get]
func (h *WSHandler) Connect(c *gin.Context) {
	conversationID, err := strconv.ParseUint(c.Param("conversation_id"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	// Authentication: the token travels in the Authorization header or, for
	// browsers, in the token query parameter. Without an identity there is
	// no protocol channel yet, so the close is silent.
	claims := h.authenticate(c)
	if claims == nil {
		conn.Close()
		return
	}

	// Membership guard: re-checked on every connection attempt, never cached
	ok, err := h.conversations.IsParticipant(uint(conversationID), claims.UserID)
	if err != nil || !ok {
		if err != nil {
			log := pkglogger.WithConversationID(uint(conversationID))
			log.Error().Err(err).Msg("membership check failed")
		}
		msg := websocket.FormatCloseMessage(ws.CloseNotParticipant, "not a participant")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)) //nolint:errcheck
		conn.Close()
		return
	}

	client := ws.NewClient(h.hub, conn, uint(conversationID), claims.UserID, claims.Username, h.chat, h.readReceipts)
	h.hub.Register(client)
	client.AnnounceOnline()

	go client.WritePump()
	go client.ReadPump()
}

// authenticate verifies the connection's JWT and returns its claims, or nil
func (h *WSHandler) authenticate(c *gin.Context) *jwt.Claims {
	tokenString := c.Query("token")
	if tokenString == "" {
		authHeader := c.GetHeader("Authorization")
		if parts := strings.Split(authHeader, " "); len(parts) == 2 && parts[0] == "Bearer" {
			tokenString = parts[1]
		}
	}
	if tokenString == "" {
		return nil
	}

	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return nil
	}
	return claims
}
