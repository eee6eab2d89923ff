package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/condovia/condovia-backend/internal/common"
	"github.com/condovia/condovia-backend/internal/domain"
	"github.com/condovia/condovia-backend/internal/middleware"
	"github.com/condovia/condovia-backend/internal/service"
	"github.com/condovia/condovia-backend/internal/ws"
	pkgcache "github.com/condovia/condovia-backend/pkg/cache"
)

// maxAttachmentSize caps chat attachment uploads (20 MiB)
const maxAttachmentSize = 20 << 20

// ChatHandler handles the conversation/message HTTP surface. Messages
// created over REST are broadcast through the hub exactly like messages
// sent over the live protocol.
type ChatHandler struct {
	conversations service.ConversationService
	chat          service.ChatService
	readReceipts  service.ReadReceiptService
	attachments   service.AttachmentService
	hub           *ws.Hub
	cache         pkgcache.Service
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(
	conversations service.ConversationService,
	chat service.ChatService,
	readReceipts service.ReadReceiptService,
	attachments service.AttachmentService,
	hub *ws.Hub,
	cache pkgcache.Service,
) *ChatHandler {
	return &ChatHandler{
		conversations: conversations,
		chat:          chat,
		readReceipts:  readReceipts,
		attachments:   attachments,
		hub:           hub,
		cache:         cache,
	}
}

// ListConversations handles GET /conversations
// @Summary Listar conversaciones del residente
// @Tags chat
// @Produce json
// @Param page query int false "Página"
// @Param limit query int false "Tamaño de página"
// @Success 200 {object} common.APIResponse{data=[]domain.ConversationResponse}
// @Router /conversations [get]
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID := middleware.GetUserID(c)
	ctx := c.Request.Context()

	page, limit := pagination(c, 20)

	// Only the default first page is cached; it is what chat UIs poll
	cacheable := page == 1 && limit == 20
	if cacheable && h.cache != nil && h.cache.IsAvailable() {
		if cached, err := h.cache.GetConversationList(ctx, userID); err == nil {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json", cached)
			return
		}
	}

	conversations, meta, err := h.conversations.List(userID, page, limit)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "No se pudieron cargar las conversaciones", err)
		return
	}

	response := common.APIResponse{Data: conversations, Meta: meta}
	if cacheable && h.cache != nil && h.cache.IsAvailable() {
		_ = h.cache.SetConversationList(ctx, userID, response)
		c.Header("X-Cache", "MISS")
	}

	c.JSON(http.StatusOK, response)
}

// CreateConversation handles POST /conversations
// @Summary Crear conversación
// @Tags chat
// @Accept json
// @Produce json
// @Param request body domain.CreateConversationRequest true "Datos de la conversación"
// @Success 200 {object} common.APIResponse{data=domain.ConversationResponse}
// @Router /conversations [post]
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Formato de solicitud inválido", err)
		return
	}

	conv, err := h.conversations.Create(userID, &req)
	if err != nil {
		common.ErrorResponse(c, statusFor(err), err.Error(), err)
		return
	}

	if h.cache != nil && h.cache.IsAvailable() {
		ids := make([]uint, 0, len(conv.Participants))
		for _, p := range conv.Participants {
			ids = append(ids, p.ID)
		}
		_ = h.cache.InvalidateConversationList(c.Request.Context(), ids...)
	}

	c.JSON(http.StatusCreated, common.APIResponse{Data: conv})
}

// GetConversation handles GET /conversations/:id
// @Summary Detalle de una conversación
// @Tags chat
// @Produce json
// @Param id path int true "ID de la conversación"
// @Success 200 {object} common.APIResponse{data=domain.ConversationResponse}
// @Router /conversations/{id} [get]
func (h *ChatHandler) GetConversation(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}

	conv, err := h.conversations.Get(conversationID, userID)
	if err != nil {
		common.ErrorResponse(c, statusFor(err), err.Error(), err)
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: conv})
}

// ListMessages handles GET /conversations/:id/messages
// @Summary Historial de mensajes
// @Tags chat
// @Produce json
// @Param id path int true "ID de la conversación"
// @Param page query int false "Página"
// @Param limit query int false "Tamaño de página"
// @Success 200 {object} common.APIResponse{data=[]domain.MessageResponse}
// @Router /conversations/{id}/messages [get]
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}

	page, limit := pagination(c, 50)
	messages, meta, err := h.conversations.Messages(conversationID, userID, page, limit)
	if err != nil {
		common.ErrorResponse(c, statusFor(err), err.Error(), err)
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: messages, Meta: meta})
}

// CreateMessage handles POST /conversations/:id/messages
// @Summary Enviar mensaje (REST)
// @Tags chat
// @Accept json
// @Produce json
// @Param id path int true "ID de la conversación"
// @Param request body domain.SendMessageRequest true "Mensaje"
// @Success 201 {object} common.APIResponse{data=domain.MessageResponse}
// @Router /conversations/{id}/messages [post]
func (h *ChatHandler) CreateMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if !h.requireParticipant(c, conversationID, userID) {
		return
	}

	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Formato de solicitud inválido", err)
		return
	}

	msg, err := h.chat.SendMessage(conversationID, userID, req.Text, req.Type, nil)
	if err != nil {
		common.ErrorResponse(c, statusFor(err), err.Error(), err)
		return
	}

	resp := msg.ToResponse(false)
	h.hub.Broadcast(conversationID, &ws.Event{Type: ws.EventMessageNew, Data: resp}, "")

	c.JSON(http.StatusCreated, common.APIResponse{Data: resp})
}

// UploadAttachment handles POST /conversations/:id/attachments
// @Summary Subir adjunto y crear mensaje IMAGE/FILE
// @Tags chat
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "ID de la conversación"
// @Param file formData file true "Archivo adjunto"
// @Success 201 {object} common.APIResponse{data=domain.MessageResponse}
// @Router /conversations/{id}/attachments [post]
func (h *ChatHandler) UploadAttachment(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if h.attachments == nil {
		common.ErrorResponse(c, http.StatusServiceUnavailable, "Almacenamiento de adjuntos no configurado", nil)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Archivo requerido", err)
		return
	}
	if fileHeader.Size > maxAttachmentSize {
		common.ErrorResponse(c, http.StatusBadRequest, "El archivo supera el tamaño máximo permitido", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "No se pudo leer el archivo", err)
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	msg, err := h.attachments.Upload(c.Request.Context(), conversationID, userID, fileHeader.Filename, contentType, fileHeader.Size, file)
	if err != nil {
		common.ErrorResponse(c, statusFor(err), err.Error(), err)
		return
	}

	resp := msg.ToResponse(false)
	h.hub.Broadcast(conversationID, &ws.Event{Type: ws.EventMessageNew, Data: resp}, "")

	c.JSON(http.StatusCreated, common.APIResponse{Data: resp})
}

// MarkAllRead handles POST /conversations/:id/read-all
// @Summary Marcar toda la conversación como leída
// @Tags chat
// @Produce json
// @Param id path int true "ID de la conversación"
// @Success 200 {object} common.APIResponse
// @Router /conversations/{id}/read-all [post]
func (h *ChatHandler) MarkAllRead(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if !h.requireParticipant(c, conversationID, userID) {
		return
	}

	if err := h.readReceipts.MarkAllRead(conversationID, userID); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "No se pudieron marcar los mensajes", err)
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: gin.H{"status": "marked as read"}})
}

// MarkMessageRead handles POST /messages/:id/read
// @Summary Marcar un mensaje como leído
// @Tags chat
// @Produce json
// @Param id path int true "ID del mensaje"
// @Success 200 {object} common.APIResponse
// @Router /messages/{id}/read [post]
func (h *ChatHandler) MarkMessageRead(c *gin.Context) {
	userID := middleware.GetUserID(c)
	messageID, ok := paramID(c, "id")
	if !ok {
		return
	}

	readAt, err := h.readReceipts.MarkRead(messageID, userID)
	if err != nil {
		common.ErrorResponse(c, statusFor(err), err.Error(), err)
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: gin.H{"status": "marked as read", "read_at": readAt}})
}

// AddParticipant handles POST /conversations/:id/participants
// @Summary Agregar participante a un grupo
// @Tags chat
// @Accept json
// @Produce json
// @Param id path int true "ID de la conversación"
// @Param request body domain.AddParticipantRequest true "Residente"
// @Success 200 {object} common.APIResponse
// @Router /conversations/{id}/participants [post]
func (h *ChatHandler) AddParticipant(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req domain.AddParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Formato de solicitud inválido", err)
		return
	}

	if err := h.conversations.AddParticipant(conversationID, userID, req.ResidentID); err != nil {
		common.ErrorResponse(c, statusFor(err), err.Error(), err)
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: gin.H{"status": "participant added"}})
}

// RemoveParticipant handles DELETE /conversations/:id/participants/:resident_id
// @Summary Quitar participante de un grupo
// @Tags chat
// @Produce json
// @Param id path int true "ID de la conversación"
// @Param resident_id path int true "ID del residente"
// @Success 200 {object} common.APIResponse
// @Router /conversations/{id}/participants/{resident_id} [delete]
func (h *ChatHandler) RemoveParticipant(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}
	residentID, ok := paramID(c, "resident_id")
	if !ok {
		return
	}

	if err := h.conversations.RemoveParticipant(conversationID, userID, residentID); err != nil {
		common.ErrorResponse(c, statusFor(err), err.Error(), err)
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: gin.H{"status": "participant removed"}})
}

// requireParticipant enforces the membership guard on REST endpoints
func (h *ChatHandler) requireParticipant(c *gin.Context, conversationID, userID uint) bool {
	ok, err := h.conversations.IsParticipant(conversationID, userID)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "No se pudo verificar la membresía", err)
		return false
	}
	if !ok {
		common.ErrorResponse(c, http.StatusForbidden, common.ErrNotParticipant.Error(), nil)
		return false
	}
	return true
}

// paramID parses a positive integer path parameter
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		common.ErrorResponse(c, http.StatusBadRequest, "Identificador inválido", err)
		return 0, false
	}
	return uint(id), true
}

// pagination reads page/limit query parameters
func pagination(c *gin.Context, defaultLimit int) (int, int) {
	page := 1
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page = p
	}
	limit := defaultLimit
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}
	return page, limit
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrConversationNotFound),
		errors.Is(err, common.ErrMessageNotFound),
		errors.Is(err, common.ErrResidentNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, common.ErrEmptyMessage),
		errors.Is(err, common.ErrDirectParticipants),
		errors.Is(err, common.ErrGroupNameRequired),
		errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
