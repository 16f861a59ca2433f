package chat

import (
	"net/http"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes expects an authenticated group gated on the chat capability.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	chats := router.Group("/chats")
	chats.POST("", h.openChat)
	chats.GET("", h.listChats)
	chats.GET("/:id", h.getChat)
	chats.GET("/:id/messages", h.listMessages)
	chats.POST("/:id/messages", h.sendMessage)
	chats.POST("/:id/read", h.markRead)
}

func (h *Handler) openChat(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	var req OpenChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	chat, created, err := h.service.OpenChat(c.Request.Context(), session, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	common.RespondSuccess(c, status, "Chat opened.", ToChatResponse(chat))
}

func (h *Handler) listChats(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	chats, pagination, err := h.service.ListMyChats(c.Request.Context(), session.UserID, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Chats retrieved successfully.", toChatResponses(chats), pagination)
}

func (h *Handler) getChat(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	chat, err := h.service.GetChat(c.Request.Context(), session.UserID, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Chat retrieved successfully.", ToChatResponse(chat))
}

func (h *Handler) listMessages(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	messages, pagination, err := h.service.ListMessages(c.Request.Context(), session.UserID, id, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Messages retrieved successfully.", toMessageResponses(messages), pagination)
}

func (h *Handler) sendMessage(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	m, err := h.service.SendMessage(c.Request.Context(), session.UserID, id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Message sent.", ToMessageResponse(m))
}

func (h *Handler) markRead(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	count, err := h.service.MarkRead(c.Request.Context(), session.UserID, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Messages marked as read.", gin.H{"updated": count})
}
