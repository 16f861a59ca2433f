package notification

import (
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

// RegisterRoutes expects an authenticated group.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/unread-count", h.unreadCount)
	router.POST("/read-all", h.markAllRead)
	router.POST("/:notification_id/read", h.markRead)
}

func (h *Handler) list(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	unreadOnly := c.Query("unread") == "true"

	notifications, pagination, err := h.service.List(c.Request.Context(), session.UserID, unreadOnly, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Notifications retrieved successfully.", notifications, pagination)
}

func (h *Handler) unreadCount(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	var types []Type
	if t := c.Query("type"); t != "" {
		types = append(types, Type(t))
	}
	count, err := h.service.CountUnread(c.Request.Context(), session.UserID, types...)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "", gin.H{"unread": count})
}

func (h *Handler) markRead(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "notification_id")
	if !ok {
		return
	}
	n, err := h.service.MarkRead(c.Request.Context(), session.UserID, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Notification marked as read.", n)
}

func (h *Handler) markAllRead(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	count, err := h.service.MarkAllRead(c.Request.Context(), session.UserID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "All notifications marked as read.", gin.H{"updated": count})
}
