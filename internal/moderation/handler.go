package moderation

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

// RegisterAdminRoutes expects a group restricted to admins.
func (h *Handler) RegisterAdminRoutes(router *gin.RouterGroup) {
	words := router.Group("/banned-words")
	words.GET("", h.list)
	words.POST("", h.create)
	words.DELETE("/:id", h.remove)
}

func (h *Handler) list(c *gin.Context) {
	page, pageSize := common.GetPaginationParams(c)
	words, pagination, err := h.service.ListBannedWords(c.Request.Context(), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Banned words retrieved successfully.", toBannedWordResponses(words), pagination)
}

func (h *Handler) create(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	var req CreateBannedWordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	w, err := h.service.AddBannedWord(c.Request.Context(), session.UserID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Banned word added successfully.", ToBannedWordResponse(w))
}

func (h *Handler) remove(c *gin.Context) {
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.RemoveBannedWord(c.Request.Context(), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}
