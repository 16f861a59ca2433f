package dispute

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

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	disputes := router.Group("/disputes")
	{
		disputes.POST("", h.openDispute)
		disputes.GET("", h.listMyDisputes)
		disputes.GET("/:id", h.getDispute)
	}
}

// RegisterModerationRoutes mounts the dispute queue on a staff-only group.
func (h *Handler) RegisterModerationRoutes(router *gin.RouterGroup) {
	disputes := router.Group("/disputes")
	{
		disputes.GET("", h.listDisputes)
		disputes.GET("/:id", h.getDispute)
		disputes.PATCH("/:id", h.updateStatus)
	}
}

func (h *Handler) openDispute(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	var req OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Open dispute: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	d, err := h.service.OpenDispute(c.Request.Context(), session.UserID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Dispute opened successfully.", ToDisputeResponse(d))
}

func (h *Handler) listMyDisputes(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	disputes, pagination, err := h.service.ListMyDisputes(c.Request.Context(), session.UserID, q.Status, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Disputes retrieved successfully.", toDisputeResponses(disputes), pagination)
}

func (h *Handler) getDispute(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	d, err := h.service.GetDispute(c.Request.Context(), session, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Dispute retrieved successfully.", ToDisputeResponse(d))
}

func (h *Handler) listDisputes(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	disputes, pagination, err := h.service.ListDisputes(c.Request.Context(), q.Status, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Disputes retrieved successfully.", toDisputeResponses(disputes), pagination)
}

func (h *Handler) updateStatus(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	d, err := h.service.UpdateStatus(c.Request.Context(), session.UserID, id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Dispute updated successfully.", ToDisputeResponse(d))
}
