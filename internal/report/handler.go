package report

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
	router.POST("/reports", h.createReport)
	router.GET("/reports", h.listMyReports)
}

// RegisterModerationRoutes expects a group restricted to staff.
func (h *Handler) RegisterModerationRoutes(router *gin.RouterGroup) {
	reports := router.Group("/reports")
	reports.GET("", h.listReports)
	reports.GET("/:id", h.getReport)
	reports.PATCH("/:id", h.reviewReport)
}

func (h *Handler) createReport(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	r, err := h.service.CreateReport(c.Request.Context(), session.UserID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Report submitted. Thank you.", ToReportResponse(r))
}

func (h *Handler) listMyReports(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	reports, pagination, err := h.service.ListMyReports(c.Request.Context(), session.UserID, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Reports retrieved successfully.", toReportResponses(reports), pagination)
}

func (h *Handler) listReports(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	reports, pagination, err := h.service.ListReports(c.Request.Context(), q, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Reports retrieved successfully.", toReportResponses(reports), pagination)
}

func (h *Handler) getReport(c *gin.Context) {
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	r, err := h.service.GetReport(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Report retrieved successfully.", ToReportResponse(r))
}

func (h *Handler) reviewReport(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req ReviewReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	r, err := h.service.ReviewReport(c.Request.Context(), session.UserID, id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Report updated successfully.", ToReportResponse(r))
}
