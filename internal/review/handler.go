package review

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
	router.POST("/reviews", h.submitReview)
	router.GET("/reviews/by-exchange/:exchange_id", h.getExchangeReviews)
	router.GET("/users/:id/reviews", h.listUserReviews)
}

func (h *Handler) submitReview(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Submit review: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	r, err := h.service.SubmitReview(c.Request.Context(), session.UserID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Review submitted successfully.", ToReviewResponse(r))
}

func (h *Handler) listUserReviews(c *gin.Context) {
	userID, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	reviews, pagination, err := h.service.ListUserReviews(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Reviews retrieved successfully.", toReviewResponses(reviews), pagination)
}

func (h *Handler) getExchangeReviews(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	exchangeID, ok := common.ParseIDParam(c, "exchange_id")
	if !ok {
		return
	}
	reviews, err := h.service.GetExchangeReviews(c.Request.Context(), session, exchangeID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Reviews retrieved successfully.", toReviewResponses(reviews))
}
