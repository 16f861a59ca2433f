package exchange

import (
	"context"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
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
	exchanges := router.Group("/exchanges")
	{
		exchanges.GET("", h.listMyExchanges)
		exchanges.GET("/by-contract/:contract_id", h.getByContract)
		exchanges.GET("/:id", h.getExchange)
		exchanges.POST("/:id/start", h.act("Exchange started.", h.service.Start))
		exchanges.POST("/:id/deliver", h.act("Exchange marked as delivered.", h.service.Deliver))
		exchanges.POST("/:id/confirm", h.act("Exchange confirmed.", h.service.Confirm))
		exchanges.POST("/:id/cancel", h.act("Exchange cancelled.", h.service.Cancel))
	}
}

func (h *Handler) listMyExchanges(c *gin.Context) {
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
	exchanges, pagination, err := h.service.ListMyExchanges(c.Request.Context(), session.UserID, q.Status, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Exchanges retrieved successfully.", toExchangeResponses(exchanges), pagination)
}

func (h *Handler) getExchange(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	e, err := h.service.GetExchange(c.Request.Context(), session, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Exchange retrieved successfully.", ToExchangeResponse(e))
}

func (h *Handler) getByContract(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	contractID, ok := common.ParseIDParam(c, "contract_id")
	if !ok {
		return
	}
	e, err := h.service.GetByContract(c.Request.Context(), session, contractID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Exchange retrieved successfully.", ToExchangeResponse(e))
}

func (h *Handler) act(message string, apply func(ctx context.Context, userID, id uuid.UUID) (*Exchange, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := middleware.MustSession(c)
		if !ok {
			return
		}
		id, ok := common.ParseIDParam(c, "id")
		if !ok {
			return
		}
		e, err := apply(c.Request.Context(), session.UserID, id)
		if err != nil {
			common.RespondWithError(c, err)
			return
		}
		common.RespondOK(c, message, ToExchangeResponse(e))
	}
}
