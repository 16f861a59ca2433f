package proposal

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
	proposals := router.Group("/proposals")
	{
		proposals.POST("", h.createProposal)
		proposals.GET("/incoming", h.listIncoming)
		proposals.GET("/outgoing", h.listOutgoing)
		proposals.GET("/:id", h.getProposal)
		proposals.GET("/:id/thread", h.getThread)
		proposals.POST("/:id/accept", h.acceptProposal)
		proposals.POST("/:id/refuse", h.refuseProposal)
		proposals.POST("/:id/cancel", h.cancelProposal)
		proposals.POST("/:id/counter", h.counterProposal)
		proposals.POST("/:id/contract", h.regenerateContract)
	}
}

func (h *Handler) createProposal(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	var req CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create proposal: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.CreateProposal(c.Request.Context(), session.UserID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Proposal sent successfully.", ToProposalResponse(p))
}

func (h *Handler) list(c *gin.Context, incoming bool) {
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

	list := h.service.ListOutgoing
	if incoming {
		list = h.service.ListIncoming
	}
	proposals, pagination, err := list(c.Request.Context(), session.UserID, q.Status, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Proposals retrieved successfully.", toProposalResponses(proposals), pagination)
}

func (h *Handler) listIncoming(c *gin.Context) { h.list(c, true) }

func (h *Handler) listOutgoing(c *gin.Context) { h.list(c, false) }

func (h *Handler) getProposal(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	p, err := h.service.GetProposal(c.Request.Context(), session, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Proposal retrieved successfully.", ToProposalResponse(p))
}

func (h *Handler) getThread(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	thread, err := h.service.GetThread(c.Request.Context(), session, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Proposal thread retrieved successfully.", toProposalResponses(thread))
}

// transition runs one of the body-less state changes on /proposals/:id.
func (h *Handler) transition(c *gin.Context, message string, apply func(ctx context.Context, userID, id uuid.UUID) (*Proposal, error)) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	p, err := apply(c.Request.Context(), session.UserID, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, message, ToProposalResponse(p))
}

func (h *Handler) acceptProposal(c *gin.Context) {
	h.transition(c, "Proposal accepted.", h.service.AcceptProposal)
}

func (h *Handler) refuseProposal(c *gin.Context) {
	h.transition(c, "Proposal refused.", h.service.RefuseProposal)
}

func (h *Handler) cancelProposal(c *gin.Context) {
	h.transition(c, "Proposal cancelled.", h.service.CancelProposal)
}

func (h *Handler) counterProposal(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req CounterProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Counter proposal: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.CounterProposal(c.Request.Context(), session.UserID, id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Counter-proposal sent successfully.", ToProposalResponse(p))
}

func (h *Handler) regenerateContract(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.RegenerateContract(c.Request.Context(), session.UserID, id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Contract generated.", nil)
}
