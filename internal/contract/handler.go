package contract

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
	contracts := router.Group("/contracts")
	{
		contracts.GET("", h.listMyContracts)
		contracts.GET("/by-proposal/:proposal_id", h.getContractByProposal)
		contracts.GET("/:id", h.getContract)
		contracts.POST("/:id/accept", h.acceptContract)
	}
}

func (h *Handler) listMyContracts(c *gin.Context) {
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
	contracts, pagination, err := h.service.ListMyContracts(c.Request.Context(), session.UserID, q.Status, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Contracts retrieved successfully.", toContractResponses(contracts), pagination)
}

func (h *Handler) getContract(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	contract, err := h.service.GetContract(c.Request.Context(), session, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Contract retrieved successfully.", ToContractResponse(contract))
}

func (h *Handler) getContractByProposal(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	proposalID, ok := common.ParseIDParam(c, "proposal_id")
	if !ok {
		return
	}
	contract, err := h.service.GetContractByProposal(c.Request.Context(), session, proposalID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Contract retrieved successfully.", ToContractResponse(contract))
}

func (h *Handler) acceptContract(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	contract, err := h.service.AcceptContract(c.Request.Context(), session.UserID, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Contract accepted.", ToContractResponse(contract))
}
