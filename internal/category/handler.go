package category

import (
	"bontroc_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts the public read endpoints.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	categories := router.Group("/categories")
	{
		categories.GET("", h.getAllCategories)
		categories.GET("/:idOrSlug", h.getCategory)
	}
}

// RegisterAdminRoutes mounts category management on an admin-only group.
func (h *Handler) RegisterAdminRoutes(router *gin.RouterGroup) {
	categories := router.Group("/categories")
	{
		categories.POST("", h.adminCreateCategory)
		categories.PUT("/:id", h.adminUpdateCategory)
		categories.DELETE("/:id", h.adminDeleteCategory)
	}
}

func (h *Handler) getAllCategories(c *gin.Context) {
	categories, err := h.service.GetAllCategories(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	responses := make([]CategoryResponse, len(categories))
	for i := range categories {
		responses[i] = ToCategoryResponse(&categories[i])
	}
	common.RespondOK(c, "Categories retrieved successfully.", responses)
}

func (h *Handler) getCategory(c *gin.Context) {
	idOrSlug := c.Param("idOrSlug")
	var (
		catModel *Category
		err      error
	)
	if catID, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		catModel, err = h.service.GetCategoryByID(c.Request.Context(), catID)
	} else {
		catModel, err = h.service.GetCategoryBySlug(c.Request.Context(), idOrSlug)
	}
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Category retrieved successfully.", ToCategoryResponse(catModel))
}

func (h *Handler) adminCreateCategory(c *gin.Context) {
	var req AdminCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Admin create category: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	catModel, err := h.service.AdminCreateCategory(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Category created successfully.", ToCategoryResponse(catModel))
}

func (h *Handler) adminUpdateCategory(c *gin.Context) {
	categoryID, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req AdminCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Admin update category: invalid request body", zap.Error(err), zap.String("categoryID", categoryID.String()))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	catModel, err := h.service.AdminUpdateCategory(c.Request.Context(), categoryID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Category updated successfully.", ToCategoryResponse(catModel))
}

func (h *Handler) adminDeleteCategory(c *gin.Context) {
	categoryID, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.AdminDeleteCategory(c.Request.Context(), categoryID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}
