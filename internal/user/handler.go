package user

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

// RegisterRoutes mounts /users on an authenticated group.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.PUT("/me", h.updateMe)
		users.POST("/me/avatar", h.uploadAvatar)
		users.DELETE("/me", h.deleteMe)
		users.GET("/:id", h.getUserByID)
	}
}

// RegisterAdminRoutes mounts account administration on an admin-only group.
func (h *Handler) RegisterAdminRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("", h.listUsers)
		users.PATCH("/:id/role", h.setRole)
		users.PATCH("/:id/verification", h.setVerification)
	}
}

func (h *Handler) getUserByID(c *gin.Context) {
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	u, err := h.service.GetUserByID(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	session, _ := middleware.GetSession(c)
	if session.UserID == u.ID || common.IsStaff(session.Role) {
		common.RespondOK(c, "User retrieved successfully.", ToUserResponse(u))
		return
	}
	if u.Status == StatusDeleted {
		common.RespondWithError(c, common.ErrNotFound.WithDetails("User not found with this ID."))
		return
	}
	common.RespondOK(c, "User retrieved successfully.", ToPublicProfile(u))
}

func (h *Handler) updateMe(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	u, err := h.service.UpdateProfile(c.Request.Context(), session.UserID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile updated successfully.", ToUserResponse(u))
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Multipart field 'file' is required."))
		return
	}
	u, err := h.service.UploadAvatar(c.Request.Context(), session.UserID, file)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Avatar updated successfully.", ToUserResponse(u))
}

func (h *Handler) deleteMe(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	if err := h.service.DeleteAccount(c.Request.Context(), session.UserID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) listUsers(c *gin.Context) {
	page, pageSize := common.GetPaginationParams(c)
	filter := ListFilter{
		Role:   c.Query("role"),
		Status: Status(c.Query("status")),
		Query:  c.Query("q"),
	}
	users, pagination, err := h.service.ListUsers(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, ToUserResponse(&users[i]))
	}
	common.RespondPaginated(c, "Users retrieved successfully.", out, pagination)
}

func (h *Handler) setRole(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	u, err := h.service.SetRole(c.Request.Context(), session.UserID, id, req.Role)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Role updated successfully.", ToUserResponse(u))
}

func (h *Handler) setVerification(c *gin.Context) {
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	u, err := h.service.SetVerification(c.Request.Context(), id, req.VerificationStatus)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Verification status updated.", ToUserResponse(u))
}
