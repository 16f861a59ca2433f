package badge

import (
	"io"

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
	router.GET("/me/badges", h.counts)
	router.GET("/me/badges/stream", h.stream)
}

func (h *Handler) counts(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	counts, err := h.service.Counts(c.Request.Context(), session.UserID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Badges retrieved successfully.", counts)
}

// stream pushes a "badges" server-sent event with the full counts on
// connect and after every change.
func (h *Handler) stream(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	updates, err := h.service.Watch(c.Request.Context(), session.UserID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		counts, ok := <-updates
		if !ok {
			return false
		}
		c.SSEvent("badges", counts)
		return true
	})
	h.logger.Debug("Badge stream closed", zap.String("userID", session.UserID.String()))
}
