package listing

import (
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

// RegisterRoutes mounts /listings on an authenticated group.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	listings := router.Group("/listings")
	{
		listings.GET("", h.searchListings)
		listings.GET("/mine", h.getMyListings)
		listings.POST("", h.createListing)
		listings.GET("/:id", h.getListing)
		listings.PUT("/:id", h.updateListing)
		listings.DELETE("/:id", h.deleteListing)
		listings.POST("/:id/publish", h.publishListing)
		listings.POST("/:id/archive", h.archiveListing)
		listings.POST("/:id/media", h.uploadMedia)
		listings.DELETE("/:id/media/:media_id", h.deleteMedia)
	}
}

// RegisterModerationRoutes mounts listing moderation on a staff-only group.
func (h *Handler) RegisterModerationRoutes(router *gin.RouterGroup) {
	listings := router.Group("/listings")
	{
		listings.POST("/:id/suspend", h.suspendListing)
		listings.POST("/:id/reinstate", h.reinstateListing)
	}
}

func (h *Handler) createListing(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create listing: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	l, err := h.service.CreateListing(c.Request.Context(), session.UserID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Listing created successfully.", ToListingResponse(l))
}

func (h *Handler) getListing(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	l, err := h.service.GetListing(c.Request.Context(), session, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing retrieved successfully.", ToListingResponse(l))
}

func (h *Handler) searchListings(c *gin.Context) {
	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.logger.Warn("Search listings: invalid query parameters", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	q.Page, q.PageSize = common.GetPaginationParams(c)
	for param, dst := range map[string]**uuid.UUID{"category_id": &q.CategoryID, "owner_id": &q.OwnerID} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid "+param+" format."))
			return
		}
		*dst = &id
	}

	listings, pagination, err := h.service.SearchListings(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Listings retrieved successfully.", toListingResponses(listings), pagination)
}

func (h *Handler) getMyListings(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	var q MyListingsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	page, pageSize := common.GetPaginationParams(c)

	listings, pagination, err := h.service.GetMyListings(c.Request.Context(), session.UserID, q.Status, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Successfully retrieved your listings.", toListingResponses(listings), pagination)
}

func (h *Handler) updateListing(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Update listing: invalid request body", zap.Error(err), zap.String("listingID", id.String()))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	l, err := h.service.UpdateListing(c.Request.Context(), session.UserID, id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing updated successfully.", ToListingResponse(l))
}

func (h *Handler) deleteListing(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteListing(c.Request.Context(), session.UserID, id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) publishListing(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	l, err := h.service.PublishListing(c.Request.Context(), session.UserID, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing published.", ToListingResponse(l))
}

func (h *Handler) archiveListing(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	l, err := h.service.ArchiveListing(c.Request.Context(), session.UserID, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing archived.", ToListingResponse(l))
}

func (h *Handler) uploadMedia(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("A 'file' form field is required."))
		return
	}
	media, err := h.service.UploadMedia(c.Request.Context(), session.UserID, id, fh)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Picture uploaded.", media)
}

func (h *Handler) deleteMedia(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	mediaID, ok := common.ParseIDParam(c, "media_id")
	if !ok {
		return
	}
	if err := h.service.DeleteMedia(c.Request.Context(), session.UserID, id, mediaID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) suspendListing(c *gin.Context) {
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req SuspendListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	l, err := h.service.SuspendListing(c.Request.Context(), id, req.Reason)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing suspended.", ToListingResponse(l))
}

func (h *Handler) reinstateListing(c *gin.Context) {
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	l, err := h.service.ReinstateListing(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing reinstated.", ToListingResponse(l))
}
