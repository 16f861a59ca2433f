package listing

import (
	"context"
	"mime/multipart"
	"strings"
	"time"

	"bontroc_backend/internal/category"
	"bontroc_backend/internal/common"
	"bontroc_backend/internal/config"
	"bontroc_backend/internal/platform/storage"
	"bontroc_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SearchIndex is the optional full-text index of listings. Writes to it are
// best-effort: the database stays the source of truth.
type SearchIndex interface {
	Index(ctx context.Context, l *Listing) error
	Remove(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, q SearchQuery) ([]uuid.UUID, int64, error)
	BulkIndex(ctx context.Context, listings []Listing) (int, error)
}

const maxMediaPerListing = 8

type Service interface {
	CreateListing(ctx context.Context, ownerID uuid.UUID, req CreateListingRequest) (*Listing, error)
	GetListing(ctx context.Context, viewer shared.Session, id uuid.UUID) (*Listing, error)
	GetPublishedListing(ctx context.Context, id uuid.UUID) (*Listing, error)
	UpdateListing(ctx context.Context, ownerID, id uuid.UUID, req UpdateListingRequest) (*Listing, error)
	DeleteListing(ctx context.Context, ownerID, id uuid.UUID) error
	PublishListing(ctx context.Context, ownerID, id uuid.UUID) (*Listing, error)
	ArchiveListing(ctx context.Context, ownerID, id uuid.UUID) (*Listing, error)
	SearchListings(ctx context.Context, q SearchQuery) ([]Listing, *common.Pagination, error)
	GetMyListings(ctx context.Context, ownerID uuid.UUID, status Status, page, pageSize int) ([]Listing, *common.Pagination, error)
	UploadMedia(ctx context.Context, ownerID, id uuid.UUID, fh *multipart.FileHeader) (*Media, error)
	DeleteMedia(ctx context.Context, ownerID, id, mediaID uuid.UUID) error

	// Moderation
	SuspendListing(ctx context.Context, id uuid.UUID, reason string) (*Listing, error)
	ReinstateListing(ctx context.Context, id uuid.UUID) (*Listing, error)

	// Reindex pushes every listing to the search index in batches.
	Reindex(ctx context.Context, batchSize int) (int, error)
}

type ServiceImplementation struct {
	repo       Repository
	categories category.Service
	index      SearchIndex
	store      storage.ObjectStore
	cfg        *config.Config
	logger     *zap.Logger
	now        func() time.Time
}

// NewService builds the listing service. index may be nil, in which case
// search runs against the database.
func NewService(repo Repository, categories category.Service, index SearchIndex, store storage.ObjectStore, cfg *config.Config, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:       repo,
		categories: categories,
		index:      index,
		store:      store,
		cfg:        cfg,
		logger:     logger.Named("ListingService"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *ServiceImplementation) checkCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	if _, err := s.categories.GetCategoryByID(ctx, *id); err != nil {
		return common.ErrBadRequest.WithDetails("Invalid category ID provided.")
	}
	return nil
}

func validValue(v *decimal.Decimal) error {
	if v != nil && v.IsNegative() {
		return common.ErrBadRequest.WithDetails("Estimated value cannot be negative.")
	}
	return nil
}

func (s *ServiceImplementation) CreateListing(ctx context.Context, ownerID uuid.UUID, req CreateListingRequest) (*Listing, error) {
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}
	if err := validValue(req.EstimatedValue); err != nil {
		return nil, err
	}

	l := &Listing{
		OwnerID:     ownerID,
		CategoryID:  req.CategoryID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Type:        req.Type,
		Mode:        req.Mode,
		Status:      StatusDraft,
		City:        req.City,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Wanted:      req.Wanted,
		Tags:        common.NewStringList(req.Tags),
	}
	if l.Mode == "" {
		l.Mode = ModeBoth
	}
	if req.EstimatedValue != nil {
		l.EstimatedValue = decimal.NewNullDecimal(req.EstimatedValue.Round(2))
	}
	if req.Publish {
		now := s.now()
		l.Status = StatusPublished
		l.PublishedAt = &now
	}

	if err := s.repo.Create(ctx, l); err != nil {
		s.logger.Error("Failed to create listing", zap.Error(err), zap.String("ownerID", ownerID.String()))
		return nil, common.ErrInternalServer.WithDetails("Could not create listing.")
	}
	s.logger.Info("Listing created", zap.String("listingID", l.ID.String()), zap.String("status", string(l.Status)))
	return s.reloadAndIndex(ctx, l.ID)
}

// GetListing hides unpublished listings from everyone but their owner and staff.
func (s *ServiceImplementation) GetListing(ctx context.Context, viewer shared.Session, id uuid.UUID) (*Listing, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status != StatusPublished && !l.IsOwnedBy(viewer.UserID) && !common.IsStaff(viewer.Role) {
		return nil, common.ErrNotFound.WithDetails("Listing not found.")
	}
	return l, nil
}

// GetPublishedListing is used by the negotiation flow, which only deals
// with published listings.
func (s *ServiceImplementation) GetPublishedListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status != StatusPublished {
		return nil, common.ErrUnprocessableEntity.WithDetails("This listing is not open for proposals.")
	}
	return l, nil
}

func (s *ServiceImplementation) ownedListing(ctx context.Context, ownerID, id uuid.UUID) (*Listing, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.IsOwnedBy(ownerID) {
		return nil, common.ErrForbidden.WithDetails("You do not own this listing.")
	}
	return l, nil
}

func (s *ServiceImplementation) UpdateListing(ctx context.Context, ownerID, id uuid.UUID, req UpdateListingRequest) (*Listing, error) {
	l, err := s.ownedListing(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if l.Status == StatusSuspended {
		return nil, common.ErrForbidden.WithDetails("A suspended listing cannot be edited.")
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}
	if err := validValue(req.EstimatedValue); err != nil {
		return nil, err
	}

	if req.CategoryID != nil {
		l.CategoryID = req.CategoryID
		if *req.CategoryID == uuid.Nil {
			l.CategoryID = nil
		}
	}
	if req.Title != nil {
		l.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		l.Description = strings.TrimSpace(*req.Description)
	}
	if req.Type != nil {
		l.Type = *req.Type
	}
	if req.Mode != nil {
		l.Mode = *req.Mode
	}
	if req.City != nil {
		l.City = req.City
	}
	if req.Latitude != nil {
		l.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		l.Longitude = req.Longitude
	}
	if req.EstimatedValue != nil {
		l.EstimatedValue = decimal.NewNullDecimal(req.EstimatedValue.Round(2))
	}
	if req.Wanted != nil {
		l.Wanted = req.Wanted
	}
	if req.Tags != nil {
		l.Tags = common.NewStringList(req.Tags)
	}

	if err := s.repo.Update(ctx, l); err != nil {
		s.logger.Error("Failed to update listing", zap.Error(err), zap.String("listingID", id.String()))
		return nil, common.ErrInternalServer.WithDetails("Could not update listing.")
	}
	return s.reloadAndIndex(ctx, id)
}

func (s *ServiceImplementation) DeleteListing(ctx context.Context, ownerID, id uuid.UUID) error {
	l, err := s.ownedListing(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return err
		}
		s.logger.Error("Failed to delete listing", zap.Error(err), zap.String("listingID", id.String()))
		return common.ErrInternalServer.WithDetails("Could not delete listing.")
	}
	for _, m := range l.Media {
		if err := s.store.Delete(ctx, storage.BucketListingMedia, m.ObjectKey); err != nil {
			s.logger.Warn("Failed to delete listing media object", zap.Error(err), zap.String("key", m.ObjectKey))
		}
	}
	s.unindex(ctx, id)
	return nil
}

func (s *ServiceImplementation) PublishListing(ctx context.Context, ownerID, id uuid.UUID) (*Listing, error) {
	if _, err := s.ownedListing(ctx, ownerID, id); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{"status": StatusPublished, "published_at": s.now()}
	if err := s.repo.UpdateStatus(ctx, id, []Status{StatusDraft, StatusArchived}, fields); err != nil {
		return nil, s.statusError(err, id)
	}
	return s.reloadAndIndex(ctx, id)
}

func (s *ServiceImplementation) ArchiveListing(ctx context.Context, ownerID, id uuid.UUID) (*Listing, error) {
	if _, err := s.ownedListing(ctx, ownerID, id); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{"status": StatusArchived}
	if err := s.repo.UpdateStatus(ctx, id, []Status{StatusDraft, StatusPublished}, fields); err != nil {
		return nil, s.statusError(err, id)
	}
	return s.reloadAndIndex(ctx, id)
}

func (s *ServiceImplementation) SuspendListing(ctx context.Context, id uuid.UUID, reason string) (*Listing, error) {
	reason = strings.TrimSpace(reason)
	fields := map[string]interface{}{"status": StatusSuspended, "suspended_reason": reason}
	if err := s.repo.UpdateStatus(ctx, id, []Status{StatusDraft, StatusPublished, StatusArchived}, fields); err != nil {
		return nil, s.statusError(err, id)
	}
	s.logger.Info("Listing suspended", zap.String("listingID", id.String()))
	return s.reloadAndIndex(ctx, id)
}

// ReinstateListing lifts a suspension. The listing goes back to draft so the
// owner decides when to publish it again.
func (s *ServiceImplementation) ReinstateListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	fields := map[string]interface{}{"status": StatusDraft, "suspended_reason": nil}
	if err := s.repo.UpdateStatus(ctx, id, []Status{StatusSuspended}, fields); err != nil {
		return nil, s.statusError(err, id)
	}
	return s.reloadAndIndex(ctx, id)
}

func (s *ServiceImplementation) statusError(err error, id uuid.UUID) error {
	if _, ok := common.IsAPIError(err); ok {
		return err
	}
	s.logger.Error("Failed to change listing status", zap.Error(err), zap.String("listingID", id.String()))
	return common.ErrInternalServer.WithDetails("Could not update listing status.")
}

// SearchListings asks the index first and falls back to the database when
// the index is absent or failing.
func (s *ServiceImplementation) SearchListings(ctx context.Context, q SearchQuery) ([]Listing, *common.Pagination, error) {
	if q.Page <= 0 {
		q.Page = common.DefaultPage
	}
	if q.PageSize <= 0 {
		q.PageSize = common.DefaultPageSize
	}

	if s.index != nil {
		ids, total, err := s.index.Search(ctx, q)
		if err == nil {
			listings, err := s.repo.FindByIDs(ctx, ids)
			if err == nil {
				return listings, common.NewPagination(total, q.Page, q.PageSize), nil
			}
			s.logger.Error("Failed to load indexed listings", zap.Error(err))
		} else {
			s.logger.Warn("Search index query failed, falling back to database", zap.Error(err))
		}
	}

	listings, pagination, err := s.repo.Search(ctx, q)
	if err != nil {
		s.logger.Error("Failed to search listings", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not search listings.")
	}
	return listings, pagination, nil
}

func (s *ServiceImplementation) GetMyListings(ctx context.Context, ownerID uuid.UUID, status Status, page, pageSize int) ([]Listing, *common.Pagination, error) {
	listings, pagination, err := s.repo.FindByOwner(ctx, ownerID, status, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to get owner listings", zap.Error(err), zap.String("ownerID", ownerID.String()))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve your listings.")
	}
	return listings, pagination, nil
}

func (s *ServiceImplementation) UploadMedia(ctx context.Context, ownerID, id uuid.UUID, fh *multipart.FileHeader) (*Media, error) {
	l, err := s.ownedListing(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if len(l.Media) >= maxMediaPerListing {
		return nil, common.ErrUnprocessableEntity.WithDetails("A listing can hold at most 8 pictures.")
	}

	obj, err := storage.UploadFile(ctx, s.store, storage.BucketListingMedia, ownerID, fh, storage.ImageTypes, s.cfg.MaxUploadSizeMB<<20)
	if err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return nil, err
		}
		s.logger.Error("Failed to store listing media", zap.Error(err), zap.String("listingID", id.String()))
		return nil, common.ErrInternalServer.WithDetails("Could not store the picture.")
	}

	media := &Media{
		ListingID:   id,
		ObjectKey:   obj.Key,
		URL:         obj.URL,
		ContentType: obj.ContentType,
		CreatedAt:   s.now(),
	}
	if err := s.repo.AddMedia(ctx, media); err != nil {
		s.logger.Error("Failed to record listing media", zap.Error(err), zap.String("listingID", id.String()))
		if delErr := s.store.Delete(ctx, storage.BucketListingMedia, obj.Key); delErr != nil {
			s.logger.Warn("Failed to clean up orphaned media object", zap.Error(delErr), zap.String("key", obj.Key))
		}
		return nil, common.ErrInternalServer.WithDetails("Could not save the picture.")
	}
	return media, nil
}

func (s *ServiceImplementation) DeleteMedia(ctx context.Context, ownerID, id, mediaID uuid.UUID) error {
	if _, err := s.ownedListing(ctx, ownerID, id); err != nil {
		return err
	}
	media, err := s.repo.FindMedia(ctx, id, mediaID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteMedia(ctx, id, mediaID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, storage.BucketListingMedia, media.ObjectKey); err != nil {
		s.logger.Warn("Failed to delete media object", zap.Error(err), zap.String("key", media.ObjectKey))
	}
	return nil
}

func (s *ServiceImplementation) Reindex(ctx context.Context, batchSize int) (int, error) {
	if s.index == nil {
		return 0, common.ErrFeatureDisabled.WithDetails("No search index is configured.")
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	total := 0
	after := uuid.Nil
	for {
		batch, err := s.repo.ListBatch(ctx, after, batchSize)
		if err != nil {
			return total, err
		}
		if len(batch) == 0 {
			return total, nil
		}
		n, err := s.index.BulkIndex(ctx, batch)
		total += n
		if err != nil {
			s.logger.Error("Bulk index batch failed", zap.Error(err), zap.Int("indexedSoFar", total))
			return total, err
		}
		after = batch[len(batch)-1].ID
	}
}

// reloadAndIndex returns the fresh row and mirrors it into the index.
func (s *ServiceImplementation) reloadAndIndex(ctx context.Context, id uuid.UUID) (*Listing, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.index != nil {
		if err := s.index.Index(ctx, l); err != nil {
			s.logger.Warn("Failed to index listing", zap.Error(err), zap.String("listingID", id.String()))
		}
	}
	return l, nil
}

func (s *ServiceImplementation) unindex(ctx context.Context, id uuid.UUID) {
	if s.index == nil {
		return
	}
	if err := s.index.Remove(ctx, id); err != nil {
		s.logger.Warn("Failed to remove listing from index", zap.Error(err), zap.String("listingID", id.String()))
	}
}
