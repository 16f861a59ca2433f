package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bontroc_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, listing *Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Listing, error)
	Update(ctx context.Context, listing *Listing) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from []Status, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query SearchQuery) ([]Listing, *common.Pagination, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID, status Status, page, pageSize int) ([]Listing, *common.Pagination, error)
	ListBatch(ctx context.Context, afterID uuid.UUID, limit int) ([]Listing, error)

	AddMedia(ctx context.Context, media *Media) error
	FindMedia(ctx context.Context, listingID, mediaID uuid.UUID) (*Media, error)
	DeleteMedia(ctx context.Context, listingID, mediaID uuid.UUID) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) preloader(query *gorm.DB) *gorm.DB {
	return query.Preload("Owner").
		Preload("Category").
		Preload("Media", func(db *gorm.DB) *gorm.DB {
			return db.Order("listing_media.sort_order ASC, listing_media.created_at ASC")
		})
}

func (r *gormRepository) Create(ctx context.Context, listing *Listing) error {
	if err := r.db.WithContext(ctx).Omit("Owner", "Category", "Media").Create(listing).Error; err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var listing Listing
	err := r.preloader(r.db.WithContext(ctx)).First(&listing, "listings.id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Listing not found.")
		}
		return nil, fmt.Errorf("failed to find listing %s: %w", id, err)
	}
	return &listing, nil
}

// FindByIDs keeps the order of ids and skips the ones that no longer exist.
func (r *gormRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Listing, error) {
	if len(ids) == 0 {
		return []Listing{}, nil
	}
	var found []Listing
	if err := r.preloader(r.db.WithContext(ctx)).Where("listings.id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to load listings by ids: %w", err)
	}
	byID := make(map[uuid.UUID]Listing, len(found))
	for _, l := range found {
		byID[l.ID] = l
	}
	ordered := make([]Listing, 0, len(found))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			ordered = append(ordered, l)
		}
	}
	return ordered, nil
}

func (r *gormRepository) Update(ctx context.Context, listing *Listing) error {
	if err := r.db.WithContext(ctx).Omit("Owner", "Category", "Media").Save(listing).Error; err != nil {
		return fmt.Errorf("failed to update listing %s: %w", listing.ID, err)
	}
	return nil
}

// UpdateStatus applies fields only while the listing is in one of the from
// states. A listing in any other state yields ErrInvalidTransition.
func (r *gormRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []Status, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Listing{}).Where("id = ? AND status IN ?", id, from).Updates(fields)
		if res.Error != nil {
			return fmt.Errorf("failed to update listing %s status: %w", id, res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}
		var count int64
		if err := tx.Model(&Listing{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check listing %s: %w", id, err)
		}
		if count == 0 {
			return common.ErrNotFound.WithDetails("Listing not found.")
		}
		return common.ErrInvalidTransition.WithDetails("The listing is not in a state that allows this change.")
	})
}

// Delete refuses listings that already took part in a negotiation; those
// must be archived so the proposal history keeps its subject.
func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var proposals int64
		if tx.Migrator().HasTable("proposals") {
			if err := tx.Table("proposals").Where("listing_id = ?", id).Count(&proposals).Error; err != nil {
				return fmt.Errorf("failed to count proposals of listing %s: %w", id, err)
			}
		}
		if proposals > 0 {
			return common.ErrConflict.WithDetails("This listing has proposals; archive it instead.")
		}
		if err := tx.Where("listing_id = ?", id).Delete(&Media{}).Error; err != nil {
			return fmt.Errorf("failed to delete media of listing %s: %w", id, err)
		}
		res := tx.Delete(&Listing{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete listing %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return common.ErrNotFound.WithDetails("Listing not found or already deleted.")
		}
		return nil
	})
}

var sortableFields = map[string]string{
	"created_at":      "listings.created_at",
	"title":           "listings.title",
	"estimated_value": "listings.estimated_value",
}

// Search is the database fallback used when no search index is configured.
// It only returns published listings.
func (r *gormRepository) Search(ctx context.Context, q SearchQuery) ([]Listing, *common.Pagination, error) {
	query := r.db.WithContext(ctx).Model(&Listing{}).Where("listings.status = ?", StatusPublished)

	if term := strings.TrimSpace(q.Text); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(listings.title) LIKE ? OR LOWER(listings.description) LIKE ? OR LOWER(listings.wanted) LIKE ?", like, like, like)
	}
	if q.Type != "" {
		query = query.Where("listings.type = ?", q.Type)
	}
	if q.Mode != "" {
		// A listing offered in both modes matches either filter.
		query = query.Where("listings.mode IN ?", []Mode{q.Mode, ModeBoth})
	}
	if q.CategoryID != nil && *q.CategoryID != uuid.Nil {
		query = query.Where("listings.category_id = ?", *q.CategoryID)
	}
	if q.OwnerID != nil && *q.OwnerID != uuid.Nil {
		query = query.Where("listings.owner_id = ?", *q.OwnerID)
	}
	if city := strings.TrimSpace(q.City); city != "" {
		query = query.Where("LOWER(listings.city) = ?", strings.ToLower(city))
	}
	if tag := strings.TrimSpace(q.Tag); tag != "" {
		if r.db.Dialector.Name() == "postgres" {
			query = query.Where("? = ANY(listings.tags)", tag)
		} else {
			query = query.Where("listings.tags LIKE ?", "%\""+tag+"\"%")
		}
	}

	order := "listings.created_at DESC"
	if col, ok := sortableFields[q.SortBy]; ok {
		dir := "ASC"
		if strings.EqualFold(q.SortOrder, "desc") {
			dir = "DESC"
		}
		order = col + " " + dir
	}

	var listings []Listing
	pagination, err := common.Paginate(query, q.Page, q.PageSize, order, &listings, r.preloader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to search listings: %w", err)
	}
	return listings, pagination, nil
}

func (r *gormRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, status Status, page, pageSize int) ([]Listing, *common.Pagination, error) {
	query := r.db.WithContext(ctx).Model(&Listing{}).Where("listings.owner_id = ?", ownerID)
	if status != "" {
		query = query.Where("listings.status = ?", status)
	}
	var listings []Listing
	pagination, err := common.Paginate(query, page, pageSize, "listings.updated_at DESC", &listings, r.preloader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list listings of owner %s: %w", ownerID, err)
	}
	return listings, pagination, nil
}

// ListBatch pages through every listing by primary key, for reindexing.
func (r *gormRepository) ListBatch(ctx context.Context, afterID uuid.UUID, limit int) ([]Listing, error) {
	var listings []Listing
	query := r.db.WithContext(ctx).Preload("Category").Order("listings.id ASC").Limit(limit)
	if afterID != uuid.Nil {
		query = query.Where("listings.id > ?", afterID)
	}
	if err := query.Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to list listing batch: %w", err)
	}
	return listings, nil
}

func (r *gormRepository) AddMedia(ctx context.Context, media *Media) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxOrder *int
		if err := tx.Model(&Media{}).Where("listing_id = ?", media.ListingID).Select("MAX(sort_order)").Scan(&maxOrder).Error; err != nil {
			return fmt.Errorf("failed to read media order: %w", err)
		}
		if maxOrder != nil {
			media.SortOrder = *maxOrder + 1
		}
		if err := tx.Create(media).Error; err != nil {
			return fmt.Errorf("failed to add listing media: %w", err)
		}
		return nil
	})
}

func (r *gormRepository) FindMedia(ctx context.Context, listingID, mediaID uuid.UUID) (*Media, error) {
	var media Media
	err := r.db.WithContext(ctx).Where("id = ? AND listing_id = ?", mediaID, listingID).First(&media).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Media not found.")
		}
		return nil, fmt.Errorf("failed to find media %s: %w", mediaID, err)
	}
	return &media, nil
}

func (r *gormRepository) DeleteMedia(ctx context.Context, listingID, mediaID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ? AND listing_id = ?", mediaID, listingID).Delete(&Media{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete media %s: %w", mediaID, res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Media not found.")
	}
	return nil
}
