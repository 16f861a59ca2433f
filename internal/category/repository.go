package category

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
	Create(ctx context.Context, category *Category) error
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)
	FindBySlug(ctx context.Context, slug string) (*Category, error)
	FindAll(ctx context.Context) ([]Category, error)
	Update(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, category *Category) error {
	category.Slug = strings.ToLower(strings.TrimSpace(category.Slug))
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.ErrConflict.WithDetails("Category with this name or slug already exists.")
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	var category Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Category not found.")
		}
		return nil, fmt.Errorf("failed to find category %s: %w", id, err)
	}
	return &category, nil
}

func (r *gormRepository) FindBySlug(ctx context.Context, slug string) (*Category, error) {
	var category Category
	normalized := strings.ToLower(strings.TrimSpace(slug))
	if err := r.db.WithContext(ctx).First(&category, "slug = ?", normalized).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Category not found.")
		}
		return nil, fmt.Errorf("failed to find category by slug %q: %w", slug, err)
	}
	return &category, nil
}

// FindAll returns every category with the number of published listings in it.
func (r *gormRepository) FindAll(ctx context.Context) ([]Category, error) {
	var categories []Category
	sub := r.db.Table("listings").
		Select("count(*)").
		Where("listings.category_id = categories.id AND listings.status = ?", "published")

	err := r.db.WithContext(ctx).Model(&Category{}).
		Select("categories.*, (?) AS listing_count", sub).
		Order("categories.sort_order ASC, categories.name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *gormRepository) Update(ctx context.Context, category *Category) error {
	category.Slug = strings.ToLower(strings.TrimSpace(category.Slug))
	if err := r.db.WithContext(ctx).Omit("listing_count").Save(category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.ErrConflict.WithDetails("Category with this name or slug already exists.")
		}
		return fmt.Errorf("failed to update category %s: %w", category.ID, err)
	}
	return nil
}

// Delete refuses to remove a category that still has listings.
func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listingCount int64
		if err := tx.Table("listings").Where("category_id = ?", id).Count(&listingCount).Error; err != nil {
			return fmt.Errorf("failed to count listings of category %s: %w", id, err)
		}
		if listingCount > 0 {
			return common.ErrConflict.WithDetails(
				fmt.Sprintf("Cannot delete category: %d listings are still associated with it.", listingCount),
			)
		}
		res := tx.Delete(&Category{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete category %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return common.ErrNotFound.WithDetails("Category not found or already deleted.")
		}
		return nil
	})
}
