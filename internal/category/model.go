package category

import (
	"time"

	"bontroc_backend/internal/common"

	"github.com/google/uuid"
)

// Category groups listings. Categories are managed by admins only.
type Category struct {
	common.BaseModel
	Name         string  `gorm:"type:varchar(100);not null;uniqueIndex:idx_categories_name"`
	Slug         string  `gorm:"type:varchar(100);not null;uniqueIndex:idx_categories_slug"`
	Description  *string `gorm:"type:text"`
	Icon         *string `gorm:"type:varchar(100)"`
	SortOrder    int     `gorm:"not null;default:0"`
	ListingCount int     `gorm:"column:listing_count;->"` // read-only, filled by FindAll
}

func (Category) TableName() string {
	return "categories"
}

// --- DTOs ---

type CategoryResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  *string   `json:"description,omitempty"`
	Icon         *string   `json:"icon,omitempty"`
	SortOrder    int       `json:"sort_order"`
	ListingCount int       `json:"listing_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func ToCategoryResponse(category *Category) CategoryResponse {
	return CategoryResponse{
		ID:           category.ID,
		Name:         category.Name,
		Slug:         category.Slug,
		Description:  category.Description,
		Icon:         category.Icon,
		SortOrder:    category.SortOrder,
		ListingCount: category.ListingCount,
		CreatedAt:    category.CreatedAt,
		UpdatedAt:    category.UpdatedAt,
	}
}

// AdminCategoryRequest is used for both create and update. An empty slug is
// derived from the name.
type AdminCategoryRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Slug        string  `json:"slug" binding:"omitempty,max=100"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty" binding:"omitempty,max=100"`
	SortOrder   int     `json:"sort_order"`
}
