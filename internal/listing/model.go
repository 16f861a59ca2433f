package listing

import (
	"time"

	"bontroc_backend/internal/category"
	"bontroc_backend/internal/common"
	"bontroc_backend/internal/user"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Type says whether a listing offers a service or a product.
type Type string

const (
	TypeService Type = "service"
	TypeProduct Type = "product"
)

// Mode says where a service can be delivered.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeOnSite Mode = "on_site"
	ModeBoth   Mode = "both"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusSuspended Status = "suspended"
)

type Listing struct {
	common.BaseModel
	OwnerID         uuid.UUID           `gorm:"type:uuid;not null;index"`
	Owner           *user.User          `gorm:"foreignKey:OwnerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CategoryID      *uuid.UUID          `gorm:"type:uuid;index"`
	Category        *category.Category  `gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	Title           string              `gorm:"type:varchar(255);not null"`
	Description     string              `gorm:"type:text;not null"`
	Type            Type                `gorm:"type:varchar(20);not null"`
	Mode            Mode                `gorm:"type:varchar(20);not null;default:'both'"`
	Status          Status              `gorm:"type:varchar(20);not null;default:'draft';index"`
	City            *string             `gorm:"type:varchar(100);index"`
	Latitude        *float64            `gorm:"type:decimal(10,8)"`
	Longitude       *float64            `gorm:"type:decimal(11,8)"`
	EstimatedValue  decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	Wanted          *string             `gorm:"type:text"` // what the owner would take in exchange
	Tags            common.StringList
	PublishedAt     *time.Time
	SuspendedReason *string `gorm:"type:text"`
	Media           []Media `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE;"`
}

func (Listing) TableName() string {
	return "listings"
}

// IsOwnedBy reports whether userID owns the listing.
func (l *Listing) IsOwnedBy(userID uuid.UUID) bool {
	return l.OwnerID == userID
}

// Media is a picture attached to a listing, stored in the listing-media bucket.
type Media struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID   uuid.UUID `gorm:"type:uuid;not null;index" json:"listing_id"`
	ObjectKey   string    `gorm:"type:text;not null" json:"-"`
	URL         string    `gorm:"type:text;not null" json:"url"`
	ContentType string    `gorm:"type:varchar(100)" json:"content_type"`
	SortOrder   int       `gorm:"default:0" json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Media) TableName() string {
	return "listing_media"
}

func (m *Media) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// --- DTOs for API ---

type CreateListingRequest struct {
	CategoryID     *uuid.UUID       `json:"category_id,omitempty"`
	Title          string           `json:"title" binding:"required,min=3,max=255"`
	Description    string           `json:"description" binding:"required,min=10"`
	Type           Type             `json:"type" binding:"required,oneof=service product"`
	Mode           Mode             `json:"mode" binding:"omitempty,oneof=remote on_site both"`
	City           *string          `json:"city,omitempty" binding:"omitempty,max=100"`
	Latitude       *float64         `json:"latitude,omitempty" binding:"omitempty,latitude"`
	Longitude      *float64         `json:"longitude,omitempty" binding:"omitempty,longitude"`
	EstimatedValue *decimal.Decimal `json:"estimated_value,omitempty"`
	Wanted         *string          `json:"wanted,omitempty" binding:"omitempty,max=2000"`
	Tags           []string         `json:"tags,omitempty" binding:"omitempty,max=10,dive,min=1,max=50"`
	Publish        bool             `json:"publish"`
}

// UpdateListingRequest only touches the fields that are set.
type UpdateListingRequest struct {
	CategoryID     *uuid.UUID       `json:"category_id,omitempty"`
	Title          *string          `json:"title,omitempty" binding:"omitempty,min=3,max=255"`
	Description    *string          `json:"description,omitempty" binding:"omitempty,min=10"`
	Type           *Type            `json:"type,omitempty" binding:"omitempty,oneof=service product"`
	Mode           *Mode            `json:"mode,omitempty" binding:"omitempty,oneof=remote on_site both"`
	City           *string          `json:"city,omitempty" binding:"omitempty,max=100"`
	Latitude       *float64         `json:"latitude,omitempty" binding:"omitempty,latitude"`
	Longitude      *float64         `json:"longitude,omitempty" binding:"omitempty,longitude"`
	EstimatedValue *decimal.Decimal `json:"estimated_value,omitempty"`
	Wanted         *string          `json:"wanted,omitempty" binding:"omitempty,max=2000"`
	Tags           []string         `json:"tags,omitempty" binding:"omitempty,max=10,dive,min=1,max=50"`
}

type SuspendListingRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

// SearchQuery filters published listings.
type SearchQuery struct {
	Page       int        `form:"-"`
	PageSize   int        `form:"-"`
	Text       string     `form:"q"`
	Type       Type       `form:"type" binding:"omitempty,oneof=service product"`
	Mode       Mode       `form:"mode" binding:"omitempty,oneof=remote on_site both"`
	CategoryID *uuid.UUID `form:"-"`
	City       string     `form:"city"`
	Tag        string     `form:"tag"`
	OwnerID    *uuid.UUID `form:"-"`
	SortBy     string     `form:"sort_by" binding:"omitempty,oneof=created_at title estimated_value"`
	SortOrder  string     `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

type MyListingsQuery struct {
	Status Status `form:"status" binding:"omitempty,oneof=draft published archived suspended"`
}

type ListingResponse struct {
	ID              uuid.UUID                  `json:"id"`
	OwnerID         uuid.UUID                  `json:"owner_id"`
	Owner           *user.PublicProfile        `json:"owner,omitempty"`
	CategoryID      *uuid.UUID                 `json:"category_id,omitempty"`
	Category        *category.CategoryResponse `json:"category,omitempty"`
	Title           string                     `json:"title"`
	Description     string                     `json:"description"`
	Type            Type                       `json:"type"`
	Mode            Mode                       `json:"mode"`
	Status          Status                     `json:"status"`
	City            *string                    `json:"city,omitempty"`
	Latitude        *float64                   `json:"latitude,omitempty"`
	Longitude       *float64                   `json:"longitude,omitempty"`
	EstimatedValue  *decimal.Decimal           `json:"estimated_value,omitempty"`
	Wanted          *string                    `json:"wanted,omitempty"`
	Tags            []string                   `json:"tags"`
	Media           []Media                    `json:"media"`
	PublishedAt     *time.Time                 `json:"published_at,omitempty"`
	SuspendedReason *string                    `json:"suspended_reason,omitempty"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

func ToListingResponse(l *Listing) ListingResponse {
	resp := ListingResponse{
		ID:              l.ID,
		OwnerID:         l.OwnerID,
		CategoryID:      l.CategoryID,
		Title:           l.Title,
		Description:     l.Description,
		Type:            l.Type,
		Mode:            l.Mode,
		Status:          l.Status,
		City:            l.City,
		Latitude:        l.Latitude,
		Longitude:       l.Longitude,
		Wanted:          l.Wanted,
		Tags:            []string(l.Tags),
		Media:           l.Media,
		PublishedAt:     l.PublishedAt,
		SuspendedReason: l.SuspendedReason,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if resp.Media == nil {
		resp.Media = []Media{}
	}
	if l.EstimatedValue.Valid {
		v := l.EstimatedValue.Decimal
		resp.EstimatedValue = &v
	}
	if l.Owner != nil {
		p := user.ToPublicProfile(l.Owner)
		resp.Owner = &p
	}
	if l.Category != nil && l.Category.ID != uuid.Nil {
		c := category.ToCategoryResponse(l.Category)
		resp.Category = &c
	}
	return resp
}

func toListingResponses(listings []Listing) []ListingResponse {
	out := make([]ListingResponse, len(listings))
	for i := range listings {
		out[i] = ToListingResponse(&listings[i])
	}
	return out
}
