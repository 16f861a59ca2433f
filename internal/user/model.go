package user

import (
	"time"

	"bontroc_backend/internal/common"

	"github.com/google/uuid"
)

// Status is the account lifecycle state. Accounts are never hard-deleted.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// VerificationStatus tracks identity verification by staff.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
	VerificationRejected   VerificationStatus = "rejected"
)

// User represents the user model in the database.
type User struct {
	common.BaseModel
	Email              *string            `gorm:"type:varchar(255);uniqueIndex"`
	PasswordHash       *string            `gorm:"type:varchar(255)"`
	FirebaseUID        *string            `gorm:"type:varchar(128);uniqueIndex"`
	AuthProvider       string             `gorm:"type:varchar(50);not null;default:'email'"`
	DisplayName        string             `gorm:"type:varchar(100);not null"`
	Bio                *string            `gorm:"type:text"`
	City               *string            `gorm:"type:varchar(100);index"`
	AvatarURL          *string            `gorm:"type:text"`
	Role               string             `gorm:"type:varchar(20);not null;default:'user';index"`
	Status             Status             `gorm:"type:varchar(20);not null;default:'active'"`
	VerificationStatus VerificationStatus `gorm:"type:varchar(20);not null;default:'unverified'"`
	RatingAvg          float64            `gorm:"not null;default:0"`
	RatingCount        int                `gorm:"not null;default:0"`
	LastLoginAt        *time.Time
	DeletedAt          *time.Time
}

func (User) TableName() string {
	return "users"
}

func (u *User) GetID() uuid.UUID {
	return u.ID
}

func (u *User) GetEmail() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

func (u *User) GetRole() string {
	return u.Role
}

// CanSignIn reports whether the account may obtain new tokens.
func (u *User) CanSignIn() bool {
	return u.Status == StatusActive && u.Role != common.RoleBanned
}

// --- DTOs ---

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8,max=72"` // bcrypt max is 72 bytes
	DisplayName string `json:"display_name" binding:"required,min=2,max=100"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,min=2,max=100"`
	Bio         *string `json:"bio" binding:"omitempty,max=1000"`
	City        *string `json:"city" binding:"omitempty,max=100"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user moderator admin banned"`
}

type UpdateVerificationRequest struct {
	VerificationStatus VerificationStatus `json:"verification_status" binding:"required,oneof=unverified pending verified rejected"`
}

// ExternalIdentity is a verified identity from a social sign-in provider.
type ExternalIdentity struct {
	UID           string
	Provider      string
	Email         string
	EmailVerified bool
	DisplayName   string
	PictureURL    string
}

// UserResponse is the owner's view of an account.
type UserResponse struct {
	ID                 uuid.UUID          `json:"id"`
	Email              *string            `json:"email,omitempty"`
	DisplayName        string             `json:"display_name"`
	Bio                *string            `json:"bio,omitempty"`
	City               *string            `json:"city,omitempty"`
	AvatarURL          *string            `json:"avatar_url,omitempty"`
	AuthProvider       string             `json:"auth_provider"`
	Role               string             `json:"role"`
	Status             Status             `json:"status"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	RatingAvg          float64            `json:"rating_avg"`
	RatingCount        int                `json:"rating_count"`
	CreatedAt          time.Time          `json:"created_at"`
	LastLoginAt        *time.Time         `json:"last_login_at,omitempty"`
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:                 u.ID,
		Email:              u.Email,
		DisplayName:        u.DisplayName,
		Bio:                u.Bio,
		City:               u.City,
		AvatarURL:          u.AvatarURL,
		AuthProvider:       u.AuthProvider,
		Role:               u.Role,
		Status:             u.Status,
		VerificationStatus: u.VerificationStatus,
		RatingAvg:          u.RatingAvg,
		RatingCount:        u.RatingCount,
		CreatedAt:          u.CreatedAt,
		LastLoginAt:        u.LastLoginAt,
	}
}

// PublicProfile is what other users see.
type PublicProfile struct {
	ID                 uuid.UUID          `json:"id"`
	DisplayName        string             `json:"display_name"`
	Bio                *string            `json:"bio,omitempty"`
	City               *string            `json:"city,omitempty"`
	AvatarURL          *string            `json:"avatar_url,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	RatingAvg          float64            `json:"rating_avg"`
	RatingCount        int                `json:"rating_count"`
	MemberSince        time.Time          `json:"member_since"`
}

func ToPublicProfile(u *User) PublicProfile {
	return PublicProfile{
		ID:                 u.ID,
		DisplayName:        u.DisplayName,
		Bio:                u.Bio,
		City:               u.City,
		AvatarURL:          u.AvatarURL,
		VerificationStatus: u.VerificationStatus,
		RatingAvg:          u.RatingAvg,
		RatingCount:        u.RatingCount,
		MemberSince:        u.CreatedAt,
	}
}
