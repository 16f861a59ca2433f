package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bontroc_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for user data operations.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	List(ctx context.Context, filter ListFilter, page, pageSize int) ([]User, *common.Pagination, error)
}

// ListFilter narrows the admin user listing.
type ListFilter struct {
	Role   string
	Status Status
	Query  string
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *gormRepository) Create(ctx context.Context, user *User) error {
	if user.Email != nil {
		normalized := normalizeEmail(*user.Email)
		user.Email = &normalized
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.ErrConflict.WithDetails("User with this email or social account already exists.")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *gormRepository) findOne(ctx context.Context, notFound string, query string, args ...interface{}) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where(query, args...).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails(notFound)
		}
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "User not found with this email.", "email = ?", normalizeEmail(email))
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.findOne(ctx, "User not found with this ID.", "id = ?", id)
}

func (r *gormRepository) FindByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error) {
	return r.findOne(ctx, "User not found with this Firebase UID.", "firebase_uid = ?", firebaseUID)
}

func (r *gormRepository) Update(ctx context.Context, user *User) error {
	if user.Email != nil {
		normalized := normalizeEmail(*user.Email)
		user.Email = &normalized
	}
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.ErrConflict.WithDetails("Update failed: email or social account already taken.")
		}
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	return nil
}

// UpdateFields writes only the given columns.
func (r *gormRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("User not found with this ID.")
	}
	return nil
}

func (r *gormRepository) List(ctx context.Context, filter ListFilter, page, pageSize int) ([]User, *common.Pagination, error) {
	query := r.db.WithContext(ctx).Model(&User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(display_name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var users []User
	pagination, err := common.Paginate(query, page, pageSize, "created_at DESC", &users)
	if err != nil {
		return nil, nil, fmt.Errorf("listing users failed: %w", err)
	}
	return users, pagination, nil
}
