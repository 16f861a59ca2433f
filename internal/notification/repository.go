package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bontroc_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]Notification, *common.Pagination, error)
	FindByID(ctx context.Context, id, userID uuid.UUID) (*Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (*Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID, types ...Type) (int64, error)
	UnreadIDs(ctx context.Context, userID uuid.UUID, types ...Type) ([]uuid.UUID, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, n *Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *gormRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]Notification, *common.Pagination, error) {
	query := r.db.WithContext(ctx).Model(&Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var notifications []Notification
	pagination, err := common.Paginate(query, page, pageSize, "created_at DESC", &notifications)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching notifications for user %s failed: %w", userID, err)
	}
	return notifications, pagination, nil
}

// FindByID only returns notifications owned by userID.
func (r *gormRepository) FindByID(ctx context.Context, id, userID uuid.UUID) (*Notification, error) {
	var n Notification
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Notification not found.")
		}
		return nil, fmt.Errorf("failed to find notification %s: %w", id, err)
	}
	return &n, nil
}

// MarkRead sets read_at once; marking an already-read notification returns
// it unchanged.
func (r *gormRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (*Notification, error) {
	var n Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Notification{}).
			Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
			Update("read_at", at)
		if res.Error != nil {
			return fmt.Errorf("failed to mark notification %s as read: %w", id, res.Error)
		}
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrNotFound.WithDetails("Notification not found.")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *gormRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", at)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read for user %s: %w", userID, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *gormRepository) unread(ctx context.Context, userID uuid.UUID, types []Type) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&Notification{}).Where("user_id = ? AND read_at IS NULL", userID)
	if len(types) > 0 {
		q = q.Where("type IN ?", types)
	}
	return q
}

func (r *gormRepository) CountUnread(ctx context.Context, userID uuid.UUID, types ...Type) (int64, error) {
	var count int64
	if err := r.unread(ctx, userID, types).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting unread notifications for user %s failed: %w", userID, err)
	}
	return count, nil
}

func (r *gormRepository) UnreadIDs(ctx context.Context, userID uuid.UUID, types ...Type) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.unread(ctx, userID, types).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("listing unread notifications for user %s failed: %w", userID, err)
	}
	return ids, nil
}
