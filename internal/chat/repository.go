package chat

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
	// FindOrCreate returns the chat for the listing and pair, creating it
	// if needed. created reports which happened.
	FindOrCreate(ctx context.Context, listingID, a, b uuid.UUID) (chat *Chat, created bool, err error)
	FindByID(ctx context.Context, id uuid.UUID) (*Chat, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Chat, *common.Pagination, error)
	AddMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, chatID uuid.UUID, page, pageSize int) ([]Message, *common.Pagination, error)
	MarkRead(ctx context.Context, chatID, readerID uuid.UUID, at time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) find(ctx context.Context, listingID, a, b uuid.UUID) (*Chat, error) {
	var c Chat
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND user_a_id = ? AND user_b_id = ?", listingID, a, b).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindOrCreate tolerates a concurrent create of the same chat by re-reading
// after a unique violation.
func (r *gormRepository) FindOrCreate(ctx context.Context, listingID, a, b uuid.UUID) (*Chat, bool, error) {
	a, b = orderedPair(a, b)
	c, err := r.find(ctx, listingID, a, b)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up chat: %w", err)
	}
	c = &Chat{ListingID: listingID, UserAID: a, UserBID: b}
	if err := r.db.WithContext(ctx).Omit("UserA", "UserB").Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, ferr := r.find(ctx, listingID, a, b)
			if ferr != nil {
				return nil, false, fmt.Errorf("failed to re-read chat: %w", ferr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create chat: %w", err)
	}
	return c, true, nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Chat, error) {
	var c Chat
	if err := r.db.WithContext(ctx).Preload("UserA").Preload("UserB").First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Chat not found.")
		}
		return nil, fmt.Errorf("failed to find chat %s: %w", id, err)
	}
	return &c, nil
}

func (r *gormRepository) ListForUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Chat, *common.Pagination, error) {
	query := r.db.WithContext(ctx).Model(&Chat{}).Where("user_a_id = ? OR user_b_id = ?", userID, userID)
	var chats []Chat
	pagination, err := common.Paginate(query, page, pageSize, "last_message_at DESC, created_at DESC", &chats, func(db *gorm.DB) *gorm.DB {
		return db.Preload("UserA").Preload("UserB")
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, pagination, nil
}

// AddMessage stores the message and bumps the chat's last_message_at.
func (r *gormRepository) AddMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
		err := tx.Model(&Chat{}).Where("id = ?", m.ChatID).
			Updates(map[string]interface{}{"last_message_at": m.CreatedAt, "updated_at": m.CreatedAt}).Error
		if err != nil {
			return fmt.Errorf("failed to touch chat %s: %w", m.ChatID, err)
		}
		return nil
	})
}

func (r *gormRepository) ListMessages(ctx context.Context, chatID uuid.UUID, page, pageSize int) ([]Message, *common.Pagination, error) {
	var messages []Message
	pagination, err := common.Paginate(r.db.WithContext(ctx).Model(&Message{}).Where("chat_id = ?", chatID), page, pageSize, "created_at DESC", &messages)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, pagination, nil
}

func (r *gormRepository) MarkRead(ctx context.Context, chatID, readerID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Message{}).
		Where("chat_id = ? AND sender_id <> ? AND read_at IS NULL", chatID, readerID).
		Update("read_at", at)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark chat %s read: %w", chatID, res.Error)
	}
	return res.RowsAffected, nil
}
