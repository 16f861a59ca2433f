package moderation

import (
	"context"
	"errors"
	"fmt"

	"bontroc_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, w *BannedWord) error
	List(ctx context.Context, page, pageSize int) ([]BannedWord, *common.Pagination, error)
	Delete(ctx context.Context, id uuid.UUID) error
	NormalizedWords(ctx context.Context) ([]string, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, w *BannedWord) error {
	if err := r.db.WithContext(ctx).Create(w).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.ErrConflict.WithDetails("This word is already banned.")
		}
		return fmt.Errorf("failed to create banned word: %w", err)
	}
	return nil
}

func (r *gormRepository) List(ctx context.Context, page, pageSize int) ([]BannedWord, *common.Pagination, error) {
	var words []BannedWord
	pagination, err := common.Paginate(r.db.WithContext(ctx).Model(&BannedWord{}), page, pageSize, "normalized ASC", &words)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list banned words: %w", err)
	}
	return words, pagination, nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&BannedWord{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete banned word %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Banned word not found.")
	}
	return nil
}

func (r *gormRepository) NormalizedWords(ctx context.Context) ([]string, error) {
	var words []string
	if err := r.db.WithContext(ctx).Model(&BannedWord{}).Pluck("normalized", &words).Error; err != nil {
		return nil, fmt.Errorf("failed to load banned words: %w", err)
	}
	return words, nil
}
