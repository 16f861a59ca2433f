package exchange

import (
	"context"
	"errors"
	"fmt"

	"bontroc_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// CreateIfMissing inserts e unless its contract already has an exchange,
	// and returns the stored row either way.
	CreateIfMissing(ctx context.Context, e *Exchange) (*Exchange, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Exchange, error)
	FindByContractID(ctx context.Context, contractID uuid.UUID) (*Exchange, error)
	ListForUser(ctx context.Context, userID uuid.UUID, status Status, page, pageSize int) ([]Exchange, *common.Pagination, error)
	// Transition applies fields only while the exchange is still in from.
	Transition(ctx context.Context, id uuid.UUID, from Status, fields map[string]interface{}) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateIfMissing(ctx context.Context, e *Exchange) (*Exchange, error) {
	err := r.db.WithContext(ctx).Omit("Contract").Create(e).Error
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("failed to create exchange: %w", err)
	}
	return r.FindByContractID(ctx, e.ContractID)
}

func (r *gormRepository) findOne(ctx context.Context, query string, args ...interface{}) (*Exchange, error) {
	var e Exchange
	if err := r.db.WithContext(ctx).Where(query, args...).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Exchange not found.")
		}
		return nil, fmt.Errorf("failed to find exchange: %w", err)
	}
	return &e, nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Exchange, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *gormRepository) FindByContractID(ctx context.Context, contractID uuid.UUID) (*Exchange, error) {
	return r.findOne(ctx, "contract_id = ?", contractID)
}

func (r *gormRepository) ListForUser(ctx context.Context, userID uuid.UUID, status Status, page, pageSize int) ([]Exchange, *common.Pagination, error) {
	query := r.db.WithContext(ctx).Model(&Exchange{}).Where("from_user_id = ? OR to_user_id = ?", userID, userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var exchanges []Exchange
	pagination, err := common.Paginate(query, page, pageSize, "updated_at DESC", &exchanges)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list exchanges: %w", err)
	}
	return exchanges, pagination, nil
}

func (r *gormRepository) Transition(ctx context.Context, id uuid.UUID, from Status, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&Exchange{}).Where("id = ? AND status = ?", id, from).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update exchange %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrInvalidTransition.WithDetails("The exchange changed in the meantime, reload and try again.")
	}
	return nil
}
