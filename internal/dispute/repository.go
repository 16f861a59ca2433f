package dispute

import (
	"context"
	"errors"
	"fmt"

	"bontroc_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, d *Dispute) error
	FindByID(ctx context.Context, id uuid.UUID) (*Dispute, error)
	ListForUser(ctx context.Context, userID uuid.UUID, status Status, page, pageSize int) ([]Dispute, *common.Pagination, error)
	List(ctx context.Context, status Status, page, pageSize int) ([]Dispute, *common.Pagination, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from Status, fields map[string]interface{}) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

var errAlreadyDisputed = common.ErrConflict.WithDetails("This exchange already has an unresolved dispute.")

// Create refuses a second unresolved dispute on the same exchange.
func (r *gormRepository) Create(ctx context.Context, d *Dispute) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		if err := tx.Model(&Dispute{}).Where("exchange_id = ? AND resolved_at IS NULL", d.ExchangeID).Count(&open).Error; err != nil {
			return fmt.Errorf("failed to check open disputes: %w", err)
		}
		if open > 0 {
			return errAlreadyDisputed
		}
		if err := tx.Create(d).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errAlreadyDisputed
			}
			return fmt.Errorf("failed to create dispute: %w", err)
		}
		return nil
	})
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Dispute, error) {
	var d Dispute
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Dispute not found.")
		}
		return nil, fmt.Errorf("failed to find dispute %s: %w", id, err)
	}
	return &d, nil
}

func (r *gormRepository) list(query *gorm.DB, status Status, page, pageSize int) ([]Dispute, *common.Pagination, error) {
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var disputes []Dispute
	pagination, err := common.Paginate(query, page, pageSize, "created_at DESC", &disputes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list disputes: %w", err)
	}
	return disputes, pagination, nil
}

func (r *gormRepository) ListForUser(ctx context.Context, userID uuid.UUID, status Status, page, pageSize int) ([]Dispute, *common.Pagination, error) {
	query := r.db.WithContext(ctx).Model(&Dispute{}).Where("opened_by = ? OR against_user_id = ?", userID, userID)
	return r.list(query, status, page, pageSize)
}

func (r *gormRepository) List(ctx context.Context, status Status, page, pageSize int) ([]Dispute, *common.Pagination, error) {
	return r.list(r.db.WithContext(ctx).Model(&Dispute{}), status, page, pageSize)
}

func (r *gormRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from Status, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&Dispute{}).Where("id = ? AND status = ?", id, from).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update dispute %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrInvalidTransition.WithDetails("The dispute changed in the meantime, reload and try again.")
	}
	return nil
}
