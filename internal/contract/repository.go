package contract

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
	Create(ctx context.Context, c *Contract) error
	FindByID(ctx context.Context, id uuid.UUID) (*Contract, error)
	FindByProposalID(ctx context.Context, proposalID uuid.UUID) (*Contract, error)
	ListForUser(ctx context.Context, userID uuid.UUID, status Status, page, pageSize int) ([]Contract, *common.Pagination, error)
	// Accept records side's acceptance and activates the contract in the
	// same transaction once both sides have accepted.
	Accept(ctx context.Context, id uuid.UUID, side Side, at time.Time) (*AcceptResult, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, c *Contract) error {
	if err := r.db.WithContext(ctx).Omit("Proposal").Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.ErrConflict.WithDetails("A contract already exists for this proposal.")
		}
		return fmt.Errorf("failed to create contract: %w", err)
	}
	return nil
}

func (r *gormRepository) findOne(db *gorm.DB, query string, args ...interface{}) (*Contract, error) {
	var c Contract
	if err := db.Where(query, args...).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Contract not found.")
		}
		return nil, fmt.Errorf("failed to find contract: %w", err)
	}
	return &c, nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Contract, error) {
	return r.findOne(r.db.WithContext(ctx), "id = ?", id)
}

func (r *gormRepository) FindByProposalID(ctx context.Context, proposalID uuid.UUID) (*Contract, error) {
	return r.findOne(r.db.WithContext(ctx), "proposal_id = ?", proposalID)
}

func (r *gormRepository) ListForUser(ctx context.Context, userID uuid.UUID, status Status, page, pageSize int) ([]Contract, *common.Pagination, error) {
	query := r.db.WithContext(ctx).Model(&Contract{}).Where("from_user_id = ? OR to_user_id = ?", userID, userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var contracts []Contract
	pagination, err := common.Paginate(query, page, pageSize, "created_at DESC", &contracts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	return contracts, pagination, nil
}

// Accept runs two compare-and-set updates in one transaction. The first only
// writes a timestamp that is still null, so a repeated accept is a no-op; the
// second only activates a pending contract whose two timestamps are set.
// No reader can observe both timestamps set on a pending contract.
func (r *gormRepository) Accept(ctx context.Context, id uuid.UUID, side Side, at time.Time) (*AcceptResult, error) {
	result := &AcceptResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Contract{}).
			Where("id = ? AND "+side.Column()+" IS NULL", id).
			Updates(map[string]interface{}{side.Column(): at, "updated_at": at})
		if res.Error != nil {
			return fmt.Errorf("failed to record acceptance of contract %s: %w", id, res.Error)
		}
		result.Recorded = res.RowsAffected > 0

		res = tx.Model(&Contract{}).
			Where("id = ? AND status = ? AND accepted_by_from_at IS NOT NULL AND accepted_by_to_at IS NOT NULL", id, StatusPending).
			Updates(map[string]interface{}{"status": StatusActive, "activated_at": at, "updated_at": at})
		if res.Error != nil {
			return fmt.Errorf("failed to activate contract %s: %w", id, res.Error)
		}
		result.Activated = res.RowsAffected > 0

		c, err := r.findOne(tx, "id = ?", id)
		if err != nil {
			return err
		}
		result.Contract = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
