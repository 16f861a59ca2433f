package report

import (
	"context"
	"errors"
	"fmt"

	"bontroc_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, r *Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*Report, error)
	List(ctx context.Context, q ListQuery, page, pageSize int) ([]Report, *common.Pagination, error)
	ListByReporter(ctx context.Context, reporterID uuid.UUID, page, pageSize int) ([]Report, *common.Pagination, error)
	// Close moves an open report to status; it fails with
	// ErrInvalidTransition when the report was already handled.
	Close(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	TargetExists(ctx context.Context, t TargetType, id uuid.UUID) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

var errAlreadyReported = common.ErrConflict.WithDetails("You already have an open report on this item.")

// Create keeps one open report per reporter and target.
func (r *gormRepository) Create(ctx context.Context, rep *Report) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		err := tx.Model(&Report{}).
			Where("reporter_id = ? AND target_type = ? AND target_id = ? AND status = ?", rep.ReporterID, rep.TargetType, rep.TargetID, StatusOpen).
			Count(&open).Error
		if err != nil {
			return fmt.Errorf("failed to check open reports: %w", err)
		}
		if open > 0 {
			return errAlreadyReported
		}
		if err := tx.Create(rep).Error; err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}
		return nil
	})
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	var rep Report
	if err := r.db.WithContext(ctx).First(&rep, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Report not found.")
		}
		return nil, fmt.Errorf("failed to find report %s: %w", id, err)
	}
	return &rep, nil
}

func (r *gormRepository) List(ctx context.Context, q ListQuery, page, pageSize int) ([]Report, *common.Pagination, error) {
	query := r.db.WithContext(ctx).Model(&Report{})
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.TargetType != "" {
		query = query.Where("target_type = ?", q.TargetType)
	}
	var reports []Report
	pagination, err := common.Paginate(query, page, pageSize, "created_at ASC", &reports)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, pagination, nil
}

func (r *gormRepository) ListByReporter(ctx context.Context, reporterID uuid.UUID, page, pageSize int) ([]Report, *common.Pagination, error) {
	var reports []Report
	pagination, err := common.Paginate(r.db.WithContext(ctx).Model(&Report{}).Where("reporter_id = ?", reporterID), page, pageSize, "created_at DESC", &reports)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, pagination, nil
}

func (r *gormRepository) Close(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&Report{}).Where("id = ? AND status = ?", id, StatusOpen).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update report %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return common.ErrInvalidTransition.WithDetails("This report has already been handled.")
	}
	return nil
}

func (r *gormRepository) TargetExists(ctx context.Context, t TargetType, id uuid.UUID) (bool, error) {
	table, ok := targetTables[t]
	if !ok {
		return false, nil
	}
	var n int64
	if err := r.db.WithContext(ctx).Table(table).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to look up %s %s: %w", t, id, err)
	}
	return n > 0, nil
}
