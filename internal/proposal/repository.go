package proposal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bontroc_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxThreadDepth bounds the parent walk of a negotiation thread.
const maxThreadDepth = 100

type Repository interface {
	Create(ctx context.Context, p *Proposal) error
	FindByID(ctx context.Context, id uuid.UUID) (*Proposal, error)
	List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Proposal, *common.Pagination, error)
	Thread(ctx context.Context, id uuid.UUID) ([]Proposal, error)

	// Transition moves a pending proposal to status, setting responded_at.
	Transition(ctx context.Context, id uuid.UUID, status Status, at time.Time) error
	// Counter flips the original to countered and inserts counter, atomically.
	Counter(ctx context.Context, originalID uuid.UUID, counter *Proposal, at time.Time) error

	CountPendingTo(ctx context.Context, userID uuid.UUID) (int64, error)
	PendingIDsTo(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	AcceptedWithoutContract(ctx context.Context, respondedBefore time.Time, limit int) ([]uuid.UUID, error)
	ExpirePending(ctx context.Context, createdBefore, at time.Time) ([]Proposal, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) preloader(query *gorm.DB) *gorm.DB {
	return query.Preload("Listing").
		Preload("OfferedListing").
		Preload("FromUser").
		Preload("ToUser")
}

func (r *gormRepository) Create(ctx context.Context, p *Proposal) error {
	if err := r.db.WithContext(ctx).Omit("Listing", "OfferedListing", "FromUser", "ToUser").Create(p).Error; err != nil {
		return fmt.Errorf("failed to create proposal: %w", err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Proposal, error) {
	var p Proposal
	if err := r.preloader(r.db.WithContext(ctx)).First(&p, "proposals.id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Proposal not found.")
		}
		return nil, fmt.Errorf("failed to find proposal %s: %w", id, err)
	}
	return &p, nil
}

func (r *gormRepository) List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Proposal, *common.Pagination, error) {
	query := r.db.WithContext(ctx).Model(&Proposal{})
	if filter.FromUserID != nil {
		query = query.Where("from_user_id = ?", *filter.FromUserID)
	}
	if filter.ToUserID != nil {
		query = query.Where("to_user_id = ?", *filter.ToUserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	var proposals []Proposal
	pagination, err := common.Paginate(query, page, pageSize, "created_at DESC", &proposals, r.preloader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	return proposals, pagination, nil
}

// Thread walks up to the first proposal of the negotiation and back down
// through its counters, oldest first.
func (r *gormRepository) Thread(ctx context.Context, id uuid.UUID) ([]Proposal, error) {
	db := r.db.WithContext(ctx)
	rootID := id
	for depth := 0; depth < maxThreadDepth; depth++ {
		var parent struct{ ParentProposalID *uuid.UUID }
		err := db.Model(&Proposal{}).Select("parent_proposal_id").Where("id = ?", rootID).Take(&parent).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, common.ErrNotFound.WithDetails("Proposal not found.")
			}
			return nil, fmt.Errorf("failed to walk proposal thread: %w", err)
		}
		if parent.ParentProposalID == nil {
			break
		}
		rootID = *parent.ParentProposalID
	}

	var thread []Proposal
	next := []uuid.UUID{rootID}
	for depth := 0; len(next) > 0 && depth < maxThreadDepth; depth++ {
		var level []Proposal
		query := r.preloader(db).Order("created_at ASC")
		if depth == 0 {
			query = query.Where("id IN ?", next)
		} else {
			query = query.Where("parent_proposal_id IN ?", next)
		}
		if err := query.Find(&level).Error; err != nil {
			return nil, fmt.Errorf("failed to load proposal thread: %w", err)
		}
		next = next[:0]
		for _, p := range level {
			next = append(next, p.ID)
		}
		thread = append(thread, level...)
	}
	return thread, nil
}

// transition is the compare-and-set every state change goes through: the
// update only applies while the row is still pending.
func transition(tx *gorm.DB, id uuid.UUID, status Status, at time.Time) error {
	res := tx.Model(&Proposal{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{"status": status, "responded_at": at, "updated_at": at})
	if res.Error != nil {
		return fmt.Errorf("failed to update proposal %s: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := tx.Model(&Proposal{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check proposal %s: %w", id, err)
	}
	if count == 0 {
		return common.ErrNotFound.WithDetails("Proposal not found.")
	}
	return common.ErrInvalidTransition.WithDetails("The proposal is no longer pending.")
}

func (r *gormRepository) Transition(ctx context.Context, id uuid.UUID, status Status, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return transition(tx, id, status, at)
	})
}

func (r *gormRepository) Counter(ctx context.Context, originalID uuid.UUID, counter *Proposal, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := transition(tx, originalID, StatusCountered, at); err != nil {
			return err
		}
		if err := tx.Omit("Listing", "OfferedListing", "FromUser", "ToUser").Create(counter).Error; err != nil {
			return fmt.Errorf("failed to create counter-proposal: %w", err)
		}
		return nil
	})
}

func (r *gormRepository) pendingTo(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&Proposal{}).Where("to_user_id = ? AND status = ?", userID, StatusPending)
}

func (r *gormRepository) CountPendingTo(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.pendingTo(ctx, userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count pending proposals: %w", err)
	}
	return count, nil
}

func (r *gormRepository) PendingIDsTo(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.pendingTo(ctx, userID).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending proposals: %w", err)
	}
	return ids, nil
}

// AcceptedWithoutContract finds accepted proposals whose contract was never
// generated. The contracts table may be absent on a partial schema.
func (r *gormRepository) AcceptedWithoutContract(ctx context.Context, respondedBefore time.Time, limit int) ([]uuid.UUID, error) {
	db := r.db.WithContext(ctx)
	if !db.Migrator().HasTable("contracts") {
		return nil, nil
	}
	var ids []uuid.UUID
	err := db.Model(&Proposal{}).
		Where("status = ? AND responded_at < ?", StatusAccepted, respondedBefore).
		Where("NOT EXISTS (SELECT 1 FROM contracts WHERE contracts.proposal_id = proposals.id)").
		Order("responded_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find accepted proposals without contract: %w", err)
	}
	return ids, nil
}

// ExpirePending cancels stale pending proposals and returns the ones it
// actually moved; a proposal answered meanwhile is left alone.
func (r *gormRepository) ExpirePending(ctx context.Context, createdBefore, at time.Time) ([]Proposal, error) {
	var expired []Proposal
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []Proposal
		if err := tx.Where("status = ? AND created_at < ?", StatusPending, createdBefore).Find(&stale).Error; err != nil {
			return fmt.Errorf("failed to find stale proposals: %w", err)
		}
		for i := range stale {
			err := transition(tx, stale[i].ID, StatusCancelled, at)
			if errors.Is(err, common.ErrInvalidTransition) {
				continue
			}
			if err != nil {
				return err
			}
			stale[i].Status = StatusCancelled
			stale[i].RespondedAt = &at
			expired = append(expired, stale[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}
