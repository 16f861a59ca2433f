package review

import (
	"context"
	"errors"
	"fmt"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/user"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// Create stores the review and refreshes the reviewee's rating in the
	// same transaction.
	Create(ctx context.Context, r *Review) (*Rating, error)
	ListForReviewee(ctx context.Context, revieweeID uuid.UUID, page, pageSize int) ([]Review, *common.Pagination, error)
	ListForExchange(ctx context.Context, exchangeID uuid.UUID) ([]Review, error)
	RatingOf(ctx context.Context, revieweeID uuid.UUID) (*Rating, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func ratingOf(tx *gorm.DB, revieweeID uuid.UUID) (*Rating, error) {
	var agg struct {
		Average float64
		Count   int64
	}
	err := tx.Model(&Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("reviewee_id = ?", revieweeID).
		Scan(&agg).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings of %s: %w", revieweeID, err)
	}
	return &Rating{Average: agg.Average, Count: agg.Count}, nil
}

// Create recomputes the mean over every review of the reviewee rather than
// adjusting the stored value, so the aggregate cannot drift.
func (r *gormRepository) Create(ctx context.Context, rv *Review) (*Rating, error) {
	var rating *Rating
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Reviews of the same user are serialized on their row so each
		// aggregate sees every committed review.
		var reviewee user.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").Where("id = ?", rv.RevieweeID).Limit(1).Find(&reviewee).Error; err != nil {
			return fmt.Errorf("failed to lock reviewee %s: %w", rv.RevieweeID, err)
		}
		if err := tx.Omit("Reviewer").Create(rv).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return common.ErrAlreadyReviewed
			}
			return fmt.Errorf("failed to create review: %w", err)
		}
		agg, err := ratingOf(tx, rv.RevieweeID)
		if err != nil {
			return err
		}
		res := tx.Model(&user.User{}).Where("id = ?", rv.RevieweeID).
			Updates(map[string]interface{}{"rating_avg": agg.Average, "rating_count": agg.Count})
		if res.Error != nil {
			return fmt.Errorf("failed to store rating of %s: %w", rv.RevieweeID, res.Error)
		}
		rating = agg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rating, nil
}

func (r *gormRepository) ListForReviewee(ctx context.Context, revieweeID uuid.UUID, page, pageSize int) ([]Review, *common.Pagination, error) {
	query := r.db.WithContext(ctx).Model(&Review{}).Where("reviewee_id = ?", revieweeID)
	var reviews []Review
	pagination, err := common.Paginate(query, page, pageSize, "created_at DESC", &reviews, func(db *gorm.DB) *gorm.DB {
		return db.Preload("Reviewer")
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, pagination, nil
}

func (r *gormRepository) ListForExchange(ctx context.Context, exchangeID uuid.UUID) ([]Review, error) {
	var reviews []Review
	if err := r.db.WithContext(ctx).Preload("Reviewer").Where("exchange_id = ?", exchangeID).Order("created_at ASC").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to list reviews of exchange %s: %w", exchangeID, err)
	}
	return reviews, nil
}

func (r *gormRepository) RatingOf(ctx context.Context, revieweeID uuid.UUID) (*Rating, error) {
	return ratingOf(r.db.WithContext(ctx), revieweeID)
}
