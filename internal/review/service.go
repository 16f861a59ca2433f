package review

import (
	"context"
	"fmt"
	"strings"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/exchange"
	"bontroc_backend/internal/notification"
	"bontroc_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExchangeReader loads the exchange a review is about.
type ExchangeReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*exchange.Exchange, error)
}

type Service interface {
	SubmitReview(ctx context.Context, reviewerID uuid.UUID, req SubmitReviewRequest) (*Review, error)
	ListUserReviews(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Review, *common.Pagination, error)
	GetExchangeReviews(ctx context.Context, viewer shared.Session, exchangeID uuid.UUID) ([]Review, error)
}

type ServiceImplementation struct {
	repo      Repository
	exchanges ExchangeReader
	notifier  notification.Notifier
	logger    *zap.Logger
}

func NewService(repo Repository, exchanges ExchangeReader, notifier notification.Notifier, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:      repo,
		exchanges: exchanges,
		notifier:  notifier,
		logger:    logger.Named("ReviewService"),
	}
}

func (s *ServiceImplementation) wrap(err error, msg string) error {
	if _, ok := common.IsAPIError(err); ok {
		return err
	}
	s.logger.Error(msg, zap.Error(err))
	return common.ErrInternalServer.WithDetails(msg)
}

func (s *ServiceImplementation) SubmitReview(ctx context.Context, reviewerID uuid.UUID, req SubmitReviewRequest) (*Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, common.ErrBadRequest.WithDetails("Rating must be between 1 and 5.")
	}
	tags := common.NewStringList(req.Tags)
	if len(tags) > maxTags {
		return nil, common.ErrBadRequest.WithDetails(fmt.Sprintf("A review can have at most %d tags.", maxTags))
	}

	e, err := s.exchanges.FindByID(ctx, req.ExchangeID)
	if err != nil {
		return nil, s.wrap(err, "Could not retrieve exchange.")
	}
	if !e.IsParty(reviewerID) {
		return nil, common.ErrNotAParty
	}
	if e.Status != exchange.StatusConfirmed {
		return nil, common.ErrUnprocessableEntity.WithDetails("Only confirmed exchanges can be reviewed.")
	}

	var comment *string
	if req.Comment != nil {
		if c := strings.TrimSpace(*req.Comment); c != "" {
			comment = &c
		}
	}
	r := &Review{
		ExchangeID: e.ID,
		ReviewerID: reviewerID,
		RevieweeID: e.Counterparty(reviewerID),
		Rating:     req.Rating,
		Tags:       tags,
		Comment:    comment,
	}
	rating, err := s.repo.Create(ctx, r)
	if err != nil {
		return nil, s.wrap(err, "Could not save review.")
	}
	s.logger.Info("Review submitted",
		zap.String("reviewID", r.ID.String()),
		zap.String("revieweeID", r.RevieweeID.String()),
		zap.Float64("ratingAvg", rating.Average),
		zap.Int64("ratingCount", rating.Count))

	if s.notifier != nil {
		id := r.ID
		_, err := s.notifier.Notify(ctx, notification.Input{
			UserID:      r.RevieweeID,
			Type:        notification.TypeReviewReceived,
			Message:     fmt.Sprintf("You received a %d-star review.", r.Rating),
			RelatedType: "review",
			RelatedID:   &id,
		})
		if err != nil {
			s.logger.Warn("Failed to send review notification", zap.Error(err), zap.String("reviewID", id.String()))
		}
	}
	return r, nil
}

func (s *ServiceImplementation) ListUserReviews(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Review, *common.Pagination, error) {
	reviews, pagination, err := s.repo.ListForReviewee(ctx, userID, page, pageSize)
	if err != nil {
		return nil, nil, s.wrap(err, "Could not retrieve reviews.")
	}
	return reviews, pagination, nil
}

func (s *ServiceImplementation) GetExchangeReviews(ctx context.Context, viewer shared.Session, exchangeID uuid.UUID) ([]Review, error) {
	e, err := s.exchanges.FindByID(ctx, exchangeID)
	if err != nil {
		return nil, s.wrap(err, "Could not retrieve exchange.")
	}
	if !e.IsParty(viewer.UserID) && !common.IsStaff(viewer.Role) {
		return nil, common.ErrNotFound.WithDetails("Exchange not found.")
	}
	reviews, err := s.repo.ListForExchange(ctx, exchangeID)
	if err != nil {
		return nil, s.wrap(err, "Could not retrieve reviews.")
	}
	return reviews, nil
}
