package review

import (
	"time"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/user"

	"github.com/google/uuid"
)

const maxTags = 5

// Review is one party's rating of the other after a confirmed exchange.
type Review struct {
	common.BaseModel
	ExchangeID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_exchange_reviewer"`
	ReviewerID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_exchange_reviewer"`
	Reviewer   *user.User        `gorm:"foreignKey:ReviewerID"`
	RevieweeID uuid.UUID         `gorm:"type:uuid;not null;index"`
	Rating     int               `gorm:"not null"`
	Tags       common.StringList `gorm:"not null"`
	Comment    *string           `gorm:"type:text"`
}

func (Review) TableName() string {
	return "reviews"
}

// Rating aggregates of one user.
type Rating struct {
	Average float64
	Count   int64
}

type SubmitReviewRequest struct {
	ExchangeID uuid.UUID `json:"exchange_id" binding:"required"`
	Rating     int       `json:"rating" binding:"required,gte=1,lte=5"`
	Tags       []string  `json:"tags" binding:"omitempty,max=5,dive,max=30"`
	Comment    *string   `json:"comment" binding:"omitempty,max=2000"`
}

type ReviewResponse struct {
	ID         uuid.UUID           `json:"id"`
	ExchangeID uuid.UUID           `json:"exchange_id"`
	ReviewerID uuid.UUID           `json:"reviewer_id"`
	Reviewer   *user.PublicProfile `json:"reviewer,omitempty"`
	RevieweeID uuid.UUID           `json:"reviewee_id"`
	Rating     int                 `json:"rating"`
	Tags       []string            `json:"tags"`
	Comment    *string             `json:"comment,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

func ToReviewResponse(r *Review) ReviewResponse {
	resp := ReviewResponse{
		ID:         r.ID,
		ExchangeID: r.ExchangeID,
		ReviewerID: r.ReviewerID,
		RevieweeID: r.RevieweeID,
		Rating:     r.Rating,
		Tags:       []string(r.Tags),
		Comment:    r.Comment,
		CreatedAt:  r.CreatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if r.Reviewer != nil {
		p := user.ToPublicProfile(r.Reviewer)
		resp.Reviewer = &p
	}
	return resp
}

func toReviewResponses(reviews []Review) []ReviewResponse {
	out := make([]ReviewResponse, len(reviews))
	for i := range reviews {
		out[i] = ToReviewResponse(&reviews[i])
	}
	return out
}
