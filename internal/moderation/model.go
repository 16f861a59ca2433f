package moderation

import (
	"time"

	"bontroc_backend/internal/common"

	"github.com/google/uuid"
)

// BannedWord is a term members may not use in listings or chat.
// Normalized is the accent-free, lowercase form the filter matches on.
type BannedWord struct {
	common.BaseModel
	Word       string     `gorm:"type:varchar(100);not null"`
	Normalized string     `gorm:"type:varchar(100);not null;uniqueIndex"`
	CreatedBy  *uuid.UUID `gorm:"type:uuid"`
}

func (BannedWord) TableName() string {
	return "banned_words"
}

type CreateBannedWordRequest struct {
	Word string `json:"word" binding:"required,max=100"`
}

type BannedWordResponse struct {
	ID        uuid.UUID `json:"id"`
	Word      string    `json:"word"`
	CreatedAt time.Time `json:"created_at"`
}

func ToBannedWordResponse(w *BannedWord) BannedWordResponse {
	return BannedWordResponse{ID: w.ID, Word: w.Word, CreatedAt: w.CreatedAt}
}

func toBannedWordResponses(words []BannedWord) []BannedWordResponse {
	out := make([]BannedWordResponse, len(words))
	for i := range words {
		out[i] = ToBannedWordResponse(&words[i])
	}
	return out
}
