// Package moderation owns the banned word list and the filter applied to
// member-written text.
package moderation

import (
	"context"
	"strings"

	"bontroc_backend/internal/common"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

type Service interface {
	AddBannedWord(ctx context.Context, adminID uuid.UUID, req CreateBannedWordRequest) (*BannedWord, error)
	ListBannedWords(ctx context.Context, page, pageSize int) ([]BannedWord, *common.Pagination, error)
	RemoveBannedWord(ctx context.Context, id uuid.UUID) error
}

type ServiceImplementation struct {
	repo   Repository
	filter *WordFilter
	logger *zap.Logger
}

func NewService(repo Repository, filter *WordFilter, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{repo: repo, filter: filter, logger: logger.Named("ModerationService")}
}

func (s *ServiceImplementation) AddBannedWord(ctx context.Context, adminID uuid.UUID, req CreateBannedWordRequest) (*BannedWord, error) {
	word := strings.TrimSpace(req.Word)
	normalized := slug.Make(word)
	if normalized == "" {
		return nil, common.ErrBadRequest.WithDetails("Word must contain at least one letter or digit.")
	}
	w := &BannedWord{Word: word, Normalized: normalized, CreatedBy: &adminID}
	if err := s.repo.Create(ctx, w); err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return nil, err
		}
		s.logger.Error("Failed to add banned word", zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not add banned word.")
	}
	s.filter.Invalidate()
	s.logger.Info("Banned word added", zap.String("word", normalized), zap.String("adminID", adminID.String()))
	return w, nil
}

func (s *ServiceImplementation) ListBannedWords(ctx context.Context, page, pageSize int) ([]BannedWord, *common.Pagination, error) {
	words, pagination, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list banned words", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve banned words.")
	}
	return words, pagination, nil
}

func (s *ServiceImplementation) RemoveBannedWord(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return err
		}
		s.logger.Error("Failed to remove banned word", zap.Error(err), zap.String("id", id.String()))
		return common.ErrInternalServer.WithDetails("Could not remove banned word.")
	}
	s.filter.Invalidate()
	return nil
}
