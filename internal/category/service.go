package category

import (
	"context"
	"strings"

	"bontroc_backend/internal/common"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

type Service interface {
	AdminCreateCategory(ctx context.Context, req AdminCategoryRequest) (*Category, error)
	AdminUpdateCategory(ctx context.Context, id uuid.UUID, req AdminCategoryRequest) (*Category, error)
	AdminDeleteCategory(ctx context.Context, id uuid.UUID) error

	GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	GetAllCategories(ctx context.Context) ([]Category, error)
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger.Named("CategoryService"),
	}
}

// makeSlug cleans a provided slug or derives one from the name.
func makeSlug(name, provided string) string {
	if s := strings.TrimSpace(provided); s != "" {
		return slug.Make(s)
	}
	return slug.Make(name)
}

func (s *service) AdminCreateCategory(ctx context.Context, req AdminCategoryRequest) (*Category, error) {
	category := &Category{
		Name:        strings.TrimSpace(req.Name),
		Slug:        makeSlug(req.Name, req.Slug),
		Description: req.Description,
		Icon:        req.Icon,
		SortOrder:   req.SortOrder,
	}
	if category.Slug == "" {
		return nil, common.ErrBadRequest.WithDetails("Category name must contain at least one letter or digit.")
	}

	if err := s.repo.Create(ctx, category); err != nil {
		s.logger.Error("Failed to create category", zap.Error(err), zap.String("name", req.Name))
		return nil, err
	}
	s.logger.Info("Category created", zap.String("id", category.ID.String()), zap.String("slug", category.Slug))
	return category, nil
}

func (s *service) AdminUpdateCategory(ctx context.Context, id uuid.UUID, req AdminCategoryRequest) (*Category, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	category.Name = strings.TrimSpace(req.Name)
	category.Slug = makeSlug(req.Name, req.Slug)
	category.Description = req.Description
	category.Icon = req.Icon
	category.SortOrder = req.SortOrder

	if err := s.repo.Update(ctx, category); err != nil {
		s.logger.Error("Failed to update category", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	return category, nil
}

func (s *service) AdminDeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete category", zap.Error(err), zap.String("id", id.String()))
		return err
	}
	s.logger.Info("Category deleted", zap.String("id", id.String()))
	return nil
}

func (s *service) GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetCategoryBySlug(ctx context.Context, slugToFind string) (*Category, error) {
	return s.repo.FindBySlug(ctx, slugToFind)
}

func (s *service) GetAllCategories(ctx context.Context) ([]Category, error) {
	categories, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to get all categories", zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not retrieve categories.")
	}
	return categories, nil
}
