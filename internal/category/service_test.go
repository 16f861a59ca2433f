package category

import (
	"context"
	"testing"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t, &Category{})
	require.NoError(t, db.Exec("CREATE TABLE listings (id TEXT PRIMARY KEY, category_id TEXT, status TEXT)").Error)
	return NewService(NewGORMRepository(db), zap.NewNop()), db
}

func TestAdminCreateCategory_DerivesSlug(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cat, err := svc.AdminCreateCategory(ctx, AdminCategoryRequest{Name: "Cours de Musique"})
	require.NoError(t, err)
	assert.Equal(t, "cours-de-musique", cat.Slug)

	found, err := svc.GetCategoryBySlug(ctx, "Cours-De-Musique")
	require.NoError(t, err)
	assert.Equal(t, cat.ID, found.ID)

	_, err = svc.AdminCreateCategory(ctx, AdminCategoryRequest{Name: "Other", Slug: "cours de musique"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestAdminCreateCategory_RejectsEmptySlug(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.AdminCreateCategory(context.Background(), AdminCategoryRequest{Name: "!!!"})
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestGetAllCategories_CountsPublishedListings(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	garden, err := svc.AdminCreateCategory(ctx, AdminCategoryRequest{Name: "Garden", SortOrder: 2})
	require.NoError(t, err)
	_, err = svc.AdminCreateCategory(ctx, AdminCategoryRequest{Name: "Bikes", SortOrder: 1})
	require.NoError(t, err)

	for _, status := range []string{"published", "published", "draft"} {
		require.NoError(t, db.Exec("INSERT INTO listings (id, category_id, status) VALUES (?, ?, ?)",
			uuid.NewString(), garden.ID.String(), status).Error)
	}

	categories, err := svc.GetAllCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "bikes", categories[0].Slug)
	assert.Equal(t, 0, categories[0].ListingCount)
	assert.Equal(t, "garden", categories[1].Slug)
	assert.Equal(t, 2, categories[1].ListingCount)
}

func TestAdminDeleteCategory(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	used, err := svc.AdminCreateCategory(ctx, AdminCategoryRequest{Name: "Tools"})
	require.NoError(t, err)
	require.NoError(t, db.Exec("INSERT INTO listings (id, category_id, status) VALUES (?, ?, ?)",
		uuid.NewString(), used.ID.String(), "archived").Error)

	err = svc.AdminDeleteCategory(ctx, used.ID)
	assert.ErrorIs(t, err, common.ErrConflict)

	empty, err := svc.AdminCreateCategory(ctx, AdminCategoryRequest{Name: "Empty"})
	require.NoError(t, err)
	require.NoError(t, svc.AdminDeleteCategory(ctx, empty.ID))

	_, err = svc.GetCategoryByID(ctx, empty.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = svc.AdminDeleteCategory(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAdminUpdateCategory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cat, err := svc.AdminCreateCategory(ctx, AdminCategoryRequest{Name: "Kitchen"})
	require.NoError(t, err)

	updated, err := svc.AdminUpdateCategory(ctx, cat.ID, AdminCategoryRequest{Name: "Kitchen & Home", SortOrder: 5})
	require.NoError(t, err)
	assert.Equal(t, "kitchen-and-home", updated.Slug)
	assert.Equal(t, 5, updated.SortOrder)
}
