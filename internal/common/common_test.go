package common_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_WithDetailsKeepsSentinel(t *testing.T) {
	detailed := common.ErrNotFound.WithDetails("Listing not found.")

	assert.Equal(t, "Listing not found.", detailed.Details)
	assert.Nil(t, common.ErrNotFound.Details)
	assert.True(t, errors.Is(detailed, common.ErrNotFound))
	assert.False(t, errors.Is(detailed, common.ErrConflict))

	wrapped := fmt.Errorf("loading listing: %w", detailed)
	apiErr, ok := common.IsAPIError(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	_, ok = common.IsAPIError(errors.New("plain"))
	assert.False(t, ok)
}

func TestNewStringList(t *testing.T) {
	got := common.NewStringList([]string{" Guitar ", "guitar", "", "  ", "Music"})
	assert.Equal(t, common.StringList{"guitar", "music"}, got)
	assert.Empty(t, common.NewStringList(nil))
}

func TestStringList_ScanFormats(t *testing.T) {
	var l common.StringList
	require.NoError(t, l.Scan(`{bike,"repair shop"}`))
	assert.Equal(t, common.StringList{"bike", "repair shop"}, l)

	require.NoError(t, l.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, common.StringList{"a", "b"}, l)

	require.NoError(t, l.Scan(nil))
	assert.Empty(t, l)

	assert.Error(t, l.Scan(42))
}

func TestNewPagination(t *testing.T) {
	p := common.NewPagination(25, 2, 10)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	empty := common.NewPagination(0, 0, 0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.Equal(t, 1, empty.CurrentPage)
	assert.Equal(t, common.DefaultPageSize, empty.PageSize)
	assert.False(t, empty.HasNext)
}

type tagged struct {
	common.BaseModel
	Name string
	Tags common.StringList
}

func TestPaginate(t *testing.T) {
	db := testutil.NewDB(t, &tagged{})
	for i := 0; i < 7; i++ {
		require.NoError(t, db.Create(&tagged{Name: fmt.Sprintf("row-%d", i), Tags: common.StringList{"x"}}).Error)
	}

	var rows []tagged
	p, err := common.Paginate(db.Model(&tagged{}), 2, 3, "name ASC", &rows)
	require.NoError(t, err)
	assert.EqualValues(t, 7, p.TotalItems)
	assert.Equal(t, 3, p.TotalPages)
	require.Len(t, rows, 3)
	assert.Equal(t, "row-3", rows[0].Name)
	assert.Equal(t, common.StringList{"x"}, rows[0].Tags)
}

func TestPasswordHash(t *testing.T) {
	hash, err := common.HashPassword("correct-horse")
	require.NoError(t, err)
	assert.True(t, common.CheckPasswordHash("correct-horse", hash))
	assert.False(t, common.CheckPasswordHash("wrong-horse", hash))
}
