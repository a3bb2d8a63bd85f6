package seed

import (
	"fmt"
	"testing"

	shopdomain "github.com/blizzgame/marketplace/internal/shop/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEnsureDefaultCategoryIsIdempotent(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&shopdomain.Category{}))

	require.NoError(t, EnsureDefaultCategory(db))
	require.NoError(t, EnsureDefaultCategory(db))

	var categories []shopdomain.Category
	require.NoError(t, db.Find(&categories).Error)
	require.Len(t, categories, 1)
	require.Equal(t, "Divers", categories[0].Name)
	require.Equal(t, "divers", categories[0].Slug)
	require.True(t, categories[0].Active)
}
