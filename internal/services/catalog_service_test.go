package services

import (
	"context"
	"testing"

	"PromptStudio-admin/internal/apperr"
	"PromptStudio-admin/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T, store *fakeStore) *CatalogService {
	t.Helper()
	svc, err := NewCatalogService(store, store, nil)
	require.NoError(t, err)
	return svc
}

func TestCatalogListAndSearch(t *testing.T) {
	store := newFakeStore(
		catalogPrompt(1, 2, "Espresso pull", "{}"),
		catalogPrompt(2, 1, "Bakery morning", "{}"),
	)
	store.prompts[2].IndustrySector = "Retail"
	svc := newCatalog(t, store)

	all, err := svc.List(context.Background(), models.PromptFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].PromptNumber)

	found, err := svc.List(context.Background(), models.PromptFilter{Search: "espresso"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(1), found[0].ID)

	retail, err := svc.List(context.Background(), models.PromptFilter{IndustrySector: "Retail"})
	require.NoError(t, err)
	require.Len(t, retail, 1)
	assert.Equal(t, "Bakery morning", retail[0].Title)
}

func TestCatalogLookups(t *testing.T) {
	store := newFakeStore(catalogPrompt(5, 12, "Matcha", "{}"))
	svc := newCatalog(t, store)

	p, err := svc.GetByNumber(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.ID)

	_, err = svc.GetByNumber(context.Background(), 13)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "Prompt number 13 not found", err.Error())

	_, err = svc.Get(context.Background(), 6)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	byNumbers, err := svc.GetByNumbers(context.Background(), []int{12, 99})
	require.NoError(t, err)
	assert.Len(t, byNumbers, 1)
}

func TestCatalogStats(t *testing.T) {
	store := newFakeStore(
		catalogPrompt(1, 1, "a", "{}"),
		catalogPrompt(2, 2, "b", "{}"),
		catalogPrompt(3, 3, "c", "{}"),
	)
	store.prompts[1].QualityScore = models.NewScore(9.1)
	store.prompts[2].QualityScore = models.NewScore(5.5)
	svc := newCatalog(t, store)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Scored)
	assert.Equal(t, models.TierDistribution{Gold: 1, Bronze: 1}, stats.Distribution)
}

func TestFavorites(t *testing.T) {
	store := newFakeStore(catalogPrompt(1, 1, "Espresso", "{}"), catalogPrompt(2, 2, "Latte", "{}"))
	svc := newCatalog(t, store)
	ctx := context.Background()

	require.NoError(t, svc.AddFavorite(ctx, 10, 2))
	require.NoError(t, svc.AddFavorite(ctx, 10, 2))
	require.NoError(t, svc.AddFavorite(ctx, 10, 1))

	favs, err := svc.Favorites(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, favs, 2)

	err = svc.AddFavorite(ctx, 10, 404)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, svc.RemoveFavorite(ctx, 10, 2))
	favs, err = svc.Favorites(ctx, 10)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "Espresso", favs[0].Title)

	other, err := svc.Favorites(ctx, 11)
	require.NoError(t, err)
	assert.Empty(t, other)
}
