package repository

import (
	"context"
	"testing"

	"carrethree/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartRepository_ReplaceKeepsOrder(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewCartRepository(testDB)
	user := createTestUser(t, ctx)

	lines, err := repo.Lines(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, lines, "new accounts start with an empty cart")

	want := []domain.CartLine{
		{ProductID: uuid.New(), Quantity: 3},
		{ProductID: uuid.New(), Quantity: 1},
		{ProductID: uuid.New(), Quantity: 7},
	}
	require.NoError(t, repo.Replace(ctx, user.ID, want))

	got, err := repo.Lines(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, repo.Replace(ctx, user.ID, want[1:]))
	got, err = repo.Lines(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, want[1:], got)
}

func TestCartRepository_DanglingLinesSurviveProductDelete(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	carts := NewCartRepository(testDB)
	products := NewProductRepository(testDB)
	user := createTestUser(t, ctx)

	product := newTestProduct("Eggs", "Hortifruti", 1299, 5)
	require.NoError(t, products.Create(ctx, product))
	require.NoError(t, carts.Replace(ctx, user.ID, []domain.CartLine{{ProductID: product.ID, Quantity: 2}}))
	require.NoError(t, products.Delete(ctx, product.ID))

	lines, err := carts.Lines(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, product.ID, lines[0].ProductID)
}

func TestCartRepository_Clear(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewCartRepository(testDB)
	user := createTestUser(t, ctx)

	require.NoError(t, repo.Replace(ctx, user.ID, []domain.CartLine{{ProductID: uuid.New(), Quantity: 1}}))
	require.NoError(t, repo.Clear(ctx, user.ID))

	lines, err := repo.Lines(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCartRepository_ApplyMergeOncePerID(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewCartRepository(testDB)
	user := createTestUser(t, ctx)
	other := createTestUser(t, ctx)

	mergeID := uuid.New()
	merged := []domain.CartLine{{ProductID: uuid.New(), Quantity: 3}}

	applied, err := repo.ApplyMerge(ctx, user.ID, mergeID, merged)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.ApplyMerge(ctx, user.ID, mergeID, []domain.CartLine{{ProductID: uuid.New(), Quantity: 9}})
	require.NoError(t, err)
	assert.False(t, applied, "a merge id is applied once")

	lines, err := repo.Lines(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, merged, lines)

	applied, err = repo.ApplyMerge(ctx, other.ID, mergeID, merged)
	require.NoError(t, err)
	assert.True(t, applied, "merge ids are scoped to their user")
}
