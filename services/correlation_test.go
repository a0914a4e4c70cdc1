package services

import (
	"context"
	"errors"
	"testing"

	"stocksocial/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(a, b string, v float64) models.CorrelationEntry {
	return models.CorrelationEntry{Stock1: a, Stock2: b, Correlation: v}
}

func TestBuildCorrelationMatrixPair(t *testing.T) {
	m := BuildCorrelationMatrix([]models.CorrelationEntry{entry("AAPL", "MSFT", 0.5)}, 1.0)

	assert.Equal(t, []string{"AAPL", "MSFT"}, m.Symbols)
	assert.Equal(t, [][]float64{{1.0, 0.5}, {0.5, 1.0}}, m.Correlations)
}

func TestBuildCorrelationMatrixEmpty(t *testing.T) {
	m := BuildCorrelationMatrix(nil, 1.0)

	assert.NotNil(t, m.Symbols)
	assert.NotNil(t, m.Correlations)
	assert.Empty(t, m.Symbols)
	assert.Empty(t, m.Correlations)
}

func TestBuildCorrelationMatrixMissingPairs(t *testing.T) {
	entries := []models.CorrelationEntry{
		entry("MSFT", "AAPL", 0.5),
		entry("AAPL", "TSLA", -0.2),
	}

	m := BuildCorrelationMatrix(entries, 1.0)
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, m.Symbols)
	assert.Equal(t, [][]float64{
		{1.0, 0.5, -0.2},
		{0.5, 1.0, 1.0},
		{-0.2, 1.0, 1.0},
	}, m.Correlations)

	zeroed := BuildCorrelationMatrix(entries, 0)
	assert.Equal(t, 0.0, zeroed.Correlations[1][2])
	assert.Equal(t, 0.0, zeroed.Correlations[2][1])
	assert.Equal(t, 1.0, zeroed.Correlations[1][1])
}

func TestBuildCorrelationMatrixSymmetric(t *testing.T) {
	entries := []models.CorrelationEntry{
		entry("A", "B", 0.1),
		entry("C", "A", 0.2),
		entry("B", "D", 0.3),
		entry("C", "D", 0.4),
		entry("E", "E", 0.9),
	}

	m := BuildCorrelationMatrix(entries, 1.0)
	require.Equal(t, []string{"A", "B", "C", "D", "E"}, m.Symbols)
	require.Len(t, m.Correlations, len(m.Symbols))
	for i := range m.Symbols {
		require.Len(t, m.Correlations[i], len(m.Symbols))
		assert.Equal(t, 1.0, m.Correlations[i][i])
		for j := range m.Symbols {
			assert.Equal(t, m.Correlations[i][j], m.Correlations[j][i])
		}
	}
	assert.Equal(t, 0.2, m.Correlations[0][2])
}

func TestBuildCorrelationMatrixCanonicalWins(t *testing.T) {
	// Обе ориентации в данных: побеждает stock1 < stock2 независимо от порядка
	forward := BuildCorrelationMatrix([]models.CorrelationEntry{
		entry("AAPL", "MSFT", 0.5),
		entry("MSFT", "AAPL", 0.9),
	}, 1.0)
	backward := BuildCorrelationMatrix([]models.CorrelationEntry{
		entry("MSFT", "AAPL", 0.9),
		entry("AAPL", "MSFT", 0.5),
	}, 1.0)

	assert.Equal(t, 0.5, forward.Correlations[0][1])
	assert.Equal(t, forward, backward)
}

func TestBuildCorrelationMatrixDoesNotMutateInput(t *testing.T) {
	entries := []models.CorrelationEntry{entry("MSFT", "AAPL", 0.5)}
	_ = BuildCorrelationMatrix(entries, 1.0)
	assert.Equal(t, "MSFT", entries[0].Stock1)
	assert.Equal(t, "AAPL", entries[0].Stock2)
}

func TestGetCorrelationMatrix(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	owner := createUsers(t, store, 1)[0]
	createList(t, store, owner, "tech", models.ListPublic)
	createList(t, store, owner, "empty", models.ListPublic)

	svc := NewCorrelationService(store)
	_, err := NewStatisticsService(store, svc).ReplaceCorrelations(ctx, owner, "tech", []models.CorrelationEntry{
		entry("AAPL", "MSFT", 0.5),
	})
	require.NoError(t, err)

	m, err := svc.GetCorrelationMatrix(ctx, owner, "tech")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, m.Symbols)
	assert.Equal(t, [][]float64{{1.0, 0.5}, {0.5, 1.0}}, m.Correlations)

	empty, err := svc.GetCorrelationMatrix(ctx, owner, "empty")
	require.NoError(t, err)
	assert.Empty(t, empty.Symbols)
	assert.Empty(t, empty.Correlations)
}

func TestGetCorrelationMatrixCache(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	owner := createUsers(t, store, 1)[0]
	createList(t, store, owner, "tech", models.ListPublic)

	cache := newMemoryMatrixCache()
	svc := NewCorrelationService(store, WithMatrixCache(cache))
	stats := NewStatisticsService(store, svc)

	_, err := stats.ReplaceCorrelations(ctx, owner, "tech", []models.CorrelationEntry{entry("AAPL", "MSFT", 0.5)})
	require.NoError(t, err)

	first, err := svc.GetCorrelationMatrix(ctx, owner, "tech")
	require.NoError(t, err)
	_, cached, _ := cache.Get(ctx, owner, "tech")
	assert.True(t, cached)

	// Из кеша приходит то же самое
	second, err := svc.GetCorrelationMatrix(ctx, owner, "tech")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Новые данные сбрасывают кеш
	_, err = stats.ReplaceCorrelations(ctx, owner, "tech", []models.CorrelationEntry{entry("AAPL", "MSFT", -0.4)})
	require.NoError(t, err)
	third, err := svc.GetCorrelationMatrix(ctx, owner, "tech")
	require.NoError(t, err)
	assert.Equal(t, -0.4, third.Correlations[0][1])
}

func TestGetCorrelationMatrixCacheFailure(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	owner := createUsers(t, store, 1)[0]
	createList(t, store, owner, "tech", models.ListPublic)

	cache := newMemoryMatrixCache()
	cache.err = errors.New("connection refused")
	svc := NewCorrelationService(store, WithMatrixCache(cache), WithMissingCorrelation(0))

	_, err := NewStatisticsService(store, svc).ReplaceCorrelations(ctx, owner, "tech", []models.CorrelationEntry{
		entry("AAPL", "MSFT", 0.5),
		entry("AAPL", "TSLA", 0.1),
	})
	require.NoError(t, err)

	m, err := svc.GetCorrelationMatrix(ctx, owner, "tech")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, m.Symbols)
	assert.Equal(t, 0.0, m.Correlations[1][2])
}

func TestInvalidateNilSafe(t *testing.T) {
	var svc *CorrelationService
	assert.NotPanics(t, func() { svc.Invalidate(context.Background(), "a", "b") })
	assert.NotPanics(t, func() { NewCorrelationService(nil).Invalidate(context.Background(), "a", "b") })
}
