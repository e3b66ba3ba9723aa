package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixedCacheRoundtrip(t *testing.T) {
	ctx := context.Background()
	c := NewPrefixedCache[[]string](NewBytes(nil), "test:")

	require.NoError(t, c.Set(ctx, "all", []string{"a", "b"}))

	got, err := c.Get(ctx, "all")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	require.NoError(t, c.Delete(ctx, "all"))
	_, err = c.Get(ctx, "all")
	assert.Error(t, err)
}

func TestClearOnlyEvictsOwnPrefix(t *testing.T) {
	ctx := context.Background()
	shared := NewBytes(nil)
	movies := NewPrefixedCache[[]string](shared, "radarr:movies:")
	series := NewPrefixedCache[[]string](shared, "sonarr:series:")

	require.NoError(t, movies.Set(ctx, "all", []string{"alpha"}))
	require.NoError(t, series.Set(ctx, "all", []string{"beta"}))

	require.NoError(t, movies.Clear(ctx))

	_, err := movies.Get(ctx, "all")
	assert.Error(t, err)

	// The series list shares the byte cache but keeps its entries.
	kept, err := series.Get(ctx, "all")
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, kept)
}
