package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := OpenSQLiteStore(ctx, dir)
	require.NoError(t, err)

	records := []Record{
		{ID: "d-2", DocsetID: "d", Source: "b.txt", Ordinal: 0, Text: "beta", Embedding: []float32{0, 1}},
		{ID: "d-1", DocsetID: "d", Source: "a.txt", Ordinal: 1, Text: "alpha two", Embedding: []float32{1, 1}},
		{ID: "d-0", DocsetID: "d", Source: "a.txt", Ordinal: 0, Text: "alpha", Embedding: []float32{1, 0}},
		{ID: "e-0", DocsetID: "e", Source: "a.txt", Ordinal: 0, Text: "elsewhere", Embedding: []float32{1, 0}},
	}
	require.NoError(t, store.Upsert(ctx, records))

	all, err := store.All(ctx, "d", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"d-0", "d-1", "d-2"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, []float32{1, 0}, all[0].Embedding)

	matches, err := store.Query(ctx, "d", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "d-0", matches[0].ID)
	assert.InDelta(t, 0, matches[0].Distance, 1e-6)
	assert.Equal(t, "d-1", matches[1].ID)

	records[2].Text = "alpha revised"
	require.NoError(t, store.Upsert(ctx, records[2:3]))
	n, err := store.Count(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStore(ctx, dir)
	require.NoError(t, err)
	defer reopened.Close()
	all, err = reopened.All(ctx, "d", 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "alpha revised", all[0].Text)

	require.NoError(t, reopened.DeleteDocset(ctx, "d"))
	n, _ = reopened.Count(ctx, "d")
	assert.Zero(t, n)
	n, _ = reopened.Count(ctx, "e")
	assert.Equal(t, 1, n)
}

func TestCosineDistanceEdgeCases(t *testing.T) {
	assert.InDelta(t, 0, cosineDistance([]float32{2, 0}, []float32{5, 0}), 1e-9)
	assert.InDelta(t, 1, cosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2, cosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 1.0, cosineDistance([]float32{0, 0}, []float32{1, 0}))
}

func TestToLiteral(t *testing.T) {
	assert.Equal(t, "[0.5,-1,0.25]", ToLiteral([]float32{0.5, -1, 0.25}))
	assert.Equal(t, "[]", ToLiteral(nil))
}
