package vector

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizforge/internal/providers"
	"quizforge/internal/util"
)

func newTestCollections(store Store) *Collections {
	return NewCollections(store, providers.NewMockProvider(32), Options{ChunkSize: 300, ChunkOverlap: 50, Dimension: 32})
}

func longText(words ...string) string {
	var b strings.Builder
	for i := 0; i < 120; i++ {
		b.WriteString(words[i%len(words)])
		b.WriteByte(' ')
	}
	return b.String()
}

func TestIndexRejectsBlankDocset(t *testing.T) {
	c := newTestCollections(NewMemoryStore())
	_, err := c.Index("  ")
	require.ErrorIs(t, err, ErrDocsetRequired)
}

func TestAddDocumentAndGetAll(t *testing.T) {
	ctx := context.Background()
	c := newTestCollections(NewMemoryStore())
	ix, err := c.Index("job1")
	require.NoError(t, err)

	n, err := ix.AddDocument(ctx, "bio.txt", longText("mitochondria", "produce", "energy"))
	require.NoError(t, err)
	require.Greater(t, n, 1)

	texts, metas, err := ix.GetAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, texts, n)
	for i, m := range metas {
		assert.Equal(t, Metadata{DocsetID: "job1", Source: "bio.txt", Chunk: i}, m)
	}

	limited, _, err := ix.GetAll(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestAddDocumentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newTestCollections(NewMemoryStore())
	ix, _ := c.Index("job1")
	text := longText("alpha", "beta")

	first, err := ix.AddDocument(ctx, "a.txt", text)
	require.NoError(t, err)
	_, err = ix.AddDocument(ctx, "a.txt", text)
	require.NoError(t, err)

	count, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, count)
}

func TestAddDocumentBlankTextIndexesNothing(t *testing.T) {
	c := newTestCollections(NewMemoryStore())
	ix, _ := c.Index("job1")
	n, err := ix.AddDocument(context.Background(), "blank.txt", " \n\t ")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueryRanksExactChunkFirstAndStaysInDocset(t *testing.T) {
	ctx := context.Background()
	c := newTestCollections(NewMemoryStore())
	a, _ := c.Index("a")
	b, _ := c.Index("b")
	_, err := a.AddDocument(ctx, "one.txt", "photosynthesis happens in chloroplasts")
	require.NoError(t, err)
	_, err = a.AddDocument(ctx, "two.txt", "the krebs cycle runs in mitochondria")
	require.NoError(t, err)
	_, err = b.AddDocument(ctx, "other.txt", "photosynthesis happens in chloroplasts")
	require.NoError(t, err)

	hits, err := a.Query(ctx, "photosynthesis happens in chloroplasts", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "one.txt", hits[0].Metadata.Source)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	for _, h := range hits {
		assert.Equal(t, "a", h.Metadata.DocsetID)
	}
}

func TestDeleteCollectionOnlyTouchesDocset(t *testing.T) {
	ctx := context.Background()
	c := newTestCollections(NewMemoryStore())
	a, _ := c.Index("a")
	b, _ := c.Index("b")
	_, _ = a.AddDocument(ctx, "x.txt", "some text")
	_, _ = b.AddDocument(ctx, "y.txt", "other text")

	require.NoError(t, a.DeleteCollection(ctx))
	na, _ := a.Count(ctx)
	nb, _ := b.Count(ctx)
	assert.Zero(t, na)
	assert.Equal(t, 1, nb)
}

func TestConcurrentAddsToSameDocset(t *testing.T) {
	ctx := context.Background()
	c := newTestCollections(NewMemoryStore())
	ix, _ := c.Index("shared")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ix.AddDocument(ctx, "doc"+string(rune('a'+i))+".txt", "text for document")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Empty(t, c.locks.locks)
}

func TestStableIDsMatchChunkOrdinals(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := newTestCollections(store)
	ix, _ := c.Index("job9")
	_, err := ix.AddDocument(ctx, "notes.md", "short note")
	require.NoError(t, err)

	records, err := store.All(ctx, "job9", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, util.StableChunkID("job9", "notes.md", 0), records[0].ID)
}

func TestCollectionsOperationsTakeDocsetArgument(t *testing.T) {
	ctx := context.Background()
	c := newTestCollections(NewMemoryStore())

	_, err := c.AddDocument(ctx, "", "a.txt", "text")
	require.ErrorIs(t, err, ErrDocsetRequired)
	_, err = c.Query(ctx, " ", "q", 3)
	require.ErrorIs(t, err, ErrDocsetRequired)
	_, _, err = c.GetAll(ctx, "", 0)
	require.ErrorIs(t, err, ErrDocsetRequired)
	require.ErrorIs(t, c.DeleteCollection(ctx, ""), ErrDocsetRequired)

	n, err := c.AddDocument(ctx, "docA", "a.txt", longText("alpha", "beta"))
	require.NoError(t, err)
	require.Positive(t, n)

	ix, err := c.Index("docA")
	require.NoError(t, err)
	texts, metas, err := ix.GetAll(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, texts, n)
	for _, m := range metas {
		assert.Equal(t, "docA", m.DocsetID)
	}

	hits, err := c.Query(ctx, "docB", "alpha", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, c.DeleteCollection(ctx, "docA"))
	count, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
