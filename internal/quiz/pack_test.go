package quiz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizforge/internal/vector"
)

func seed(n uint64) *uint64 { return &n }

func fixture() ([]string, []vector.Metadata) {
	docs := []string{"a0", "a1", "a2", "b0", " ", "c0", "b1"}
	metas := []vector.Metadata{
		{Source: "a", Chunk: 0}, {Source: "a", Chunk: 1}, {Source: "a", Chunk: 2},
		{Source: "b", Chunk: 0}, {Source: "b", Chunk: 9}, {Source: "c", Chunk: 0}, {Source: "b", Chunk: 1},
	}
	return docs, metas
}

func sourcesOf(packed []packedChunk) []string {
	out := make([]string, 0, len(packed))
	for _, p := range packed {
		out = append(out, p.Source)
	}
	return out
}

func TestPackRoundRobinsAcrossSources(t *testing.T) {
	docs, metas := fixture()
	packed := packContext(docs, metas, 10000, seed(1))
	require.Len(t, packed, 6)
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "a"}, sourcesOf(packed))
	for _, p := range packed {
		assert.Equal(t, p.Source, p.Text[:1])
	}
}

func TestPackStopsAtFirstOverflow(t *testing.T) {
	docs, metas := fixture()
	packed := packContext(docs, metas, 3*(2+chunkOverhead)+1, seed(1))
	assert.Equal(t, []string{"a", "b", "c"}, sourcesOf(packed))

	long := []string{strings.Repeat("x", 500), "short"}
	packed = packContext(long, []vector.Metadata{{Source: "big"}, {Source: "small"}}, 300, seed(1))
	assert.Empty(t, packed)
}

func TestPackSeededIsDeterministic(t *testing.T) {
	var docs []string
	var metas []vector.Metadata
	for i := 0; i < 30; i++ {
		docs = append(docs, strings.Repeat("w", i+1))
		metas = append(metas, vector.Metadata{Source: "s", Chunk: i})
	}
	first := packContext(docs, metas, 100000, seed(42))
	second := packContext(docs, metas, 100000, seed(42))
	assert.Equal(t, first, second)
	assert.Len(t, first, 30)
}

func TestPackMissingSourceIsUnknown(t *testing.T) {
	packed := packContext([]string{"orphan"}, nil, 0, nil)
	require.Len(t, packed, 1)
	assert.Equal(t, "unknown", packed[0].Source)
}

func TestPackCountsRunes(t *testing.T) {
	text := strings.Repeat("é", 100)
	packed := packContext([]string{text}, []vector.Metadata{{Source: "fr"}}, 200, nil)
	assert.Len(t, packed, 1)
}
