package providers

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedIsDeterministicUnitLength(t *testing.T) {
	m := NewMockProvider(64)
	a, _, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"cell biology", "cell biology", "tectonics"}})
	require.NoError(t, err)
	require.Len(t, a, 3)
	assert.Equal(t, a[0], a[1])
	assert.NotEqual(t, a[0], a[2])

	var norm float64
	for _, x := range a[0] {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4)
}

func TestMockQuizCitesFirstContextTag(t *testing.T) {
	m := NewMockProvider(8)
	resp, _, err := m.Generate(context.Background(), GenerateRequest{
		Operation: "quiz_generate",
		Prompt:    "CONTEXT:\n[source: notes.txt | chunk: 3]\nsome text",
	})
	require.NoError(t, err)

	var out struct {
		Questions []struct {
			Citations []struct {
				Source string `json:"source"`
				Chunk  int    `json:"chunk"`
			} `json:"citations"`
		} `json:"questions"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Text), &out))
	require.NotEmpty(t, out.Questions)
	require.Len(t, out.Questions[0].Citations, 1)
	assert.Equal(t, "notes.txt", out.Questions[0].Citations[0].Source)
	assert.Equal(t, 3, out.Questions[0].Citations[0].Chunk)
}
