package quiz

import (
	"math/rand/v2"
	"slices"
	"strings"
	"unicode/utf8"

	"quizforge/internal/vector"
)

const (
	DefaultContextBudget = 12000
	// per-chunk allowance for the citation tag and separators
	chunkOverhead = 100
)

type packedChunk struct {
	Text   string
	Source string
	Chunk  int
}

// packContext groups chunks by source in first-seen order, shuffles within
// each source and then takes one chunk per source in turn until the next
// chunk would overflow budget.
func packContext(docs []string, metas []vector.Metadata, budget int, seed *uint64) []packedChunk {
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	var sources []string
	grouped := map[string][]packedChunk{}
	for i, text := range docs {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		var meta vector.Metadata
		if i < len(metas) {
			meta = metas[i]
		}
		src := meta.Source
		if src == "" {
			src = "unknown"
		}
		if _, ok := grouped[src]; !ok {
			sources = append(sources, src)
		}
		grouped[src] = append(grouped[src], packedChunk{Text: text, Source: src, Chunk: meta.Chunk})
	}

	shuffle := rand.Shuffle
	if seed != nil {
		shuffle = rand.New(rand.NewPCG(*seed, 0)).Shuffle
	}
	for _, src := range sources {
		g := grouped[src]
		shuffle(len(g), func(i, j int) { g[i], g[j] = g[j], g[i] })
	}

	var packed []packedChunk
	used := 0
	next := map[string]int{}
	for used < budget && len(sources) > 0 {
		for _, src := range slices.Clone(sources) {
			if next[src] >= len(grouped[src]) {
				sources = slices.DeleteFunc(sources, func(s string) bool { return s == src })
				continue
			}
			c := grouped[src][next[src]]
			next[src]++
			cost := utf8.RuneCountInString(c.Text) + chunkOverhead
			if used+cost > budget {
				return packed
			}
			packed = append(packed, c)
			used += cost
		}
	}
	return packed
}
