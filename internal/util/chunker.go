package util

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
)

const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 200

	// cuts are never snapped closer than this to the window start
	minSnapOffset = 200
)

// ChunkText splits text into overlapping windows of at most maxChars runes.
// A cut prefers the last newline, then the last space, found at least
// minSnapOffset runes into the window. The next window starts overlap runes
// before the cut and always advances by at least one rune.
func ChunkText(text string, maxChars, overlap int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkSize
	}
	if overlap < 0 || overlap >= maxChars {
		overlap = 0
	}
	runes := []rune(strings.TrimSpace(text))
	n := len(runes)
	out := make([]string, 0, n/maxChars+1)
	for i := 0; i < n; {
		j := min(i+maxChars, n)
		k := lastIndexRune(runes, '\n', i+minSnapOffset, j)
		if k < 0 {
			k = lastIndexRune(runes, ' ', i+minSnapOffset, j)
		}
		if k < 0 {
			k = j
		}
		if part := strings.TrimSpace(string(runes[i:k])); part != "" {
			out = append(out, part)
		}
		if k >= n {
			break
		}
		i = max(k-overlap, i+1)
	}
	return out
}

func lastIndexRune(runes []rune, r rune, lo, hi int) int {
	for x := hi - 1; x >= lo; x-- {
		if runes[x] == r {
			return x
		}
	}
	return -1
}

// StableChunkID is pure in (docsetID, source, ordinal) so re-indexing upserts in place.
func StableChunkID(docsetID, source string, ordinal int) string {
	h := sha1.Sum([]byte(docsetID + "|" + source + "|" + strconv.Itoa(ordinal)))
	return docsetID + "-" + hex.EncodeToString(h[:])[:24]
}
