package util

import (
	"sort"
	"strings"
	"unicode"
)

// Snippet returns the sentence(s) of text that best match query, clipped to
// maxRunes. Without a usable query it returns the clipped head of text.
func Snippet(text, query string, maxRunes int) string {
	text = normalizeWhitespace(SanitizeText(text))
	if text == "" {
		return ""
	}
	terms := queryTerms(query)
	sentences := splitSentences(text)
	if len(terms) == 0 || len(sentences) < 2 {
		return clip(text, maxRunes)
	}

	type scored struct {
		pos   int
		score int
	}
	list := make([]scored, 0, len(sentences))
	for i, s := range sentences {
		low := strings.ToLower(s)
		n := 0
		for _, term := range terms {
			if strings.Contains(low, term) {
				n++
			}
		}
		list = append(list, scored{pos: i, score: n})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].score > list[j].score })
	if list[0].score == 0 {
		return clip(text, maxRunes)
	}
	best := sentences[list[0].pos]
	if list[1].score > 0 {
		a, b := list[0].pos, list[1].pos
		if a > b {
			a, b = b, a
		}
		best = sentences[a] + " " + sentences[b]
	}
	return clip(best, maxRunes)
}

func splitSentences(s string) []string {
	out := make([]string, 0, 8)
	var b strings.Builder
	for _, r := range s {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if x := strings.TrimSpace(b.String()); x != "" {
				out = append(out, x)
			}
			b.Reset()
		}
	}
	if rest := strings.TrimSpace(b.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "were": {}, "what": {}, "how": {}, "why": {},
	"which": {}, "that": {}, "this": {}, "these": {}, "those": {}, "with": {}, "from": {}, "does": {},
}

func queryTerms(s string) []string {
	seen := map[string]struct{}{}
	terms := make([]string, 0, 8)
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(f) < 3 {
			continue
		}
		if _, ok := stopwords[f]; ok {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

func clip(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = 320
	}
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= maxRunes {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:maxRunes])) + "..."
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
