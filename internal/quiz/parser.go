package quiz

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// parseObject decodes a generator response into a JSON object. It tolerates
// markdown code fences and prose around the object.
func parseObject(raw string) (map[string]any, bool) {
	raw = stripCodeFence(strings.TrimSpace(raw))
	if raw == "" {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil && obj != nil {
		return obj, true
	}
	start, end := strings.IndexByte(raw, '{'), strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return nil, false
	}
	obj = nil
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func stripCodeFence(s string) string {
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// asInt accepts JSON numbers and numeric strings. Fractions truncate.
func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int(x), true
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int(f), true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && !math.IsNaN(f)
	}
	return 0, false
}

// asStrings keeps the trimmed, non-empty strings of a JSON array, first
// occurrence only.
func asStrings(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, it := range items {
		s := asString(it)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// parseCitations keeps entries with a non-empty source. A missing chunk
// defaults to 0; a chunk that is present but not numeric drops the entry.
func parseCitations(v any) []Citation {
	items, _ := v.([]any)
	out := make([]Citation, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		src := asString(m["source"])
		if src == "" {
			continue
		}
		chunk := 0
		if raw, present := m["chunk"]; present && raw != nil {
			n, ok := asInt(raw)
			if !ok {
				continue
			}
			chunk = n
		}
		out = append(out, Citation{Source: src, Chunk: chunk})
	}
	return out
}
