package util

import (
	"strings"
	"testing"
)

func TestSnippetClipsWithoutQuery(t *testing.T) {
	out := Snippet("Hello\x00   world \n\t again", "", 8)
	if out != "Hello wo..." {
		t.Fatalf("unexpected snippet: %q", out)
	}
}

func TestSnippetPrefersMatchingSentences(t *testing.T) {
	chunk := "Photosynthesis happens in chloroplasts. Light reactions produce ATP. Unrelated appendix text."
	out := Snippet(chunk, "Where do light reactions make ATP?", 200)
	if !strings.Contains(out, "ATP") || strings.Contains(out, "appendix") {
		t.Fatalf("expected ATP sentence, got: %q", out)
	}
}
