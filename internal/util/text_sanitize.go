package util

import "strings"

// SanitizeText normalizes line endings and drops NUL and other non-printing
// control runes that some decoders leave behind. Tabs and newlines survive.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return '\n'
		case r < 0x20 || r == 0x7f || r == '\uFFFE' || r == '\uFEFF':
			return -1
		}
		return r
	}, s)
}
