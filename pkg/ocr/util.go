package ocr

import "strings"

// Snippet returns s with whitespace collapsed, shortened to at most max runes
// for logging.
func Snippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + "…"
		}
		n++
	}
	return s
}
