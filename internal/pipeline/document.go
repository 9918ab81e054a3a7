package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// PageMarker returns the separator written before page n (1-indexed).
func PageMarker(n int) string { return fmt.Sprintf("--- Page %d ---", n) }

// BuildDocumentText joins pages behind page markers and keeps the page content
// under maxChars runes. Whole pages are dropped from the end; a first page
// that alone exceeds the limit is cut. A trailing note records the truncation.
func BuildDocumentText(pages []string, maxChars int) (string, bool) {
	var b strings.Builder
	used := 0
	for i, p := range pages {
		chunk := PageMarker(i+1) + "\n" + p + "\n\n"
		n := utf8.RuneCountInString(chunk)
		if maxChars <= 0 || used+n <= maxChars {
			b.WriteString(chunk)
			used += n
			continue
		}
		if i == 0 {
			b.WriteString(cutRunes(chunk, maxChars))
			fmt.Fprintf(&b, "\n[Document truncated within page 1 of %d]\n", len(pages))
		} else {
			fmt.Fprintf(&b, "[Document truncated after page %d of %d]\n", i, len(pages))
		}
		return b.String(), true
	}
	return strings.TrimRight(b.String(), "\n"), false
}

func cutRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
