// Package locate attributes quoted excerpts back to the page they came from.
package locate

import "strings"

const (
	// MinTokenLen is exclusive: only tokens longer than this count for fuzzy matching.
	MinTokenLen = 4
	// MinTokens is the fewest qualifying tokens a quote needs before fuzzy matching is attempted.
	MinTokens = 3
	// Coverage is the fraction of qualifying tokens a page must contain.
	Coverage = 0.7
)

// Page returns the 1-indexed page that most likely contains quote.
// Exact case-insensitive containment wins; otherwise the first page covering at
// least 70% of the quote's long tokens. ok is false when nothing qualifies.
func Page(pages []string, quote string) (page int, ok bool) {
	q := strings.ToLower(strings.TrimSpace(quote))
	if q == "" {
		return 0, false
	}

	lowered := make([]string, len(pages))
	for i, p := range pages {
		lowered[i] = strings.ToLower(p)
		if strings.Contains(lowered[i], q) {
			return i + 1, true
		}
	}

	tokens := longTokens(q)
	if len(tokens) < MinTokens {
		return 0, false
	}
	need := Coverage * float64(len(tokens))
	for i, p := range lowered {
		hits := 0
		for _, t := range tokens {
			if strings.Contains(p, t) {
				hits++
			}
		}
		if float64(hits) >= need {
			return i + 1, true
		}
	}
	return 0, false
}

// PagePtr is Page returning nil when the quote is unattributed.
func PagePtr(pages []string, quote *string) *int {
	if quote == nil {
		return nil
	}
	p, ok := Page(pages, *quote)
	if !ok {
		return nil
	}
	return &p
}

func longTokens(s string) []string {
	var out []string
	for _, f := range strings.Fields(s) {
		if len([]rune(f)) > MinTokenLen {
			out = append(out, f)
		}
	}
	return out
}
