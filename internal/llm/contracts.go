package llm

import "context"

// Extractor sends assembled document text to a language model and returns the
// raw completion text, which is expected (but not guaranteed) to hold JSON.
// Implementations own transport and retry; they know nothing about PDFs or
// the response schema beyond the contract text.
type Extractor interface {
	Extract(ctx context.Context, documentText string) (string, error)
}

// ExtractorFunc adapts a plain function to Extractor.
type ExtractorFunc func(ctx context.Context, documentText string) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, documentText string) (string, error) {
	return f(ctx, documentText)
}
