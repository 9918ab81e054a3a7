package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/statuscert/internal/entity"
	"github.com/joseph-ayodele/statuscert/internal/llm"
	"github.com/joseph-ayodele/statuscert/internal/locate"
)

func (p *Processor) extract(ctx context.Context, pages []string, logger *slog.Logger) (entity.ExtractionResult, error) {
	start := time.Now()
	text, truncated := BuildDocumentText(pages, p.Cfg.MaxDocumentChars)
	if truncated {
		logger.Warn("pipeline.extract.truncated", "max_chars", p.Cfg.MaxDocumentChars, "pages", len(pages))
	}

	raw, err := p.Extractor.Extract(ctx, text)
	if err != nil {
		classified := llm.Classify(err)
		logger.Error("pipeline.extract.failed", "code", classified.Code, "error", err)
		return entity.ExtractionResult{}, classified
	}

	result := llm.Normalize(raw)
	if result.Error != nil {
		logger.Warn("pipeline.extract.degraded",
			"type", result.Error.Type,
			"details", result.Error.Details,
			"snippet", result.Error.Snippet,
		)
	}
	logger.Debug("pipeline.extract.ok",
		"chars", len(text),
		"raw_len", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// attributePages replaces any model-supplied page with the located one. Items
// that cannot be located get no page; issues get the fallback page.
func attributePages(r *entity.ExtractionResult, pages []string, issueFallback int) {
	for key, sec := range r.Sections {
		for i := range sec.Items {
			sec.Items[i].Page = locate.PagePtr(pages, sec.Items[i].Quote)
		}
		r.Sections[key] = sec
	}
	for i := range r.Issues {
		page := locate.PagePtr(pages, r.Issues[i].Quote)
		if page == nil && issueFallback > 0 {
			fb := issueFallback
			page = &fb
		}
		r.Issues[i].Page = page
	}
}
