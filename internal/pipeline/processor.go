package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/statuscert/internal/common"
	"github.com/joseph-ayodele/statuscert/internal/entity"
	"github.com/joseph-ayodele/statuscert/internal/llm"
	"github.com/joseph-ayodele/statuscert/internal/ocr"
)

// TextAcquirer turns document bytes into per-page text.
type TextAcquirer interface {
	Acquire(ctx context.Context, data []byte, mediaType string) (ocr.Result, error)
}

// Config holds report assembly settings.
type Config struct {
	MaxDocumentChars int // default 120000
	// IssuePageFallback is the page given to issues whose quote cannot be
	// located. 0 leaves them without a page.
	IssuePageFallback int
}

// DefaultConfig returns the assembly defaults.
func DefaultConfig() Config {
	return Config{MaxDocumentChars: 120000, IssuePageFallback: 1}
}

// Processor coordinates text acquisition, then extraction, then page attribution.
type Processor struct {
	Logger    *slog.Logger
	Acquirer  TextAcquirer
	Extractor llm.Extractor
	Cfg       Config
}

func NewProcessor(cfg Config, acquirer TextAcquirer, extractor llm.Extractor, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxDocumentChars <= 0 {
		cfg.MaxDocumentChars = DefaultConfig().MaxDocumentChars
	}
	if cfg.IssuePageFallback < 0 {
		cfg.IssuePageFallback = 0
	}
	return &Processor{Logger: logger, Acquirer: acquirer, Extractor: extractor, Cfg: cfg}
}

// Analyze produces the page-annotated report for one document. Malformed model
// output never fails the call; the result carries Error instead. Only
// acquisition errors (*ocr.ExtractionError) and transport errors
// (*common.AppError) are returned.
func (p *Processor) Analyze(ctx context.Context, doc entity.Document) (entity.ExtractionResult, error) {
	start := time.Now()
	logger := common.LoggerFrom(ctx, p.Logger).With("document", doc.Name)
	if ref := common.PropertyRefFromContext(ctx); ref != "" {
		logger = logger.With("property_ref", ref)
	}

	// 1) text acquisition
	text, err := p.acquire(ctx, doc, logger)
	if err != nil {
		return entity.ExtractionResult{}, err
	}

	// 2) extraction + normalization
	result, err := p.extract(ctx, text.Pages, logger)
	if err != nil {
		return entity.ExtractionResult{}, err
	}

	// 3) page attribution
	attributePages(&result, text.Pages, p.Cfg.IssuePageFallback)
	result.Source = &entity.SourceInfo{
		PageCount:  text.PageCount,
		TotalPages: text.TotalPages,
		UsedOCR:    text.UsedOCR,
		Method:     text.Method,
	}

	logger.Info("pipeline.analyze.ok",
		"risk_rating", result.RiskRating,
		"items", result.Summary.TotalItems,
		"issues", len(result.Issues),
		"degraded", result.Degraded(),
		"used_ocr", text.UsedOCR,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}
