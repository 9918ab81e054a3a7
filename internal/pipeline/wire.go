package pipeline

import (
	"log/slog"

	"github.com/joseph-ayodele/statuscert/internal/common"
	"github.com/joseph-ayodele/statuscert/internal/llm/openai"
	"github.com/joseph-ayodele/statuscert/internal/ocr"
)

// OCRConfig maps the loaded OCR settings onto the extractor config.
func OCRConfig(c common.OCRConfig) ocr.Config {
	return ocr.Config{
		Pdftotext:     c.Pdftotext,
		Pdftoppm:      c.Pdftoppm,
		Pdfinfo:       c.Pdfinfo,
		TesseractLang: c.TesseractLang,
		MaxPages:      c.MaxPages,
		Scale:         c.Scale,
		MinTextChars:  c.MinTextChars,
		MaxConcurrent: c.MaxConcurrent,
		HeicConverter: c.HeicConverter,
	}
}

// NewFromConfig wires the OCR extractor and the OpenAI client into a Processor.
func NewFromConfig(cfg *common.Config, logger *slog.Logger) *Processor {
	acquirer := ocr.NewExtractor(OCRConfig(cfg.OCR), logger)
	extractor := openai.NewClient(openai.Config{
		APIKey:          cfg.LLM.APIKey,
		BaseURL:         cfg.LLM.BaseURL,
		Model:           cfg.LLM.Model,
		Temperature:     cfg.LLM.Temperature,
		Timeout:         cfg.LLM.Timeout,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		MaxAttempts:     cfg.LLM.MaxAttempts,
		RetryBaseDelay:  cfg.LLM.RetryBaseDelay,
	}, logger)
	return NewProcessor(Config{
		MaxDocumentChars:  cfg.Pipeline.MaxDocumentChars,
		IssuePageFallback: cfg.Pipeline.IssuePageFallback,
	}, acquirer, extractor, logger)
}
