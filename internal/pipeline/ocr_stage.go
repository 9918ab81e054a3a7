package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/statuscert/internal/entity"
	"github.com/joseph-ayodele/statuscert/internal/ocr"
)

func (p *Processor) acquire(ctx context.Context, doc entity.Document, logger *slog.Logger) (ocr.Result, error) {
	res, err := p.Acquirer.Acquire(ctx, doc.Data, doc.MediaType)
	if err != nil {
		logger.Error("pipeline.acquire.failed", "media_type", doc.MediaType, "error", err)
		return ocr.Result{}, fmt.Errorf("acquire text: %w", err)
	}
	logger.Info("pipeline.acquire.ok",
		"method", res.Method,
		"pages", res.PageCount,
		"total_pages", res.TotalPages,
		"used_ocr", res.UsedOCR,
	)
	if res.TotalPages > res.PageCount {
		logger.Warn("pipeline.acquire.partial",
			"pages", res.PageCount,
			"total_pages", res.TotalPages,
		)
	}
	return res, nil
}
