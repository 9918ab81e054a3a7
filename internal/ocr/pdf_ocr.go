package ocr

import (
	"context"
	"fmt"
	"time"
)

func (e *Extractor) acquirePDF(ctx context.Context, data []byte) (Result, error) {
	native, nativeErr := e.text.PageTexts(ctx, data)
	chars := textLen(native)
	if nativeErr == nil && chars >= e.cfg.MinTextChars {
		return Result{
			Pages:      native,
			PageCount:  len(native),
			TotalPages: len(native),
			Method:     MethodPDFText,
		}, nil
	}

	e.logger.Info("ocr.acquire.fallback",
		"native_chars", chars,
		"min_chars", e.cfg.MinTextChars,
		"native_error", errString(nativeErr),
	)

	pages, total, err := e.ocrPDF(ctx, data)
	if err != nil {
		if chars > 0 && ctx.Err() == nil {
			e.logger.Warn("ocr.acquire.ocr_failed_using_native", "native_chars", chars, "error", err)
			return Result{Pages: native, PageCount: len(native), TotalPages: len(native), Method: MethodPDFText}, nil
		}
		return Result{}, &ExtractionError{Op: "ocr", Err: err}
	}
	if textLen(pages) == 0 {
		if chars > 0 {
			e.logger.Warn("ocr.acquire.ocr_empty_using_native", "native_chars", chars)
			return Result{Pages: native, PageCount: len(native), TotalPages: len(native), Method: MethodPDFText}, nil
		}
		return Result{}, &ExtractionError{Op: "ocr", Err: ErrNoText}
	}
	return Result{
		Pages:      pages,
		PageCount:  len(pages),
		TotalPages: total,
		UsedOCR:    true,
		Method:     MethodPDFOCR,
	}, nil
}

// ocrPDF rasterizes and recognizes up to MaxPages pages. One engine serves the
// whole page loop and is released on every path.
func (e *Extractor) ocrPDF(ctx context.Context, data []byte) ([]string, int, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, 0, err
	}
	defer e.sem.Release(1)

	raster, err := e.raster.Open(ctx, data)
	if err != nil {
		return nil, 0, fmt.Errorf("open raster: %w", err)
	}
	defer func() {
		if cerr := raster.Close(); cerr != nil {
			e.logger.Warn("ocr.raster.close_error", "error", cerr)
		}
	}()

	total := raster.PageCount()
	n := min(total, e.cfg.MaxPages)
	if total > n {
		e.logger.Warn("ocr.pdf.page_cap", "total_pages", total, "max_pages", n)
	}

	engine, err := e.newEngine()
	if err != nil {
		return nil, total, fmt.Errorf("start ocr engine: %w", err)
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil {
			e.logger.Warn("ocr.engine.close_error", "error", cerr)
		}
	}()

	pages := make([]string, 0, n)
	for p := 1; p <= n; p++ {
		if err := ctx.Err(); err != nil {
			return nil, total, err
		}
		start := time.Now()
		img, err := raster.Render(ctx, p)
		if err != nil {
			return nil, total, fmt.Errorf("render page %d: %w", p, err)
		}
		txt, err := engine.Recognize(img)
		if err != nil {
			return nil, total, fmt.Errorf("recognize page %d: %w", p, err)
		}
		pages = append(pages, Normalize(txt))
		e.logger.Debug("ocr.pdf.page", "page", p, "chars", len(txt), "elapsed_ms", time.Since(start).Milliseconds())
	}
	return pages, total, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
