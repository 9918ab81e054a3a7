package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/statuscert/constants"
	"golang.org/x/sync/semaphore"
)

// Acquisition methods reported in Result.Method.
const (
	MethodPDFText   = "pdf-text"
	MethodPDFOCR    = "pdf-ocr"
	MethodImageOCR  = "image-ocr"
	MethodPlainText = "plain-text"
)

var (
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrEmptyDocument    = errors.New("empty document")
	ErrNoText           = errors.New("no text could be extracted")
)

// ExtractionError is returned when a document cannot be turned into text at all.
type ExtractionError struct {
	Op  string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("text extraction failed (%s): %v", e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Pdfinfo   string // binary name or absolute path; if empty -> "pdfinfo"

	TesseractLang string  // default "eng"
	MaxPages      int     // OCR page cap, default 50
	Scale         float64 // render scale relative to 72 dpi, default 2.0
	MinTextChars  int     // native text below this triggers OCR, default 100
	MaxConcurrent int     // documents OCR'd at once, default 2

	// HeicConverter is one of heif-convert | magick | sips. Empty disables
	// HEIC input.
	HeicConverter string
}

// DPI is the rasterization resolution implied by Scale.
func (c Config) DPI() int { return int(math.Round(72 * c.Scale)) }

// Result is the per-page text of one document.
type Result struct {
	Pages      []string
	PageCount  int // pages returned
	TotalPages int // pages in the source document
	UsedOCR    bool
	Method     string
	Duration   time.Duration
}

// Text joins the pages with blank lines.
func (r Result) Text() string { return strings.Join(r.Pages, "\n\n") }

type Extractor struct {
	cfg       Config
	text      TextLayer
	raster    Rasterizer
	newEngine EngineFactory
	runner    Runner
	sem       *semaphore.Weighted
	logger    *slog.Logger
}

type Option func(*Extractor)

func WithTextLayer(t TextLayer) Option         { return func(e *Extractor) { e.text = t } }
func WithRasterizer(r Rasterizer) Option       { return func(e *Extractor) { e.raster = r } }
func WithEngineFactory(f EngineFactory) Option { return func(e *Extractor) { e.newEngine = f } }

// WithRunner replaces the command runner used for HEIC conversion.
func WithRunner(r Runner) Option { return func(e *Extractor) { e.runner = r } }

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Pdfinfo == "" {
		cfg.Pdfinfo = "pdfinfo"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 50
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 2.0
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 100
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}

	runner := NewExecRunner(logger)
	e := &Extractor{
		cfg: cfg,
		text: chainTextLayer{
			&popplerTextLayer{bin: cfg.Pdftotext, runner: runner},
			pdfcpuTextLayer{},
		},
		raster:    &popplerRasterizer{pdftoppm: cfg.Pdftoppm, pdfinfo: cfg.Pdfinfo, dpi: cfg.DPI(), runner: runner, logger: logger},
		newEngine: TesseractEngine(cfg.TesseractLang),
		runner:    runner,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Acquire returns the per-page text of data, picking a strategy from the media
// type. Any failure is an *ExtractionError.
func (e *Extractor) Acquire(ctx context.Context, data []byte, mediaType string) (Result, error) {
	start := time.Now()
	if len(data) == 0 {
		return Result{}, &ExtractionError{Op: "read", Err: ErrEmptyDocument}
	}

	media := constants.DetectMediaType(mediaType, data)
	e.logger.Debug("ocr.acquire.start", "media_type", media, "bytes", len(data))

	var (
		res Result
		err error
	)
	switch constants.MapMediaToFormat(media) {
	case constants.PDF:
		res, err = e.acquirePDF(ctx, data)
	case constants.IMAGE:
		res, err = e.acquireImage(ctx, data)
	case constants.TXT:
		res, err = acquirePlainText(data)
	case constants.HEIC:
		res, err = e.acquireHEIC(ctx, data)
	default:
		e.logger.Error("ocr.acquire.unsupported", "media_type", media)
		return Result{}, &ExtractionError{Op: "detect", Err: fmt.Errorf("%w: %q", ErrUnsupportedMedia, media)}
	}
	res.Duration = time.Since(start)
	if err != nil {
		var ee *ExtractionError
		if !errors.As(err, &ee) {
			err = &ExtractionError{Op: strings.ToLower(constants.MapMediaToFormat(media)), Err: err}
		}
		e.logger.Error("ocr.acquire.failed", "media_type", media, "error", err, "elapsed_ms", res.Duration.Milliseconds())
		return Result{}, err
	}

	e.logger.Info("ocr.acquire.ok",
		"method", res.Method,
		"pages", res.PageCount,
		"total_pages", res.TotalPages,
		"used_ocr", res.UsedOCR,
		"chars", textLen(res.Pages),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func acquirePlainText(data []byte) (Result, error) {
	pages := splitPages(string(data))
	if textLen(pages) == 0 {
		return Result{}, ErrNoText
	}
	return Result{Pages: pages, PageCount: len(pages), TotalPages: len(pages), Method: MethodPlainText}, nil
}

// splitPages splits on form feeds, normalizing each page. pdftotext ends every
// page with a form feed, so the one blank segment after the last feed is
// dropped; blank pages before it are kept.
func splitPages(s string) []string {
	raw := strings.Split(s, "\f")
	if len(raw) > 1 && strings.TrimSpace(raw[len(raw)-1]) == "" {
		raw = raw[:len(raw)-1]
	}
	pages := make([]string, len(raw))
	for i, p := range raw {
		pages[i] = Normalize(p)
	}
	return pages
}

func textLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += utf8.RuneCountInString(strings.TrimSpace(p))
	}
	return n
}
