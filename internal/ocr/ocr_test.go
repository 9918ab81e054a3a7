package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
)

var pdfBytes = []byte("%PDF-1.7 test document")

type fakeTextLayer struct {
	pages []string
	err   error
}

func (f fakeTextLayer) PageTexts(context.Context, []byte) ([]string, error) {
	return f.pages, f.err
}

type fakeRaster struct {
	pages     int
	renderErr error
	rendered  []int
	closed    bool
}

func (r *fakeRaster) PageCount() int { return r.pages }

func (r *fakeRaster) Render(_ context.Context, page int) ([]byte, error) {
	if r.renderErr != nil {
		return nil, r.renderErr
	}
	r.rendered = append(r.rendered, page)
	return []byte(fmt.Sprintf("page-%d", page)), nil
}

func (r *fakeRaster) Close() error {
	r.closed = true
	return nil
}

type fakeRasterizer struct {
	raster  *fakeRaster
	openErr error
}

func (f *fakeRasterizer) Open(context.Context, []byte) (Raster, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.raster, nil
}

type fakeEngine struct {
	recognize func(img []byte) (string, error)
	closed    bool
}

func (e *fakeEngine) Recognize(img []byte) (string, error) { return e.recognize(img) }

func (e *fakeEngine) Close() error {
	e.closed = true
	return nil
}

type engineRecorder struct {
	created []*fakeEngine
	fn      func(img []byte) (string, error)
}

func (r *engineRecorder) factory() EngineFactory {
	return func() (Engine, error) {
		fn := r.fn
		if fn == nil {
			fn = func(img []byte) (string, error) { return "recognized " + string(img), nil }
		}
		e := &fakeEngine{recognize: fn}
		r.created = append(r.created, e)
		return e, nil
	}
}

func newTestExtractor(text TextLayer, raster Rasterizer, engines *engineRecorder) *Extractor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewExtractor(Config{}, logger,
		WithTextLayer(text),
		WithRasterizer(raster),
		WithEngineFactory(engines.factory()),
	)
}

func longText(n int) string { return strings.Repeat("a", n) }

func TestAcquire_NativeTextSkipsOCR(t *testing.T) {
	engines := &engineRecorder{}
	raster := &fakeRasterizer{raster: &fakeRaster{pages: 2}}
	e := newTestExtractor(fakeTextLayer{pages: []string{longText(60), longText(60)}}, raster, engines)

	res, err := e.Acquire(context.Background(), pdfBytes, "application/pdf")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if res.UsedOCR || res.Method != MethodPDFText {
		t.Errorf("UsedOCR = %v, Method = %q", res.UsedOCR, res.Method)
	}
	if len(engines.created) != 0 {
		t.Errorf("OCR engine created %d times, want 0", len(engines.created))
	}
	if res.PageCount != 2 || res.TotalPages != 2 {
		t.Errorf("pages = %d/%d", res.PageCount, res.TotalPages)
	}
}

func TestAcquire_SparseTextFallsBackToOCR(t *testing.T) {
	engines := &engineRecorder{}
	r := &fakeRaster{pages: 3}
	e := newTestExtractor(fakeTextLayer{pages: []string{longText(99)}}, &fakeRasterizer{raster: r}, engines)

	res, err := e.Acquire(context.Background(), pdfBytes, "application/pdf")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !res.UsedOCR || res.Method != MethodPDFOCR {
		t.Errorf("UsedOCR = %v, Method = %q", res.UsedOCR, res.Method)
	}
	if len(res.Pages) != 3 || res.Pages[1] != "recognized page-2" {
		t.Errorf("Pages = %q", res.Pages)
	}
	if len(engines.created) != 1 || !engines.created[0].closed {
		t.Error("expected exactly one engine, closed after use")
	}
	if !r.closed {
		t.Error("raster not closed")
	}
}

func TestAcquire_NativeErrorFallsBackToOCR(t *testing.T) {
	engines := &engineRecorder{}
	e := newTestExtractor(fakeTextLayer{err: errors.New("pdftotext: exit status 1")},
		&fakeRasterizer{raster: &fakeRaster{pages: 1}}, engines)

	res, err := e.Acquire(context.Background(), pdfBytes, "application/pdf")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !res.UsedOCR {
		t.Error("expected OCR")
	}
}

func TestAcquire_OCRPageCap(t *testing.T) {
	engines := &engineRecorder{}
	r := &fakeRaster{pages: 60}
	e := newTestExtractor(fakeTextLayer{pages: []string{""}}, &fakeRasterizer{raster: r}, engines)

	res, err := e.Acquire(context.Background(), pdfBytes, "application/pdf")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if len(r.rendered) != 50 {
		t.Errorf("rendered %d pages, want 50", len(r.rendered))
	}
	if res.PageCount != 50 || res.TotalPages != 60 {
		t.Errorf("PageCount = %d, TotalPages = %d", res.PageCount, res.TotalPages)
	}
}

func TestAcquire_EngineClosedOnFailure(t *testing.T) {
	engines := &engineRecorder{fn: func([]byte) (string, error) { return "", errors.New("tesseract crashed") }}
	r := &fakeRaster{pages: 2}
	e := newTestExtractor(fakeTextLayer{}, &fakeRasterizer{raster: r}, engines)

	_, err := e.Acquire(context.Background(), pdfBytes, "application/pdf")
	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *ExtractionError", err)
	}
	if len(engines.created) != 1 || !engines.created[0].closed {
		t.Error("engine must be closed on failure")
	}
	if !r.closed {
		t.Error("raster must be closed on failure")
	}
}

func TestAcquire_RasterOpenFailure(t *testing.T) {
	engines := &engineRecorder{}
	e := newTestExtractor(fakeTextLayer{}, &fakeRasterizer{openErr: errors.New("pdfinfo missing")}, engines)

	_, err := e.Acquire(context.Background(), pdfBytes, "application/pdf")
	var ee *ExtractionError
	if !errors.As(err, &ee) || ee.Op != "ocr" {
		t.Fatalf("err = %v, want ocr ExtractionError", err)
	}
	if len(engines.created) != 0 {
		t.Error("engine should not be created when rasterizing fails")
	}
}

func TestAcquire_OCRFailureKeepsSparseNativeText(t *testing.T) {
	failing := func([]byte) (string, error) { return "", errors.New("tesseract crashed") }

	t.Run("engine error", func(t *testing.T) {
		e := newTestExtractor(fakeTextLayer{pages: []string{"Status Certificate"}},
			&fakeRasterizer{raster: &fakeRaster{pages: 1}}, &engineRecorder{fn: failing})
		res, err := e.Acquire(context.Background(), pdfBytes, "application/pdf")
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		if res.UsedOCR || res.Method != MethodPDFText || res.Pages[0] != "Status Certificate" {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("rasterizer unavailable", func(t *testing.T) {
		e := newTestExtractor(fakeTextLayer{pages: []string{"Status Certificate"}},
			&fakeRasterizer{openErr: errors.New("pdfinfo missing")}, &engineRecorder{})
		res, err := e.Acquire(context.Background(), pdfBytes, "application/pdf")
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		if res.PageCount != 1 || res.TotalPages != 1 {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		e := newTestExtractor(fakeTextLayer{pages: []string{"Status Certificate"}},
			&fakeRasterizer{raster: &fakeRaster{pages: 1}}, &engineRecorder{})
		_, err := e.Acquire(ctx, pdfBytes, "application/pdf")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	})
}

func TestAcquire_EmptyOCR(t *testing.T) {
	blank := func([]byte) (string, error) { return "  ", nil }

	t.Run("keeps sparse native text", func(t *testing.T) {
		e := newTestExtractor(fakeTextLayer{pages: []string{"Status Certificate"}},
			&fakeRasterizer{raster: &fakeRaster{pages: 1}}, &engineRecorder{fn: blank})
		res, err := e.Acquire(context.Background(), pdfBytes, "application/pdf")
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		if res.UsedOCR || res.Pages[0] != "Status Certificate" {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("no text anywhere", func(t *testing.T) {
		e := newTestExtractor(fakeTextLayer{pages: []string{""}},
			&fakeRasterizer{raster: &fakeRaster{pages: 1}}, &engineRecorder{fn: blank})
		_, err := e.Acquire(context.Background(), pdfBytes, "application/pdf")
		if !errors.Is(err, ErrNoText) {
			t.Fatalf("err = %v, want ErrNoText", err)
		}
	})
}

func TestAcquire_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := newTestExtractor(fakeTextLayer{}, &fakeRasterizer{raster: &fakeRaster{pages: 3}}, &engineRecorder{})
	_, err := e.Acquire(ctx, pdfBytes, "application/pdf")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestAcquire_Image(t *testing.T) {
	engines := &engineRecorder{}
	e := newTestExtractor(fakeTextLayer{}, &fakeRasterizer{}, engines)

	res, err := e.Acquire(context.Background(), []byte("\x89PNG\r\n\x1a\nimage"), "")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !res.UsedOCR || res.Method != MethodImageOCR || res.PageCount != 1 {
		t.Errorf("res = %+v", res)
	}
	if !engines.created[0].closed {
		t.Error("engine not closed")
	}
}

func TestAcquire_PlainText(t *testing.T) {
	e := newTestExtractor(fakeTextLayer{}, &fakeRasterizer{}, &engineRecorder{})

	res, err := e.Acquire(context.Background(), []byte("first page\fsecond  page\r\n\f"), "text/plain; charset=utf-8")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	want := []string{"first page", "second page"}
	if strings.Join(res.Pages, "|") != strings.Join(want, "|") {
		t.Errorf("Pages = %q, want %q", res.Pages, want)
	}
	if res.UsedOCR || res.Method != MethodPlainText {
		t.Errorf("res = %+v", res)
	}
}

func TestAcquire_Rejects(t *testing.T) {
	e := newTestExtractor(fakeTextLayer{}, &fakeRasterizer{}, &engineRecorder{})

	if _, err := e.Acquire(context.Background(), nil, "application/pdf"); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("empty: err = %v", err)
	}
	_, err := e.Acquire(context.Background(), []byte("PK\x03\x04zip"), "application/zip")
	if !errors.Is(err, ErrUnsupportedMedia) {
		t.Errorf("zip: err = %v", err)
	}
	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Errorf("zip: err = %T, want *ExtractionError", err)
	}
}

func TestConfigDPI(t *testing.T) {
	if got := (Config{Scale: 2.0}).DPI(); got != 144 {
		t.Errorf("DPI = %d, want 144", got)
	}
}
