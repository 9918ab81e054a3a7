package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Engine recognizes text in a single page image.
type Engine interface {
	Recognize(img []byte) (string, error)
	Close() error
}

// EngineFactory creates an engine scoped to one document.
type EngineFactory func() (Engine, error)

type tesseractEngine struct {
	client *gosseract.Client
}

// TesseractEngine returns a factory for gosseract-backed engines using lang
// (e.g. "eng" or "eng+fra").
func TesseractEngine(lang string) EngineFactory {
	return func() (Engine, error) {
		client := gosseract.NewClient()
		if err := client.SetLanguage(lang); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("set language %q: %w", lang, err)
		}
		return &tesseractEngine{client: client}, nil
	}
}

func (t *tesseractEngine) Recognize(img []byte) (string, error) {
	if err := t.client.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (t *tesseractEngine) Close() error {
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}

func (e *Extractor) acquireImage(ctx context.Context, data []byte) (Result, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return Result{}, err
	}
	defer e.sem.Release(1)

	engine, err := e.newEngine()
	if err != nil {
		return Result{}, fmt.Errorf("start ocr engine: %w", err)
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil {
			e.logger.Warn("ocr.engine.close_error", "error", cerr)
		}
	}()

	txt, err := engine.Recognize(data)
	if err != nil {
		return Result{}, err
	}
	txt = Normalize(txt)
	if txt == "" {
		return Result{}, ErrNoText
	}
	return Result{
		Pages:      []string{txt},
		PageCount:  1,
		TotalPages: 1,
		UsedOCR:    true,
		Method:     MethodImageOCR,
	}, nil
}
