package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// convertHEICtoPNG converts HEIC/HEIF bytes to PNG bytes with an external
// converter. The scratch directory is removed before returning.
func convertHEICtoPNG(ctx context.Context, r Runner, converter string, data []byte) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "statuscert-heic-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	in := filepath.Join(tmpDir, "in.heic")
	out := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	var args []string
	switch converter {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return nil, fmt.Errorf("%w: HEIC needs ocr.Config.HeicConverter set to one of: heif-convert | magick | sips", ErrUnsupportedMedia)
	}
	if _, errb, err := r.Run(ctx, converter, args...); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", converter, err, strings.TrimSpace(truncate(string(errb), 512)))
	}

	png, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}
	if len(png) == 0 {
		return nil, errors.New("HEIC conversion produced an empty image")
	}
	return png, nil
}

func (e *Extractor) acquireHEIC(ctx context.Context, data []byte) (Result, error) {
	png, err := convertHEICtoPNG(ctx, e.runner, e.cfg.HeicConverter, data)
	if err != nil {
		return Result{}, &ExtractionError{Op: "heic", Err: err}
	}
	e.logger.Debug("ocr.heic.converted", "converter", e.cfg.HeicConverter, "png_bytes", len(png))
	return e.acquireImage(ctx, png)
}
