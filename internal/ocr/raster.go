package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Rasterizer prepares a PDF for page-by-page rendering.
type Rasterizer interface {
	Open(ctx context.Context, data []byte) (Raster, error)
}

// Raster renders pages of one opened document as PNG bytes.
type Raster interface {
	PageCount() int
	Render(ctx context.Context, page int) ([]byte, error)
	Close() error
}

type popplerRasterizer struct {
	pdftoppm string
	pdfinfo  string
	dpi      int
	runner   Runner
	logger   *slog.Logger
}

type popplerRaster struct {
	r     *popplerRasterizer
	dir   string
	path  string
	pages int
}

func (p *popplerRasterizer) Open(ctx context.Context, data []byte) (Raster, error) {
	dir, err := os.MkdirTemp("", "statuscert-raster-*")
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	pages, err := p.countPages(ctx, path, data)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	return &popplerRaster{r: p, dir: dir, path: path, pages: pages}, nil
}

// countPages asks pdfinfo first and falls back to pdfcpu.
func (p *popplerRasterizer) countPages(ctx context.Context, path string, data []byte) (int, error) {
	out, _, err := p.runner.Run(ctx, p.pdfinfo, path)
	if err == nil {
		if n := parsePdfinfoPages(out); n > 0 {
			return n, nil
		}
	}
	p.logger.Warn("ocr.raster.pdfinfo_unavailable", "error", errString(err))

	n, perr := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if perr != nil {
		return 0, fmt.Errorf("count pages: %w", perr)
	}
	if n == 0 {
		return 0, fmt.Errorf("count pages: document has no pages")
	}
	return n, nil
}

func parsePdfinfoPages(out []byte) int {
	for _, line := range strings.Split(string(out), "\n") {
		if rest, ok := strings.CutPrefix(line, "Pages:"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(rest))
			if err == nil {
				return n
			}
		}
	}
	return 0
}

func (r *popplerRaster) PageCount() int { return r.pages }

func (r *popplerRaster) Render(ctx context.Context, page int) ([]byte, error) {
	prefix := filepath.Join(r.dir, fmt.Sprintf("page-%d", page))
	// pdftoppm -f N -l N -r DPI -png -singlefile <in.pdf> <prefix>
	_, errb, err := r.r.runner.Run(ctx, r.r.pdftoppm,
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-r", strconv.Itoa(r.r.dpi),
		"-png", "-singlefile",
		r.path, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}
	png := prefix + ".png"
	img, err := os.ReadFile(png)
	if err != nil {
		return nil, fmt.Errorf("read rendered page: %w", err)
	}
	_ = os.Remove(png)
	return img, nil
}

func (r *popplerRaster) Close() error {
	return os.RemoveAll(r.dir)
}
