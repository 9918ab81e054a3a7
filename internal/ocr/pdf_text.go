package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// TextLayer reads the embedded text of a PDF, one string per page.
type TextLayer interface {
	PageTexts(ctx context.Context, data []byte) ([]string, error)
}

// chainTextLayer tries each layer in order and keeps the first one that
// yields any text.
type chainTextLayer []TextLayer

func (c chainTextLayer) PageTexts(ctx context.Context, data []byte) ([]string, error) {
	var (
		best    []string
		lastErr error
	)
	for _, l := range c {
		pages, err := l.PageTexts(ctx, data)
		if err != nil {
			lastErr = err
			continue
		}
		if textLen(pages) > 0 {
			return pages, nil
		}
		if best == nil {
			best = pages
		}
	}
	if best != nil {
		return best, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no text layer configured")
	}
	return nil, lastErr
}

type popplerTextLayer struct {
	bin    string
	runner Runner
}

func (p *popplerTextLayer) PageTexts(ctx context.Context, data []byte) ([]string, error) {
	dir, err := os.MkdirTemp("", "statuscert-text-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, err
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.runner.Run(ctx, p.bin, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w: %s", err, truncate(string(errb), 512))
	}
	// A form-feed \f is used as page separator by default
	return splitPages(string(out)), nil
}

// pdfcpuTextLayer scans page content streams for text-showing operators. It
// needs no external binaries but only understands simple encodings.
type pdfcpuTextLayer struct{}

func (pdfcpuTextLayer) PageTexts(ctx context.Context, data []byte) ([]string, error) {
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	pages := make([]string, 0, pctx.PageCount)
	for nr := 1; nr <= pctx.PageCount; nr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, Normalize(extractPageText(pctx, nr)))
	}
	return pages, nil
}

func extractPageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return extractTextFromStream(data)
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// extractTextFromStream collects the operands of Tj, TJ, ' and " and turns
// line-positioning operators into line breaks.
func extractTextFromStream(data []byte) string {
	var sb strings.Builder
	writeStrings := func(line []byte) {
		for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
			sb.WriteString(decodePDFString(m[1]))
		}
	}

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			writeStrings(line)
		case bytes.HasSuffix(line, []byte("'")), bytes.HasSuffix(line, []byte(`"`)):
			if bytes.Contains(line, []byte("(")) {
				sb.WriteByte('\n')
				writeStrings(line)
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")), bytes.Equal(line, []byte("T*")):
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
		case bytes.Equal(line, []byte("ET")):
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
		}
	}
	return cleanStreamText(sb.String())
}

// decodePDFString handles PDF literal string escapes.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b', 'f':
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			val := int(raw[i] - '0')
			for k := 0; k < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; k++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}

// cleanStreamText drops unprintable runes and collapses runs of blank lines.
func cleanStreamText(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, ln := range lines {
		ln = strings.Map(func(r rune) rune {
			if unicode.IsPrint(r) || r == '\t' {
				return r
			}
			return -1
		}, ln)
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		out = append(out, ln)
	}
	return strings.Join(out, "\n")
}
