package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
)

type fakeRunner struct {
	calls [][]string
	run   func(name string, args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.run(name, args)
}

func TestPopplerTextLayer_SplitsOnFormFeed(t *testing.T) {
	runner := &fakeRunner{run: func(string, []string) ([]byte, []byte, error) {
		return []byte("Page one text\fPage   two\ttext\f"), nil, nil
	}}
	layer := &popplerTextLayer{bin: "pdftotext", runner: runner}

	pages, err := layer.PageTexts(context.Background(), pdfBytes)
	if err != nil {
		t.Fatalf("PageTexts: %v", err)
	}
	if len(pages) != 2 || pages[0] != "Page one text" || pages[1] != "Page two text" {
		t.Errorf("pages = %q", pages)
	}
	args := strings.Join(runner.calls[0], " ")
	if !strings.Contains(args, "-layout -enc UTF-8") || !strings.HasSuffix(args, " -") {
		t.Errorf("args = %s", args)
	}
}

func TestPopplerTextLayer_KeepsTrailingBlankPages(t *testing.T) {
	body := strings.Repeat("Status certificate text. ", 6)
	runner := &fakeRunner{run: func(string, []string) ([]byte, []byte, error) {
		return []byte(body + "\f\f\f"), nil, nil
	}}
	layer := &popplerTextLayer{bin: "pdftotext", runner: runner}

	pages, err := layer.PageTexts(context.Background(), pdfBytes)
	if err != nil {
		t.Fatalf("PageTexts: %v", err)
	}
	if len(pages) != 3 || pages[1] != "" || pages[2] != "" {
		t.Fatalf("pages = %q, want 3 with two blank", pages)
	}

	e := newTestExtractor(layer, &fakeRasterizer{}, &engineRecorder{})
	res, err := e.Acquire(context.Background(), pdfBytes, "application/pdf")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if res.PageCount != 3 || res.TotalPages != 3 || res.UsedOCR {
		t.Errorf("res = %+v", res)
	}
}

func TestPopplerTextLayer_Error(t *testing.T) {
	runner := &fakeRunner{run: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("Syntax Error: Couldn't find trailer dictionary"), errors.New("exit status 1")
	}}
	layer := &popplerTextLayer{bin: "pdftotext", runner: runner}
	if _, err := layer.PageTexts(context.Background(), pdfBytes); err == nil || !strings.Contains(err.Error(), "trailer") {
		t.Fatalf("err = %v", err)
	}
}

func TestChainTextLayer(t *testing.T) {
	boom := fakeTextLayer{err: errors.New("boom")}
	blank := fakeTextLayer{pages: []string{""}}
	good := fakeTextLayer{pages: []string{"text"}}

	tests := []struct {
		name    string
		chain   chainTextLayer
		want    string
		wantErr bool
	}{
		{"first error falls through", chainTextLayer{boom, good}, "text", false},
		{"blank falls through", chainTextLayer{blank, good}, "text", false},
		{"blank beats error", chainTextLayer{blank, boom}, "", false},
		{"all errors", chainTextLayer{boom, boom}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, err := tt.chain.PageTexts(context.Background(), nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if strings.Join(pages, "") != tt.want {
				t.Errorf("pages = %q, want %q", pages, tt.want)
			}
		})
	}
}

func TestPopplerRasterizer(t *testing.T) {
	runner := &fakeRunner{run: func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdfinfo":
			return []byte("Title: cert\nPages:          3\nEncrypted: no\n"), nil, nil
		case "pdftoppm":
			prefix := args[len(args)-1]
			return nil, nil, os.WriteFile(prefix+".png", []byte("png:"+args[1]), 0o600)
		}
		return nil, nil, fmt.Errorf("unexpected command %s", name)
	}}
	rz := &popplerRasterizer{
		pdftoppm: "pdftoppm",
		pdfinfo:  "pdfinfo",
		dpi:      144,
		runner:   runner,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	raster, err := rz.Open(context.Background(), pdfBytes)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if raster.PageCount() != 3 {
		t.Errorf("PageCount = %d, want 3", raster.PageCount())
	}

	img, err := raster.Render(context.Background(), 2)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(img) != "png:2" {
		t.Errorf("img = %q", img)
	}
	last := strings.Join(runner.calls[len(runner.calls)-1], " ")
	if !strings.Contains(last, "-f 2 -l 2 -r 144 -png -singlefile") {
		t.Errorf("pdftoppm args = %s", last)
	}

	dir := raster.(*popplerRaster).dir
	if err := raster.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("temp dir still present: %v", err)
	}
}

func TestParsePdfinfoPages(t *testing.T) {
	if got := parsePdfinfoPages([]byte("Producer: x\nPages: 12\n")); got != 12 {
		t.Errorf("got %d, want 12", got)
	}
	if got := parsePdfinfoPages([]byte("garbage")); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestExtractTextFromStream(t *testing.T) {
	stream := []byte(strings.Join([]string{
		"BT",
		"/F1 12 Tf",
		"72 720 Td",
		"(Status Certificate) Tj",
		"0 -14 Td",
		"[(Reserve ) -120 (Fund) ] TJ",
		"T*",
		`(Balance \(2024\): $1,250,000) Tj`,
		"ET",
	}, "\n"))
	got := extractTextFromStream(stream)
	want := "Status Certificate\nReserve Fund\nBalance (2024): $1,250,000"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecodePDFString(t *testing.T) {
	tests := map[string]string{
		`plain`:          "plain",
		`a\040b`:         "a b",
		`tab\there`:      "tab\there",
		`paren \( \)`:    "paren ( )",
		`back\\slash`:    `back\slash`,
		`\101\102\103`:   "ABC",
		`unknown \q esc`: "unknown q esc",
	}
	for in, want := range tests {
		if got := decodePDFString([]byte(in)); got != want {
			t.Errorf("decodePDFString(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPdfcpuTextLayer(t *testing.T) {
	data := buildTextPDF("Reserve Fund Study dated November 27, 2018", "Insurance deductible $25,000")
	pages, err := pdfcpuTextLayer{}.PageTexts(context.Background(), data)
	if err != nil {
		t.Skipf("pdfcpu could not read the minimal PDF: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	if !strings.Contains(pages[1], "Insurance deductible") {
		t.Logf("page 2 text: %q", pages[1])
		t.Log("note: pdfcpu may not extract text from minimal PDFs")
	}
}

// buildTextPDF writes a minimal PDF with one Helvetica text line per page.
func buildTextPDF(lines ...string) []byte {
	var b strings.Builder
	n := len(lines)
	// objects: 1 catalog, 2 pages, 3 font, then (page, content) pairs
	total := 3 + 2*n
	offsets := make([]int, total+1)

	b.WriteString("%PDF-1.4\n")
	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := make([]string, n)
	for i := range lines {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	offsets[2] = b.Len()
	fmt.Fprintf(&b, "2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), n)

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	for i, line := range lines {
		pageObj, contentObj := 4+2*i, 5+2*i
		escaped := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(line)
		stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + escaped + ") Tj\nET"

		offsets[pageObj] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 3 0 R >> >> >>\nendobj\n", pageObj, contentObj)
		offsets[contentObj] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", contentObj, len(stream), stream)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", total+1)
	for i := 1; i <= total; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", total+1, xref)
	return []byte(b.String())
}
