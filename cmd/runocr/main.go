package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/statuscert/constants"
	"github.com/joseph-ayodele/statuscert/internal/common"
	"github.com/joseph-ayodele/statuscert/internal/ocr"
	"github.com/joseph-ayodele/statuscert/internal/pipeline"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	dump := flag.Bool("dump", false, "print the page-marked text to stdout")
	flag.Parse()
	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "runocr [-dump] <file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}
	mediaType := constants.DetectMediaType(constants.MediaTypeForExt(filepath.Ext(path)), data)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	x := ocr.NewExtractor(pipeline.OCRConfig(cfg.OCR), logger)
	res, err := x.Acquire(ctx, data, mediaType)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err)
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		"method", res.Method,
		"pages", res.PageCount,
		"total_pages", res.TotalPages,
		"used_ocr", res.UsedOCR,
		"chars", len(res.Text()),
		"duration_ms", res.Duration.Milliseconds(),
	)
	if *dump {
		text, _ := pipeline.BuildDocumentText(res.Pages, 0)
		fmt.Println(text)
	}
}
