package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/statuscert/constants"
	"github.com/joseph-ayodele/statuscert/internal/common"
	"github.com/joseph-ayodele/statuscert/internal/entity"
	"github.com/joseph-ayodele/statuscert/internal/pipeline"
)

func main() {
	var (
		property = flag.String("property", "", "opaque property reference attached to the logs")
		timeout  = flag.Duration("timeout", 3*time.Minute, "analysis timeout")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: analyze [-property ref] [-timeout d] [-v] <file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	// stdout carries the report
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}
	doc := entity.Document{
		Name:        filepath.Base(path),
		MediaType:   constants.DetectMediaType(constants.MediaTypeForExt(filepath.Ext(path)), data),
		PropertyRef: *property,
		Data:        data,
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = common.WithPropertyRef(ctx, *property)

	res, err := pipeline.NewFromConfig(cfg, logger).Analyze(ctx, doc)
	if err != nil {
		logger.Error("analysis failed", "code", common.CodeOf(err), "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Error("write report", "error", err)
		os.Exit(1)
	}
	if res.Degraded() {
		os.Exit(3)
	}
}
