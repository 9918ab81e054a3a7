package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/joseph-ayodele/statuscert/internal/async"
	"github.com/joseph-ayodele/statuscert/internal/common"
	"github.com/joseph-ayodele/statuscert/internal/export"
	"github.com/joseph-ayodele/statuscert/internal/ingest"
	"github.com/joseph-ayodele/statuscert/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

// collector gathers outcomes from the worker pool and writes per-file reports.
type collector struct {
	mu      sync.Mutex
	reports []export.Report
	paths   map[string]string // job id -> source path
	failed  int
	logger  *slog.Logger
}

func (c *collector) track(jobID, path string) {
	c.mu.Lock()
	c.paths[jobID] = path
	c.mu.Unlock()
}

func (c *collector) handle(o async.Outcome) {
	c.mu.Lock()
	path := c.paths[o.Job.ID]
	c.mu.Unlock()

	rep := export.Report{File: path, PropertyRef: o.Job.Doc.PropertyRef, Err: o.Err}
	if o.Err == nil {
		res := o.Result
		rep.Result = &res
		if err := writeReport(ingest.ReportPath(path), &res); err != nil {
			c.logger.Error("write report", "path", path, "error", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if o.Err != nil {
		c.failed++
	}
	c.reports = append(c.reports, rep)
}

func writeReport(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func main() {
	var (
		dir      = flag.String("dir", "", "directory of status certificates (required)")
		out      = flag.String("out", "", "output XLSX file path (optional, defaults to <dir>/status-certificates.xlsx)")
		workers  = flag.Int("workers", 2, "concurrent analyses")
		timeout  = flag.Duration("timeout", 3*time.Minute, "per-document analysis timeout")
		watch    = flag.Bool("watch", false, "keep running and analyze files added to -dir")
		property = flag.String("property", "", "property reference recorded on every report")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(*dir, "status-certificates.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc := pipeline.NewFromConfig(cfg, logger)
	col := &collector{paths: map[string]string{}, logger: logger}
	queue := async.NewAnalysisQueue(proc, col.handle, logger,
		async.WithWorkers(*workers),
		async.WithQueueSize(*workers*2),
		async.WithProcessTimeout(*timeout),
	)

	ing := ingest.NewFSIngestor(cfg.Server.MaxUploadBytes(), logger)
	ing.PropertyRef = *property
	enqueue := func(f ingest.File) error {
		job := async.Job{ID: f.HashHex[:16] + "-" + f.Doc.Name, Doc: f.Doc}
		col.track(job.ID, f.Path)
		return queue.Enqueue(ctx, job)
	}

	logger.Info("starting batch", "dir", *dir, "workers", *workers, "watch", *watch)
	failures, stats, err := ing.IngestDirectory(ctx, *dir, true, enqueue)
	if err != nil {
		logger.Error("scan directory", "error", err)
	}
	for _, f := range failures {
		logger.Warn("skipped file", "path", f.Path, "error", f.Err)
	}
	logger.Info("scan complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed)

	if *watch && err == nil {
		runWatch(ctx, *dir, ing, enqueue, logger)
	}

	// drain without the signal context so in-flight work can finish
	drainCtx, cancel := context.WithTimeout(context.Background(), *timeout)
	queue.Shutdown(drainCtx)
	cancel()

	col.mu.Lock()
	reports := append([]export.Report(nil), col.reports...)
	failed := col.failed
	col.mu.Unlock()
	sort.Slice(reports, func(i, j int) bool { return reports[i].File < reports[j].File })

	xlsxBytes, err := export.NewService(logger).ReportsXLSX(context.Background(), reports)
	if err != nil {
		logger.Error("failed to export reports", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"files_analyzed", len(reports)-failed,
		"failures", failed,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files analyzed: %d\n", len(reports)-failed)
	fmt.Printf("- Failures: %d\n", failed)
	fmt.Printf("- Output: %s\n", *out)
}

// runWatch analyzes files dropped into dir until ctx is canceled.
func runWatch(ctx context.Context, dir string, ing *ingest.FSIngestor, enqueue func(ingest.File) error, logger *slog.Logger) {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:      []string{dir},
		SkipHidden: true,
		Debounce:   500 * time.Millisecond,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("start watcher", "error", err)
		return
	}
	logger.Info("watching for new certificates", "dir", dir)
	for {
		select {
		case path, ok := <-events:
			if !ok {
				return
			}
			f, err := ing.IngestPath(ctx, path)
			if err != nil {
				logger.Warn("skipped file", "path", path, "error", err)
				continue
			}
			if f.Deduplicated {
				continue
			}
			if err := enqueue(f); err != nil {
				logger.Error("enqueue", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watcher", "error", err)
		case <-ctx.Done():
			return
		}
	}
}
