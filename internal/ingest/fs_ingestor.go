package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/statuscert/constants"
	"github.com/joseph-ayodele/statuscert/internal/entity"
)

// ErrTooLarge is returned for files above the configured size cap.
var ErrTooLarge = errors.New("file exceeds size limit")

// FSIngestor reads certificates from the local filesystem. Content hashes are
// remembered for the lifetime of the ingestor so repeated files are flagged.
type FSIngestor struct {
	MaxBytes    int64 // 0 means no limit
	PropertyRef string
	logger      *slog.Logger

	mu   sync.Mutex
	seen map[string]string // hash -> first path
}

var _ Ingestor = (*FSIngestor)(nil)

func NewFSIngestor(maxBytes int64, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{MaxBytes: maxBytes, logger: logger, seen: map[string]string{}}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return File{}, fmt.Errorf("abs path: %w", err)
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return File{}, fmt.Errorf("unsupported or missing extension %q", ext)
	}

	f, err := os.Open(abs)
	if err != nil {
		return File{}, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			i.logger.Warn("ingest.close.failed", "path", abs, "error", cerr)
		}
	}()

	var r io.Reader = f
	if i.MaxBytes > 0 {
		r = io.LimitReader(f, i.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("read: %w", err)
	}
	if i.MaxBytes > 0 && int64(len(data)) > i.MaxBytes {
		return File{}, fmt.Errorf("%w (%d bytes)", ErrTooLarge, i.MaxBytes)
	}

	sum := sha256.Sum256(data)
	hashHex := hex.EncodeToString(sum[:])

	i.mu.Lock()
	first, dedup := i.seen[hashHex]
	if !dedup {
		i.seen[hashHex] = abs
	}
	i.mu.Unlock()
	if dedup {
		i.logger.Info("ingest.duplicate", "path", abs, "first", first)
	}

	return File{
		Path:         abs,
		HashHex:      hashHex,
		Deduplicated: dedup,
		Doc: entity.Document{
			Name:        filepath.Base(abs),
			MediaType:   constants.DetectMediaType(constants.MediaTypeForExt(ext), data),
			PropertyRef: i.PropertyRef,
			Data:        data,
		},
	}, nil
}

// IngestDirectory walks root, skips hidden entries if requested and calls fn
// for every loaded file that is not a duplicate. An error from fn stops the walk.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool, fn func(File) error) ([]Failure, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var failures []Failure
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			failures = append(failures, Failure{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) || IsReportPath(path) {
			return nil
		}
		stats.Matched++

		f, err := i.IngestPath(ctx, path)
		if err != nil {
			failures = append(failures, Failure{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		stats.Succeeded++
		if f.Deduplicated {
			stats.Deduplicated++
			return nil
		}
		return fn(f)
	})

	if err != nil {
		return failures, stats, fmt.Errorf("walk: %w", err)
	}
	return failures, stats, nil
}

// ReportSuffix is appended to a source path to name its JSON report.
const ReportSuffix = ".report.json"

// ReportPath returns where the JSON report for path is written.
func ReportPath(path string) string { return path + ReportSuffix }

// IsReportPath reports whether path is a generated report.
func IsReportPath(path string) bool { return strings.HasSuffix(path, ReportSuffix) }
