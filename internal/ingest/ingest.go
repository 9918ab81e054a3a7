package ingest

import (
	"context"

	"github.com/joseph-ayodele/statuscert/internal/entity"
)

// File is one certificate read from disk.
type File struct {
	Path         string
	HashHex      string
	Deduplicated bool // same content already seen in this run
	Doc          entity.Document
}

// Failure records a path that could not be loaded.
type Failure struct {
	Path string
	Err  string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the batch command depends on.
type Ingestor interface {
	// IngestPath loads a single path.
	IngestPath(ctx context.Context, path string) (File, error)
	// IngestDirectory loads all matching files under root and hands each to fn.
	IngestDirectory(ctx context.Context, root string, skipHidden bool, fn func(File) error) ([]Failure, DirStats, error)
}
