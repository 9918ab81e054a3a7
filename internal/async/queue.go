package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/statuscert/internal/entity"
)

// ErrQueueClosed is returned by Enqueue after Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document waiting for analysis.
type Job struct {
	ID          string
	Doc         entity.Document
	SubmittedAt time.Time
}

// Outcome is delivered to the result handler once per job.
type Outcome struct {
	Job     Job
	Result  entity.ExtractionResult
	Err     error
	Elapsed time.Duration
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
