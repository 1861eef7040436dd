package async

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ashwini-cargo/internal/entity"
	"github.com/joseph-ayodele/ashwini-cargo/internal/pipeline"
)

// Job is one scan already recorded as QUEUED, waiting for a worker.
type Job struct {
	ScanID      uuid.UUID
	Input       pipeline.ScanInput
	SubmittedAt time.Time
	RequestID   string
}

// Processor runs a queued scan to completion.
type Processor interface {
	Process(ctx context.Context, scanID uuid.UUID, in pipeline.ScanInput) (*entity.Scan, error)
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
