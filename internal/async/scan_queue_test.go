package async

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ashwini-cargo/constants"
	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
	"github.com/joseph-ayodele/ashwini-cargo/internal/entity"
	"github.com/joseph-ayodele/ashwini-cargo/internal/pipeline"
)

type recordingProcessor struct {
	mu        sync.Mutex
	seen      []uuid.UUID
	requestID []string
	release   chan struct{}
}

func (p *recordingProcessor) Process(ctx context.Context, id uuid.UUID, _ pipeline.ScanInput) (*entity.Scan, error) {
	if p.release != nil {
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, id)
	p.requestID = append(p.requestID, common.RequestIDFromContext(ctx))
	return &entity.Scan{ID: id, Status: constants.ScanStatusParsed}, nil
}

func (p *recordingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestScanQueue_ProcessesAndDrains(t *testing.T) {
	proc := &recordingProcessor{}
	q := NewScanQueue(proc, quietLogger(), WithWorkers(3), WithQueueSize(10))

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{ScanID: uuid.New(), RequestID: "req-1"}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.Equal(t, 10, proc.count())
	for _, rid := range proc.requestID {
		assert.Equal(t, "req-1", rid)
	}
}

func TestScanQueue_RejectsAfterShutdown(t *testing.T) {
	q := NewScanQueue(&recordingProcessor{}, quietLogger())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{ScanID: uuid.New()})
	require.ErrorIs(t, err, common.ErrQueueClosed)
	assert.Equal(t, common.CodeUnavailable, common.ErrorCode(err))

	// second shutdown is a no-op
	q.Shutdown(context.Background())
}

func TestScanQueue_FullQueueHonoursContext(t *testing.T) {
	proc := &recordingProcessor{release: make(chan struct{})}
	q := NewScanQueue(proc, quietLogger(), WithWorkers(1), WithQueueSize(1))

	// one job held by the worker, one buffered
	require.NoError(t, q.Enqueue(context.Background(), Job{ScanID: uuid.New()}))
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{ScanID: uuid.New()}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{ScanID: uuid.New()})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(proc.release)
	q.Shutdown(context.Background())
	assert.Equal(t, 2, proc.count())
}

func TestScanQueue_ShutdownReleasesBlockedEnqueue(t *testing.T) {
	proc := &recordingProcessor{release: make(chan struct{})}
	q := NewScanQueue(proc, quietLogger(), WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{ScanID: uuid.New()}))
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{ScanID: uuid.New()}))

	// no deadline: only Shutdown can unblock this send
	blocked := make(chan error, 1)
	go func() { blocked <- q.Enqueue(context.Background(), Job{ScanID: uuid.New()}) }()
	time.Sleep(50 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		q.Shutdown(context.Background())
	}()

	select {
	case err := <-blocked:
		assert.ErrorIs(t, err, common.ErrQueueClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue stayed blocked after shutdown began")
	}

	close(proc.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not finish")
	}
	assert.Equal(t, 2, proc.count())
}
