package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/jobs"
)

const snapshotJobType = "snapshot.apply"

type snapshotSink interface {
	Apply(ctx context.Context, delta models.SnapshotDelta) error
}

// SnapshotOutbox defers snapshot persistence to a single background worker. Deltas for the
// same half-year are coalesced, so a queued job always writes the latest collections and an
// older version never overwrites a newer one.
type SnapshotOutbox struct {
	sink    snapshotSink
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[models.HalfYear]models.SnapshotDelta
}

// NewSnapshotOutbox wires the outbox queue to sink.
func NewSnapshotOutbox(sink snapshotSink, cfg config.OutboxConfig, metrics *MetricsService, logger *zap.Logger) *SnapshotOutbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &SnapshotOutbox{
		sink:    sink,
		metrics: metrics,
		logger:  logger,
		pending: make(map[models.HalfYear]models.SnapshotDelta),
	}
	o.queue = jobs.NewQueue("snapshot-outbox", o.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Backoff:    true,
		OnDiscard:  o.discard,
		Logger:     logger,
	})
	return o
}

// Start launches the worker.
func (o *SnapshotOutbox) Start(ctx context.Context) { o.queue.Start(ctx) }

// Stop halts the worker. Pending deltas stay in memory until the next Flush.
func (o *SnapshotOutbox) Stop() { o.queue.Stop() }

// Apply enqueues delta for persistence.
func (o *SnapshotOutbox) Apply(ctx context.Context, delta models.SnapshotDelta) error {
	if delta.Empty() {
		return nil
	}
	o.mu.Lock()
	if existing, ok := o.pending[delta.HalfYear]; ok {
		delta = existing.Merge(delta)
	}
	o.pending[delta.HalfYear] = delta
	o.reportPending()
	o.mu.Unlock()

	if err := o.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: snapshotJobType, Payload: delta.HalfYear}); err != nil {
		return fmt.Errorf("enqueue snapshot delta: %w", err)
	}
	return nil
}

// Flush waits until every queued delta has been written or discarded.
func (o *SnapshotOutbox) Flush(ctx context.Context) error {
	return o.queue.Drain(ctx)
}

// Pending returns the number of half-years with unwritten changes.
func (o *SnapshotOutbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

func (o *SnapshotOutbox) handle(ctx context.Context, job jobs.Job) error {
	hy, ok := job.Payload.(models.HalfYear)
	if !ok {
		return nil
	}
	o.mu.Lock()
	delta, ok := o.pending[hy]
	delete(o.pending, hy)
	o.mu.Unlock()
	if !ok {
		// an earlier job already wrote the coalesced delta
		return nil
	}

	if err := o.sink.Apply(ctx, delta); err != nil {
		o.mu.Lock()
		if newer, exists := o.pending[hy]; exists {
			delta = delta.Merge(newer)
		}
		o.pending[hy] = delta
		o.mu.Unlock()
		return err
	}

	o.mu.Lock()
	o.reportPending()
	o.mu.Unlock()
	o.logger.Debug("snapshot persisted", zap.String("half_year", string(hy)), zap.Int64("version", delta.Version))
	return nil
}

func (o *SnapshotOutbox) discard(job jobs.Job, err error) {
	o.logger.Error("snapshot delta kept in memory after retries", zap.Any("half_year", job.Payload), zap.Error(err))
}

// reportPending must be called with o.mu held.
func (o *SnapshotOutbox) reportPending() {
	if o.metrics != nil {
		o.metrics.SetOutboxPending(len(o.pending))
	}
}
