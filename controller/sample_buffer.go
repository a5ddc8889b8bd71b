package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"motion-logger/models"
	"motion-logger/utils"
)

// DefaultBatchSize caps the number of samples converted per flush.
const DefaultBatchSize = 1000

// DefaultFlushInterval is the period of the background flush.
const DefaultFlushInterval = time.Second

// RowSink receives flushed batches. views.RecordWriter satisfies it.
type RowSink interface {
	Append(rows []models.Row) error
}

// queuedSample pairs a sample with the activity that was current when it arrived.
type queuedSample struct {
	sample   models.Sample
	activity string
}

// SampleBuffer sits between sensor callbacks and the recording file.
//
// Producers call Enqueue from any goroutine without locking. A single
// consumer (the periodic flush, or the final drain on stop) turns queued
// samples into rows using the last known value of every channel and hands
// each batch to the sink in one Append call.
type SampleBuffer struct {
	queue     *utils.Queue[queuedSample]
	sink      RowSink
	batchSize int

	flushMu sync.Mutex // single consumer
	state   *models.ChannelState
	batch   []models.Row

	enqueued atomic.Uint64
	written  atomic.Uint64
	dropped  atomic.Uint64

	log *utils.Logger
}

// NewSampleBuffer creates a buffer flushing into sink in batches of at
// most batchSize rows.
func NewSampleBuffer(sink RowSink, batchSize int, log *utils.Logger) *SampleBuffer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if log == nil {
		log = utils.L()
	}
	return &SampleBuffer{
		queue:     utils.NewQueue[queuedSample](),
		sink:      sink,
		batchSize: batchSize,
		state:     models.NewChannelState(),
		batch:     make([]models.Row, 0, batchSize),
		log:       log,
	}
}

// Enqueue records s with its activity label. It never blocks.
func (b *SampleBuffer) Enqueue(s models.Sample, activity string) {
	b.queue.Push(queuedSample{sample: s, activity: activity})
	b.enqueued.Add(1)
}

// Flush drains up to one batch and appends it to the sink. It returns the
// number of rows written. On a sink error the batch is dropped and the
// error returned; it is not retried.
func (b *SampleBuffer) Flush() (int, error) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.batch = b.batch[:0]
	for len(b.batch) < b.batchSize {
		q, ok := b.queue.Pop()
		if !ok {
			break
		}
		b.batch = append(b.batch, b.state.Apply(q.sample, q.activity))
	}
	if len(b.batch) == 0 {
		return 0, nil
	}

	if err := b.sink.Append(b.batch); err != nil {
		b.dropped.Add(uint64(len(b.batch)))
		b.log.Error("flush: dropped %d rows: %v", len(b.batch), err)
		return 0, err
	}
	b.written.Add(uint64(len(b.batch)))
	return len(b.batch), nil
}

// Drain flushes until the queue is empty and returns the first error seen.
func (b *SampleBuffer) Drain() error {
	var first error
	for {
		n, err := b.Flush()
		if err != nil && first == nil {
			first = err
		}
		if n == 0 && err == nil {
			return first
		}
	}
}

// Run flushes every interval until ctx is cancelled.
func (b *SampleBuffer) Run(ctx context.Context, clock utils.Clock, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if n, err := b.Flush(); err == nil && n > 0 {
				b.log.Debug("flushed %d rows (pending=%d)", n, b.queue.Len())
			}
		}
	}
}

// Pending returns the approximate number of samples not yet flushed.
func (b *SampleBuffer) Pending() int {
	return b.queue.Len()
}

// Stats returns enqueued, written and dropped sample counts.
func (b *SampleBuffer) Stats() (enqueued, written, dropped uint64) {
	return b.enqueued.Load(), b.written.Load(), b.dropped.Load()
}
