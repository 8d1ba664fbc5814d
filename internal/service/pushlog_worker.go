package service

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/clemoseitano/open-inventory-api/internal/metrics"
)

// PushLogJob is one raw batch waiting to be recorded.
type PushLogJob struct {
	TenantID int64
	MemberID int64
	Batch    json.RawMessage
}

// PushLogWorker buffers push log writes and records them via a single worker
// goroutine, keeping the diagnostics write off the push critical path.
type PushLogWorker struct {
	store PushLogRepository
	log   *logrus.Logger
	jobs  chan *PushLogJob
}

// NewPushLogWorker creates a PushLogWorker with the given queue capacity.
func NewPushLogWorker(store PushLogRepository, log *logrus.Logger, queueSize int) *PushLogWorker {
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &PushLogWorker{
		store: store,
		log:   log,
		jobs:  make(chan *PushLogJob, queueSize),
	}
}

// Enqueue adds a job. Non-blocking; drops the job if the queue is full,
// since the push log is diagnostics and must never stall or fail a push.
func (w *PushLogWorker) Enqueue(job *PushLogJob) {
	select {
	case w.jobs <- job:
		metrics.PushLogQueueDepth.Set(float64(len(w.jobs)))
	default:
		w.log.WithField("tenant_id", job.TenantID).Warn("push log queue full, dropping batch")
	}
}

// Run processes jobs until the context is cancelled, then drains remaining jobs.
func (w *PushLogWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case job := <-w.jobs:
			w.process(job)
		}
	}
}

func (w *PushLogWorker) drain() {
	for {
		select {
		case job := <-w.jobs:
			w.process(job)
		default:
			return
		}
	}
}

func (w *PushLogWorker) process(job *PushLogJob) {
	metrics.PushLogQueueDepth.Set(float64(len(w.jobs)))

	if err := w.store.RecordBatch(context.Background(), job.TenantID, job.MemberID, job.Batch); err != nil {
		w.log.WithError(err).Warn("push log record failed")
	}
}
