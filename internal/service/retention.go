package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clemoseitano/open-inventory-api/internal/metrics"
)

// RetentionWorker periodically purges journal entries and push log rows
// that have aged out of their retention windows.
type RetentionWorker struct {
	journal          JournalRepository
	pushLog          PushLogRepository
	log              *logrus.Logger
	interval         time.Duration
	journalRetention time.Duration
	pushLogRetention time.Duration
}

// NewRetentionWorker creates a RetentionWorker.
func NewRetentionWorker(
	journal JournalRepository,
	pushLog PushLogRepository,
	log *logrus.Logger,
	interval, journalRetention, pushLogRetention time.Duration,
) *RetentionWorker {
	return &RetentionWorker{
		journal:          journal,
		pushLog:          pushLog,
		log:              log,
		interval:         interval,
		journalRetention: journalRetention,
		pushLogRetention: pushLogRetention,
	}
}

// Run executes purge passes on the configured interval until ctx is
// cancelled. The first pass runs one interval after startup so a crash
// looping process does not hammer the purge query.
func (w *RetentionWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single purge pass over both tables. Failures are logged
// and retried on the next tick; rows left behind are purged then.
func (w *RetentionWorker) RunOnce(ctx context.Context) {
	journalRows, err := w.journal.PurgeOld(ctx, w.journalRetention)
	if err != nil {
		w.log.WithError(err).Error("journal purge failed")
	} else if journalRows > 0 {
		metrics.PurgedRows.WithLabelValues("sync_journal").Add(float64(journalRows))
		w.log.WithField("rows", journalRows).Info("purged journal entries")
	}

	pushLogRows, err := w.pushLog.PurgeOld(ctx, w.pushLogRetention)
	if err != nil {
		w.log.WithError(err).Error("push log purge failed")
	} else if pushLogRows > 0 {
		metrics.PurgedRows.WithLabelValues("sync_push_log").Add(float64(pushLogRows))
		w.log.WithField("rows", pushLogRows).Info("purged push log entries")
	}
}
