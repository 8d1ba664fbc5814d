package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clemoseitano/open-inventory-api/internal/metrics"
	"github.com/clemoseitano/open-inventory-api/internal/models"
	"github.com/clemoseitano/open-inventory-api/internal/store"
)

// SyncService orchestrates push, pull and snapshot download for a tenant.
type SyncService struct {
	members   MembershipRepository
	journal   JournalRepository
	snapshots SnapshotRepository
	pushLog   *PushLogWorker
	notifier  Notifier
	log       *logrus.Logger
}

// NewSyncService creates a SyncService. pushLog and notifier may be nil,
// which disables the push log and change notifications respectively.
func NewSyncService(
	members MembershipRepository,
	journal JournalRepository,
	snapshots SnapshotRepository,
	pushLog *PushLogWorker,
	notifier Notifier,
	log *logrus.Logger,
) *SyncService {
	return &SyncService{
		members:   members,
		journal:   journal,
		snapshots: snapshots,
		pushLog:   pushLog,
		notifier:  notifier,
		log:       log,
	}
}

// Push validates and applies one batch of client actions. The batch is
// rejected whole on any invalid action (returned as models.ValidationErrors);
// otherwise it is journaled and materialized atomically. Duplicate action IDs
// are counted but have no effect.
func (s *SyncService) Push(ctx context.Context, userID int64, req *models.PushRequest, raw json.RawMessage) (store.BatchResult, error) {
	member, tenant, err := s.members.ResolveMember(ctx, userID, req.Tenant)
	if err != nil {
		return store.BatchResult{}, err
	}

	// Audit the raw batch as received, before any validity judgement: a
	// rejected batch is exactly the one an operator will want to inspect.
	if s.pushLog != nil {
		s.pushLog.Enqueue(&PushLogJob{TenantID: tenant.ID, MemberID: member.ID, Batch: raw})
	}

	if errs := models.ValidateBatch(req.Actions); len(errs) > 0 {
		metrics.ErrorsTotal.WithLabelValues("validation").Inc()

		return store.BatchResult{}, errs
	}

	// An empty batch is a valid no-op: audited above, nothing to journal.
	if len(req.Actions) == 0 {
		return store.BatchResult{}, nil
	}

	result, err := s.journal.ApplyBatch(ctx, tenant.ID, member.ID, req.Actions)
	if err != nil {
		return result, err
	}

	metrics.PushBatches.Inc()
	metrics.ActionsDeduplicated.Add(float64(result.Deduplicated))
	for kind, n := range result.AppliedKinds {
		metrics.ActionsApplied.WithLabelValues(string(kind)).Add(float64(n))
	}

	// Notify after commit so peers pulling on the signal always see the batch.
	if s.notifier != nil && result.Applied > 0 {
		s.notifier.NotifyAppended(tenant.Slug, member.ID, result.Applied)
	}

	s.log.WithFields(logrus.Fields{
		"tenant":  tenant.Slug,
		"member":  member.ID,
		"applied": result.Applied,
		"deduped": result.Deduplicated,
	}).Info("sync.push")

	return result, nil
}

// Pull returns journal entries for the caller's tenant newer than since,
// excluding the caller's own writes. Returns models.ErrStaleCursor when the
// watermark predates the retained window.
func (s *SyncService) Pull(ctx context.Context, userID int64, tenantSlug string, since *time.Time) ([]models.JournalEntry, error) {
	member, tenant, err := s.members.ResolveMember(ctx, userID, tenantSlug)
	if err != nil {
		return nil, err
	}

	entries, err := s.journal.EntriesSince(ctx, tenant.ID, since, member.ID)
	if err != nil {
		if errors.Is(err, models.ErrStaleCursor) {
			metrics.FullResyncs.Inc()
		}

		return nil, err
	}

	metrics.Pulls.Inc()

	return entries, nil
}

// Download exports the caller's full tenant snapshot with an embedded cursor.
// The cursor is resolved before reading so a concurrent push can only make
// the export newer than the cursor claims, never older.
func (s *SyncService) Download(ctx context.Context, userID int64, tenantSlug string) (*models.SnapshotExport, error) {
	_, tenant, err := s.members.ResolveMember(ctx, userID, tenantSlug)
	if err != nil {
		return nil, err
	}

	cursor, err := s.journal.LatestTimestamp(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}

	export, err := s.snapshots.Export(ctx, tenant, cursor)
	if err != nil {
		return nil, err
	}

	metrics.SnapshotDownloads.Inc()

	return export, nil
}

// PushHistory returns recent raw push batches for the caller's tenant.
// Restricted to tenant admins; staff members get ErrAccessDenied.
func (s *SyncService) PushHistory(ctx context.Context, userID int64, tenantSlug string, opts models.PushLogQueryOpts) ([]models.PushLogEntry, error) {
	member, tenant, err := s.members.ResolveMember(ctx, userID, tenantSlug)
	if err != nil {
		return nil, err
	}

	if member.Role != models.RoleAdmin {
		return nil, models.ErrAccessDenied
	}

	if s.pushLog == nil {
		return []models.PushLogEntry{}, nil
	}

	return s.pushLog.store.Query(ctx, tenant.ID, opts)
}
