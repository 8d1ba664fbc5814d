package service_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/clemoseitano/open-inventory-api/internal/models"
	"github.com/clemoseitano/open-inventory-api/internal/store"
)

// Func-field mocks: tests set only the functions they need.

type mockMembers struct {
	resolveFunc func(ctx context.Context, userID int64, tenantSlug string) (*models.Member, *models.Tenant, error)
}

func (m *mockMembers) ResolveMember(ctx context.Context, userID int64, tenantSlug string) (*models.Member, *models.Tenant, error) {
	return m.resolveFunc(ctx, userID, tenantSlug)
}

type mockJournal struct {
	applyFunc   func(ctx context.Context, tenantID, memberID int64, actions []models.Action) (store.BatchResult, error)
	entriesFunc func(ctx context.Context, tenantID int64, since *time.Time, excludeMemberID int64) ([]models.JournalEntry, error)
	latestFunc  func(ctx context.Context, tenantID int64) (time.Time, error)
	purgeFunc   func(ctx context.Context, retention time.Duration) (int64, error)
	rebuildFunc func(ctx context.Context, tenantID int64) (int, error)
}

func (m *mockJournal) ApplyBatch(ctx context.Context, tenantID, memberID int64, actions []models.Action) (store.BatchResult, error) {
	return m.applyFunc(ctx, tenantID, memberID, actions)
}

func (m *mockJournal) EntriesSince(ctx context.Context, tenantID int64, since *time.Time, excludeMemberID int64) ([]models.JournalEntry, error) {
	return m.entriesFunc(ctx, tenantID, since, excludeMemberID)
}

func (m *mockJournal) LatestTimestamp(ctx context.Context, tenantID int64) (time.Time, error) {
	return m.latestFunc(ctx, tenantID)
}

func (m *mockJournal) PurgeOld(ctx context.Context, retention time.Duration) (int64, error) {
	return m.purgeFunc(ctx, retention)
}

func (m *mockJournal) RebuildSnapshot(ctx context.Context, tenantID int64) (int, error) {
	return m.rebuildFunc(ctx, tenantID)
}

type mockSnapshots struct {
	exportFunc func(ctx context.Context, tenant *models.Tenant, cursor time.Time) (*models.SnapshotExport, error)
}

func (m *mockSnapshots) Export(ctx context.Context, tenant *models.Tenant, cursor time.Time) (*models.SnapshotExport, error) {
	return m.exportFunc(ctx, tenant, cursor)
}

type mockPushLog struct {
	mu       sync.Mutex
	recorded []json.RawMessage

	recordFunc func(ctx context.Context, tenantID, memberID int64, batch json.RawMessage) error
	queryFunc  func(ctx context.Context, tenantID int64, opts models.PushLogQueryOpts) ([]models.PushLogEntry, error)
	purgeFunc  func(ctx context.Context, retention time.Duration) (int64, error)
}

func (m *mockPushLog) RecordBatch(ctx context.Context, tenantID, memberID int64, batch json.RawMessage) error {
	if m.recordFunc != nil {
		return m.recordFunc(ctx, tenantID, memberID, batch)
	}

	m.mu.Lock()
	m.recorded = append(m.recorded, batch)
	m.mu.Unlock()

	return nil
}

func (m *mockPushLog) recordedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.recorded)
}

func (m *mockPushLog) Query(ctx context.Context, tenantID int64, opts models.PushLogQueryOpts) ([]models.PushLogEntry, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, tenantID, opts)
	}

	return nil, nil
}

func (m *mockPushLog) PurgeOld(ctx context.Context, retention time.Duration) (int64, error) {
	if m.purgeFunc != nil {
		return m.purgeFunc(ctx, retention)
	}

	return 0, nil
}

type mockNotifier struct {
	mu       sync.Mutex
	appended []string
	events   []string
}

func (m *mockNotifier) NotifyAppended(tenant string, _ int64, _ int) {
	m.mu.Lock()
	m.appended = append(m.appended, tenant)
	m.mu.Unlock()
}

func (m *mockNotifier) BroadcastEvent(eventType, _ string, _ json.RawMessage) {
	m.mu.Lock()
	m.events = append(m.events, eventType)
	m.mu.Unlock()
}

func (m *mockNotifier) appendedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.appended)
}

// resolveOK returns a resolver that always succeeds with fixed IDs.
func resolveOK(memberID, tenantID int64, slug, role string) *mockMembers {
	return &mockMembers{
		resolveFunc: func(_ context.Context, _ int64, requested string) (*models.Member, *models.Tenant, error) {
			if requested != slug {
				return nil, nil, models.ErrAccessDenied
			}

			return &models.Member{ID: memberID, TenantID: tenantID, Role: role},
				&models.Tenant{ID: tenantID, Slug: slug, Name: "Test"}, nil
		},
	}
}
