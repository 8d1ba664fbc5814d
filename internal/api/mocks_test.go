package api_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/clemoseitano/open-inventory-api/internal/models"
	"github.com/clemoseitano/open-inventory-api/internal/store"
)

type mockSyncService struct {
	pushFn     func(ctx context.Context, userID int64, req *models.PushRequest, raw json.RawMessage) (store.BatchResult, error)
	pullFn     func(ctx context.Context, userID int64, tenantSlug string, since *time.Time) ([]models.JournalEntry, error)
	downloadFn func(ctx context.Context, userID int64, tenantSlug string) (*models.SnapshotExport, error)
	historyFn  func(ctx context.Context, userID int64, tenantSlug string, opts models.PushLogQueryOpts) ([]models.PushLogEntry, error)
}

func (m *mockSyncService) Push(ctx context.Context, userID int64, req *models.PushRequest, raw json.RawMessage) (store.BatchResult, error) {
	return m.pushFn(ctx, userID, req, raw)
}

func (m *mockSyncService) Pull(ctx context.Context, userID int64, tenantSlug string, since *time.Time) ([]models.JournalEntry, error) {
	return m.pullFn(ctx, userID, tenantSlug, since)
}

func (m *mockSyncService) Download(ctx context.Context, userID int64, tenantSlug string) (*models.SnapshotExport, error) {
	return m.downloadFn(ctx, userID, tenantSlug)
}

func (m *mockSyncService) PushHistory(ctx context.Context, userID int64, tenantSlug string, opts models.PushLogQueryOpts) ([]models.PushLogEntry, error) {
	return m.historyFn(ctx, userID, tenantSlug, opts)
}

type mockAdminService struct {
	createTenantFn func(ctx context.Context, req models.CreateTenantRequest) (*models.Tenant, error)
	createMemberFn func(ctx context.Context, req models.CreateMemberRequest) (*models.CreateMemberResult, error)
	purgeFn        func(ctx context.Context) error
	rebuildFn      func(ctx context.Context, slug string) (int, error)
}

func (m *mockAdminService) CreateTenant(ctx context.Context, req models.CreateTenantRequest) (*models.Tenant, error) {
	return m.createTenantFn(ctx, req)
}

func (m *mockAdminService) CreateMember(ctx context.Context, req models.CreateMemberRequest) (*models.CreateMemberResult, error) {
	return m.createMemberFn(ctx, req)
}

func (m *mockAdminService) Purge(ctx context.Context) error {
	if m.purgeFn != nil {
		return m.purgeFn(ctx)
	}

	return nil
}

func (m *mockAdminService) RebuildSnapshot(ctx context.Context, slug string) (int, error) {
	return m.rebuildFn(ctx, slug)
}
