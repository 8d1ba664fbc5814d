// Package service implements the sync protocol on top of the store layer:
// membership checks, batch validation, metrics, and change notification.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/clemoseitano/open-inventory-api/internal/models"
	"github.com/clemoseitano/open-inventory-api/internal/store"
)

// MembershipRepository resolves authenticated users to tenant members.
type MembershipRepository interface {
	ResolveMember(ctx context.Context, userID int64, tenantSlug string) (*models.Member, *models.Tenant, error)
}

// JournalRepository is the journal access the sync service depends on.
type JournalRepository interface {
	ApplyBatch(ctx context.Context, tenantID, memberID int64, actions []models.Action) (store.BatchResult, error)
	EntriesSince(ctx context.Context, tenantID int64, since *time.Time, excludeMemberID int64) ([]models.JournalEntry, error)
	LatestTimestamp(ctx context.Context, tenantID int64) (time.Time, error)
	PurgeOld(ctx context.Context, retention time.Duration) (int64, error)
	RebuildSnapshot(ctx context.Context, tenantID int64) (int, error)
}

// SnapshotRepository exports materialized tenant state.
type SnapshotRepository interface {
	Export(ctx context.Context, tenant *models.Tenant, cursor time.Time) (*models.SnapshotExport, error)
}

// AdminRepository provisions tenants and members.
type AdminRepository interface {
	CreateTenant(ctx context.Context, req models.CreateTenantRequest) (*models.Tenant, error)
	CreateMember(ctx context.Context, req models.CreateMemberRequest) (*models.CreateMemberResult, error)
	GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
}

// PushLogRepository records and queries raw push batches.
type PushLogRepository interface {
	RecordBatch(ctx context.Context, tenantID, memberID int64, batch json.RawMessage) error
	Query(ctx context.Context, tenantID int64, opts models.PushLogQueryOpts) ([]models.PushLogEntry, error)
	PurgeOld(ctx context.Context, retention time.Duration) (int64, error)
}

// Notifier tells connected clients that a tenant's journal advanced.
type Notifier interface {
	NotifyAppended(tenant string, memberID int64, applied int)
	BroadcastEvent(eventType, tenant string, data json.RawMessage)
}
