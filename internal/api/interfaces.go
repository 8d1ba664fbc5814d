package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/clemoseitano/open-inventory-api/internal/models"
	"github.com/clemoseitano/open-inventory-api/internal/store"
)

// SyncService is the sync protocol surface the handlers depend on.
type SyncService interface {
	Push(ctx context.Context, userID int64, req *models.PushRequest, raw json.RawMessage) (store.BatchResult, error)
	Pull(ctx context.Context, userID int64, tenantSlug string, since *time.Time) ([]models.JournalEntry, error)
	Download(ctx context.Context, userID int64, tenantSlug string) (*models.SnapshotExport, error)
	PushHistory(ctx context.Context, userID int64, tenantSlug string, opts models.PushLogQueryOpts) ([]models.PushLogEntry, error)
}

// AdminService is the operator surface the admin handlers depend on.
type AdminService interface {
	CreateTenant(ctx context.Context, req models.CreateTenantRequest) (*models.Tenant, error)
	CreateMember(ctx context.Context, req models.CreateMemberRequest) (*models.CreateMemberResult, error)
	Purge(ctx context.Context) error
	RebuildSnapshot(ctx context.Context, slug string) (int, error)
}

// MembershipResolver checks that a user may act for a tenant. Used by the
// WebSocket endpoint, which authorizes per connection instead of per request.
type MembershipResolver interface {
	ResolveMember(ctx context.Context, userID int64, tenantSlug string) (*models.Member, *models.Tenant, error)
}
