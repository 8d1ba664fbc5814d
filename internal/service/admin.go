package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/clemoseitano/open-inventory-api/internal/models"
)

// AdminService wraps operator provisioning and maintenance operations.
type AdminService struct {
	store     AdminRepository
	journal   JournalRepository
	retention *RetentionWorker
	notifier  Notifier
	log       *logrus.Logger
}

// NewAdminService creates an AdminService. retention and notifier may be nil.
func NewAdminService(store AdminRepository, journal JournalRepository, retention *RetentionWorker, notifier Notifier, log *logrus.Logger) *AdminService {
	return &AdminService{store: store, journal: journal, retention: retention, notifier: notifier, log: log}
}

// CreateTenant provisions a new tenant.
func (s *AdminService) CreateTenant(ctx context.Context, req models.CreateTenantRequest) (*models.Tenant, error) {
	tenant, err := s.store.CreateTenant(ctx, req)
	if err != nil {
		return nil, err
	}

	s.log.WithField("tenant", tenant.Slug).Info("admin.create_tenant")

	return tenant, nil
}

// CreateMember adds a user to a tenant and mints its API key.
func (s *AdminService) CreateMember(ctx context.Context, req models.CreateMemberRequest) (*models.CreateMemberResult, error) {
	result, err := s.store.CreateMember(ctx, req)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"tenant": req.Tenant,
		"member": result.Member.ID,
		"role":   result.Member.Role,
	}).Info("admin.create_member")

	return result, nil
}

// Purge triggers an immediate retention pass.
func (s *AdminService) Purge(ctx context.Context) error {
	if s.retention == nil {
		return nil
	}

	s.retention.RunOnce(ctx)

	return nil
}

// RebuildSnapshot refolds a tenant's journal into a fresh snapshot and tells
// connected clients to re-pull. Returns the number of entries replayed.
func (s *AdminService) RebuildSnapshot(ctx context.Context, slug string) (int, error) {
	tenant, err := s.store.GetTenantBySlug(ctx, slug)
	if err != nil {
		return 0, err
	}

	replayed, err := s.journal.RebuildSnapshot(ctx, tenant.ID)
	if err != nil {
		return 0, err
	}

	s.log.WithFields(logrus.Fields{
		"tenant":   tenant.Slug,
		"replayed": replayed,
	}).Info("admin.rebuild_snapshot")

	if s.notifier != nil {
		s.notifier.BroadcastEvent("snapshot.rebuilt", tenant.Slug, []byte(`{}`))
	}

	return replayed, nil
}
