package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/clemoseitano/open-inventory-api/internal/models"
)

// MembershipStore resolves authenticated principals and tenant memberships.
// It is the boundary the sync gateways treat as "who may act for this
// tenant": everything upstream of it (token issuance, OAuth) lives elsewhere.
type MembershipStore struct {
	Base
}

// NewMembershipStore creates a MembershipStore.
func NewMembershipStore(base Base) *MembershipStore {
	return &MembershipStore{Base: base}
}

// GetUserByAPIKey looks up a user ID by API key hash.
func (s *MembershipStore) GetUserByAPIKey(ctx context.Context, apiKey string) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var userID int64

	err := s.Pool.QueryRow(ctx,
		"SELECT id FROM users WHERE api_key_hash = $1", hashAPIKey(apiKey),
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.ErrUserNotFound
		}

		return 0, fmt.Errorf("looking up user by API key: %w", err)
	}

	return userID, nil
}

// ResolveMember maps (user, tenant slug) to the member row authoring actions
// for that tenant. Unknown tenant or a user outside the tenant both resolve
// to ErrAccessDenied so callers cannot probe for tenant existence.
func (s *MembershipStore) ResolveMember(ctx context.Context, userID int64, tenantSlug string) (*models.Member, *models.Tenant, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var (
		m models.Member
		t models.Tenant
	)

	err := s.Pool.QueryRow(ctx, `
		SELECT m.id, m.user_id, m.tenant_id, m.role, t.id, t.slug, t.name, t.created_at
		FROM tenant_members m
		JOIN tenants t ON t.id = m.tenant_id
		WHERE m.user_id = $1 AND t.slug = $2`,
		userID, tenantSlug,
	).Scan(&m.ID, &m.UserID, &m.TenantID, &m.Role, &t.ID, &t.Slug, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, models.ErrAccessDenied
		}

		return nil, nil, fmt.Errorf("resolving membership: %w", err)
	}

	return &m, &t, nil
}
