package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clemoseitano/open-inventory-api/internal/models"
)

// AdminStore provisions tenants and members. These are low-volume operator
// operations behind the admin token, not part of the sync protocol.
type AdminStore struct {
	Base
}

// NewAdminStore creates an AdminStore.
func NewAdminStore(base Base) *AdminStore {
	return &AdminStore{Base: base}
}

// pgUniqueViolation is the Postgres error code for unique constraint breaks.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// CreateTenant provisions a new tenant. Returns ErrDuplicateKey when the slug
// is taken.
func (s *AdminStore) CreateTenant(ctx context.Context, req models.CreateTenantRequest) (*models.Tenant, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	id, err := s.IDs.Next()
	if err != nil {
		return nil, fmt.Errorf("allocating tenant id: %w", err)
	}

	t := models.Tenant{ID: id, Slug: req.Slug, Name: req.Name}

	err = s.Pool.QueryRow(ctx,
		"INSERT INTO tenants (id, slug, name) VALUES ($1, $2, $3) RETURNING created_at",
		t.ID, t.Slug, t.Name,
	).Scan(&t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrDuplicateKey
		}

		return nil, fmt.Errorf("creating tenant: %w", err)
	}

	return &t, nil
}

// GetTenantBySlug looks up a tenant by slug.
func (s *AdminStore) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var t models.Tenant

	err := s.Pool.QueryRow(ctx,
		"SELECT id, slug, name, created_at FROM tenants WHERE slug = $1", slug,
	).Scan(&t.ID, &t.Slug, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrTenantNotFound
		}

		return nil, fmt.Errorf("looking up tenant: %w", err)
	}

	return &t, nil
}

// CreateMember adds a user to a tenant. The user row is created on first
// sight of the email; an existing user gets a rotated API key, since the
// plaintext key is only ever held by the caller of this operation.
//
// Returns ErrTenantNotFound for an unknown tenant and ErrDuplicateKey when
// the user is already a member.
func (s *AdminStore) CreateMember(ctx context.Context, req models.CreateMemberRequest) (*models.CreateMemberResult, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tenant, err := s.GetTenantBySlug(ctx, req.Tenant)
	if err != nil {
		return nil, err
	}

	userID, err := s.IDs.Next()
	if err != nil {
		return nil, fmt.Errorf("allocating user id: %w", err)
	}

	memberID, err := s.IDs.Next()
	if err != nil {
		return nil, fmt.Errorf("allocating member id: %w", err)
	}

	apiKey := newAPIKey()

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning member transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO users (id, email, api_key_hash) VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET api_key_hash = EXCLUDED.api_key_hash
		RETURNING id`,
		userID, strings.ToLower(req.Email), hashAPIKey(apiKey),
	).Scan(&userID)
	if err != nil {
		return nil, fmt.Errorf("upserting user: %w", err)
	}

	member := models.Member{ID: memberID, UserID: userID, TenantID: tenant.ID, Role: req.Role}

	_, err = tx.Exec(ctx,
		"INSERT INTO tenant_members (id, user_id, tenant_id, role) VALUES ($1, $2, $3, $4)",
		member.ID, member.UserID, member.TenantID, member.Role,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrDuplicateKey
		}

		return nil, fmt.Errorf("creating membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing member transaction: %w", err)
	}

	return &models.CreateMemberResult{Member: member, APIKey: apiKey}, nil
}

// newAPIKey mints a fresh API key. Keys are opaque bearer tokens; only the
// hash is persisted.
func newAPIKey() string {
	return "oik_" + strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
