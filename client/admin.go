package client

import (
	"context"
	"fmt"
	"net/url"
)

// AdminService handles tenant provisioning and maintenance. These endpoints
// authenticate with the deployment admin token, not a member API key; build
// a dedicated client with WithAPIKey(adminToken).
type AdminService struct {
	c *Client
}

// CreateTenant provisions a tenant. Slugs are unique; IsConflict reports a
// duplicate.
func (s *AdminService) CreateTenant(ctx context.Context, req CreateTenantRequest) (*Tenant, error) {
	var tenant Tenant
	if err := s.c.post(ctx, "/admin/tenants", req, &tenant); err != nil {
		return nil, err
	}

	return &tenant, nil
}

// CreateMember adds a member to a tenant and returns the plaintext API key.
// The key is shown exactly once; store it now. Calling again for an existing
// email rotates the key.
func (s *AdminService) CreateMember(ctx context.Context, req CreateMemberRequest) (*CreateMemberResult, error) {
	var result CreateMemberResult
	if err := s.c.post(ctx, "/admin/members", req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Purge runs the retention pass immediately instead of waiting for the next
// scheduled run.
func (s *AdminService) Purge(ctx context.Context) error {
	return s.c.post(ctx, "/admin/purge", nil, nil)
}

// RebuildSnapshot replays the retained journal into a fresh snapshot and
// returns the number of entries replayed.
func (s *AdminService) RebuildSnapshot(ctx context.Context, slug string) (int, error) {
	var resp struct {
		Replayed int `json:"replayed"`
	}
	path := fmt.Sprintf("/admin/tenants/%s/rebuild", url.PathEscape(slug))
	if err := s.c.post(ctx, path, nil, &resp); err != nil {
		return 0, err
	}

	return resp.Replayed, nil
}
