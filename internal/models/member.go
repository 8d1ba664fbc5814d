package models

import "time"

// Tenant is an isolated organizational unit owning one sync domain.
type Tenant struct {
	ID        int64     `json:"id,string"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Member binds a user to a tenant with a role. A member is the authoring
// actor of journal entries; (user, tenant) pairs are unique.
type Member struct {
	ID       int64  `json:"id,string"`
	UserID   int64  `json:"user_id,string"`
	TenantID int64  `json:"tenant_id,string"`
	Role     string `json:"role"`
}

// Member roles.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// CreateTenantRequest is the payload for provisioning a tenant.
type CreateTenantRequest struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Validate checks required fields on CreateTenantRequest.
func (r *CreateTenantRequest) Validate() ValidationErrors {
	var errs ValidationErrors
	if r.Slug == "" {
		errs = append(errs, FieldError{Field: "slug", Message: "slug is required"})
	}
	if r.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	}

	return errs
}

// CreateMemberRequest is the payload for adding a member to a tenant.
// The user is created on first sight of the email.
type CreateMemberRequest struct {
	Tenant string `json:"tenant"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Validate checks required fields on CreateMemberRequest and defaults the role.
func (r *CreateMemberRequest) Validate() ValidationErrors {
	var errs ValidationErrors
	if r.Tenant == "" {
		errs = append(errs, FieldError{Field: "tenant", Message: "tenant is required"})
	}
	if r.Email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "email is required"})
	}

	if r.Role == "" {
		r.Role = RoleStaff
	}
	if r.Role != RoleAdmin && r.Role != RoleStaff {
		errs = append(errs, FieldError{Field: "role", Message: "role must be admin or staff"})
	}

	return errs
}

// CreateMemberResult carries the newly minted API key. The key is returned
// exactly once; only its hash is stored.
type CreateMemberResult struct {
	Member Member `json:"member"`
	APIKey string `json:"api_key"`
}
