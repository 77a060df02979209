package domain

import "time"

// Role is the authority a principal holds within one tenant.
type Role string

const (
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RoleTenantAdmin Role = "TENANT_ADMIN"
	RoleUser        Role = "USER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleTenantAdmin, RoleUser:
		return true
	}
	return false
}

// Principal is the authenticated identity supplied by the user directory.
// Read-only to the token/session core: we snapshot it into tokens but never
// mutate it.
type Principal struct {
	UserID   string
	Email    string
	FullName string
	IsActive bool
}

// RoleAssignment grants a principal one role within one tenant. A principal
// may hold many, one per tenant. The full set is embedded verbatim into
// every access token at issuance; later changes are not retroactive.
type RoleAssignment struct {
	TenantID   string
	TenantName string
	AppName    string
	Role       Role
}

// User is the directory record backing a Principal. Credential storage and
// password policy live with the directory; the core only reads these rows at
// login time.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string // bcrypt encoded
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal converts a directory record into the read-only identity handed
// to the token core.
func (u User) Principal() Principal {
	return Principal{
		UserID:   u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		IsActive: u.IsActive,
	}
}

// Tenant is one independent customer organization.
type Tenant struct {
	ID        string
	Name      string
	AppName   string
	CreatedAt time.Time
}
