package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token TTL constants. Overridable per-service via configuration.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	// Short-lived for security - typical range is 15m to 1h.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	// Longer-lived for user convenience.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// ClaimsVersion is the current claims schema version embedded as "ver".
// Bump when the custom claim layout changes so validators can tell old
// tokens apart instead of guessing from missing fields.
const ClaimsVersion = 1

// TenantGrant is one (tenant, role) pair embedded in an access token. The
// full grant list is snapshotted at issuance; later role changes never alter
// an already-issued token.
type TenantGrant struct {
	TenantID   string `json:"tenant_id"`
	TenantName string `json:"tenant_name,omitempty"`
	AppName    string `json:"app_name,omitempty"`
	Role       string `json:"role"`
}

// Claims are access-token claims used across the service. Additive changes
// only, to preserve compatibility with tokens already in flight.
type Claims struct {
	jwt.RegisteredClaims

	/* Custom fields */

	// Ver is the claims schema version (see ClaimsVersion). Zero means the
	// token predates versioning; validators treat it as version 1.
	Ver int `json:"ver,omitempty"`

	// UserID is the directory identifier of the subject. The subject claim
	// itself carries the email address.
	UserID string `json:"uid,omitempty"`

	// FullName is the display name for the user.
	FullName string `json:"name,omitempty"`

	// Tenants is the ordered role snapshot, one entry per tenant the user
	// belongs to.
	Tenants []TenantGrant `json:"tenants,omitempty"`
}

// NewAccessClaims builds minimally-correct claims for an access token.
// exp - iat always equals ttl exactly.
func NewAccessClaims(
	subject, userID, fullName string,
	tenants []TenantGrant,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Ver:      ClaimsVersion,
		UserID:   userID,
		FullName: fullName,
		Tenants:  tenants,
	}
}

// NewJTI returns a globally unique identifier for the "jti" claim. Random
// UUIDv4, never derived from other claim fields, so a jti can never be
// guessed or replayed across sessions.
func NewJTI() string {
	return uuid.NewString()
}

// ValidateIssuer checks if the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf).
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}

// RoleIn returns the role held in the given tenant, or "" when the token
// grants nothing there.
func (c *Claims) RoleIn(tenantID string) string {
	for _, g := range c.Tenants {
		if g.TenantID == tenantID {
			return g.Role
		}
	}
	return ""
}

// HasRole reports whether any tenant grant carries one of the given roles.
func (c *Claims) HasRole(roles ...string) bool {
	for _, g := range c.Tenants {
		for _, r := range roles {
			if g.Role == r {
				return true
			}
		}
	}
	return false
}
