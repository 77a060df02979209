package domain

import "time"

// TokenPair is what the issuance boundary returns: the short-lived access
// token (JWT) and the opaque refresh token.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // seconds until access-token expiry
}

// RefreshToken models the stored refresh token record. The opaque value
// itself is never persisted, only its SHA-256 fingerprint.
type RefreshToken struct {
	ID               string
	UserID           string
	TokenFingerprint string
	ExpiresAt        time.Time
	Revoked          bool
	RevokedAt        *time.Time
	CreatedAt        time.Time
}

// IsValid reports whether the token can still be exchanged. Revocation is
// terminal: RevokedAt is append-only history, so a revoked token can never
// become valid again.
func (t RefreshToken) IsValid(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
