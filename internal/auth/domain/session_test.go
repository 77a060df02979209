package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRefreshTokenIsValid(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	live := RefreshToken{ExpiresAt: now.Add(time.Hour)}

	require.True(t, live.IsValid(now))
	require.False(t, live.IsValid(now.Add(2*time.Hour)), "expired token is invalid")

	revokedAt := now
	revoked := RefreshToken{ExpiresAt: now.Add(time.Hour), Revoked: true, RevokedAt: &revokedAt}
	require.False(t, revoked.IsValid(now), "revocation is terminal")
}

func TestSessionIsActive(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	refresh := RefreshToken{ExpiresAt: now.Add(24 * time.Hour)}

	tests := []struct {
		name    string
		session Session
		refresh RefreshToken
		want    bool
	}{
		{
			name:    "recently touched and not revoked",
			session: Session{LastActivityAt: now.Add(-29 * time.Minute)},
			refresh: refresh,
			want:    true,
		},
		{
			name:    "idle past the activity window",
			session: Session{LastActivityAt: now.Add(-31 * time.Minute)},
			refresh: refresh,
			want:    false,
		},
		{
			name:    "revoked",
			session: Session{LastActivityAt: now, Revoked: true},
			refresh: refresh,
			want:    false,
		},
		{
			name:    "refresh token revoked",
			session: Session{LastActivityAt: now},
			refresh: RefreshToken{ExpiresAt: now.Add(24 * time.Hour), Revoked: true},
			want:    false,
		},
		{
			name:    "refresh token expired",
			session: Session{LastActivityAt: now},
			refresh: RefreshToken{ExpiresAt: now.Add(-time.Minute)},
			want:    false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.session.IsActive(tc.refresh, now))
		})
	}
}

func TestClassifyDevice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ua   string
		want DeviceType
	}{
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148", DeviceMobile},
		{"Mozilla/5.0 (Linux; Android 14; Pixel 8) Mobile Safari/537.36", DeviceMobile},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/125.0", DeviceDesktop},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) Safari/605.1.15", DeviceDesktop},
		{"lattice-desktop/2.1 Electron/29.0", DeviceDesktop},
		{"Mozilla/5.0 (compatible) Chrome/125.0", DeviceWeb},
		{"curl/8.5.0", DeviceUnknown},
		{"", DeviceUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.ua, func(t *testing.T) {
			require.Equal(t, tc.want, ClassifyDevice(tc.ua))
		})
	}
}

func TestRoleValid(t *testing.T) {
	t.Parallel()

	require.True(t, RoleSuperAdmin.Valid())
	require.True(t, RoleTenantAdmin.Valid())
	require.True(t, RoleUser.Valid())
	require.False(t, Role("OWNER").Valid())
	require.False(t, Role("").Valid())
}
