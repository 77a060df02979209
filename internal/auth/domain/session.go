package domain

import (
	"strings"
	"time"
)

// ActivityWindow is how long a session stays live without being touched.
// A session idle longer than this reports inactive even when nothing
// revoked it.
const ActivityWindow = 30 * time.Minute

// DeviceType is a coarse classification of the client that opened a session.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceDesktop DeviceType = "desktop"
	DeviceWeb     DeviceType = "web"
	DeviceUnknown DeviceType = "unknown"
)

// Session is the server-side record of one login episode. It links the
// owning user, the refresh token for that episode and the jti of the access
// token most recently issued against it. Only the current jti is stored: a
// previously issued access token stays independently valid until its own
// expiry, a bounded staleness window accepted by design.
type Session struct {
	ID             string
	UserID         string
	RefreshTokenID string
	AccessTokenJTI string
	IPAddress      string
	UserAgent      string
	DeviceType     DeviceType
	LastActivityAt time.Time
	CreatedAt      time.Time
	Revoked        bool
	RevokedAt      *time.Time
}

// IsActive derives session liveness: not revoked, refresh token still
// exchangeable, and touched within the activity window.
func (s Session) IsActive(refresh RefreshToken, now time.Time) bool {
	if s.Revoked {
		return false
	}
	if !refresh.IsValid(now) {
		return false
	}
	return now.Sub(s.LastActivityAt) < ActivityWindow
}

// ClassifyDevice buckets a user-agent string by simple keyword matching.
// Best-effort only; evaluated once at session creation and never revisited.
func ClassifyDevice(userAgent string) DeviceType {
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return DeviceUnknown
	}

	switch {
	case strings.Contains(ua, "mobile"),
		strings.Contains(ua, "android"),
		strings.Contains(ua, "iphone"),
		strings.Contains(ua, "ipad"):
		return DeviceMobile
	case strings.Contains(ua, "electron"),
		strings.Contains(ua, "windows nt"),
		strings.Contains(ua, "macintosh"),
		strings.Contains(ua, "x11"):
		return DeviceDesktop
	case strings.Contains(ua, "mozilla"),
		strings.Contains(ua, "chrome"),
		strings.Contains(ua, "safari"),
		strings.Contains(ua, "firefox"):
		return DeviceWeb
	default:
		return DeviceUnknown
	}
}
