package store

import (
	"context"
	"errors"
	"time"

	"github.com/latticehq/lattice-auth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today,
// postgres later) implement this. It exposes sub-repositories to keep
// concerns tidy and testable, and to stop callers from accidentally nesting
// transactions.
type Store interface {
	Users() Users
	Tenants() Tenants
	Memberships() Memberships
	RefreshTokens() RefreshTokens
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to run multi-step operations that must be atomic
	// (e.g. opening a session together with its refresh token).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the directory boundary: the core reads Principal data here at
// login time and never writes credentials outside of seeding.
type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during the password login flow.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// SetUserActive flips the is_active flag (admin suspension path).
	SetUserActive(ctx context.Context, userID string, active bool) error

	// IsEmpty returns true if there are no users (first-run bootstrap check).
	IsEmpty(ctx context.Context) (bool, error)
}

type Tenants interface {
	// GetTenantByID fetches a tenant.
	GetTenantByID(ctx context.Context, id string) (domain.Tenant, error)

	// CreateTenant inserts a new tenant (id is ULID).
	CreateTenant(ctx context.Context, t domain.Tenant) error
}

type Memberships interface {
	// ListRoleAssignments returns the (tenant, role) pairs a user holds,
	// ordered by tenant creation for a stable claim snapshot.
	ListRoleAssignments(ctx context.Context, userID string) ([]domain.RoleAssignment, error)

	// CreateMembership grants a user a role within one tenant.
	CreateMembership(ctx context.Context, userID, tenantID string, role domain.Role) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByFingerprint returns the record matching the SHA-256
	// fingerprint of a presented opaque token.
	GetRefreshTokenByFingerprint(ctx context.Context, fingerprint string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked=1 and records revoked_at.
	// Idempotent; revocation is terminal.
	RevokeRefreshToken(ctx context.Context, id string) error

	// RevokeAllUserRefreshTokens bulk revocation for a user (e.g. admin
	// account suspension).
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens removes records past their expiry
	// (housekeeping).
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) error
}

type Sessions interface {
	// CreateSession stores a new session record for one login episode.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByID returns a session by id.
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// GetSessionByRefreshTokenID resolves the session for a refresh
	// exchange (1:1 per login episode).
	GetSessionByRefreshTokenID(ctx context.Context, refreshTokenID string) (domain.Session, error)

	// GetSessionByAccessJTI resolves the session currently holding a jti
	// (logout path).
	GetSessionByAccessJTI(ctx context.Context, jti string) (domain.Session, error)

	// ListUserSessions returns a user's sessions, newest first, paired with
	// their refresh tokens so liveness can be derived without extra reads.
	ListUserSessions(ctx context.Context, userID string) ([]SessionWithRefresh, error)

	// TouchSession updates last_activity_at.
	TouchSession(ctx context.Context, id string, at time.Time) error

	// UpdateSessionAccessJTI swaps the stored jti after a refresh.
	UpdateSessionAccessJTI(ctx context.Context, id string, jti string, at time.Time) error

	// RevokeSession flips revoked=1 and records revoked_at. Idempotent.
	RevokeSession(ctx context.Context, id string) error

	// IsJTILive reports whether some non-revoked session currently stores
	// the jti. The single store-backed check on the hot request path.
	IsJTILive(ctx context.Context, jti string) (bool, error)

	// DeleteRevokedSessionsBefore removes sessions revoked before the
	// cutoff (housekeeping).
	DeleteRevokedSessionsBefore(ctx context.Context, cutoff time.Time) error
}

// SessionWithRefresh pairs a session with its refresh token for liveness
// derivation.
type SessionWithRefresh struct {
	Session domain.Session
	Refresh domain.RefreshToken
}
