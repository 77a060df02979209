package service

import (
	"context"
	"errors"
	"time"

	"github.com/latticehq/lattice-auth/internal/auth/domain"
	"github.com/latticehq/lattice-auth/internal/auth/store"
	"github.com/latticehq/lattice-auth/internal/obs"
	"github.com/latticehq/lattice-auth/pkg/cryptox"
	"github.com/latticehq/lattice-auth/pkg/idx"
	"github.com/latticehq/lattice-auth/pkg/jwtx"
	"github.com/latticehq/lattice-auth/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrSessionNotFound    = errors.New("session_not_found")
)

// TokenService owns the credential lifecycle: minting token pairs at login,
// re-minting access tokens on refresh, and tearing sessions down at logout.
type TokenService struct {
	Signer     jwtx.Signer
	Store      store.Store
	Directory  *DirectoryService
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// LoginMeta captures the request context a new session is created under.
type LoginMeta struct {
	IPAddress string
	UserAgent string
}

// Login verifies credentials and opens a new session: a signed access token,
// an opaque refresh token, and a session row binding them together.
func (s *TokenService) Login(ctx context.Context, email, password string, meta LoginMeta) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	// 1. Verify credentials against the directory.
	u, err := s.Directory.VerifyCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			obs.LoginFailure()
		}
		return nil, err
	}

	// 2. Snapshot the role assignments into claims.
	grants, err := s.Directory.RoleSnapshot(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	// 3. Sign the access token. The jti ties it to the session below.
	claims := jwtx.NewAccessClaims(u.Email, u.ID, u.FullName, grants, s.AccessTTL, s.Issuer, now)
	accessToken, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	// 4. Mint the opaque refresh token. Only its fingerprint is persisted;
	// the plaintext exists in the response and nowhere else.
	refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	refresh := domain.RefreshToken{
		ID:               idx.NewString(),
		UserID:           u.ID,
		TokenFingerprint: cryptox.FingerprintToken(refreshOpaque),
		ExpiresAt:        now.Add(s.RefreshTTL),
		CreatedAt:        now,
	}

	session := domain.Session{
		ID:             idx.NewString(),
		UserID:         u.ID,
		RefreshTokenID: refresh.ID,
		AccessTokenJTI: claims.ID,
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
		DeviceType:     domain.ClassifyDevice(meta.UserAgent),
		LastActivityAt: now,
		CreatedAt:      now,
	}

	// 5. Persist both or neither.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, refresh); err != nil {
			return err
		}
		return tx.Sessions().CreateSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	obs.TokenIssued("password")
	l.Info("session opened",
		"user_id", u.ID,
		"session_id", session.ID,
		"device_type", string(session.DeviceType),
	)

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
	}, nil
}

// Refresh trades a live refresh token for a new access token. The refresh
// token itself is returned unchanged: its lifetime is the session's
// lifetime, and rotating it here would only add a write without revoking
// anything the caller doesn't already hold.
func (s *TokenService) Refresh(ctx context.Context, refreshOpaque string) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	// 1. Look up the persisted row by fingerprint.
	fp := cryptox.FingerprintToken(refreshOpaque)
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByFingerprint(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	// 2. Expired and revoked tokens are equally dead.
	if !rt.IsValid(now) {
		return nil, ErrInvalidRefresh
	}

	// 3. The account must still be active.
	u, err := s.Store.Users().GetUserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if !u.IsActive {
		l.Info("refresh attempt for deactivated account", "user_id", u.ID)
		return nil, ErrInvalidRefresh
	}

	// 4. Re-snapshot roles: a refresh picks up assignment changes, unlike
	// the frozen claims of the outstanding access token.
	grants, err := s.Directory.RoleSnapshot(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	claims := jwtx.NewAccessClaims(u.Email, u.ID, u.FullName, grants, s.AccessTTL, s.Issuer, now)
	accessToken, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	// 5. Move the session onto the new jti. The old access token dies with
	// this write even if its exp is still in the future.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		session, err := tx.Sessions().GetSessionByRefreshTokenID(ctx, rt.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
		if session.Revoked {
			return ErrInvalidRefresh
		}
		return tx.Sessions().UpdateSessionAccessJTI(ctx, session.ID, claims.ID, now)
	})
	if err != nil {
		return nil, err
	}

	obs.TokenIssued("refresh")

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
	}, nil
}

// Logout tears down the session behind the presented access token. Both the
// session and its refresh token become unusable immediately.
func (s *TokenService) Logout(ctx context.Context, accessJTI string) error {
	l := slogx.FromContext(ctx)

	session, err := s.Store.Sessions().GetSessionByAccessJTI(ctx, accessJTI)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().RevokeSession(ctx, session.ID); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeRefreshToken(ctx, session.RefreshTokenID)
	})
	if err != nil {
		return err
	}

	obs.SessionRevoked(obs.RevokeReasonLogout)
	l.Info("session closed", "user_id", session.UserID, "session_id", session.ID)
	return nil
}
