package service

import (
	"context"
	"errors"
	"time"

	"github.com/latticehq/lattice-auth/internal/auth/domain"
	"github.com/latticehq/lattice-auth/internal/auth/store"
	"github.com/latticehq/lattice-auth/internal/obs"
	"github.com/latticehq/lattice-auth/pkg/slogx"
)

// SessionView is one entry in a user's session list, annotated with the
// derived liveness state and whether it backs the request that asked.
type SessionView struct {
	ID             string            `json:"id"`
	IPAddress      string            `json:"ip_address"`
	UserAgent      string            `json:"user_agent"`
	DeviceType     domain.DeviceType `json:"device_type"`
	CreatedAt      time.Time         `json:"created_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	Active         bool              `json:"active"`
	Current        bool              `json:"current"`
}

// SessionService exposes session visibility and revocation to users and
// administrators.
type SessionService struct {
	Store store.Store
}

// List returns all sessions for a user, newest first. currentJTI marks which
// entry backs the calling request; pass "" when there is none.
func (s *SessionService) List(ctx context.Context, userID, currentJTI string) ([]SessionView, error) {
	rows, err := s.Store.Sessions().ListUserSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	out := make([]SessionView, 0, len(rows))
	for _, row := range rows {
		out = append(out, SessionView{
			ID:             row.Session.ID,
			IPAddress:      row.Session.IPAddress,
			UserAgent:      row.Session.UserAgent,
			DeviceType:     row.Session.DeviceType,
			CreatedAt:      row.Session.CreatedAt,
			LastActivityAt: row.Session.LastActivityAt,
			Active:         row.Session.IsActive(row.Refresh, now),
			Current:        currentJTI != "" && row.Session.AccessTokenJTI == currentJTI,
		})
	}
	return out, nil
}

// Touch records activity on the session behind an access token. Failures
// are logged and swallowed: activity tracking must never fail a request.
func (s *SessionService) Touch(ctx context.Context, accessJTI string) {
	l := slogx.FromContext(ctx)

	session, err := s.Store.Sessions().GetSessionByAccessJTI(ctx, accessJTI)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.Warn("session touch lookup failed", "err", err)
		}
		return
	}
	if err := s.Store.Sessions().TouchSession(ctx, session.ID, time.Now().UTC()); err != nil {
		l.Warn("session touch failed", "session_id", session.ID, "err", err)
	}
}

// Revoke terminates one of the caller's own sessions. A session belonging
// to someone else is reported as not found, never as forbidden, so session
// IDs cannot be probed.
func (s *SessionService) Revoke(ctx context.Context, userID, sessionID string) error {
	l := slogx.FromContext(ctx)

	session, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if session.UserID != userID {
		return ErrSessionNotFound
	}

	if err := s.revokeOne(ctx, session); err != nil {
		return err
	}

	obs.SessionRevoked(obs.RevokeReasonUser)
	l.Info("session revoked", "user_id", userID, "session_id", sessionID)
	return nil
}

// RevokeOthers terminates every session of the caller except the one backing
// the presented access token. Returns how many sessions were revoked.
func (s *SessionService) RevokeOthers(ctx context.Context, userID, currentJTI string) (int, error) {
	l := slogx.FromContext(ctx)

	rows, err := s.Store.Sessions().ListUserSessions(ctx, userID)
	if err != nil {
		return 0, err
	}

	revoked := 0
	for _, row := range rows {
		if row.Session.Revoked || row.Session.AccessTokenJTI == currentJTI {
			continue
		}
		if err := s.revokeOne(ctx, row.Session); err != nil {
			return revoked, err
		}
		revoked++
	}

	obs.SessionsRevoked(obs.RevokeReasonOthers, revoked)
	l.Info("revoked other sessions", "user_id", userID, "count", revoked)
	return revoked, nil
}

// RevokeAllForUser terminates every session of a user. Administrative path:
// no session is spared, including whichever one the user is actively on.
func (s *SessionService) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	l := slogx.FromContext(ctx)

	rows, err := s.Store.Sessions().ListUserSessions(ctx, userID)
	if err != nil {
		return 0, err
	}

	revoked := 0
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, row := range rows {
			if row.Session.Revoked {
				continue
			}
			if err := tx.Sessions().RevokeSession(ctx, row.Session.ID); err != nil {
				return err
			}
			revoked++
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
	})
	if err != nil {
		return 0, err
	}

	obs.SessionsRevoked(obs.RevokeReasonAdmin, revoked)
	l.Info("revoked all sessions for user", "user_id", userID, "count", revoked)
	return revoked, nil
}

// revokeOne revokes a session together with its refresh token.
func (s *SessionService) revokeOne(ctx context.Context, session domain.Session) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().RevokeSession(ctx, session.ID); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeRefreshToken(ctx, session.RefreshTokenID)
	})
}
