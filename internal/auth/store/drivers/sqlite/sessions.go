package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/latticehq/lattice-auth/internal/auth/domain"
	"github.com/latticehq/lattice-auth/internal/auth/store"
)

type sessionsRepo struct {
	q querier
}

const sessionColumns = `id, user_id, refresh_token_id, access_token_jti, ip_address, user_agent,
	device_type, last_activity_at, created_at, revoked, revoked_at`

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, refresh_token_id, access_token_jti, ip_address,
		 user_agent, device_type, last_activity_at, created_at, revoked)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.RefreshTokenID, s.AccessTokenJTI, s.IPAddress,
		s.UserAgent, s.DeviceType, s.LastActivityAt, s.CreatedAt, s.Revoked)
	return err
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (r *sessionsRepo) GetSessionByRefreshTokenID(ctx context.Context, refreshTokenID string) (domain.Session, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_id = ?`, refreshTokenID)
	return scanSession(row)
}

func (r *sessionsRepo) GetSessionByAccessJTI(ctx context.Context, jti string) (domain.Session, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE access_token_jti = ?`, jti)
	return scanSession(row)
}

func (r *sessionsRepo) ListUserSessions(ctx context.Context, userID string) ([]store.SessionWithRefresh, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT s.id, s.user_id, s.refresh_token_id, s.access_token_jti, s.ip_address, s.user_agent,
		        s.device_type, s.last_activity_at, s.created_at, s.revoked, s.revoked_at,
		        rt.id, rt.user_id, rt.token_fingerprint, rt.expires_at, rt.revoked, rt.revoked_at, rt.created_at
		 FROM sessions s
		 JOIN refresh_tokens rt ON rt.id = s.refresh_token_id
		 WHERE s.user_id = ?
		 ORDER BY s.created_at DESC, s.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.SessionWithRefresh
	for rows.Next() {
		var (
			s           domain.Session
			rt          domain.RefreshToken
			sRevokedAt  sql.NullTime
			rtRevokedAt sql.NullTime
		)
		err := rows.Scan(
			&s.ID, &s.UserID, &s.RefreshTokenID, &s.AccessTokenJTI, &s.IPAddress, &s.UserAgent,
			&s.DeviceType, &s.LastActivityAt, &s.CreatedAt, &s.Revoked, &sRevokedAt,
			&rt.ID, &rt.UserID, &rt.TokenFingerprint, &rt.ExpiresAt, &rt.Revoked, &rtRevokedAt, &rt.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		s.RevokedAt = mapNullTimePtr(sRevokedAt)
		rt.RevokedAt = mapNullTimePtr(rtRevokedAt)
		out = append(out, store.SessionWithRefresh{Session: s, Refresh: rt})
	}
	return out, rows.Err()
}

func (r *sessionsRepo) TouchSession(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE sessions SET last_activity_at = ? WHERE id = ?`, at, id)
	return err
}

func (r *sessionsRepo) UpdateSessionAccessJTI(ctx context.Context, id string, jti string, at time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE sessions SET access_token_jti = ?, last_activity_at = ? WHERE id = ?`,
		jti, at, id)
	return err
}

// RevokeSession is idempotent: revoked_at keeps its first value.
func (r *sessionsRepo) RevokeSession(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE sessions SET revoked = 1, revoked_at = ? WHERE id = ? AND revoked = 0`,
		time.Now().UTC(), id)
	return err
}

func (r *sessionsRepo) IsJTILive(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sessions WHERE access_token_jti = ? AND revoked = 0)`, jti).
		Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *sessionsRepo) DeleteRevokedSessionsBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM sessions WHERE revoked = 1 AND revoked_at < ?`, cutoff)
	return err
}

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		s         domain.Session
		revokedAt sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.RefreshTokenID, &s.AccessTokenJTI, &s.IPAddress, &s.UserAgent,
		&s.DeviceType, &s.LastActivityAt, &s.CreatedAt, &s.Revoked, &revokedAt,
	)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.RevokedAt = mapNullTimePtr(revokedAt)
	return s, nil
}
