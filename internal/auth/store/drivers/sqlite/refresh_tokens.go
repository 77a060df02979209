package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/latticehq/lattice-auth/internal/auth/domain"
)

type refreshTokensRepo struct {
	q querier
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_fingerprint, expires_at, revoked, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenFingerprint, t.ExpiresAt, t.Revoked, t.CreatedAt)
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByFingerprint(
	ctx context.Context,
	fingerprint string,
) (domain.RefreshToken, error) {
	var (
		t         domain.RefreshToken
		revokedAt sql.NullTime
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, token_fingerprint, expires_at, revoked, revoked_at, created_at
		 FROM refresh_tokens WHERE token_fingerprint = ?`, fingerprint).
		Scan(&t.ID, &t.UserID, &t.TokenFingerprint, &t.ExpiresAt, &t.Revoked, &revokedAt, &t.CreatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.RevokedAt = mapNullTimePtr(revokedAt)
	return t, nil
}

// RevokeRefreshToken is idempotent: revoked_at keeps its first value so the
// revocation history is append-only.
func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, revoked_at = ? WHERE id = ? AND revoked = 0`,
		time.Now().UTC(), id)
	return err
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, revoked_at = ? WHERE user_id = ? AND revoked = 0`,
		time.Now().UTC(), userID)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ?`, before)
	return err
}
