package service

import (
	"context"
	"errors"
	"strings"

	"github.com/latticehq/lattice-auth/internal/auth/domain"
	"github.com/latticehq/lattice-auth/internal/auth/store"
	"github.com/latticehq/lattice-auth/pkg/cryptox"
	"github.com/latticehq/lattice-auth/pkg/jwtx"
	"github.com/latticehq/lattice-auth/pkg/slogx"
)

// DirectoryService answers who a user is and what roles they hold.
type DirectoryService struct {
	Store store.Store
}

// VerifyCredentials checks an email/password pair against the directory.
// Unknown email, wrong password and deactivated account all collapse into
// ErrInvalidCredentials so callers cannot probe which one it was. The
// password hash is still verified for unknown users to keep timing flat.
func (s *DirectoryService) VerifyCredentials(ctx context.Context, email, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			cryptox.BurnPasswordCheck(password)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		l.Info("password verification failed", "user_id", u.ID)
		return domain.User{}, ErrInvalidCredentials
	}

	if !u.IsActive {
		l.Info("login attempt for deactivated account", "user_id", u.ID)
		return domain.User{}, ErrInvalidCredentials
	}

	return u, nil
}

// RoleSnapshot loads the user's tenant grants in stable order for embedding
// into an access token. The snapshot is frozen at issuance; later role
// changes never alter tokens already in flight.
func (s *DirectoryService) RoleSnapshot(ctx context.Context, userID string) ([]jwtx.TenantGrant, error) {
	assignments, err := s.Store.Memberships().ListRoleAssignments(ctx, userID)
	if err != nil {
		return nil, err
	}

	grants := make([]jwtx.TenantGrant, 0, len(assignments))
	for _, a := range assignments {
		grants = append(grants, jwtx.TenantGrant{
			TenantID:   a.TenantID,
			TenantName: a.TenantName,
			AppName:    a.AppName,
			Role:       string(a.Role),
		})
	}
	return grants, nil
}
