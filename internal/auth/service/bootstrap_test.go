package service_test

import (
	"context"
	"testing"

	"github.com/latticehq/lattice-auth/internal/auth/domain"
	"github.com/latticehq/lattice-auth/internal/auth/service"

	"github.com/stretchr/testify/require"
)

func TestBootstrapSeed(t *testing.T) {
	ctx := context.Background()

	data := service.BootstrapData{
		TenantName:    "lattice",
		AppName:       "platform",
		AdminEmail:    "Admin@Example.com",
		AdminPassword: testPassword,
		AdminName:     "Root Admin",
	}

	t.Run("seeds an empty directory with a super admin", func(t *testing.T) {
		e := newEnv(t)
		boot := &service.BootstrapService{Store: e.store}

		require.NoError(t, boot.Seed(ctx, data))

		// The admin can log in with a SUPER_ADMIN grant; email was normalised.
		pair, err := e.tokens.Login(ctx, "admin@example.com", testPassword, service.LoginMeta{})
		require.NoError(t, err)

		claims, err := e.verifier.Verify(pair.AccessToken)
		require.NoError(t, err)
		require.Len(t, claims.Tenants, 1)
		require.Equal(t, "lattice", claims.Tenants[0].TenantName)
		require.Equal(t, string(domain.RoleSuperAdmin), claims.Tenants[0].Role)
	})

	t.Run("is a no-op on a populated directory", func(t *testing.T) {
		e := newEnv(t)
		e.createUser(t, "existing@example.com", true)
		boot := &service.BootstrapService{Store: e.store}

		require.NoError(t, boot.Seed(ctx, data))

		_, err := e.store.Users().GetUserByEmail(ctx, "admin@example.com")
		require.Error(t, err)
	})

	t.Run("empty directory without admin credentials is an error", func(t *testing.T) {
		e := newEnv(t)
		boot := &service.BootstrapService{Store: e.store}

		err := boot.Seed(ctx, service.BootstrapData{TenantName: "lattice"})
		require.ErrorIs(t, err, service.ErrBootstrapIncomplete)
	})
}
