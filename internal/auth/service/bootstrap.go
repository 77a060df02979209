package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/latticehq/lattice-auth/internal/auth/domain"
	"github.com/latticehq/lattice-auth/internal/auth/store"
	"github.com/latticehq/lattice-auth/pkg/cryptox"
	"github.com/latticehq/lattice-auth/pkg/idx"
	"github.com/latticehq/lattice-auth/pkg/slogx"
)

var ErrBootstrapIncomplete = errors.New("bootstrap admin email and password are both required")

// BootstrapData seeds an empty directory with its first tenant and a
// SUPER_ADMIN account.
type BootstrapData struct {
	TenantName    string
	AppName       string
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

type BootstrapService struct {
	Store store.Store
}

// Seed creates the initial tenant and admin when the directory is empty.
// Running against a populated directory is a no-op, so it is safe to call
// unconditionally at startup.
func (s *BootstrapService) Seed(ctx context.Context, data BootstrapData) error {
	l := slogx.FromContext(ctx)

	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}

	data.AdminEmail = strings.ToLower(strings.TrimSpace(data.AdminEmail))
	if data.AdminEmail == "" || data.AdminPassword == "" {
		return ErrBootstrapIncomplete
	}
	if data.TenantName == "" {
		data.TenantName = "default"
	}

	passHash, err := cryptox.HashPassword(data.AdminPassword)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	tenant := domain.Tenant{
		ID:        idx.NewString(),
		Name:      data.TenantName,
		AppName:   data.AppName,
		CreatedAt: now,
	}
	admin := domain.User{
		ID:           idx.NewString(),
		Email:        data.AdminEmail,
		FullName:     data.AdminName,
		PasswordHash: passHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Tenants().CreateTenant(ctx, tenant); err != nil {
			return err
		}
		if err := tx.Users().CreateUser(ctx, admin); err != nil {
			return err
		}
		return tx.Memberships().CreateMembership(ctx, admin.ID, tenant.ID, domain.RoleSuperAdmin)
	})
	if err != nil {
		return err
	}

	l.Info("bootstrapped empty directory",
		"tenant_id", tenant.ID,
		"admin_user_id", admin.ID,
	)
	return nil
}
