package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/latticehq/lattice-auth/internal/auth/domain"
	authhttp "github.com/latticehq/lattice-auth/internal/auth/http"
	"github.com/latticehq/lattice-auth/internal/auth/service"
	"github.com/latticehq/lattice-auth/internal/auth/store/drivers/sqlite"
	"github.com/latticehq/lattice-auth/pkg/cryptox"
	"github.com/latticehq/lattice-auth/pkg/idx"
	"github.com/latticehq/lattice-auth/pkg/jwtx"
	"github.com/latticehq/lattice-auth/pkg/ratelimit"

	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "lattice-auth"
	testPassword = "correct horse battery staple"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testApp struct {
	store  *sqlite.Store
	router *authhttp.Router
}

func newTestApp(t *testing.T, policies map[ratelimit.Class]ratelimit.Policy) *testApp {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	verifier := jwtx.NewVerifierHS256(testSecret, jwtx.VerifyOptions{Issuer: testIssuer})

	if policies == nil {
		// Roomy defaults so ordinary tests never trip the limiter.
		policies = map[ratelimit.Class]ratelimit.Policy{
			ratelimit.ClassLogin:  {RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
			authhttp.ClassRefresh: {RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	directory := &service.DirectoryService{Store: st}

	router := authhttp.NewRouter(signer, verifier, "test", st, ratelimit.NewWithPolicies(policies), logger)
	router.TokenService = &service.TokenService{
		Signer:     signer,
		Store:      st,
		Directory:  directory,
		Issuer:     testIssuer,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
	}
	router.SessionService = &service.SessionService{Store: st}
	router.ApplyRoutes()

	return &testApp{store: st, router: router}
}

func (a *testApp) createUser(t *testing.T, email string, role domain.Role) domain.User {
	t.Helper()
	ctx := context.Background()

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)

	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.NewString(),
		Email:        email,
		FullName:     "Test User",
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, a.store.Users().CreateUser(ctx, u))

	tenant := domain.Tenant{ID: idx.NewString(), Name: "Acme", AppName: "billing", CreatedAt: now}
	require.NoError(t, a.store.Tenants().CreateTenant(ctx, tenant))
	require.NoError(t, a.store.Memberships().CreateMembership(ctx, u.ID, tenant.ID, role))
	return u
}

func (a *testApp) do(method, path, bearer string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = strings.NewReader(string(data))
	}
	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) login(t *testing.T, email string) (access, refresh string) {
	t.Helper()

	rec := a.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, int64(900), resp.ExpiresIn)
	return resp.AccessToken, resp.RefreshToken
}

func TestLoginEndpoint(t *testing.T) {
	app := newTestApp(t, nil)
	app.createUser(t, "alice@example.com", domain.RoleUser)

	t.Run("issues tokens for valid credentials", func(t *testing.T) {
		access, refresh := app.login(t, "alice@example.com")
		require.NotEmpty(t, access)
		require.NotEmpty(t, refresh)
	})

	t.Run("rejects bad credentials with 401", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
			"email":    "alice@example.com",
			"password": "wrong",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid_credentials")
	})

	t.Run("rejects malformed and incomplete bodies with 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		app.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = app.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "alice@example.com"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginRateLimit(t *testing.T) {
	app := newTestApp(t, map[ratelimit.Class]ratelimit.Policy{
		ratelimit.ClassLogin: {RequestsPerWindow: 2, Window: time.Minute, Burst: 2},
	})
	app.createUser(t, "alice@example.com", domain.RoleUser)

	bad := map[string]string{"email": "alice@example.com", "password": "wrong"}
	for i := 0; i < 2; i++ {
		rec := app.do(http.MethodPost, "/v1/auth/login", "", bad)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := app.do(http.MethodPost, "/v1/auth/login", "", bad)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), "rate_limit_exceeded")

	// A different account from the same IP has its own budget.
	app.createUser(t, "bob@example.com", domain.RoleUser)
	rec = app.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "bob@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	app := newTestApp(t, nil)
	app.createUser(t, "alice@example.com", domain.RoleUser)
	access, refresh := app.login(t, "alice@example.com")

	t.Run("mints a new access token", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{
			"refresh_token": refresh,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotEqual(t, access, resp.AccessToken)
		require.Equal(t, refresh, resp.RefreshToken)

		// The pre-refresh access token no longer works.
		rec = app.do(http.MethodGet, "/v1/auth/me", access, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects unknown refresh tokens", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{
			"refresh_token": "never-issued",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid_refresh_token")
	})
}

func TestLogoutEndpoint(t *testing.T) {
	app := newTestApp(t, nil)
	app.createUser(t, "alice@example.com", domain.RoleUser)
	access, refresh := app.login(t, "alice@example.com")

	rec := app.do(http.MethodGet, "/v1/auth/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(http.MethodPost, "/v1/auth/logout", access, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Both halves of the pair are dead.
	rec = app.do(http.MethodGet, "/v1/auth/me", access, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = app.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeEndpoint(t *testing.T) {
	app := newTestApp(t, nil)
	u := app.createUser(t, "alice@example.com", domain.RoleTenantAdmin)
	access, _ := app.login(t, "alice@example.com")

	rec := app.do(http.MethodGet, "/v1/auth/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		UserID  string `json:"user_id"`
		Email   string `json:"email"`
		Tenants []struct {
			Role string `json:"role"`
		} `json:"tenants"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, u.ID, resp.UserID)
	require.Equal(t, "alice@example.com", resp.Email)
	require.Len(t, resp.Tenants, 1)
	require.Equal(t, string(domain.RoleTenantAdmin), resp.Tenants[0].Role)

	rec = app.do(http.MethodGet, "/v1/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionEndpoints(t *testing.T) {
	app := newTestApp(t, nil)
	app.createUser(t, "alice@example.com", domain.RoleUser)

	_, _ = app.login(t, "alice@example.com")
	_, _ = app.login(t, "alice@example.com")
	current, _ := app.login(t, "alice@example.com")

	type sessionList struct {
		Sessions []struct {
			ID      string `json:"id"`
			Active  bool   `json:"active"`
			Current bool   `json:"current"`
		} `json:"sessions"`
	}

	var list sessionList
	rec := app.do(http.MethodGet, "/v1/auth/sessions", current, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Sessions, 3)
	require.True(t, list.Sessions[0].Current)

	t.Run("revoke one session by id", func(t *testing.T) {
		target := list.Sessions[2].ID
		rec := app.do(http.MethodDelete, "/v1/auth/sessions/"+target, current, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		var after sessionList
		rec = app.do(http.MethodGet, "/v1/auth/sessions", current, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
		for _, s := range after.Sessions {
			if s.ID == target {
				require.False(t, s.Active)
			}
		}
	})

	t.Run("unknown session id is 404", func(t *testing.T) {
		rec := app.do(http.MethodDelete, "/v1/auth/sessions/no-such-id", current, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("revoke-others spares the calling session", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/auth/sessions/revoke-others", current, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Revoked int `json:"revoked"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, 1, resp.Revoked)

		rec = app.do(http.MethodGet, "/v1/auth/me", current, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAdminRevokeEndpoint(t *testing.T) {
	app := newTestApp(t, nil)
	app.createUser(t, "root@example.com", domain.RoleSuperAdmin)
	target := app.createUser(t, "alice@example.com", domain.RoleUser)

	adminAccess, _ := app.login(t, "root@example.com")
	targetAccess, _ := app.login(t, "alice@example.com")

	path := fmt.Sprintf("/v1/admin/users/%s/sessions/revoke", target.ID)

	t.Run("requires SUPER_ADMIN", func(t *testing.T) {
		rec := app.do(http.MethodPost, path, targetAccess, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)

		rec = app.do(http.MethodPost, path, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("revokes every session of the target", func(t *testing.T) {
		rec := app.do(http.MethodPost, path, adminAccess, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Revoked int `json:"revoked"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, 1, resp.Revoked)

		rec = app.do(http.MethodGet, "/v1/auth/me", targetAccess, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		// The admin's own session is untouched.
		rec = app.do(http.MethodGet, "/v1/auth/me", adminAccess, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = app.do(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"database":"ok"`)
}
