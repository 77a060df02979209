package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/latticehq/lattice-auth/internal/auth/domain"
	"github.com/latticehq/lattice-auth/internal/auth/service"
	"github.com/latticehq/lattice-auth/internal/auth/store"
	"github.com/latticehq/lattice-auth/internal/obs"
	"github.com/latticehq/lattice-auth/pkg/httpx"
	"github.com/latticehq/lattice-auth/pkg/jwtx"
	"github.com/latticehq/lattice-auth/pkg/ratelimit"
	"github.com/latticehq/lattice-auth/pkg/slogx"

	"github.com/go-playground/validator/v10"
)

// ClassRefresh throttles the refresh endpoint. Not part of the default
// credential classes; the app layer registers its policy alongside them.
const ClassRefresh ratelimit.Class = "refresh"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	signer       jwtx.Signer
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	limiter      *ratelimit.Limiter

	store          store.Store
	TokenService   *service.TokenService
	SessionService *service.SessionService
}

func NewRouter(
	signer jwtx.Signer,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	limiter *ratelimit.Limiter,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		limiter:      limiter,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		obs.Instrument,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSessions()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.middlewares...)(r.Mux).ServeHTTP(w, req)
}

// authn builds the standard protected-route prefix: token verification with
// session liveness, then the authenticated-only guard.
func (r *Router) authn() httpx.Middleware {
	return httpx.Chain(
		httpx.AuthnMiddleware(r.verifier, r.store.Sessions()),
		httpx.RequireAuthenticated(),
	)
}

func (r *Router) registerAuth() {
	login := &LoginHandler{TokenService: r.TokenService, SessionService: r.SessionService}
	refresh := &RefreshHandler{TokenService: r.TokenService}
	logout := &LogoutHandler{TokenService: r.TokenService}

	// Brute-force protection keys on caller IP plus the targeted account,
	// so one address cannot starve an account and one account cannot be
	// locked from everywhere.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.RateLimitMiddleware(r.limiter, ratelimit.ClassLogin,
			httpx.CompositeKeyExtractor(":",
				httpx.IPKeyExtractor,
				httpx.BodyFieldKeyExtractor("email"),
			),
		)(login))

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.RateLimitByIP(r.limiter, ClassRefresh)(refresh))

	r.Mux.Handle("POST /v1/auth/logout", r.authn()(logout))

	r.Mux.Handle("GET /v1/auth/me", r.authn()(&MeHandler{}))
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{SessionService: r.SessionService}

	r.Mux.Handle("GET /v1/auth/sessions", r.authn()(http.HandlerFunc(h.HandleList)))
	r.Mux.Handle("DELETE /v1/auth/sessions/{id}", r.authn()(http.HandlerFunc(h.HandleRevoke)))
	r.Mux.Handle("POST /v1/auth/sessions/revoke-others", r.authn()(http.HandlerFunc(h.HandleRevokeOthers)))
}

func (r *Router) registerAdmin() {
	h := &AdminSessionsHandler{SessionService: r.SessionService}

	r.Mux.Handle("POST /v1/admin/users/{id}/sessions/revoke",
		httpx.Chain(
			r.authn(),
			httpx.RequireAnyRole(string(domain.RoleSuperAdmin)),
		)(http.HandlerFunc(h.HandleRevokeAll)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.signer))
	r.Mux.Handle("GET /metrics", obs.Handler())
}
