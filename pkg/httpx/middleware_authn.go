package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/latticehq/lattice-auth/pkg/jwtx"
	"github.com/latticehq/lattice-auth/pkg/slogx"
)

// RevocationChecker reports whether an access token's jti still belongs to a
// live (non-revoked) session. Satisfied by the sessions store.
type RevocationChecker interface {
	IsJTILive(ctx context.Context, jti string) (bool, error)
}

// AuthnMiddleware verifies a bearer token and, when it checks out, attaches
// the claims to the request context. It never rejects a request itself:
// requests with no token, a bad token, or a revoked session simply continue
// anonymously and the route guards decide what anonymous callers may do.
//
// A store failure during the liveness check counts as revoked. Rejecting a
// live session is recoverable; honouring a revoked one is not.
func AuthnMiddleware(v jwtx.Verifier, revocations RevocationChecker) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				log.Debug("bearer token rejected", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			// Tokens minted before jti tracking carry no ID and cannot be
			// matched against a session; they pass on signature and expiry
			// alone until they age out.
			if claims.ID != "" {
				live, err := revocations.IsJTILive(ctx, claims.ID)
				if err != nil {
					log.Warn("session liveness check failed, treating token as revoked", "err", err)
					next.ServeHTTP(w, r)
					return
				}
				if !live {
					log.Debug("bearer token belongs to a revoked session", "jti", claims.ID)
					next.ServeHTTP(w, r)
					return
				}
			} else {
				log.Debug("bearer token has no jti, skipping liveness check", "sub", claims.Subject)
			}

			ctx = contextWithAuth(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
