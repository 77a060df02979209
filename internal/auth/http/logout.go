package http

import (
	"errors"
	"net/http"

	"github.com/latticehq/lattice-auth/internal/auth/service"
	"github.com/latticehq/lattice-auth/pkg/httpx"
	"github.com/latticehq/lattice-auth/pkg/slogx"
)

type LogoutHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP revokes the session behind the presented access token. Logout is
// idempotent: a second call, or a call with a legacy token that has no jti,
// still succeeds.
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	claims, _ := httpx.ClaimsFromContext(ctx)
	if claims.ID == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.TokenService.Logout(ctx, claims.ID); err != nil {
		if !errors.Is(err, service.ErrSessionNotFound) {
			log.Error("logout failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error.")
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
