package http

import (
	"errors"
	"net/http"

	"github.com/latticehq/lattice-auth/internal/auth/service"
	"github.com/latticehq/lattice-auth/pkg/httpx"
	"github.com/latticehq/lattice-auth/pkg/slogx"
)

// SessionsHandler exposes a user's own sessions.
type SessionsHandler struct {
	SessionService *service.SessionService
}

// HandleList returns the caller's sessions, newest first, with the one
// backing this request marked current. Listing counts as activity on the
// current session.
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	claims, _ := httpx.ClaimsFromContext(ctx)

	if claims.ID != "" {
		h.SessionService.Touch(ctx, claims.ID)
	}

	sessions, err := h.SessionService.List(ctx, claims.UserID, claims.ID)
	if err != nil {
		log.Error("session list failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error.")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// HandleRevoke terminates one of the caller's own sessions.
func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	claims, _ := httpx.ClaimsFromContext(ctx)

	err := h.SessionService.Revoke(ctx, claims.UserID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Session not found.")
			return
		}
		log.Error("session revoke failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRevokeOthers terminates every session of the caller except the one
// backing this request.
func (h *SessionsHandler) HandleRevokeOthers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	claims, _ := httpx.ClaimsFromContext(ctx)

	n, err := h.SessionService.RevokeOthers(ctx, claims.UserID, claims.ID)
	if err != nil {
		log.Error("revoke others failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error.")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]int{"revoked": n})
}

// AdminSessionsHandler lets SUPER_ADMINs force a user off every device.
type AdminSessionsHandler struct {
	SessionService *service.SessionService
}

func (h *AdminSessionsHandler) HandleRevokeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	claims, _ := httpx.ClaimsFromContext(ctx)
	userID := r.PathValue("id")

	n, err := h.SessionService.RevokeAllForUser(ctx, userID)
	if err != nil {
		log.Error("admin revoke failed", "target_user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error.")
		return
	}

	log.Info("admin revoked user sessions",
		"admin_user_id", claims.UserID,
		"target_user_id", userID,
		"count", n,
	)
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"revoked": n})
}
